package parser

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"regexp"
	"strings"

	"github.com/annotstore/annotstore/internal/fileio"
	"github.com/annotstore/annotstore/internal/models"
	"github.com/annotstore/annotstore/internal/record"
)

// xmlAttributeFilter matches the [@key=value] filters of a record path
// element.
var xmlAttributeFilter = regexp.MustCompile(`\[@(\w+)=(\w+)\]`)

// xmlPathElement is one step of a record path: a tag name plus the
// attribute values an element must carry to match.
type xmlPathElement struct {
	tag        string
	attributes map[string]string
}

// xmlParser streams records out of an XML file. The record path names the
// element, relative to the document root, whose occurrences are the
// records; each matched element's subtree becomes one record, with leaf
// text as field values, repeated tags as lists, and nested elements as
// nested records. The tree is never built whole.
type xmlParser struct {
	path           string
	recordPath     []xmlPathElement
	emptyFields    []string
	listIdentifier string
	splitFields    []models.SplitField
	logger         *slog.Logger
}

func newXML(path string, opts models.ParserOptions, logger *slog.Logger) (*xmlParser, error) {
	recordPath, err := parseRecordPath(opts.RecordPath)
	if err != nil {
		return nil, err
	}
	parser := &xmlParser{
		path:           path,
		recordPath:     recordPath,
		emptyFields:    opts.EmptyFields,
		listIdentifier: opts.ListIdentifier,
		splitFields:    opts.SplitFields,
		logger:         logger,
	}
	if parser.emptyFields == nil {
		parser.emptyFields = []string{""}
	}
	return parser, nil
}

// parseRecordPath splits a "a/b[@k=v]/c" path into its elements.
func parseRecordPath(recordPath string) ([]xmlPathElement, error) {
	var path []xmlPathElement
	for _, element := range strings.Split(recordPath, "/") {
		if element == "" {
			continue
		}
		filters := xmlAttributeFilter.FindAllStringSubmatch(element, -1)
		if filters == nil {
			path = append(path, xmlPathElement{tag: element})
			continue
		}
		location := xmlAttributeFilter.FindStringIndex(element)
		tag := element[:location[0]]
		if tag == "" {
			return nil, fmt.Errorf("record path element %q has no tag", element)
		}
		attributes := make(map[string]string, len(filters))
		for _, filter := range filters {
			attributes[filter[1]] = filter[2]
		}
		path = append(path, xmlPathElement{tag: tag, attributes: attributes})
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("record path is required for XML sources")
	}
	return path, nil
}

func (e xmlPathElement) matches(start xml.StartElement) bool {
	if start.Name.Local != e.tag {
		return false
	}
	for key, want := range e.attributes {
		found := false
		for _, attr := range start.Attr {
			if attr.Name.Local == key && attr.Value == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (p *xmlParser) Records(ctx context.Context) iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		handle, err := fileio.Open(ctx, p.path)
		if err != nil {
			p.logger.Error("could not open source file", "path", p.path, "err", err)
			return
		}
		defer handle.Close()

		decoder := xml.NewDecoder(handle)
		// matched[i] reports whether the currently open element at record
		// path level i matches the path up to and including that level.
		matched := make([]bool, len(p.recordPath))
		depth := 0
		for {
			token, err := decoder.Token()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					p.logger.Error("error reading XML source", "path", p.path, "err", err)
				}
				return
			}
			switch element := token.(type) {
			case xml.StartElement:
				depth++
				// The document root is outside the record path.
				level := depth - 2
				if level < 0 || level >= len(p.recordPath) {
					continue
				}
				matched[level] = p.recordPath[level].matches(element) &&
					(level == 0 || matched[level-1])
				if level == len(p.recordPath)-1 && matched[level] {
					rec, err := p.parseSubtree(decoder)
					if err != nil {
						p.logger.Error("error reading XML source", "path", p.path, "err", err)
						return
					}
					// parseSubtree consumed the element's end tag.
					depth--
					matched[level] = false
					applySplitFields(rec, p.splitFields)
					if len(rec) > 0 && !yield(rec) {
						return
					}
				}
			case xml.EndElement:
				level := depth - 2
				if level >= 0 && level < len(p.recordPath) {
					matched[level] = false
				}
				depth--
			}
		}
	}
}

// parseSubtree reads tokens up to the current element's end tag and builds
// the record for it. Leaf elements contribute their text, repeated tags
// accumulate into lists, and elements with children become nested records.
func (p *xmlParser) parseSubtree(decoder *xml.Decoder) (record.Record, error) {
	rec := make(record.Record)
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		switch element := token.(type) {
		case xml.StartElement:
			if err := p.parseChild(decoder, element, rec); err != nil {
				return nil, err
			}
		case xml.EndElement:
			return rec, nil
		}
	}
}

// parseChild consumes one child element and adds its value to rec.
func (p *xmlParser) parseChild(decoder *xml.Decoder, start xml.StartElement, rec record.Record) error {
	var text strings.Builder
	var children record.Record
	for {
		token, err := decoder.Token()
		if err != nil {
			return err
		}
		switch element := token.(type) {
		case xml.StartElement:
			if children == nil {
				children = make(record.Record)
			}
			if err := p.parseChild(decoder, element, children); err != nil {
				return err
			}
		case xml.CharData:
			text.Write(element)
		case xml.EndElement:
			tag := start.Name.Local
			if children != nil {
				if len(children) > 0 {
					p.addNested(rec, tag, children)
				}
				return nil
			}
			p.addLeaf(rec, tag, strings.TrimSpace(text.String()))
			return nil
		}
	}
}

// addLeaf stores a leaf text value, splitting lists and skipping empty
// markers; a repeated tag accumulates its values.
func (p *xmlParser) addLeaf(rec record.Record, tag, text string) {
	for _, empty := range p.emptyFields {
		if text == empty {
			return
		}
	}
	value := splitList(text, p.listIdentifier)
	switch existing := rec[tag].(type) {
	case nil:
		rec[tag] = value
	case []any:
		rec[tag] = append(existing, value)
	default:
		rec[tag] = []any{existing, value}
	}
}

// addNested stores a child record, merging with an already present record
// of the same tag; a colliding field turns the value into a list of
// records instead, so repeated groups survive.
func (p *xmlParser) addNested(rec record.Record, tag string, child record.Record) {
	switch existing := rec[tag].(type) {
	case nil:
		rec[tag] = child
	case record.Record:
		for key := range child {
			if _, collision := existing[key]; collision {
				rec[tag] = []any{existing, child}
				return
			}
		}
		for key, value := range child {
			existing[key] = value
		}
	case []any:
		rec[tag] = append(existing, child)
	default:
		rec[tag] = []any{existing, child}
	}
}
