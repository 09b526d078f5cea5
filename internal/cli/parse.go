package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/annotstore/annotstore/internal/models"
	"github.com/annotstore/annotstore/internal/parser"
)

var parseCmd = &cobra.Command{
	Use:   "parse <source-file>",
	Short: "Parse a source file and print its records",
	Long: `Parse a single source file with the given parser and print each record
as a JSON line. Useful for inspecting what a source yields before wiring
it into an instruction file.`,
	Args: cobra.ExactArgs(1),
	Run:  runParse,
}

var (
	parseType           string
	parseHeader         []string
	parseHeaderLine     int
	parseCommentChars   string
	parseEmptyFields    []string
	parseListIdentifier string
	parseRecordPath     string
	parseLimit          int
)

func init() {
	parseCmd.Flags().StringVar(&parseType, "parser", "TSV", "Parser type (TSV, CSV, GTF, GenBank, UniProtDAT, XML)")
	parseCmd.Flags().StringSliceVar(&parseHeader, "header", nil, "Explicit header field names")
	parseCmd.Flags().IntVar(&parseHeaderLine, "header-line", -1, "Line the header is located on (0-based)")
	parseCmd.Flags().StringVar(&parseCommentChars, "comment-characters", "", "Characters starting a comment line")
	parseCmd.Flags().StringSliceVar(&parseEmptyFields, "empty-fields", nil, "Values treated as missing")
	parseCmd.Flags().StringVar(&parseListIdentifier, "list-identifier", "", "Characters splitting a value into a list")
	parseCmd.Flags().StringVar(&parseRecordPath, "record-path", "", "Record element path for XML sources")
	parseCmd.Flags().IntVarP(&parseLimit, "limit", "n", 0, "Stop after this many records")
}

func runParse(cmd *cobra.Command, args []string) {
	c := initContext()

	opts := models.ParserOptions{
		Header:            parseHeader,
		CommentCharacters: parseCommentChars,
		EmptyFields:       parseEmptyFields,
		ListIdentifier:    parseListIdentifier,
		RecordPath:        parseRecordPath,
	}
	if parseHeaderLine >= 0 {
		headerLine := parseHeaderLine
		opts.HeaderLine = &headerLine
	}

	source, err := parser.New(parseType, args[0], opts, c.Logger)
	if err != nil {
		exitError("%v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	count := 0
	for rec := range source.Records(context.Background()) {
		if err := encoder.Encode(rec); err != nil {
			exitError("failed to encode record: %v", err)
		}
		count++
		if parseLimit > 0 && count >= parseLimit {
			break
		}
	}
	c.Logger.Info("parsed source file", "file", args[0], "records", count)
}
