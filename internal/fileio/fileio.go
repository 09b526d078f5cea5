// Package fileio opens annotation source files wherever they live: local
// paths or S3 URIs, gzipped or not. Open failures degrade to an empty line
// sequence with a logged error, so one unreadable file cannot abort a
// build.
package fileio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
)

const (
	gzipExtension = ".gz"
	s3URIScheme   = "s3"
	s3URLHostName = "s3.amazonaws.com"
	utf8BOM       = "\uFEFF"
)

// maxLineSize bounds a single source line; some GenBank and XML sources
// carry very long lines.
const maxLineSize = 16 * 1024 * 1024

// Open returns a reader over the file at path, which may be a local path,
// an s3:// URI, or an S3 object URL. Files ending in .gz are decompressed
// transparently.
func Open(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key := S3Parameters(path)
	var (
		raw io.ReadCloser
		err error
	)
	if bucket != "" && key != "" {
		raw, err = openS3(ctx, bucket, key)
	} else {
		raw, err = os.Open(path)
	}
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, gzipExtension) {
		return raw, nil
	}
	zr, err := gzip.NewReader(raw)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("opening gzip stream for %s: %w", path, err)
	}
	return &gzipReadCloser{zr: zr, raw: raw}, nil
}

type gzipReadCloser struct {
	zr  *gzip.Reader
	raw io.ReadCloser
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipReadCloser) Close() error {
	zerr := g.zr.Close()
	rerr := g.raw.Close()
	if zerr != nil {
		return zerr
	}
	return rerr
}

func openS3(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

// S3Parameters extracts the bucket and key from an S3 URI or object URL.
// Both are empty when path does not point at S3.
func S3Parameters(path string) (bucket, key string) {
	if !strings.HasPrefix(path, s3URIScheme) && !strings.Contains(path, s3URLHostName) {
		return "", ""
	}
	parsed, err := url.Parse(path)
	if err != nil {
		return "", ""
	}
	host := parsed.Hostname()
	switch {
	case parsed.Scheme == s3URIScheme:
		bucket = host
		key = parsed.Path
	case strings.Contains(host, s3URLHostName):
		bucket, _, _ = strings.Cut(host, ".")
		key = parsed.Path
	default:
		return "", ""
	}
	key = strings.TrimPrefix(key, "/")
	return bucket, key
}

// Lines yields the whitespace-trimmed lines of the file at path, with any
// leading UTF-8 byte order mark stripped. When the file cannot be opened
// or read, the error is logged and iteration simply ends.
func Lines(ctx context.Context, path string, logger *slog.Logger) iter.Seq[string] {
	if logger == nil {
		logger = slog.Default()
	}
	return func(yield func(string) bool) {
		handle, err := Open(ctx, path)
		if err != nil {
			logger.Error("could not open source file", "path", path, "err", err)
			return
		}
		defer handle.Close()

		scanner := bufio.NewScanner(handle)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		first := true
		for scanner.Scan() {
			line := scanner.Text()
			if first {
				line = strings.TrimPrefix(line, utf8BOM)
				first = false
			}
			if !yield(strings.TrimSpace(line)) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Error("error reading source file", "path", path, "err", err)
		}
	}
}
