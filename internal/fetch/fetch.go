// Package fetch resolves named CSV sources against a base location and
// exposes the byte-level helpers preflight needs (checksum, row count,
// missing-column scan). The loader itself never reads source bytes; the
// database pulls the CSV directly from the resolved URL.
package fetch

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const sentinel = `\N`

// Fetcher resolves source paths against a base URL or local directory.
type Fetcher struct {
	base   string
	client *retryablehttp.Client
	log    *zap.Logger
}

// New creates a fetcher. base is either an http(s) URL prefix where the CSVs
// are hosted, or a local directory.
func New(base string, logger *zap.Logger) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &Fetcher{
		base:   base,
		client: client,
		log:    logger.Named("fetch"),
	}
}

// IsURL reports whether p is an absolute http(s) location.
func IsURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Resolve turns a mapping source path into the location handed to both the
// preflight reader and the LOAD CSV statement. Absolute URLs pass through;
// everything else resolves to base + the path's basename, matching how the
// manifest names files.
func (f *Fetcher) Resolve(p string) string {
	if IsURL(p) {
		return p
	}
	base := path.Base(p)
	if IsURL(f.base) {
		joined, err := url.JoinPath(f.base, base)
		if err != nil {
			return strings.TrimRight(f.base, "/") + "/" + base
		}
		return joined
	}
	return filepath.Join(f.base, base)
}

// Open returns the byte stream of a resolved source location.
func (f *Fetcher) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if IsURL(location) {
		req, err := retryablehttp.NewRequestWithContext(ctx, "GET", location, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
		}
		if resp.StatusCode != 200 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("fetching %s: unexpected status %s", location, resp.Status)
		}
		return resp.Body, nil
	}
	file, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", location, err)
	}
	return file, nil
}

// SHA256 streams the source and returns its hex-encoded content checksum.
func (f *Fetcher) SHA256(ctx context.Context, location string) (string, error) {
	body, err := f.Open(ctx, location)
	if err != nil {
		return "", err
	}
	defer body.Close()

	h := sha256.New()
	if _, err := io.Copy(h, body); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", location, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CountRows returns the number of data rows (lines minus the header).
func (f *Fetcher) CountRows(ctx context.Context, location string) (int64, error) {
	body, err := f.Open(ctx, location)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var lines int64
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", location, err)
	}
	if lines == 0 {
		return 0, nil
	}
	return lines - 1, nil
}

// CountMissingColumn scans the CSV and counts rows whose named column is
// empty or the \N sentinel after BOM stripping and trimming. This is the
// same normalization the compiled load expressions apply, so the count
// predicts exactly which rows the skip-guard will drop.
func (f *Fetcher) CountMissingColumn(ctx context.Context, location, column string) (int, error) {
	body, err := f.Open(ctx, location)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read header of %s: %w", location, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	idx := -1
	for i, h := range header {
		if h == column {
			idx = i
			break
		}
	}
	if idx == -1 {
		return 0, fmt.Errorf("column %q not found in %s", column, location)
	}

	missing := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to scan %s: %w", location, err)
		}
		if idx >= len(record) {
			missing++
			continue
		}
		v := strings.TrimSpace(strings.ReplaceAll(record[idx], "\uFEFF", ""))
		if v == "" || v == sentinel {
			missing++
		}
	}
	return missing, nil
}
