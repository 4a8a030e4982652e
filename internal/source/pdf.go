package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxDocumentBytes bounds downloads.
const DefaultMaxDocumentBytes = 128 << 20

// PDFSource extracts text from PDFs referenced by http(s) URL, s3://
// reference or local path.
type PDFSource struct {
	HTTPClient *http.Client
	// S3 serves s3:// references. Nil rejects them.
	S3       *S3Fetcher
	MaxBytes int64
}

// Pages returns the plain text of every non-empty page in order.
func (s *PDFSource) Pages(ctx context.Context, ref string) ([]string, error) {
	data, err := s.fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	pages, err := extractPDFPages(data)
	if err != nil {
		return nil, unavailable(ref, err)
	}
	return pages, nil
}

// Text returns the document text with pages joined by newlines.
func (s *PDFSource) Text(ctx context.Context, ref string) (string, error) {
	pages, err := s.Pages(ctx, ref)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n"), nil
}

func (s *PDFSource) fetch(ctx context.Context, ref string) ([]byte, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, invalid("document reference is required")
	}
	limit := s.MaxBytes
	if limit == 0 {
		limit = DefaultMaxDocumentBytes
	}

	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return httpGet(ctx, s.client(), ref, "", limit)
	case strings.HasPrefix(ref, "s3://"):
		if s.S3 == nil {
			return nil, invalid("s3 references are not configured: %q", ref)
		}
		return s.S3.Fetch(ctx, ref, limit)
	default:
		f, err := os.Open(ref)
		if err != nil {
			return nil, unavailable(ref, err)
		}
		defer f.Close()
		data, err := readLimited(f, limit)
		if err != nil {
			return nil, unavailable(ref, err)
		}
		return data, nil
	}
}

func (s *PDFSource) client() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return http.DefaultClient
}

// httpGet fetches url and fails on any non-2xx status. userAgent may be
// empty.
func httpGet(ctx context.Context, client *http.Client, url, userAgent string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, invalid("bad URL %q: %v", url, err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, unavailable(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, unavailable(url, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	data, err := readLimited(resp.Body, limit)
	if err != nil {
		return nil, unavailable(url, err)
	}
	return data, nil
}

// extractPDFPages reads page text with ledongthuc/pdf, which panics on
// some malformed files.
func extractPDFPages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, errors.New("no extractable text")
	}
	return pages, nil
}
