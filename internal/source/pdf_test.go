package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/abhisek/findata/internal/source/sourcetest"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFSource_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annual-report.pdf")
	require.NoError(t, os.WriteFile(path, sourcetest.BuildPDF("Revenue grew 10 percent", "Net income was 2 million"), 0o644))

	pages, err := (&PDFSource{}).Pages(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0], "Revenue grew 10 percent")
	assert.Contains(t, pages[1], "Net income was 2 million")

	text, err := (&PDFSource{}).Text(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "Revenue grew 10 percent")
	assert.Contains(t, text, "Net income was 2 million")
}

func TestPDFSource_HTTP(t *testing.T) {
	doc := sourcetest.BuildPDF("Operating margin expanded")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/report.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(doc)
	}))
	t.Cleanup(srv.Close)

	src := &PDFSource{HTTPClient: srv.Client()}
	text, err := src.Text(context.Background(), srv.URL+"/report.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Operating margin expanded")

	var unavail *ErrSourceUnavailable
	_, err = src.Text(context.Background(), srv.URL+"/missing.pdf")
	assert.True(t, errors.As(err, &unavail), "404 should be unavailable: %v", err)

	_, err = (&PDFSource{HTTPClient: srv.Client(), MaxBytes: 16}).Text(context.Background(), srv.URL+"/report.pdf")
	assert.True(t, errors.As(err, &unavail), "oversized download should be unavailable: %v", err)
}

func TestPDFSource_Errors(t *testing.T) {
	var unavail *ErrSourceUnavailable

	_, err := (&PDFSource{}).Text(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	assert.True(t, errors.As(err, &unavail))

	garbage := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a pdf"), 0o644))
	_, err = (&PDFSource{}).Text(context.Background(), garbage)
	assert.True(t, errors.As(err, &unavail))

	_, err = (&PDFSource{}).Text(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = (&PDFSource{}).Text(context.Background(), "s3://bucket/key.pdf")
	assert.ErrorIs(t, err, ErrInvalidInput, "s3 refs need a fetcher")
}

type fakeS3 struct {
	objects map[string][]byte
	lastKey string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.lastKey = key
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestPDFSource_S3(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"filings/2023/q4.pdf": sourcetest.BuildPDF("Free cash flow improved"),
	}}
	src := &PDFSource{S3: NewS3Fetcher(fake)}

	text, err := src.Text(context.Background(), "s3://filings/2023/q4.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Free cash flow improved")
	assert.Equal(t, "filings/2023/q4.pdf", fake.lastKey)

	var unavail *ErrSourceUnavailable
	_, err = src.Text(context.Background(), "s3://filings/missing.pdf")
	assert.True(t, errors.As(err, &unavail))
}

func TestParseS3Ref(t *testing.T) {
	bucket, key, err := ParseS3Ref("s3://reports/10k/aapl.pdf")
	require.NoError(t, err)
	assert.Equal(t, "reports", bucket)
	assert.Equal(t, "10k/aapl.pdf", key)

	for _, bad := range []string{"s3://only-bucket", "https://x/y", "s3:///key"} {
		_, _, err := ParseS3Ref(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestNewS3Client(t *testing.T) {
	client, err := NewS3Client(context.Background(), S3Config{
		Endpoint:     "http://localhost:9000",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}
