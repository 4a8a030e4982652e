package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIdentity = "Findata Tests tests@example.com"

func filingHTML() string {
	p := func(s string) string { return "<p>" + s + "</p>" }
	return "<html><body>" +
		p("Item 1. Business 3") + p("Item 7. MD&amp;A 30") +
		p("ITEM 1. BUSINESS") + p(body("Snowflake delivers the AI Data Cloud.", 8)) +
		p("ITEM 6. [RESERVED]") +
		p("ITEM 7. MANAGEMENT'S DISCUSSION AND ANALYSIS") + p(body("Product revenue grew 38% ---- year over year.", 8)) +
		"</body></html>"
}

type edgarServer struct {
	*httptest.Server
	hits      atomic.Int32
	userAgent atomic.Value
}

func newEDGARServer(t *testing.T) *edgarServer {
	t.Helper()
	s := &edgarServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.userAgent.Store(r.UserAgent())
		fmt.Fprint(w, `{"0":{"cik_str":1640147,"ticker":"SNOW","title":"Snowflake Inc."},"1":{"cik_str":1318605,"ticker":"TSLA","title":"Tesla, Inc."}}`)
	})
	mux.HandleFunc("/submissions/CIK0001640147.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"filings":{"recent":{
			"accessionNumber":["0001640147-23-000099","0001640147-23-000050","0001640147-23-000010","0001640147-22-000010"],
			"filingDate":["2023-09-01","2023-06-01","2023-03-29","2022-03-30"],
			"reportDate":["2023-07-31","2023-04-30","2023-01-31","2022-01-31"],
			"form":["10-Q","10-Q","10-K","10-K"],
			"primaryDocument":["q2.htm","q1.htm","snow-20230131.htm","snow-20220131.htm"]}}}`)
	})
	mux.HandleFunc("/Archives/edgar/data/1640147/000164014723000010/snow-20230131.htm", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, filingHTML())
	})
	mux.HandleFunc("/Archives/edgar/data/1640147/000164014723000099/q2.htm", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>PART I</p><p>Item 2. Management's Discussion</p><p>"+
			body("Remaining performance obligations were $3.5 billion.", 6)+"</p><p>PART II</p><p>Item 1A. Risk Factors</p><p>"+
			body("Macroeconomic uncertainty may reduce consumption.", 6)+"</p></body></html>")
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestEDGAR(srv *edgarServer) *EDGAR {
	return NewEDGAR(EDGARConfig{
		Identity:         testIdentity,
		BaseURL:          srv.URL,
		DataURL:          srv.URL + "/",
		MinSectionLength: DefaultMinLength,
		Log:              logrus.New(),
	})
}

func TestEDGAR_TenK(t *testing.T) {
	srv := newEDGARServer(t)
	e := newTestEDGAR(srv)

	sections, err := e.TenK(context.Background(), "snow", 2023)
	require.NoError(t, err)
	require.Len(t, sections, 2, "reserved item is too short")

	assert.Equal(t, "Item 1", sections[0].Name)
	assert.True(t, strings.HasPrefix(sections[0].Text, "ITEM 1. BUSINESS"))
	assert.Equal(t, "Item 7", sections[1].Name)
	assert.NotContains(t, sections[1].Text, "----", "items are cleaned")
	assert.NotContains(t, sections[1].Text, "\n")
	assert.Equal(t, testIdentity, srv.userAgent.Load())
}

func TestEDGAR_TenKSelectedItems(t *testing.T) {
	srv := newEDGARServer(t)
	e := newTestEDGAR(srv)

	sections, err := e.TenK(context.Background(), "SNOW", 2023, "item 7")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Item 7", sections[0].Name)

	// Ticker map is cached.
	_, err = e.TenK(context.Background(), "SNOW", 2023, "Item 1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestEDGAR_TenQ(t *testing.T) {
	srv := newEDGARServer(t)
	e := newTestEDGAR(srv)
	e.cfg.MinSectionLength = 50

	sections, err := e.TenQ(context.Background(), "SNOW", 2023, 3)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "Part I, Item 2", sections[0].Name)
	assert.Equal(t, "Part II, Item 1A", sections[1].Name)
}

func TestEDGAR_Errors(t *testing.T) {
	srv := newEDGARServer(t)
	e := newTestEDGAR(srv)
	ctx := context.Background()

	invalidCases := map[string]func() error{
		"missing ticker": func() error { _, err := e.TenK(ctx, " ", 2023); return err },
		"missing year":   func() error { _, err := e.TenK(ctx, "SNOW", 0); return err },
		"bad quarter":    func() error { _, err := e.TenQ(ctx, "SNOW", 2023, 5); return err },
		"unknown item":   func() error { _, err := e.TenK(ctx, "SNOW", 2023, "Item 42"); return err },
		"no identity": func() error {
			_, err := NewEDGAR(EDGARConfig{BaseURL: srv.URL}).TenK(ctx, "SNOW", 2023)
			return err
		},
	}
	for name, call := range invalidCases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(), ErrInvalidInput)
		})
	}

	var unavail *ErrSourceUnavailable
	_, err := e.TenK(ctx, "SNOW", 2019)
	assert.True(t, errors.As(err, &unavail), "no filing for year: %v", err)

	_, err = e.TenK(ctx, "ZZZZ", 2023)
	assert.True(t, errors.As(err, &unavail), "unknown ticker: %v", err)

	_, err = e.TenQ(ctx, "TSLA", 2023, 1)
	assert.True(t, errors.As(err, &unavail), "missing submissions: %v", err)

	assert.Equal(t, int32(1), srv.hits.Load(), "validation fails before any request")
}

func TestEDGAR_TenKFromOlderFilingPage(t *testing.T) {
	var pages atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"0":{"cik_str":19617,"ticker":"JPM","title":"JPMorgan Chase & Co."}}`)
	})
	mux.HandleFunc("/submissions/CIK0000019617.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"filings":{"recent":{
			"accessionNumber":["0001213900-24-000001"],
			"filingDate":["2024-05-01"],
			"reportDate":[""],
			"form":["424B2"],
			"primaryDocument":["note.htm"]},
			"files":[{"name":"CIK0000019617-submissions-001.json"}]}}`)
	})
	mux.HandleFunc("/submissions/CIK0000019617-submissions-001.json", func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		fmt.Fprint(w, `{
			"accessionNumber":["0000019617-20-000011"],
			"filingDate":["2020-02-25"],
			"reportDate":["2019-12-31"],
			"form":["10-K"],
			"primaryDocument":["corp10k2019.htm"]}`)
	})
	mux.HandleFunc("/Archives/edgar/data/19617/000001961720000011/corp10k2019.htm", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, filingHTML())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	e := NewEDGAR(EDGARConfig{
		Identity:         testIdentity,
		BaseURL:          srv.URL,
		DataURL:          srv.URL,
		MinSectionLength: DefaultMinLength,
		Log:              logrus.New(),
	})

	sections, err := e.TenK(context.Background(), "JPM", 2019, "Item 7")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Item 7", sections[0].Name)
	assert.Equal(t, int32(1), pages.Load())

	_, err = e.TenK(context.Background(), "JPM", 2015)
	var unavail *ErrSourceUnavailable
	assert.True(t, errors.As(err, &unavail), "no filing in any page: %v", err)
}
