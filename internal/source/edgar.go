package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// EDGARConfig configures SEC EDGAR access.
type EDGARConfig struct {
	// Identity is sent as the User-Agent. The SEC requires a name and a
	// contact email, e.g. "Jane Analyst jane@example.com".
	Identity string
	// BaseURL serves company_tickers.json and the filing archives.
	BaseURL string
	// DataURL serves the submissions API.
	DataURL string
	// MinSectionLength drops items shorter than this many characters.
	MinSectionLength int
	HTTPClient       *http.Client
	Log              logrus.FieldLogger
}

// EDGAR fetches 10-K and 10-Q items.
type EDGAR struct {
	cfg    EDGARConfig
	client *http.Client
	log    logrus.FieldLogger

	mu      sync.Mutex
	tickers map[string]int // upper-case ticker -> CIK, loaded once
}

// NewEDGAR creates an EDGAR source. Empty URLs default to the public SEC
// endpoints.
func NewEDGAR(cfg EDGARConfig) *EDGAR {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.sec.gov"
	}
	if cfg.DataURL == "" {
		cfg.DataURL = "https://data.sec.gov"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.DataURL = strings.TrimRight(cfg.DataURL, "/")

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EDGAR{cfg: cfg, client: client, log: log}
}

// Filing identifies one document in the EDGAR archive.
type Filing struct {
	CIK             int
	Form            Form
	AccessionNumber string
	FilingDate      string
	ReportDate      string
	PrimaryDocument string
}

// URL is the primary document's archive location.
func (f Filing) URL(baseURL string) string {
	return fmt.Sprintf("%s/Archives/edgar/data/%d/%s/%s",
		baseURL, f.CIK, strings.ReplaceAll(f.AccessionNumber, "-", ""), f.PrimaryDocument)
}

// TenK returns the cleaned items of the 10-K whose report date falls in
// year. items restricts and orders the result; empty means all items.
func (e *EDGAR) TenK(ctx context.Context, ticker string, year int, items ...string) ([]Section, error) {
	if err := e.checkRequest(ticker, year); err != nil {
		return nil, err
	}
	names, err := ResolveItemNames(Form10K, items)
	if err != nil {
		return nil, err
	}

	filing, err := e.findFiling(ctx, ticker, Form10K, func(f Filing) bool {
		return yearOf(f.ReportDate) == year
	})
	if err != nil {
		return nil, err
	}
	if filing == nil {
		return nil, unavailable(ticker, fmt.Errorf("no 10-K filing found for the year %d", year))
	}
	return e.sections(ctx, *filing, names)
}

// TenQ returns the cleaned items of the 10-Q filed in the given calendar
// year and quarter.
func (e *EDGAR) TenQ(ctx context.Context, ticker string, year, quarter int, items ...string) ([]Section, error) {
	if err := e.checkRequest(ticker, year); err != nil {
		return nil, err
	}
	if quarter < 1 || quarter > 4 {
		return nil, invalid("quarter must be 1-4, got %d", quarter)
	}
	names, err := ResolveItemNames(Form10Q, items)
	if err != nil {
		return nil, err
	}

	filing, err := e.findFiling(ctx, ticker, Form10Q, func(f Filing) bool {
		t, err := time.Parse(time.DateOnly, f.FilingDate)
		return err == nil && t.Year() == year && (int(t.Month())-1)/3+1 == quarter
	})
	if err != nil {
		return nil, err
	}
	if filing == nil {
		return nil, unavailable(ticker, fmt.Errorf("no 10-Q filing found for %s in %d Q%d", ticker, year, quarter))
	}
	return e.sections(ctx, *filing, names)
}

func (e *EDGAR) checkRequest(ticker string, year int) error {
	if strings.TrimSpace(ticker) == "" {
		return invalid("ticker symbol is required")
	}
	if year <= 0 {
		return invalid("year is required")
	}
	if strings.TrimSpace(e.cfg.Identity) == "" {
		return invalid("an EDGAR identity (name and email) is required")
	}
	return nil
}

func (e *EDGAR) sections(ctx context.Context, f Filing, names []string) ([]Section, error) {
	url := f.URL(e.cfg.BaseURL)
	e.log.WithFields(logrus.Fields{
		"form":      f.Form,
		"cik":       f.CIK,
		"accession": f.AccessionNumber,
		"report":    f.ReportDate,
	}).Info("fetching filing")

	raw, err := httpGet(ctx, e.client, url, e.cfg.Identity, DefaultMaxDocumentBytes)
	if err != nil {
		return nil, err
	}
	text, err := htmlToText(bytes.NewReader(raw))
	if err != nil {
		return nil, unavailable(url, fmt.Errorf("parse filing HTML: %w", err))
	}

	all := SelectSections(SplitItems(f.Form, text), names)
	out := make([]Section, 0, len(all))
	for _, s := range all {
		if utf8.RuneCountInString(s.Text) < e.cfg.MinSectionLength {
			e.log.WithField("item", s.Name).Debug("skipping short item")
			continue
		}
		if c := Clean(s.Text); c != "" {
			out = append(out, Section{Name: s.Name, Text: c})
		}
	}
	if len(out) == 0 {
		return nil, unavailable(url, fmt.Errorf("no items extracted from %s", f.Form))
	}
	return out, nil
}

// CIK resolves a ticker symbol to its SEC central index key.
func (e *EDGAR) CIK(ctx context.Context, ticker string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tickers == nil {
		var entries map[string]struct {
			CIK    int    `json:"cik_str"`
			Ticker string `json:"ticker"`
		}
		if err := e.getJSON(ctx, e.cfg.BaseURL+"/files/company_tickers.json", &entries); err != nil {
			return 0, err
		}
		tickers := make(map[string]int, len(entries))
		for _, en := range entries {
			tickers[strings.ToUpper(en.Ticker)] = en.CIK
		}
		e.tickers = tickers
	}

	cik, ok := e.tickers[strings.ToUpper(strings.TrimSpace(ticker))]
	if !ok {
		return 0, unavailable(ticker, fmt.Errorf("unknown ticker %q", ticker))
	}
	return cik, nil
}

// filingColumns is EDGAR's column-oriented filing index. The submissions
// document carries the newest filings under "recent"; older ones are in
// separate pages with the same columns at the top level.
type filingColumns struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	ReportDate      []string `json:"reportDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

type submissions struct {
	Filings struct {
		Recent filingColumns `json:"recent"`
		Files  []struct {
			Name string `json:"name"`
		} `json:"files"`
	} `json:"filings"`
}

// findFiling returns the most recent filing of form matching keep, or nil.
// History pages are only fetched when the recent index has no match.
func (e *EDGAR) findFiling(ctx context.Context, ticker string, form Form, keep func(Filing) bool) (*Filing, error) {
	cik, err := e.CIK(ctx, ticker)
	if err != nil {
		return nil, err
	}

	var subs submissions
	if err := e.getJSON(ctx, fmt.Sprintf("%s/submissions/CIK%010d.json", e.cfg.DataURL, cik), &subs); err != nil {
		return nil, err
	}
	if f := subs.Filings.Recent.find(cik, form, keep); f != nil {
		return f, nil
	}

	for _, page := range subs.Filings.Files {
		e.log.WithField("page", page.Name).Debug("searching older filings")
		var cols filingColumns
		if err := e.getJSON(ctx, e.cfg.DataURL+"/submissions/"+page.Name, &cols); err != nil {
			return nil, err
		}
		if f := cols.find(cik, form, keep); f != nil {
			return f, nil
		}
	}
	return nil, nil
}

func (c filingColumns) find(cik int, form Form, keep func(Filing) bool) *Filing {
	for i := range c.Form {
		if Form(c.Form[i]) != form || i >= len(c.AccessionNumber) || i >= len(c.PrimaryDocument) {
			continue
		}
		f := Filing{
			CIK:             cik,
			Form:            form,
			AccessionNumber: c.AccessionNumber[i],
			PrimaryDocument: c.PrimaryDocument[i],
		}
		if i < len(c.FilingDate) {
			f.FilingDate = c.FilingDate[i]
		}
		if i < len(c.ReportDate) {
			f.ReportDate = c.ReportDate[i]
		}
		if keep(f) {
			return &f
		}
	}
	return nil
}

func (e *EDGAR) getJSON(ctx context.Context, url string, v any) error {
	raw, err := httpGet(ctx, e.client, url, e.cfg.Identity, DefaultMaxDocumentBytes)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return unavailable(url, fmt.Errorf("decode: %w", err))
	}
	return nil
}

func yearOf(date string) int {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return 0
	}
	return t.Year()
}
