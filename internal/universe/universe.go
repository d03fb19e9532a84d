// Package universe resolves the list of symbols a run analyzes.
package universe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocarina/gocsv"
	"github.com/gocolly/colly/v2"

	"estimate-revision-model/internal/logger"
)

// ErrNoConstituents is returned when the index page has no recognizable constituents table
var ErrNoConstituents = errors.New("no index constituents found")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// IndexPages maps supported index names to their constituents page
var IndexPages = map[string]string{
	"nasdaq100": "https://en.wikipedia.org/wiki/Nasdaq-100",
	"sp500":     "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies",
}

type symbolRow struct {
	Symbol string `csv:"symbol"`
}

// Provider returns the analysis universe from a static list, a cache file or the index page
type Provider struct {
	index     string
	static    []string
	useCache  bool
	cachePath string
	pageURL   string
	timeout   time.Duration
	log       logger.Logger
}

// Option configures the provider
type Option func(*Provider)

// WithStatic bypasses the index lookup entirely
func WithStatic(symbols []string) Option {
	return func(p *Provider) {
		p.static = symbols
	}
}

// WithCache reads and writes constituents at path
func WithCache(path string, enabled bool) Option {
	return func(p *Provider) {
		p.cachePath = path
		p.useCache = enabled
	}
}

// WithPageURL overrides the constituents page for the index
func WithPageURL(url string) Option {
	return func(p *Provider) {
		p.pageURL = url
	}
}

// WithLogger sets the provider logger
func WithLogger(log logger.Logger) Option {
	return func(p *Provider) {
		p.log = log
	}
}

// NewProvider creates a universe provider for index ("nasdaq100" or "sp500")
func NewProvider(index string, opts ...Option) *Provider {
	p := &Provider{
		index:   index,
		pageURL: IndexPages[index],
		timeout: 30 * time.Second,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Symbols returns the universe in a stable order
func (p *Provider) Symbols(ctx context.Context) ([]string, error) {
	if len(p.static) > 0 {
		return p.static, nil
	}

	if p.useCache && p.cachePath != "" {
		symbols, err := readCache(p.cachePath)
		if err == nil && len(symbols) > 0 {
			p.log.Info(ctx, "Loaded universe from cache", "index", p.index, "path", p.cachePath, "symbols", len(symbols))
			return symbols, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			p.log.Warn(ctx, "Ignoring unreadable universe cache", "path", p.cachePath, "error", err)
		}
	}

	if p.pageURL == "" {
		return nil, fmt.Errorf("unsupported index %q", p.index)
	}

	symbols, err := p.scrape(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s constituents: %w", p.index, err)
	}
	p.log.Info(ctx, "Fetched index constituents", "index", p.index, "symbols", len(symbols))

	if p.cachePath != "" {
		if err := writeCache(p.cachePath, symbols); err != nil {
			p.log.Warn(ctx, "Failed to write universe cache", "path", p.cachePath, "error", err)
		}
	}
	return symbols, nil
}

func (p *Provider) scrape(ctx context.Context) ([]string, error) {
	var (
		symbols  []string
		parseErr error
		found    bool
	)

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.Async(false),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(p.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
	})

	c.OnHTML("table#constituents", func(e *colly.HTMLElement) {
		if found {
			return
		}
		found = true
		symbols, parseErr = ParseTable(e.DOM)
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("HTTP %d from %s: %w", r.StatusCode, r.Request.URL, err)
	})

	if err := c.Visit(p.pageURL); err != nil && fetchErr == nil {
		fetchErr = err
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if !found {
		return nil, ErrNoConstituents
	}
	return symbols, parseErr
}

// ParseDocument extracts symbols from the first constituents table in doc
func ParseDocument(doc *goquery.Document) ([]string, error) {
	table := doc.Find("table#constituents").First()
	if table.Length() == 0 {
		return nil, ErrNoConstituents
	}
	return ParseTable(table)
}

// ParseTable reads the Ticker or Symbol column of a constituents table.
// Symbols are upper-cased, de-duplicated and dotted share classes use a dash (BRK.B -> BRK-B).
func ParseTable(table *goquery.Selection) ([]string, error) {
	col := -1
	seen := make(map[string]bool)
	var symbols []string

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("th, td")
		if tr.ChildrenFiltered("td").Length() == 0 {
			if col < 0 {
				cells.EachWithBreak(func(i int, cell *goquery.Selection) bool {
					switch strings.ToLower(strings.TrimSpace(cell.Text())) {
					case "ticker", "symbol":
						col = i
						return false
					}
					return true
				})
			}
			return
		}
		if col < 0 || cells.Length() <= col {
			return
		}

		sym := strings.ToUpper(strings.TrimSpace(cells.Eq(col).Text()))
		sym = strings.ReplaceAll(sym, ".", "-")
		if sym == "" || seen[sym] {
			return
		}
		seen[sym] = true
		symbols = append(symbols, sym)
	})

	if len(symbols) == 0 {
		return nil, ErrNoConstituents
	}
	return symbols, nil
}

func readCache(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*symbolRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	symbols := make([]string, 0, len(rows))
	for _, r := range rows {
		if s := strings.TrimSpace(r.Symbol); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols, nil
}

func writeCache(path string, symbols []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	rows := make([]*symbolRow, 0, len(symbols))
	for _, s := range symbols {
		rows = append(rows, &symbolRow{Symbol: s})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.Marshal(rows, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
