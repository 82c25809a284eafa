package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/schooldashboard/dsbplan/config"
	"github.com/schooldashboard/dsbplan/plan"
	"github.com/schooldashboard/dsbplan/utils"
)

// ErrFetch reports that a detail page could not be retrieved.
var ErrFetch = errors.New("parser: fetch failed")

const (
	newsMarker      = "nachrichten zum tag"
	newsStopMarker  = "Untis Stundenplan"
	defaultMaxBody  = 2 << 20
	defaultAgent    = "dsbplan/1.0"
	defaultTimeout  = 5 * time.Second
	defaultReadTime = 10 * time.Second
)

// Document is one parsed detail page together with its decoded source.
type Document struct {
	Plan    plan.SubstitutionPlan
	RawHTML string
}

// Options configures a Parser.
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	UserAgent      string
	MaxBodyBytes   int64
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// Parser fetches and parses detail pages.
type Parser struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	logger    *zap.Logger
}

// New creates a Parser with bounded timeouts.
func New(opts Options) *Parser {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTime
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	client := opts.HTTPClient
	if client == nil {
		client = utils.NewHTTPClient(opts.ConnectTimeout, opts.ReadTimeout)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		client:    client,
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
		logger:    logger.Named("parser"),
	}
}

// NewFromConfig creates a Parser from the parser config section.
func NewFromConfig(cfg config.ParserConfig, logger *zap.Logger) *Parser {
	return New(Options{
		ConnectTimeout: utils.Millis(cfg.ConnectTimeoutMS, defaultTimeout),
		ReadTimeout:    utils.Millis(cfg.ReadTimeoutMS, defaultReadTime),
		UserAgent:      cfg.UserAgent,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Logger:         logger,
	})
}

// Fetch downloads url and parses it.
func (p *Parser) Fetch(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrFetch, resp.StatusCode, url)
	}

	body, err := p.readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, url, err)
	}

	doc, err := ParseBytes(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	p.logger.Debug("parsed page",
		zap.String("url", url),
		zap.String("date", doc.Plan.Date),
		zap.Int("entries", len(doc.Plan.Entries)),
		zap.Int("news", len(doc.Plan.News.NewsItems)))
	return doc, nil
}

// FetchFile parses a page stored on disk.
func (p *Parser) FetchFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = f.Close() }()

	body, err := p.readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, path, err)
	}
	return ParseBytes(body, "")
}

func (p *Parser) readLimited(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, p.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > p.maxBody {
		return nil, fmt.Errorf("body exceeds %d bytes", p.maxBody)
	}
	return body, nil
}

// ParseBytes decodes body using the charset from contentType or the page's
// meta tags and parses the result.
func ParseBytes(body []byte, contentType string) (*Document, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	return Parse(strings.NewReader(string(decoded)))
}

// Parse reads UTF-8 HTML from r. Missing sections leave fields empty.
func Parse(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	result := plan.NewSubstitutionPlan("")
	if n := findFirst(root, func(n *html.Node) bool { return matches(n, "div", "mon_title") }); n != nil {
		result.Date = text(n)
		result.News.Date = result.Date
	}
	result.Title = parseTitle(root)
	parseNews(root, &result.News)
	result.Entries = parseEntries(root, result.Date)

	return &Document{Plan: result, RawHTML: string(raw)}, nil
}

func parseTitle(root *html.Node) string {
	var parts []string
	for _, table := range findAll(root, func(n *html.Node) bool { return matches(n, "table", "info") }) {
		for _, row := range findAll(table, func(n *html.Node) bool { return matches(n, "tr", "info") }) {
			if t := text(row); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " ")
}

// parseNews collects the element siblings following the parent of the
// "Nachrichten zum Tag" marker up to the Untis footer, falling back to
// font[size=4] blocks.
func parseNews(root *html.Node, news *plan.DailyNews) {
	header := findFirst(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && strings.Contains(strings.ToLower(ownText(n)), newsMarker)
	})
	if header == nil {
		return
	}

	var next *html.Node
	if header.Parent != nil {
		next = nextElementSibling(header.Parent)
	}
	for s := next; s != nil; s = nextElementSibling(s) {
		t := text(s)
		if strings.Contains(t, newsStopMarker) {
			break
		}
		news.AddNewsItem(t)
	}

	if len(news.NewsItems) > 0 {
		return
	}
	for _, font := range findAll(root, func(n *html.Node) bool {
		return isElement(n, "font") && strings.TrimSpace(attr(n, "size")) == "4"
	}) {
		news.AddNewsItem(text(font))
	}
}

type field int

const (
	fieldNone field = iota
	fieldOriginalSubject
	fieldSubject
	fieldClasses
	fieldPeriod
	fieldAbsent
	fieldSubstitute
	fieldRoom
	fieldType
	fieldComment
)

var headerKeywords = []struct {
	keyword string
	field   field
}{
	{"(fach)", fieldOriginalSubject},
	{"fach", fieldSubject},
	{"klasse", fieldClasses},
	{"stunde", fieldPeriod},
	{"abwesend", fieldAbsent},
	{"vertreter", fieldSubstitute},
	{"raum", fieldRoom},
	{"art", fieldType},
	{"bemerkung", fieldComment},
}

func classifyHeader(header string) field {
	h := strings.ToLower(header)
	for _, k := range headerKeywords {
		if strings.Contains(h, k.keyword) {
			return k.field
		}
	}
	return fieldNone
}

func parseEntries(root *html.Node, date string) []plan.SubstitutionEntry {
	entries := []plan.SubstitutionEntry{}
	table := findFirst(root, func(n *html.Node) bool { return matches(n, "table", "mon_list") })
	if table == nil {
		return entries
	}

	var columns []field
	for _, row := range findAll(table, func(n *html.Node) bool { return matches(n, "tr", "list") }) {
		for _, th := range findAll(row, func(n *html.Node) bool { return isElement(n, "th") }) {
			columns = append(columns, classifyHeader(text(th)))
		}
	}

	rows := findAll(table, func(n *html.Node) bool {
		return matches(n, "tr", "list", "odd") || matches(n, "tr", "list", "even")
	})
	for _, row := range rows {
		cells := findAll(row, func(n *html.Node) bool { return isElement(n, "td") })
		entry := plan.SubstitutionEntry{Date: date}
		for i, cell := range cells {
			if i >= len(columns) {
				break
			}
			assign(&entry, columns[i], text(cell))
		}
		if entry.IsEmpty() {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func assign(e *plan.SubstitutionEntry, f field, v string) {
	switch f {
	case fieldOriginalSubject:
		e.OriginalSubject = v
	case fieldSubject:
		e.Subject = v
	case fieldClasses:
		e.Classes = v
	case fieldPeriod:
		e.Period = v
	case fieldAbsent:
		e.AbsentTeacher = v
	case fieldSubstitute:
		e.Substitute = v
	case fieldRoom:
		e.NewRoom = v
	case fieldType:
		e.Type = v
	case fieldComment:
		e.Comment = v
	}
}
