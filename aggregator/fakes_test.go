package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/schooldashboard/dsbplan/dsb"
	"github.com/schooldashboard/dsbplan/parser"
	"github.com/schooldashboard/dsbplan/plan"
	"github.com/schooldashboard/dsbplan/store"
)

var errUpstream = fmt.Errorf("%w: connection refused", dsb.ErrTransport)

type fakeUpstream struct {
	mu     sync.Mutex
	tables []dsb.TimeTable
	news   []dsb.News
	err    error
	calls  int
}

func (f *fakeUpstream) GetTimeTables(context.Context) ([]dsb.TimeTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tables, nil
}

func (f *fakeUpstream) GetNews(context.Context) ([]dsb.News, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.news, nil
}

func (f *fakeUpstream) set(tables []dsb.TimeTable, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables, f.err = tables, err
}

// fakeParser returns one entry per page named after the url. Delays let
// later pages finish first.
type fakeParser struct {
	mu     sync.Mutex
	date   map[string]string
	news   map[string][]string
	fail   map[string]bool
	delay  map[string]time.Duration
	hits   map[string]int
	block  chan struct{}
	active int
	peak   int
}

func newFakeParser() *fakeParser {
	return &fakeParser{
		date:  map[string]string{},
		news:  map[string][]string{},
		fail:  map[string]bool{},
		delay: map[string]time.Duration{},
		hits:  map[string]int{},
	}
}

func (f *fakeParser) Fetch(ctx context.Context, url string) (*parser.Document, error) {
	f.mu.Lock()
	f.hits[url]++
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	delay, fail, block := f.delay[url], f.fail[url], f.block
	date, news := f.date[url], f.news[url]
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return nil, fmt.Errorf("%w: %s", parser.ErrFetch, url)
	}
	p := plan.NewSubstitutionPlan(date)
	p.Title = "title " + url
	p.Entries = append(p.Entries, plan.SubstitutionEntry{Classes: url, Date: date})
	for _, n := range news {
		p.News.AddNewsItem(n)
	}
	return &parser.Document{Plan: p, RawHTML: "<html>" + url + "</html>"}, nil
}

type fakeDocuments struct {
	mu     sync.Mutex
	stored []string
	err    error
}

func (f *fakeDocuments) Store(_ context.Context, t dsb.TimeTable, _ *plan.SubstitutionPlan, raw string) (*store.StoredDocument, store.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, store.OutcomeSkipped, f.err
	}
	f.stored = append(f.stored, t.Detail)
	return &store.StoredDocument{PlanUUID: t.UUID, DetailURL: t.Detail, RawHTML: raw}, store.OutcomeInserted, nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	writes  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}}
}

func (c *memoryCache) Store(_ context.Context, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = string(body)
	c.writes++
	return nil
}

func (c *memoryCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	c.mu.Lock()
	raw, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, nil
	}
	return true, nil
}

type brokenCache struct{}

func (brokenCache) Store(context.Context, string, any) error { return errors.New("disk full") }
func (brokenCache) GetJSON(context.Context, string, any) (bool, error) {
	return false, errors.New("disk full")
}
