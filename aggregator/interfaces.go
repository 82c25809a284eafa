package aggregator

import (
	"context"

	"github.com/schooldashboard/dsbplan/dsb"
	"github.com/schooldashboard/dsbplan/parser"
	"github.com/schooldashboard/dsbplan/plan"
	"github.com/schooldashboard/dsbplan/store"
)

// Upstream is the live DSBmobile source.
type Upstream interface {
	GetTimeTables(ctx context.Context) ([]dsb.TimeTable, error)
	GetNews(ctx context.Context) ([]dsb.News, error)
}

// PageParser fetches and parses one detail page.
type PageParser interface {
	Fetch(ctx context.Context, url string) (*parser.Document, error)
}

// DocumentStore persists the raw HTML of fetched pages.
type DocumentStore interface {
	Store(ctx context.Context, table dsb.TimeTable, p *plan.SubstitutionPlan, rawHTML string) (*store.StoredDocument, store.Outcome, error)
}

// ResponseCache keeps the last serialized payload per key.
type ResponseCache interface {
	Store(ctx context.Context, key string, payload any) error
	GetJSON(ctx context.Context, key string, out any) (bool, error)
}

// TimeTableFetcher yields the current page list, failing on any upstream error.
type TimeTableFetcher interface {
	Fetch(ctx context.Context) ([]dsb.TimeTable, error)
}
