package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/schooldashboard/dsbplan/dsb"
	"github.com/schooldashboard/dsbplan/plan"
	"github.com/schooldashboard/dsbplan/store"
)

// ErrCycleInProgress is returned by Update when another cycle is running.
var ErrCycleInProgress = errors.New("aggregator: update cycle already running")

const defaultPageConcurrency = 4

// Status describes the most recent update cycles.
type Status struct {
	LastSuccess  time.Time
	LastAttempt  time.Time
	LastError    string
	LastDuration time.Duration
	Plans        int
}

// Options configures an Aggregator.
type Options struct {
	Source          TimeTableFetcher
	Parser          PageParser
	Documents       DocumentStore
	Cache           ResponseCache
	PageConcurrency int
	Logger          *zap.Logger
}

// Aggregator fetches, merges and publishes substitution plans.
type Aggregator struct {
	source      TimeTableFetcher
	parser      PageParser
	documents   DocumentStore
	cache       ResponseCache
	concurrency int
	logger      *zap.Logger
	now         func() time.Time

	cycle    sync.Mutex
	plans    atomic.Pointer[[]plan.SubstitutionPlan]
	statusMu sync.RWMutex
	status   Status
}

// New creates an Aggregator. Documents and Cache are optional.
func New(opts Options) *Aggregator {
	if opts.PageConcurrency <= 0 {
		opts.PageConcurrency = defaultPageConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{
		source:      opts.Source,
		parser:      opts.Parser,
		documents:   opts.Documents,
		cache:       opts.Cache,
		concurrency: opts.PageConcurrency,
		logger:      logger.Named("aggregator"),
		now:         time.Now,
	}
	empty := []plan.SubstitutionPlan{}
	a.plans.Store(&empty)
	return a
}

// Plans returns the last published list. The slice must not be modified.
func (a *Aggregator) Plans() []plan.SubstitutionPlan {
	return *a.plans.Load()
}

// Status returns a copy of the cycle metadata.
func (a *Aggregator) Status() Status {
	a.statusMu.RLock()
	defer a.statusMu.RUnlock()
	return a.status
}

// Update runs one cycle. On error the previously published list stays in place.
func (a *Aggregator) Update(ctx context.Context) error {
	if !a.cycle.TryLock() {
		a.logger.Info("skipping update, previous cycle still running")
		return ErrCycleInProgress
	}
	defer a.cycle.Unlock()

	start := a.now()
	a.logger.Info("starting plan update")

	plans, err := a.build(ctx)
	duration := a.now().Sub(start)
	if err != nil {
		a.recordFailure(start, duration, err)
		a.logger.Error("plan update failed, keeping previous plans",
			zap.Duration("duration", duration), zap.Error(err))
		return err
	}

	a.plans.Store(&plans)
	a.recordSuccess(start, duration, len(plans))
	a.logger.Info("updated substitution plans",
		zap.Int("plans", len(plans)), zap.Duration("duration", duration))

	if a.cache != nil {
		if err := a.cache.Store(ctx, store.KeySubstitutionPlans, plans); err != nil {
			a.logger.Warn("failed to cache substitution plans", zap.Error(err))
		}
	}
	return nil
}

type group struct {
	name  string
	pages []int
}

func (a *Aggregator) build(ctx context.Context) ([]plan.SubstitutionPlan, error) {
	all, err := a.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch timetables: %w", err)
	}

	tables := make([]dsb.TimeTable, 0, len(all))
	for _, t := range all {
		if t.Detail == "" {
			a.logger.Debug("skipping timetable without detail url", zap.String("title", t.Title))
			continue
		}
		tables = append(tables, t)
	}

	var order []string
	groups := map[string]*group{}
	for i, t := range tables {
		g, ok := groups[t.UUID]
		if !ok {
			g = &group{name: t.GroupName}
			groups[t.UUID] = g
			order = append(order, t.UUID)
		}
		g.pages = append(g.pages, i)
	}
	a.logger.Info("grouped timetables",
		zap.Int("received", len(all)), zap.Int("valid", len(tables)), zap.Int("groups", len(order)))

	pages := a.fetchPages(ctx, tables)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plans := make([]plan.SubstitutionPlan, 0, len(order))
	for _, id := range order {
		g := groups[id]
		parsed := make([]plan.SubstitutionPlan, 0, len(g.pages))
		for _, i := range g.pages {
			if pages[i] != nil {
				parsed = append(parsed, *pages[i])
			}
		}
		merged, ok := plan.Merge(parsed)
		if !ok {
			a.logger.Warn("no page of group could be parsed, dropping it",
				zap.String("uuid", id), zap.String("group", g.name))
			continue
		}
		merged.SortPriority = plan.SortPriority(g.name)
		a.logger.Info("combined plan",
			zap.String("group", g.name),
			zap.Int("priority", merged.SortPriority),
			zap.String("date", merged.Date),
			zap.Int("pages", len(parsed)),
			zap.Int("entries", len(merged.Entries)),
			zap.Int("news", len(merged.News.NewsItems)))
		plans = append(plans, merged)
	}

	plan.Sort(plans)
	return plans, nil
}

// fetchPages parses every table concurrently. The result is indexed like
// tables; failed pages are nil.
func (a *Aggregator) fetchPages(ctx context.Context, tables []dsb.TimeTable) []*plan.SubstitutionPlan {
	results := make([]*plan.SubstitutionPlan, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, t := range tables {
		i, t := i, t
		g.Go(func() error {
			results[i] = a.fetchPage(gctx, t)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *Aggregator) fetchPage(ctx context.Context, t dsb.TimeTable) *plan.SubstitutionPlan {
	doc, err := a.parser.Fetch(ctx, t.Detail)
	if err != nil {
		a.logger.Error("failed to parse plan page", zap.String("url", t.Detail), zap.Error(err))
		return nil
	}
	if a.documents != nil {
		if _, outcome, err := a.documents.Store(ctx, t, &doc.Plan, doc.RawHTML); err != nil {
			a.logger.Warn("failed to persist plan page", zap.String("url", t.Detail), zap.Error(err))
		} else {
			a.logger.Debug("persisted plan page", zap.String("url", t.Detail), zap.Stringer("outcome", outcome))
		}
	}
	return &doc.Plan
}

func (a *Aggregator) recordSuccess(start time.Time, d time.Duration, n int) {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	a.status.LastAttempt = start
	a.status.LastSuccess = start.Add(d)
	a.status.LastError = ""
	a.status.LastDuration = d
	a.status.Plans = n
}

func (a *Aggregator) recordFailure(start time.Time, d time.Duration, err error) {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	a.status.LastAttempt = start
	a.status.LastError = err.Error()
	a.status.LastDuration = d
}
