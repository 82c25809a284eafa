package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/schooldashboard/dsbplan/dsb"
	"github.com/schooldashboard/dsbplan/plan"
)

// StoredDocument is the raw HTML of one plan page.
type StoredDocument struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PlanUUID    string    `gorm:"column:plan_uuid;size:64;not null;uniqueIndex:ux_plan_documents_plan_detail" json:"planUuid"`
	DetailURL   string    `gorm:"column:detail_url;size:1024;not null;uniqueIndex:ux_plan_documents_plan_detail;index:idx_plan_documents_detail" json:"detailUrl"`
	RawHTML     string    `gorm:"column:raw_html;type:text;not null" json:"-"`
	ContentHash string    `gorm:"column:content_hash;size:64;not null" json:"contentHash"`
	GroupName   string    `gorm:"column:group_name;size:255" json:"groupName"`
	PlanDate    string    `gorm:"column:plan_date;size:255" json:"planDate"`
	Title       string    `gorm:"column:title;size:255" json:"title"`
	SourceDate  string    `gorm:"column:source_date;size:255" json:"sourceDate"`
	SourceTitle string    `gorm:"column:source_title;size:255" json:"sourceTitle"`
	PageNumber  *int      `gorm:"column:page_number" json:"pageNumber,omitempty"`
	PageCount   *int      `gorm:"column:page_count" json:"pageCount,omitempty"`
	FetchedAt   time.Time `gorm:"column:fetched_at;not null" json:"fetchedAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName overrides the gorm default.
func (StoredDocument) TableName() string { return "substitution_plan_documents" }

// Outcome describes what Store did.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeInserted
	OutcomeUpdated
	OutcomeUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	default:
		return "skipped"
	}
}

var (
	pagePattern     = regexp.MustCompile(`(?i)seite\s+(\d+)\s*/\s*(\d+)`)
	filePagePattern = regexp.MustCompile(`(\d+)(?:\.html?|$)`)
)

// DocumentStore upserts fetched pages keyed by (plan uuid, detail url).
type DocumentStore struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewDocumentStore creates a DocumentStore on db.
func NewDocumentStore(db *gorm.DB, logger *zap.Logger) *DocumentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentStore{db: db, logger: logger.Named("documents"), now: time.Now}
}

// Store persists rawHTML for the page described by table. A nil document and
// OutcomeSkipped are returned when the HTML or identifiers are missing.
func (s *DocumentStore) Store(ctx context.Context, table dsb.TimeTable, p *plan.SubstitutionPlan, rawHTML string) (*StoredDocument, Outcome, error) {
	if strings.TrimSpace(rawHTML) == "" || table.UUID == "" || strings.TrimSpace(table.Detail) == "" {
		s.logger.Warn("skipping storage due to missing data",
			zap.String("uuid", table.UUID),
			zap.String("detail", table.Detail),
			zap.Bool("hasHtml", strings.TrimSpace(rawHTML) != ""))
		return nil, OutcomeSkipped, nil
	}

	hash := ContentHash(rawHTML)
	existing, err := s.lookup(ctx, table.UUID, table.Detail)
	if err != nil {
		return nil, OutcomeSkipped, err
	}

	if existing != nil {
		if existing.ContentHash == hash {
			s.logger.Debug("stored page unchanged", zap.Uint("id", existing.ID))
			return existing, OutcomeUnchanged, nil
		}
		existing.RawHTML = rawHTML
		existing.ContentHash = hash
		applyMetadata(existing, table, p)
		existing.UpdatedAt = s.now()
		if err := s.db.WithContext(ctx).Save(existing).Error; err != nil {
			return nil, OutcomeSkipped, fmt.Errorf("update document %d: %w", existing.ID, err)
		}
		s.logger.Info("updated stored page due to content change", zap.Uint("id", existing.ID))
		return existing, OutcomeUpdated, nil
	}

	now := s.now()
	doc := &StoredDocument{
		PlanUUID:    table.UUID,
		DetailURL:   table.Detail,
		RawHTML:     rawHTML,
		ContentHash: hash,
		FetchedAt:   now,
		UpdatedAt:   now,
	}
	applyMetadata(doc, table, p)
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, OutcomeSkipped, fmt.Errorf("insert document: %w", err)
		}
		s.logger.Debug("concurrent insert detected, reusing existing row", zap.String("detail", table.Detail))
		winner, lookupErr := s.lookup(ctx, table.UUID, table.Detail)
		if lookupErr != nil {
			return nil, OutcomeSkipped, lookupErr
		}
		if winner == nil {
			return nil, OutcomeSkipped, fmt.Errorf("insert document: %w", err)
		}
		return winner, OutcomeUnchanged, nil
	}
	s.logger.Info("persisted new page", zap.String("uuid", table.UUID), zap.String("title", doc.Title))
	return doc, OutcomeInserted, nil
}

// Find returns the document stored for (planUUID, detailURL), or nil.
func (s *DocumentStore) Find(ctx context.Context, planUUID, detailURL string) (*StoredDocument, error) {
	return s.lookup(ctx, planUUID, detailURL)
}

func (s *DocumentStore) lookup(ctx context.Context, planUUID, detailURL string) (*StoredDocument, error) {
	var doc StoredDocument
	err := s.db.WithContext(ctx).Where("plan_uuid = ? AND detail_url = ?", planUUID, detailURL).Take(&doc).Error
	if err == nil {
		return &doc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup document: %w", err)
	}
	err = s.db.WithContext(ctx).Where("detail_url = ?", detailURL).Order("id").Take(&doc).Error
	if err == nil {
		return &doc, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("lookup document: %w", err)
}

func applyMetadata(doc *StoredDocument, table dsb.TimeTable, p *plan.SubstitutionPlan) {
	doc.GroupName = table.GroupName
	doc.SourceDate = table.Date
	doc.SourceTitle = table.Title
	doc.Title = fileName(doc.DetailURL)
	doc.PageNumber = nil
	doc.PageCount = nil

	planDate := ""
	if p != nil {
		planDate = strings.TrimSpace(p.Date)
	}
	if planDate != "" {
		doc.PlanDate = planDate
		if m := pagePattern.FindStringSubmatch(planDate); m != nil {
			doc.PageNumber = atoi(m[1])
			doc.PageCount = atoi(m[2])
		}
	} else if doc.PlanDate == "" {
		doc.PlanDate = table.Date
	}

	if doc.PageNumber == nil {
		if m := filePagePattern.FindStringSubmatch(doc.Title); m != nil {
			doc.PageNumber = atoi(m[1])
		}
	}
}

// fileName returns the part of url after the last slash, or url itself when
// there is none or it ends in a slash.
func fileName(url string) string {
	i := strings.LastIndex(url, "/") + 1
	if i <= 0 || i >= len(url) {
		return url
	}
	return url[i:]
}

func atoi(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
