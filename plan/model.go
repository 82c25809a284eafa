package plan

import "strings"

// SubstitutionEntry is one row of a substitution table.
type SubstitutionEntry struct {
	Classes         string `json:"classes"`
	Period          string `json:"period"`
	AbsentTeacher   string `json:"absent"`
	Substitute      string `json:"substitute"`
	OriginalSubject string `json:"originalSubject"`
	Subject         string `json:"subject"`
	NewRoom         string `json:"newRoom"`
	Type            string `json:"type"`
	Comment         string `json:"comment"`
	Date            string `json:"date"`
}

// IsEmpty reports whether no table column populated the entry.
func (e SubstitutionEntry) IsEmpty() bool {
	return e.Classes == "" && e.Period == "" && e.AbsentTeacher == "" &&
		e.Substitute == "" && e.OriginalSubject == "" && e.Subject == "" &&
		e.NewRoom == "" && e.Type == "" && e.Comment == ""
}

// DailyNews holds the announcements of one day, distinct and in first-seen order.
type DailyNews struct {
	Date      string   `json:"date"`
	NewsItems []string `json:"newsItems"`
}

// NewDailyNews returns an empty news block for date.
func NewDailyNews(date string) DailyNews {
	return DailyNews{Date: date, NewsItems: []string{}}
}

// AddNewsItem appends the trimmed item unless it is blank or already present.
// It reports whether the item was added.
func (n *DailyNews) AddNewsItem(item string) bool {
	item = strings.TrimSpace(item)
	if item == "" || n.Contains(item) {
		return false
	}
	n.NewsItems = append(n.NewsItems, item)
	return true
}

// Contains reports whether item (trimmed) is already listed.
func (n DailyNews) Contains(item string) bool {
	item = strings.TrimSpace(item)
	for _, existing := range n.NewsItems {
		if existing == item {
			return true
		}
	}
	return false
}

// SubstitutionPlan is the merged, display-ready plan of one day.
type SubstitutionPlan struct {
	Date         string              `json:"date"`
	Title        string              `json:"title"`
	Entries      []SubstitutionEntry `json:"entries"`
	News         DailyNews           `json:"news"`
	SortPriority int                 `json:"sortPriority"`
}

// NewSubstitutionPlan returns a plan with empty, non-nil collections.
func NewSubstitutionPlan(date string) SubstitutionPlan {
	return SubstitutionPlan{
		Date:         date,
		Entries:      []SubstitutionEntry{},
		News:         NewDailyNews(date),
		SortPriority: PriorityOther,
	}
}
