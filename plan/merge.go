package plan

// Merge folds the pages of one plan into a new value. The first page seeds
// date, title and news date; later pages append their entries and any news
// items not already present. No slice of the inputs is shared with the result.
// ok is false when pages is empty.
func Merge(pages []SubstitutionPlan) (merged SubstitutionPlan, ok bool) {
	if len(pages) == 0 {
		return SubstitutionPlan{}, false
	}
	first := pages[0]
	merged = NewSubstitutionPlan(first.Date)
	merged.Title = first.Title
	merged.SortPriority = first.SortPriority
	if first.News.Date != "" {
		merged.News.Date = first.News.Date
	}
	for _, page := range pages {
		merged.Entries = append(merged.Entries, page.Entries...)
		for _, item := range page.News.NewsItems {
			merged.News.AddNewsItem(item)
		}
	}
	return merged, true
}
