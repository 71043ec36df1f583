package core

import "strings"

// Summary is the aggregate view of a snapshot.
type Summary struct {
	Total          Amount            `json:"total"`
	Count          int               `json:"count"`
	CategoryTotals map[string]Amount `json:"categoryTotals"`
}

// Summarize groups and sums the given records. Records without a category
// are attributed to DefaultCategory.
func Summarize(items []Expense) Summary {
	s := Summary{
		Count:          len(items),
		CategoryTotals: make(map[string]Amount),
	}
	for _, e := range items {
		cat := e.Category
		if strings.TrimSpace(cat) == "" {
			cat = DefaultCategory
		}
		s.Total = s.Total.Add(e.Amount)
		s.CategoryTotals[cat] = s.CategoryTotals[cat].Add(e.Amount)
	}
	return s
}
