package domain

import (
	"sort"
	"strings"
)

// Filter narrows a collection the way the app's search panel does. Zero
// fields match everything.
type Filter struct {
	Type     string         // case-insensitive substring of the place type
	Day      string         // canonical weekday, e.g. "Sábado"
	Query    string         // case-insensitive substring of name or address
	Products []string       // any product containing any of these, case-insensitive
	Category string         // exact category
	Bucket   ScheduleBucket // exact schedule bucket
	Tag      string         // exact tag
}

// Apply returns the places matching f. When any result carries a distance,
// results are ordered nearest first with unlocated places last.
func (f Filter) Apply(places []Place) []Place {
	out := make([]Place, 0, len(places))
	for _, p := range places {
		if f.matches(p) {
			out = append(out, p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Distance, out[j].Distance
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
	return out
}

func (f Filter) matches(p Place) bool {
	if f.Type != "" && !strings.Contains(strings.ToLower(p.Type), strings.ToLower(f.Type)) {
		return false
	}
	if f.Day != "" && !contains(p.DaysOpen, f.Day) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Address), q) {
			return false
		}
	}
	if len(f.Products) > 0 && !anyProduct(p.Products, f.Products) {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Bucket != "" && p.ScheduleBucket != f.Bucket {
		return false
	}
	if f.Tag != "" && !contains(p.Tags, f.Tag) {
		return false
	}
	return true
}

func anyProduct(have, want []string) bool {
	for _, w := range want {
		w = strings.ToLower(w)
		for _, h := range have {
			if strings.Contains(strings.ToLower(h), w) {
				return true
			}
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// Stats summarizes a collection by category, type, and weekday.
type Stats struct {
	Total      int            `json:"total"`
	Located    int            `json:"located"`
	ByCategory map[string]int `json:"byCategory"`
	ByType     map[string]int `json:"byType"`
	ByDay      map[string]int `json:"byDay"`
}

// Summarize counts places per category, type, and open weekday.
func Summarize(places []Place) Stats {
	s := Stats{
		Total:      len(places),
		ByCategory: map[string]int{},
		ByType:     map[string]int{},
		ByDay:      map[string]int{},
	}
	for _, p := range places {
		if p.HasLocation() {
			s.Located++
		}
		s.ByCategory[p.Category]++
		s.ByType[p.Type]++
		for _, d := range p.DaysOpen {
			s.ByDay[d]++
		}
	}
	return s
}
