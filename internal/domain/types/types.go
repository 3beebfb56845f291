// Package types contains common types used across the application
package types

import "github.com/okian/sketchmatch/internal/domain/model"

// Entry is one row of a ranking as shown to users.
type Entry struct {
	Rank  int     `json:"rank"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Ranked numbers sorted results from 1.
func Ranked(results []model.Result) []Entry {
	entries := make([]Entry, len(results))
	for i, r := range results {
		entries[i] = Entry{Rank: i + 1, Name: r.Name, Score: r.Score}
	}
	return entries
}
