package query

import (
	"github.com/huandu/go-sqlbuilder"
)

// FilterStrategy adds WHERE conditions to a posts query
type FilterStrategy interface {
	// ApplyFilter adds filter conditions to the query builder
	ApplyFilter(sb *sqlbuilder.SelectBuilder)
}

// Page is an offset window over an ordered result
type Page struct {
	Limit  int
	Offset int
}

// Next returns the page that starts step rows further on
func (p Page) Next(step int) Page {
	return Page{Limit: p.Limit, Offset: p.Offset + step}
}
