package search

import (
	"marketplace/server/internal/filter"
	"marketplace/server/internal/urlcodec"
)

// Query is everything that determines a result page.
type Query struct {
	State filter.State
	Sort  string
	Page  int
}

// Normalized maps unknown sorts and non-positive pages to their defaults.
func (q Query) Normalized() Query {
	if !urlcodec.IsSortKey(q.Sort) {
		q.Sort = urlcodec.DefaultSort
	}
	if q.Page < urlcodec.DefaultPage {
		q.Page = urlcodec.DefaultPage
	}
	q.State = q.State.Normalized()
	return q
}

// Key identifies the query; two queries with the same key request the same page.
func (q Query) Key() string {
	q = q.Normalized()
	return urlcodec.Encode(q.State, q.Sort, q.Page)
}

// URL is the canonical address of the query's search view.
func (q Query) URL() string {
	q = q.Normalized()
	return urlcodec.URL(urlcodec.SearchPath, q.State, q.Sort, q.Page)
}
