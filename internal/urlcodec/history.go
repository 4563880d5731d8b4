package urlcodec

import "marketplace/server/internal/filter"

// History is the navigation history of a search view.
type History interface {
	// Replace swaps the current entry for url without adding a back-stack entry.
	Replace(url string)
}

// Sync writes the canonical URL of the search into the current history entry
// and returns it. Filter, sort and page changes all replace; none push.
func Sync(h History, path string, state filter.State, sort string, page int) string {
	u := URL(path, state, sort, page)
	h.Replace(u)
	return u
}

// IsCanonical reports whether rawQuery is already the canonical encoding of the
// search it decodes to.
func IsCanonical(rawQuery string) bool {
	state, sort, page := Decode(rawQuery)
	return Encode(state, sort, page) == rawQuery
}
