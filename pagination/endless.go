// Package pagination implements the two pagination modes of the API:
// endless (cursor-based, infinite scroll, fixed page size) and numbered
// (classic page/size, used for follower listings and notifications).
package pagination

import (
	"net/url"
	"time"

	"gorm.io/gorm"

	"chirper/errs"
)

// EndlessPageSize is the fixed page size of endless pagination. Clients
// cannot override it; the numbered mode is the one that accepts a size.
const EndlessPageSize = 20

// Query parameter names for the two cursors. A client supplies at most one:
// created_at__gt pulls items newer than the cursor (refresh at top),
// created_at__lt pulls items older than it (scroll down).
const (
	ParamAfter  = "created_at__gt"
	ParamBefore = "created_at__lt"
)

// Cursor carries at most one of the two optional timestamp cursors.
type Cursor struct {
	After  *time.Time
	Before *time.Time
}

// Page is one endless page of results.
type Page[T any] struct {
	Items       []T  `json:"results"`
	HasNextPage bool `json:"has_next_page"`
}

// ParseCursor reads the cursor params from a query string. If both are
// present the after-cursor wins, matching the refresh-first precedence of
// the scan below.
func ParseCursor(values url.Values) (Cursor, error) {
	var cur Cursor
	if raw := values.Get(ParamAfter); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Cursor{}, errs.Errorf(errs.EINVALID, "Invalid %s cursor.", ParamAfter)
		}
		cur.After = &t
		return cur, nil
	}
	if raw := values.Get(ParamBefore); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Cursor{}, errs.Errorf(errs.EINVALID, "Invalid %s cursor.", ParamBefore)
		}
		cur.Before = &t
	}
	return cur, nil
}

// PaginateOrdered pages over an in-memory list already sorted descending by
// the timestamp that at extracts.
//
// The after path collects everything newer than the cursor and stops at the
// first item that isn't, since the list is sorted. It reports no next page
// regardless of how much newer data might exist beyond the list; the client
// re-polls from the top.
//
// The before path scans for the first item older than the cursor; if none
// exists the list is exhausted and the page is empty.
func PaginateOrdered[T any](list []T, at func(T) time.Time, cur Cursor, size int) Page[T] {
	if cur.After != nil {
		items := make([]T, 0)
		for _, item := range list {
			if !at(item).After(*cur.After) {
				break
			}
			items = append(items, item)
		}
		return Page[T]{Items: items}
	}

	index := 0
	if cur.Before != nil {
		found := false
		for i, item := range list {
			if at(item).Before(*cur.Before) {
				index = i
				found = true
				break
			}
		}
		if !found {
			return Page[T]{Items: []T{}}
		}
	}
	end := index + size
	hasNext := len(list) > end
	if end > len(list) {
		end = len(list)
	}
	return Page[T]{Items: list[index:end], HasNextPage: hasNext}
}

// PaginateQuery applies the same cursor semantics as range filters on a gorm
// query, descending by created_at with id as the tiebreak. The first and
// before pages probe size+1 rows to detect a next page without counting.
func PaginateQuery[T any](q *gorm.DB, cur Cursor, size int) (Page[T], error) {
	var items []T
	q = q.Order("created_at desc, id desc")

	if cur.After != nil {
		if err := q.Where("created_at > ?", *cur.After).Find(&items).Error; err != nil {
			return Page[T]{}, err
		}
		return Page[T]{Items: items}, nil
	}

	if cur.Before != nil {
		q = q.Where("created_at < ?", *cur.Before)
	}
	if err := q.Limit(size + 1).Find(&items).Error; err != nil {
		return Page[T]{}, err
	}
	page := Page[T]{Items: items}
	if len(items) > size {
		page.Items = items[:size]
		page.HasNextPage = true
	}
	return page, nil
}

// PaginateCached pages over a cached list and reports whether the result can
// be trusted as complete. A capped cache never proves the absence of older
// rows: when the before path runs out of cached items and the cache is at
// its cap, the caller must re-issue the same cursor against storage.
func PaginateCached[T any](list []T, at func(T) time.Time, cur Cursor, size, cacheLimit int) (Page[T], bool) {
	page := PaginateOrdered(list, at, cur, size)
	if cur.After != nil {
		return page, true
	}
	if page.HasNextPage {
		return page, true
	}
	if len(list) < cacheLimit {
		return page, true
	}
	return page, false
}
