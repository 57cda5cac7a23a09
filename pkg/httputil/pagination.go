package httputil

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrInvalidPage is returned for a page number that is malformed or past the last page
var ErrInvalidPage = errors.New("Invalid page.")

// Pagination is the requested page of a list endpoint
type Pagination struct {
	Page     int
	PageSize int
}

// Page is the paginated list body
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// ParsePagination reads page and page_size. A bad page_size falls back to the default and
// oversized values are clamped. A malformed page, or one whose offset cannot be represented,
// is ErrInvalidPage.
func ParsePagination(r *http.Request) (Pagination, error) {
	p := Pagination{Page: 1, PageSize: DefaultPageSize}

	if size, err := ParseQueryInt(r, "page_size", DefaultPageSize); err == nil && size > 0 {
		p.PageSize = size
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}

	page, err := ParseQueryInt(r, "page", 1)
	if err != nil || page < 1 || page-1 > math.MaxInt/p.PageSize {
		return Pagination{}, ErrInvalidPage
	}
	p.Page = page

	return p, nil
}

// Limit is the number of rows to fetch
func (p Pagination) Limit() int {
	return p.PageSize
}

// Offset is the number of rows to skip
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// NewPage assembles the body for results out of total rows. The first page is valid even
// when empty; any later page past the end is ErrInvalidPage. p.PageSize must be positive.
func NewPage[T any](r *http.Request, p Pagination, total int, results []T) (Page[T], error) {
	if results == nil {
		results = []T{}
	}
	lastPage := 1
	if total > 0 {
		lastPage = (total-1)/p.PageSize + 1
	}
	if p.Page > lastPage {
		return Page[T]{}, ErrInvalidPage
	}

	page := Page[T]{Count: total, Results: results}

	if p.Page < lastPage {
		next := pageURL(r, p.Page+1)
		page.Next = &next
	}
	if p.Page > 1 {
		prev := pageURL(r, p.Page-1)
		page.Previous = &prev
	}

	return page, nil
}

// pageURL rewrites the request's absolute URL to point at page. Page 1 drops the parameter.
func pageURL(r *http.Request, page int) string {
	u := url.URL{
		Scheme: "http",
		Host:   r.Host,
		Path:   r.URL.Path,
	}
	if r.TLS != nil {
		u.Scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		u.Scheme = proto
	}

	query := r.URL.Query()
	if page == 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = query.Encode()

	return u.String()
}
