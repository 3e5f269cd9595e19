package pagination

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100

	// MaxPage keeps Offset within int for any page size.
	MaxPage = math.MaxInt / MaxPerPage
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// DefaultParams returns the first page with the default page size.
func DefaultParams() Params {
	return Params{Page: DefaultPage, PerPage: DefaultPerPage}
}

// Normalize clamps out-of-range values to the defaults and the maximum page size.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset is the number of rows to skip for this page.
func (p Params) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PerPage
}

// FromRequest extracts page and per_page from the query string. Absent values
// take defaults; malformed or out-of-range values are reported as an error.
func FromRequest(r *http.Request) (Params, error) {
	p := DefaultParams()

	if v := r.URL.Query().Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 || page > MaxPage {
			return p, fmt.Errorf("page must be a valid positive integer")
		}
		p.Page = page
	}

	if v := r.URL.Query().Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 || perPage > MaxPerPage {
			return p, fmt.Errorf("per_page must be a valid integer between 1 and %d", MaxPerPage)
		}
		p.PerPage = perPage
	}

	return p, nil
}

// Window returns the [start, end) slice bounds of this page over total items.
func (p Params) Window(total int) (start, end int) {
	p = p.Normalize()
	start = p.Offset()
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end = start + p.PerPage
	if end > total {
		end = total
	}
	return start, end
}
