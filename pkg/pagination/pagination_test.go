package pagination

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/mine", nil)

	p, err := FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 0, p.Offset())
}

func TestFromRequest_Explicit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&per_page=10", nil)

	p, err := FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 10, p.PerPage)
	assert.Equal(t, 20, p.Offset())
}

func TestFromRequest_Invalid(t *testing.T) {
	for _, q := range []string{
		"page=0", "page=abc", "per_page=0", "per_page=101", "per_page=x",
		"page=" + strconv.Itoa(MaxPage+1), "page=" + strconv.Itoa(math.MaxInt),
	} {
		req := httptest.NewRequest(http.MethodGet, "/?"+q, nil)
		_, err := FromRequest(req)
		assert.Error(t, err, "query %q should be rejected", q)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, Params{Page: 1, PerPage: 20}, Params{}.Normalize())
	assert.Equal(t, Params{Page: 2, PerPage: 100}, Params{Page: 2, PerPage: 500}.Normalize())
}

func TestWindow(t *testing.T) {
	start, end := Params{Page: 1, PerPage: 2}.Window(5)
	assert.Equal(t, 0, start)
	assert.Equal(t, 2, end)

	start, end = Params{Page: 3, PerPage: 2}.Window(5)
	assert.Equal(t, 4, start)
	assert.Equal(t, 5, end)

	start, end = Params{Page: 9, PerPage: 2}.Window(5)
	assert.Equal(t, 5, start)
	assert.Equal(t, 5, end)
}

func TestFromRequest_MaxPageAccepted(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page="+strconv.Itoa(MaxPage)+"&per_page=100", nil)

	p, err := FromRequest(req)
	require.NoError(t, err)
	assert.Positive(t, p.Offset())
}

func TestWindow_HugePageStaysInBounds(t *testing.T) {
	for _, page := range []int{MaxPage, MaxPage + 1, 1 << 62, math.MaxInt} {
		start, end := Params{Page: page, PerPage: MaxPerPage}.Window(3)
		assert.Equal(t, 3, start, "page %d", page)
		assert.Equal(t, 3, end, "page %d", page)
	}
}
