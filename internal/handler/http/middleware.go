package http

import (
	"net/http"
	"strings"

	"github.com/Lnando2k21/projetofinal/internal/policy"
	"github.com/Lnando2k21/projetofinal/pkg/httputil"
	"github.com/Lnando2k21/projetofinal/pkg/middleware"
	"github.com/Lnando2k21/projetofinal/pkg/pagination"
)

// ContentTypeJSON enforces that requests carrying a body declare
// Content-Type: application/json. Body-less transitions such as
// PUT /requests/{id}/accept pass through.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// actor returns the authenticated caller placed in the context by the auth
// middleware.
func actor(r *http.Request) policy.Actor {
	return policy.Actor{
		ID:   middleware.UserIDFromContext(r.Context()),
		Role: middleware.RoleFromContext(r.Context()),
	}
}

// pageParams reads page and per_page, writing a 400 and returning false when
// they are malformed.
func pageParams(w http.ResponseWriter, r *http.Request) (pagination.Params, bool) {
	p, err := pagination.FromRequest(r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: err.Error()},
		})
		return p, false
	}
	return p, true
}

// optionalQuery returns a pointer to the trimmed query value, or nil when it
// is absent or blank.
func optionalQuery(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	return &v
}
