package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Lnando2k21/projetofinal/internal/auth"
	"github.com/Lnando2k21/projetofinal/internal/domain"
	"github.com/Lnando2k21/projetofinal/internal/event"
	"github.com/Lnando2k21/projetofinal/internal/lock"
	"github.com/Lnando2k21/projetofinal/internal/repository/memory"
	"github.com/Lnando2k21/projetofinal/internal/service"
	"github.com/Lnando2k21/projetofinal/pkg/health"
	"github.com/Lnando2k21/projetofinal/pkg/httputil"
	"github.com/Lnando2k21/projetofinal/pkg/middleware"
)

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	jwt     *auth.JWTManager
	tokens  map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := testLogger()
	store := memory.NewStore()
	var pub event.NopPublisher
	agg := service.NewRatingAggregator(domain.StrategyOwnedServices, logger)
	users := service.NewUserService(store, logger)

	svcs := Services{
		Catalog:  service.NewCatalogService(store, logger),
		Requests: service.NewRequestService(store, pub, logger),
		Reviews:  service.NewReviewService(store, lock.NewKeyedMutex(), agg, pub, logger),
		Users:    users,
	}

	jwt := auth.NewJWTManager("handler-test-secret", time.Hour)
	ts := &testServer{
		t:      t,
		jwt:    jwt,
		tokens: make(map[string]string),
		handler: NewRouter(svcs, jwt.Validator(), health.NewHandler(), RouterConfig{
			ServiceName: "marketplace-test",
			CORS:        middleware.DefaultCORSConfig(),
		}, logger),
	}

	for _, u := range []domain.User{
		{ID: "prov-1", Name: "Paula Provider", Email: "paula@example.com", Role: domain.RoleProvider},
		{ID: "prov-2", Name: "Pedro Provider", Email: "pedro@example.com", Role: domain.RoleProvider},
		{ID: "cust-1", Name: "Carla Customer", Email: "carla@example.com", Role: domain.RoleCustomer},
		{ID: "cust-2", Name: "Caio Customer", Email: "caio@example.com", Role: domain.RoleCustomer},
	} {
		u := u
		u.CreatedAt = time.Now().UTC()
		u.UpdatedAt = u.CreatedAt
		require.NoError(t, users.SyncUser(context.Background(), &u))

		token, err := jwt.GenerateAccessToken(u.ID, u.Email, u.Role)
		require.NoError(t, err)
		ts.tokens[u.ID] = token
	}
	return ts
}

// do sends a request as userID ("" for anonymous) with an optional JSON body.
func (s *testServer) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[userID])
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the data field of a success envelope into T.
func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env), rec.Body.String())
	return env.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func decodePage[T any](t *testing.T, rec *httptest.ResponseRecorder) httputil.PaginatedResponse[T] {
	t.Helper()
	var page httputil.PaginatedResponse[T]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	return page
}

func (s *testServer) createService(owner string, price float64) domain.Service {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/services", owner, map[string]any{
		"title":    "Encanador",
		"category": "reparos",
		"price":    price,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[domain.Service](s.t, rec)
}

func (s *testServer) completedRequest(serviceID, customerID, providerID string) domain.ServiceRequest {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/requests", customerID, map[string]any{"service_id": serviceID})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	req := decodeData[domain.ServiceRequest](s.t, rec)

	for _, action := range []string{"accept", "complete"} {
		rec := s.do(http.MethodPut, "/api/v1/requests/"+req.ID+"/"+action, providerID, nil)
		require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
		req = decodeData[domain.ServiceRequest](s.t, rec)
	}
	return req
}
