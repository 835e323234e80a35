package httpapi

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

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-license-server/cache"
	"github.com/goliatone/go-license-server/licensing"
	"github.com/goliatone/go-license-server/pkg/testsupport"
	"github.com/goliatone/go-license-server/repository"
	"github.com/goliatone/go-license-server/verify"
)

var apiNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

type testServer struct {
	db       *bun.DB
	router   chi.Router
	clients  *repository.Clients
	products *repository.Products
	licenses *repository.Licenses
	stations *repository.StationLicenses
	cache    cache.CacheService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testsupport.OpenDB(t)
	cacheSvc, err := cache.NewCacheService(cache.Config{Backend: cache.BackendMemory, TTL: time.Minute})
	require.NoError(t, err)
	keys := cache.NewDefaultKeySerializer()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := &testServer{
		db:       db,
		clients:  repository.NewClients(db, cacheSvc, keys),
		products: repository.NewProducts(db, cacheSvc, keys),
		licenses: repository.NewLicenses(db, cacheSvc, keys),
		stations: repository.NewStationLicenses(db, cacheSvc, keys),
		cache:    cacheSvc,
	}
	resolver := verify.NewResolver(s.clients, s.products, s.licenses, s.stations, logger)
	resolver.SetClock(testsupport.FixedClock(apiNow))
	stats := repository.NewStats(db, cacheSvc, keys)
	stats.SetClock(testsupport.FixedClock(apiNow))

	s.router = NewRouter(Deps{
		Resolver: resolver,
		Clients:  s.clients,
		Products: s.products,
		Licenses: s.licenses,
		Stations: s.stations,
		Stats:    stats,
		Cache:    cacheSvc,
		Logger:   logger,
	})
	return s
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestProductCRUD(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/products", map[string]any{
		"name": "Trend FX", "code": "trendfx", "version": 3, "demo_days": 14, "shop_id": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[licensing.Product](t, rec)
	require.NotZero(t, created.ID)

	rec = s.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]licensing.Product](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/products/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trendfx", decode[licensing.Product](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/products/code/trendfx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[licensing.Product](t, rec).ID)

	// Patches address columns, not JSON field names.
	rec = s.do(t, http.MethodPut, "/api/products/1", map[string]any{"DemoDays": 30})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/products/1", nil)
	assert.Equal(t, 30, decode[licensing.Product](t, rec).DemoDays)

	rec = s.do(t, http.MethodDelete, "/api/products/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/products/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductUpdateRejectsUnknownColumn(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/products", map[string]any{"name": "P", "code": "p1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/products/1", map[string]any{"idProduct": 9})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "INVALID_REQUEST", body["error_code"])
}

func TestUpdateMissingRowIs404(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/products/99", map[string]any{"DemoDays": 5})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/products/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBadPathIDIs400(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientByDeviceAndLicencesView(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/clients/device/900123", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/clients", map[string]any{
		"device_id": "900123", "name": "Desk 7", "broker": "BrokerOne", "test_flag": "0", "shop_id": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	client := decode[licensing.Client](t, rec)

	rec = s.do(t, http.MethodPost, "/api/products", map[string]any{"name": "P", "code": "p1", "demo_days": 7})
	require.Equal(t, http.StatusCreated, rec.Code)
	product := decode[licensing.Product](t, rec)

	rec = s.do(t, http.MethodPost, "/api/licences", map[string]any{
		"client_id": client.ID, "product_id": product.ID,
		"expiration": "2025-04-01T00:00:00Z", "shop_id": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/clients/device/900123", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, client.ID, decode[licensing.Client](t, rec).ID)

	rec = s.do(t, http.MethodGet, "/api/clients/1/licences", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[repository.ClientWithLicenses](t, rec)
	assert.Equal(t, "900123", view.Client.DeviceID)
	assert.Len(t, view.Licenses, 1)
}

func TestStationsByDevice(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/products", map[string]any{"name": "TS", "code": "tsmk"})
	require.Equal(t, http.StatusCreated, rec.Code)
	product := decode[licensing.Product](t, rec)

	rec = s.do(t, http.MethodPost, "/api/licences2", map[string]any{
		"device_id": "555001", "product_id": product.ID, "shop_id": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/licences2/device/555001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]licensing.StationLicense](t, rec), 1)

	// Unknown device: an empty list, not an error.
	rec = s.do(t, http.MethodGet, "/api/licences2/device/000000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]licensing.StationLicense](t, rec), 0)
}

func TestStatisticsEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/statistics/overview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode[repository.Overview](t, rec)
	assert.Zero(t, overview.TotalLicenses)

	rec = s.do(t, http.MethodGet, "/api/statistics/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/statistics/monthly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCacheAdminEndpoints(t *testing.T) {
	s := newTestServer(t)

	// Populate the cache through a read.
	rec := s.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/cache", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[struct {
		Keys       []string `json:"keys"`
		TotalItems int      `json:"total_items"`
	}](t, rec)
	require.NotZero(t, stats.TotalItems)
	assert.Contains(t, stats.Keys, "products.find_all")

	rec = s.do(t, http.MethodDelete, "/api/cache", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/cache", nil)
	stats = decode[struct {
		Keys       []string `json:"keys"`
		TotalItems int      `json:"total_items"`
	}](t, rec)
	assert.Zero(t, stats.TotalItems)
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/products", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// A caller-supplied id is echoed back untouched.
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("X-Request-ID", "req-42")
	out := httptest.NewRecorder()
	s.router.ServeHTTP(out, req)
	assert.Equal(t, "req-42", out.Header().Get("X-Request-ID"))
}

func TestRequestIDInContext(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	RequestID(inner).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "req-42", seen)

	// Without a caller-supplied id the middleware mints one.
	RequestID(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)

	// Outside the middleware chain the context carries nothing.
	assert.Empty(t, GetRequestID(context.Background()))
}
