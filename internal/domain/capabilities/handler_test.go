package capabilities

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourify/internal/middleware"
	"tourify/internal/platform/cache"
	"tourify/internal/ports/permissions"

	"github.com/go-chi/chi/v5"
)

const testEventID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

func newTestServer(t *testing.T, o permissions.Oracle, opts HandlerOptions) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Use(middleware.AuthContext(nil, nil))
	RegisterRoutes(r, newTestResolver(t, o), opts)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func doReq(t *testing.T, baseURL, method, path, userID string, body any) (*http.Response, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if userID != "" {
		req.Header.Set(middleware.DebugUserHeader, userID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	b, _ := io.ReadAll(res.Body)
	return res, b
}

func TestHTTP_ResolveCapabilities(t *testing.T) {
	o := &stubOracle{answer: onlyGranted(PermManageMembers)}
	ts := newTestServer(t, o, HandlerOptions{})

	res, body := doReq(t, ts.URL, http.MethodGet, "/entities/event/"+testEventID+"/capabilities", "u1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", res.StatusCode, body)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	// onlyGranted devuelve error para el resto => degradado
	if res.Header.Get(DegradedHeader) != "true" {
		t.Fatal("expected degraded header when oracle calls failed")
	}

	var rec map[string]bool
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatalf("invalid json %s: %v", body, err)
	}
	want := map[string]bool{
		"canAssignRoles":   false,
		"canEditLogistics": false,
		"canManageMembers": true,
		"canManageAssets":  false,
		"canPublishMedia":  false,
	}
	if len(rec) != len(want) {
		t.Fatalf("got %v, want %v", rec, want)
	}
	for k, v := range want {
		if rec[k] != v {
			t.Fatalf("%s = %v, want %v", k, rec[k], v)
		}
	}

	// el id llega canónico y el tipo normalizado
	for _, c := range o.Checks() {
		if c.EntityType != "Event" || c.EntityID != testEventID || c.UserID != "u1" {
			t.Fatalf("unexpected oracle input %+v", c)
		}
	}
}

func TestHTTP_NotDegradedWhenOracleHealthy(t *testing.T) {
	ts := newTestServer(t, &stubOracle{}, HandlerOptions{})

	res, _ := doReq(t, ts.URL, http.MethodGet, "/entities/Venue/"+testEventID+"/capabilities", "u1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if res.Header.Get(DegradedHeader) != "" {
		t.Fatal("plain denials must not mark the response as degraded")
	}
}

func TestHTTP_ResolveErrors(t *testing.T) {
	o := &stubOracle{}
	ts := newTestServer(t, o, HandlerOptions{})

	tests := []struct {
		name   string
		path   string
		user   string
		status int
	}{
		{name: "no auth", path: "/entities/Event/" + testEventID + "/capabilities", user: "", status: http.StatusUnauthorized},
		{name: "unknown type", path: "/entities/spaceship/" + testEventID + "/capabilities", user: "u1", status: http.StatusBadRequest},
		{name: "id not uuid", path: "/entities/Event/e1/capabilities", user: "u1", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := doReq(t, ts.URL, http.MethodGet, tt.path, tt.user, nil)
			if res.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d body=%s", tt.status, res.StatusCode, body)
			}
		})
	}
	if o.Calls() != 0 {
		t.Fatalf("rejected requests must not reach the oracle, got %d calls", o.Calls())
	}
}

func TestHTTP_ResolveBody(t *testing.T) {
	o := &stubOracle{answer: func(context.Context, permissions.Check) (bool, error) { return true, nil }}
	ts := newTestServer(t, o, HandlerOptions{})

	res, body := doReq(t, ts.URL, http.MethodPost, "/capabilities/resolve", "u1", map[string]any{
		"entity_type": "performance_agency",
		"entity_id":   testEventID,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", res.StatusCode, body)
	}
	var rec map[string]bool
	_ = json.Unmarshal(body, &rec)
	if len(rec) != 5 || !rec["canPublishMedia"] {
		t.Fatalf("unexpected record %v", rec)
	}

	// campos desconocidos => 400
	res, _ = doReq(t, ts.URL, http.MethodPost, "/capabilities/resolve", "u1", map[string]any{
		"entity_type": "Event",
		"entity_id":   testEventID,
		"user_id":     "someone-else",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", res.StatusCode)
	}

	res, _ = doReq(t, ts.URL, http.MethodPost, "/capabilities/resolve", "u1", map[string]any{"entity_type": "Event"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing entity_id, got %d", res.StatusCode)
	}

	res, _ = doReq(t, ts.URL, http.MethodPost, "/capabilities/resolve", "", map[string]any{"entity_type": "Event", "entity_id": testEventID})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
}

func TestHTTP_CheckPermission(t *testing.T) {
	o := &stubOracle{answer: func(_ context.Context, in permissions.Check) (bool, error) {
		if in.Permission == string(PermBookEvents) {
			return true, nil
		}
		return false, errors.New("timeout")
	}}
	ts := newTestServer(t, o, HandlerOptions{})

	res, body := doReq(t, ts.URL, http.MethodGet, "/entities/Venue/"+testEventID+"/permissions/book_events", "u1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", res.StatusCode, body)
	}
	var out permissionCheckResponse
	_ = json.Unmarshal(body, &out)
	if !out.Allowed || out.Permission != "BOOK_EVENTS" || out.EntityType != "Venue" {
		t.Fatalf("unexpected response %+v", out)
	}

	res, body = doReq(t, ts.URL, http.MethodGet, "/entities/Venue/"+testEventID+"/permissions/MANAGE_TICKETING", "u1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("oracle failure must not surface as an error, got %d", res.StatusCode)
	}
	_ = json.Unmarshal(body, &out)
	if out.Allowed {
		t.Fatal("oracle failure must fail closed")
	}

	res, _ = doReq(t, ts.URL, http.MethodGet, "/entities/Venue/"+testEventID+"/permissions/LAUNCH_ROCKETS", "u1", nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown permission, got %d", res.StatusCode)
	}
}

func TestHTTP_Catalog(t *testing.T) {
	ts := newTestServer(t, &stubOracle{}, HandlerOptions{})

	res, body := doReq(t, ts.URL, http.MethodGet, "/capabilities/catalog", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	var out []catalogEntryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(out) != 5 || out[2].Key != "canManageMembers" || out[2].Permission != "MANAGE_MEMBERS" {
		t.Fatalf("unexpected catalog %+v", out)
	}
}

func TestHTTP_CallerCache(t *testing.T) {
	o := &stubOracle{answer: func(context.Context, permissions.Check) (bool, error) { return true, nil }}
	ts := newTestServer(t, o, HandlerOptions{
		Cache:    cache.NewMemory(100, time.Minute),
		CacheTTL: time.Minute,
	})

	path := "/entities/Event/" + testEventID + "/capabilities"
	for i := 0; i < 3; i++ {
		res, _ := doReq(t, ts.URL, http.MethodGet, path, "u1", nil)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", res.StatusCode)
		}
	}
	if o.Calls() != 5 {
		t.Fatalf("expected one resolution (5 oracle calls) with cache, got %d", o.Calls())
	}

	// otro usuario no comparte entrada
	_, _ = doReq(t, ts.URL, http.MethodGet, path, "u2", nil)
	if o.Calls() != 10 {
		t.Fatalf("expected cache to be scoped by user, got %d calls", o.Calls())
	}
}

func TestHTTP_CallerCacheSkipsDegradedResults(t *testing.T) {
	o := &stubOracle{answer: onlyGranted(PermManageMembers)}
	ts := newTestServer(t, o, HandlerOptions{
		Cache:    cache.NewMemory(100, time.Minute),
		CacheTTL: time.Minute,
	})

	path := "/entities/Event/" + testEventID + "/capabilities"
	_, _ = doReq(t, ts.URL, http.MethodGet, path, "u1", nil)
	_, _ = doReq(t, ts.URL, http.MethodGet, path, "u1", nil)

	if o.Calls() != 10 {
		t.Fatalf("degraded results must not be cached, got %d calls", o.Calls())
	}
}
