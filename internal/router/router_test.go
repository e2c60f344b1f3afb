package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tourify/internal/adapters/oracle/memory"
	"tourify/internal/platform/metrics"
	"tourify/internal/ports/auth"
	"tourify/internal/router"
)

const venueID = "3f2b8c1e-5d4a-4e6b-9c7d-1a2b3c4d5e6f"

func newServer(t *testing.T, opts router.Options) *httptest.Server {
	t.Helper()

	h, err := router.NewRouter(opts)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_EndToEnd_GrantAndRevoke(t *testing.T) {
	oracle := memory.NewOracle()
	ts := newServer(t, router.Options{Oracle: oracle})

	managerID := "manager-1"
	memberID := "member-1"

	// 1) Sin roles => todo false
	caps := getCapabilities(t, ts.URL, managerID, "Venue", venueID)
	for k, v := range caps {
		if v {
			t.Fatalf("expected %s=false before grant", k)
		}
	}

	// 2) Rol de manager
	oracle.Grant(managerID, "Venue", venueID, "MANAGE_MEMBERS", "MANAGE_ASSETS")
	caps = getCapabilities(t, ts.URL, managerID, "venue", venueID)
	if !caps["canManageMembers"] || !caps["canManageAssets"] {
		t.Fatalf("expected member+asset management, got %v", caps)
	}
	if caps["canAssignRoles"] || caps["canEditLogistics"] || caps["canPublishMedia"] {
		t.Fatalf("unexpected extra capabilities %v", caps)
	}

	// 3) Otro usuario no hereda nada
	caps = getCapabilities(t, ts.URL, memberID, "Venue", venueID)
	if caps["canManageMembers"] {
		t.Fatalf("member should not manage members: %v", caps)
	}

	// 4) Chequeo puntual
	{
		st, body := doReq(t, ts.URL, "GET", "/entities/Venue/"+venueID+"/permissions/manage_assets", managerID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 permission check, got %d body=%s", st, string(body))
		}
		var resp struct {
			Allowed bool `json:"allowed"`
		}
		_ = json.Unmarshal(body, &resp)
		if !resp.Allowed {
			t.Fatalf("expected allowed, body=%s", string(body))
		}
	}

	// 5) Revocación se ve en el siguiente request (sin cache)
	oracle.Revoke(managerID, "Venue", venueID, "MANAGE_MEMBERS")
	caps = getCapabilities(t, ts.URL, managerID, "Venue", venueID)
	if caps["canManageMembers"] || !caps["canManageAssets"] {
		t.Fatalf("unexpected capabilities after revoke: %v", caps)
	}

	// 6) Body endpoint devuelve lo mismo
	{
		st, body := doReq(t, ts.URL, "POST", "/capabilities/resolve", managerID, map[string]any{
			"entity_type": "Venue",
			"entity_id":   venueID,
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 resolve body, got %d body=%s", st, string(body))
		}
		var rec map[string]bool
		_ = json.Unmarshal(body, &rec)
		if len(rec) != 5 || !rec["canManageAssets"] {
			t.Fatalf("unexpected record %v", rec)
		}
	}
}

func TestHTTP_RejectsBadRequests(t *testing.T) {
	ts := newServer(t, router.Options{})

	tests := []struct {
		name   string
		path   string
		user   string
		status int
	}{
		{name: "missing user", path: "/entities/Venue/" + venueID + "/capabilities", status: http.StatusUnauthorized},
		{name: "unknown entity type", path: "/entities/Planet/" + venueID + "/capabilities", user: "u1", status: http.StatusBadRequest},
		{name: "entity id not uuid", path: "/entities/Venue/not-a-uuid/capabilities", user: "u1", status: http.StatusBadRequest},
		{name: "unknown permission", path: "/entities/Venue/" + venueID + "/permissions/FLY", user: "u1", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, body := doReq(t, ts.URL, "GET", tt.path, tt.user, nil)
			if st != tt.status {
				t.Fatalf("expected %d, got %d body=%s", tt.status, st, string(body))
			}
		})
	}
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	m := metrics.NewCollector()
	ts := newServer(t, router.Options{Metrics: m})

	if st, body := doReq(t, ts.URL, "GET", "/health", "", nil); st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("health: %d %s", st, string(body))
	}

	_ = getCapabilities(t, ts.URL, "u1", "Event", venueID)

	st, body := doReq(t, ts.URL, "GET", "/metrics", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 metrics, got %d", st)
	}
	if !strings.Contains(string(body), "tourify_capabilities_resolves_total") {
		t.Fatalf("metrics output missing resolve counter:\n%s", string(body))
	}
}

func TestHTTP_CacheEnabled(t *testing.T) {
	oracle := memory.NewOracle()
	ts := newServer(t, router.Options{
		Oracle:          oracle,
		CacheTTL:        time.Minute,
		CacheMaxEntries: 10,
	})

	oracle.Grant("u1", "Event", venueID, "PUBLISH_MEDIA")
	caps := getCapabilities(t, ts.URL, "u1", "Event", venueID)
	if !caps["canPublishMedia"] {
		t.Fatalf("expected canPublishMedia, got %v", caps)
	}

	// Dentro del TTL se sirve el record cacheado
	oracle.Revoke("u1", "Event", venueID)
	caps = getCapabilities(t, ts.URL, "u1", "Event", venueID)
	if !caps["canPublishMedia"] {
		t.Fatalf("expected cached record, got %v", caps)
	}
}

func TestNewRouter_CacheNeedsCapacity(t *testing.T) {
	_, err := router.NewRouter(router.Options{CacheTTL: time.Minute})
	if err == nil {
		t.Fatal("expected error for cache without max entries")
	}
}

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	if token == "good-token" {
		return auth.Claims{UserID: "u-token"}, nil
	}
	return auth.Claims{}, errors.New("bad token")
}

func TestHTTP_BearerAuth(t *testing.T) {
	oracle := memory.NewOracle()
	oracle.Grant("u-token", "Event", venueID, "ASSIGN_EVENT_ROLES")
	ts := newServer(t, router.Options{AuthVerifier: fakeVerifier{}, Oracle: oracle})

	path := "/entities/Event/" + venueID + "/capabilities"

	// con verifier el header de debug se ignora
	if st, _ := doReq(t, ts.URL, "GET", path, "u-token", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 with debug header only, got %d", st)
	}

	for token, want := range map[string]int{"good-token": http.StatusOK, "bad-token": http.StatusUnauthorized} {
		req, _ := http.NewRequest("GET", ts.URL+path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("do request: %v", err)
		}
		body, _ := io.ReadAll(res.Body)
		res.Body.Close()

		if res.StatusCode != want {
			t.Fatalf("token %s: expected %d, got %d", token, want, res.StatusCode)
		}
		if want == http.StatusOK && !strings.Contains(string(body), `"canAssignRoles":true`) {
			t.Fatalf("unexpected body %s", string(body))
		}
	}
}

func getCapabilities(t *testing.T, baseURL, userID, entityType, entityID string) map[string]bool {
	t.Helper()

	st, body := doReq(t, baseURL, "GET", "/entities/"+entityType+"/"+entityID+"/capabilities", userID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 capabilities, got %d body=%s", st, string(body))
	}

	var rec map[string]bool
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatalf("capabilities: invalid json body=%s", string(body))
	}
	if len(rec) != 5 {
		t.Fatalf("capabilities: expected 5 keys, got %v", rec)
	}
	return rec
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
