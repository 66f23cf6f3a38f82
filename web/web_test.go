package web_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mixwave/quotagate/adapters/clock"
	"github.com/mixwave/quotagate/adapters/hasher"
	"github.com/mixwave/quotagate/adapters/idgen"
	"github.com/mixwave/quotagate/adapters/memory"
	"github.com/mixwave/quotagate/app"
	"github.com/mixwave/quotagate/domain/plan"
	"github.com/mixwave/quotagate/web"
)

func newServer(t *testing.T, adminToken string) *httptest.Server {
	t.Helper()

	accounts := memory.NewAccountStore()
	events := memory.NewUsageEventStore()
	fc := clock.NewFake(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))
	catalog := plan.DefaultCatalog()
	logger := zerolog.Nop()

	resolver := app.NewResolver(app.ResolverConfig{
		Accounts: accounts,
		IDs:      idgen.NewSequential("acc-"),
		Clock:    fc,
		Logger:   logger,
	})
	ledger := app.NewLedger(app.LedgerConfig{
		Resolver: resolver,
		Accounts: accounts,
		Events:   events,
		IDs:      idgen.NewSequential("ev-"),
		Clock:    fc,
		Catalog:  catalog,
		Logger:   logger,
	})

	h := web.NewHandler(web.Deps{
		Ledger:         ledger,
		Hasher:         hasher.Fake{},
		AdminTokenHash: func() string { return adminToken },
		Logger:         logger,
	})

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newServer(t, "")

	resp, err := http.Get(srv.URL + "/v1/usage/summary?email=fan@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body := decode(t, resp)
	if body["plan"] != "free" || body["allowed"] != true {
		t.Errorf("body = %v", body)
	}
	if body["remaining"] != float64(5) {
		t.Errorf("remaining = %v, want 5", body["remaining"])
	}
}

func TestSummaryIdentityMissing(t *testing.T) {
	srv := newServer(t, "")

	resp, err := http.Get(srv.URL + "/v1/usage/summary")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["error"] != "identity_missing" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestSummaryUnknownAccountID(t *testing.T) {
	srv := newServer(t, "")

	resp, err := http.Get(srv.URL + "/v1/usage/summary?account_id=acc-ghost")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["error"] != "account_not_found" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestConsumeEndpointToExhaustion(t *testing.T) {
	srv := newServer(t, "")
	payload := map[string]any{"email": "fan@example.com"}

	for i := 0; i < 5; i++ {
		resp := postJSON(t, srv.URL+"/v1/usage/consume", "", payload)
		body := decode(t, resp)
		if resp.StatusCode != http.StatusOK || body["ok"] != true {
			t.Fatalf("consume %d: status=%d body=%v", i, resp.StatusCode, body)
		}
	}

	resp := postJSON(t, srv.URL+"/v1/usage/consume", "", payload)
	body := decode(t, resp)
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", resp.StatusCode)
	}
	if body["reason"] != "limit_exhausted" {
		t.Errorf("reason = %v", body["reason"])
	}
}

func TestRefundRequiresAdminToken(t *testing.T) {
	srv := newServer(t, "admin-secret")
	payload := map[string]any{"email": "fan@example.com"}

	resp := postJSON(t, srv.URL+"/v1/usage/refund", "", payload)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/v1/usage/refund", "wrong", payload)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status with bad token = %d, want 401", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/v1/usage/refund", "admin-secret", payload)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status with token = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminDisabledWithoutHash(t *testing.T) {
	srv := newServer(t, "")

	resp := postJSON(t, srv.URL+"/v1/plans/set", "any",
		map[string]any{"email": "fan@example.com", "plan": "founder"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestSetPlanEndpoint(t *testing.T) {
	srv := newServer(t, "admin-secret")

	resp := postJSON(t, srv.URL+"/v1/plans/set", "admin-secret",
		map[string]any{"email": "fan@example.com", "plan": "founder"})
	body := decode(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body=%v", resp.StatusCode, body)
	}
	if body["unlimited"] != true || body["plan"] != "founder" {
		t.Errorf("body = %v", body)
	}

	// Consume now reports unlimited.
	resp = postJSON(t, srv.URL+"/v1/usage/consume", "", map[string]any{"email": "fan@example.com"})
	cbody := decode(t, resp)
	summary := cbody["summary"].(map[string]any)
	if summary["remaining"] != "unlimited" {
		t.Errorf("remaining = %v, want unlimited", summary["remaining"])
	}
}

func TestHealthz(t *testing.T) {
	srv := newServer(t, "")

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
