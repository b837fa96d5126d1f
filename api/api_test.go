package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	gu "github.com/xraph/go-utils/metrics"

	"github.com/nexora-w/TrustWork/api"
	"github.com/nexora-w/TrustWork/dispute"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
	"github.com/nexora-w/TrustWork/ledger"
	"github.com/nexora-w/TrustWork/store/memory"
	"github.com/nexora-w/TrustWork/stream"
)

var (
	client     = identity.MustParse("0x1111111111111111111111111111111111111111")
	freelancer = identity.MustParse("0x2222222222222222222222222222222222222222")
	arbitrator = identity.MustParse("0x3333333333333333333333333333333333333333")
)

func init() { gin.SetMode(gin.TestMode) }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fixture struct {
	ledger *ledger.Ledger
	broker *stream.Broker
	srv    *httptest.Server
}

func newFixture(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()
	broker := stream.NewBroker(discard())
	l, err := ledger.New(memory.New(),
		ledger.WithLogger(discard()),
		ledger.WithMetricFactory(gu.NewMetricsCollector("test")),
		ledger.WithExtension(broker),
	)
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}
	base := []api.Option{
		api.WithLogger(discard()),
		api.WithBroker(broker),
		api.WithResolver(dispute.NewResolver(l, dispute.WithLogger(discard()))),
	}
	srv := httptest.NewServer(api.New(l, append(base, opts...)...).Handler())
	t.Cleanup(srv.Close)
	return &fixture{ledger: l, broker: broker, srv: srv}
}

func (f *fixture) do(t *testing.T, method, path string, caller identity.Address, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !caller.IsZero() {
		req.Header.Set(api.CallerHeader, caller.String())
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func (f *fixture) expect(t *testing.T, method, path string, caller identity.Address, body any, status int) []byte {
	t.Helper()
	resp, data := f.do(t, method, path, caller, body)
	if resp.StatusCode != status {
		t.Fatalf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, status, data)
	}
	return data
}

func createBody() api.CreateJobRequest {
	return api.CreateJobRequest{
		Freelancer:  freelancer.String(),
		Title:       "Logo design",
		Description: "Vector logo",
		Amount:      "1000000000000000000",
		Deadline:    time.Now().Add(48 * time.Hour).UTC(),
	}
}

type jobJSON struct {
	ID         uint64   `json:"id"`
	Status     string   `json:"status"`
	StatusCode int      `json:"status_code"`
	Amount     string   `json:"amount"`
	Allowed    []string `json:"allowed_actions"`
}

func decodeJob(t *testing.T, data []byte) jobJSON {
	t.Helper()
	var j jobJSON
	if err := json.Unmarshal(data, &j); err != nil {
		t.Fatalf("decode job: %v: %s", err, data)
	}
	return j
}

func decodeError(t *testing.T, data []byte) api.ErrorResponse {
	t.Helper()
	var e api.ErrorResponse
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("decode error: %v: %s", err, data)
	}
	return e
}

func TestHappyPathOverHTTP(t *testing.T) {
	f := newFixture(t)

	created := decodeJob(t, f.expect(t, http.MethodPost, "/v1/jobs", client, createBody(), http.StatusCreated))
	if created.ID != 1 || created.Status != "created" || created.StatusCode != 0 {
		t.Fatalf("created = %+v", created)
	}
	if created.Amount != "1000000000000000000" {
		t.Errorf("amount = %q", created.Amount)
	}

	f.expect(t, http.MethodPost, "/v1/jobs/1/accept", freelancer, nil, http.StatusOK)
	f.expect(t, http.MethodPost, "/v1/jobs/1/deliver", freelancer, api.DeliverRequest{Ref: "ipfs://cid"}, http.StatusOK)
	done := decodeJob(t, f.expect(t, http.MethodPost, "/v1/jobs/1/confirm", client, nil, http.StatusOK))
	if done.Status != "completed" || len(done.Allowed) != 0 {
		t.Errorf("confirmed = %+v", done)
	}

	var bal api.BalanceResponse
	_ = json.Unmarshal(f.expect(t, http.MethodGet, "/v1/accounts/"+freelancer.String()+"/balance", identity.Zero, nil, http.StatusOK), &bal)
	if bal.Balance != "1000000000000000000" {
		t.Errorf("freelancer balance = %q", bal.Balance)
	}

	var transfers []map[string]any
	_ = json.Unmarshal(f.expect(t, http.MethodGet, "/v1/jobs/1/transfers", identity.Zero, nil, http.StatusOK), &transfers)
	if len(transfers) != 2 || transfers[0]["kind"] != "hold" || transfers[1]["kind"] != "release" {
		t.Errorf("transfers = %v", transfers)
	}
}

func TestDisputeResolutionOverHTTP(t *testing.T) {
	f := newFixture(t)
	f.expect(t, http.MethodPost, "/v1/jobs", client, createBody(), http.StatusCreated)
	f.expect(t, http.MethodPost, "/v1/jobs/1/accept", freelancer, nil, http.StatusOK)
	f.expect(t, http.MethodPost, "/v1/jobs/1/dispute", client, nil, http.StatusOK)

	// A party may not arbitrate its own dispute.
	resp, data := f.do(t, http.MethodPost, "/v1/jobs/1/resolve", client, api.ResolveRequest{Outcome: "refund"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("party resolve: status %d: %s", resp.StatusCode, data)
	}

	resp, _ = f.do(t, http.MethodPost, "/v1/jobs/1/resolve", arbitrator, api.ResolveRequest{Outcome: "split"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad outcome: status %d", resp.StatusCode)
	}

	resolved := decodeJob(t, f.expect(t, http.MethodPost, "/v1/jobs/1/resolve", arbitrator, api.ResolveRequest{Outcome: "refund"}, http.StatusOK))
	if resolved.Status != "cancelled" {
		t.Errorf("status = %s, want cancelled", resolved.Status)
	}
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)
	f.expect(t, http.MethodPost, "/v1/jobs", client, createBody(), http.StatusCreated)

	selfDealing := createBody()
	selfDealing.Freelancer = client.String()
	noAmount := createBody()
	noAmount.Amount = "abc"
	badAddress := createBody()
	badAddress.Freelancer = "0x123"

	tests := []struct {
		name   string
		method string
		path   string
		caller identity.Address
		body   any
		status int
		code   string
	}{
		{"unknown job", http.MethodGet, "/v1/jobs/99", identity.Zero, nil, http.StatusNotFound, "job_not_found"},
		{"bad job id", http.MethodGet, "/v1/jobs/abc", identity.Zero, nil, http.StatusBadRequest, "bad_request"},
		{"anonymous transition", http.MethodPost, "/v1/jobs/1/accept", identity.Zero, nil, http.StatusUnauthorized, "missing_caller"},
		{"wrong role", http.MethodPost, "/v1/jobs/1/accept", client, nil, http.StatusForbidden, "unauthorized"},
		{"wrong status", http.MethodPost, "/v1/jobs/1/confirm", client, nil, http.StatusConflict, "invalid_transition"},
		{"self dealing", http.MethodPost, "/v1/jobs", client, selfDealing, http.StatusUnprocessableEntity, "self_dealing"},
		{"bad amount", http.MethodPost, "/v1/jobs", client, noAmount, http.StatusUnprocessableEntity, "invalid_amount"},
		{"bad address", http.MethodPost, "/v1/jobs", client, badAddress, http.StatusUnprocessableEntity, "invalid_address"},
		{"missing title", http.MethodPost, "/v1/jobs", client, api.CreateJobRequest{Freelancer: freelancer.String()}, http.StatusUnprocessableEntity, "missing_field"},
		{"empty deliverable", http.MethodPost, "/v1/jobs/1/deliver", freelancer, api.DeliverRequest{}, http.StatusConflict, "invalid_transition"},
		{"bad status filter", http.MethodGet, "/v1/jobs?status=bogus", identity.Zero, nil, http.StatusBadRequest, "bad_request"},
		{"bad account", http.MethodGet, "/v1/accounts/nope/balance", identity.Zero, nil, http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := f.do(t, tt.method, tt.path, tt.caller, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status %d, want %d: %s", resp.StatusCode, tt.status, data)
			}
			if e := decodeError(t, data); e.Code != tt.code {
				t.Errorf("code %q, want %q", e.Code, tt.code)
			}
		})
	}
}

func TestInvalidCallerHeader(t *testing.T) {
	f := newFixture(t)
	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/v1/jobs", nil)
	req.Header.Set(api.CallerHeader, "not-an-address")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status %d, want 401", resp.StatusCode)
	}
}

func TestListJobsFilters(t *testing.T) {
	f := newFixture(t)
	for range 3 {
		f.expect(t, http.MethodPost, "/v1/jobs", client, createBody(), http.StatusCreated)
	}
	f.expect(t, http.MethodPost, "/v1/jobs/2/accept", freelancer, nil, http.StatusOK)

	var list struct {
		Jobs  []jobJSON `json:"jobs"`
		Total int64     `json:"total"`
	}
	_ = json.Unmarshal(f.expect(t, http.MethodGet, "/v1/jobs?status=created&limit=1", identity.Zero, nil, http.StatusOK), &list)
	if list.Total != 2 || len(list.Jobs) != 1 || list.Jobs[0].ID != 1 {
		t.Errorf("created page = %+v", list)
	}

	_ = json.Unmarshal(f.expect(t, http.MethodGet, "/v1/jobs?participant="+freelancer.String()+"&as=client", identity.Zero, nil, http.StatusOK), &list)
	if list.Total != 0 || len(list.Jobs) != 0 {
		t.Errorf("freelancer as client = %+v", list)
	}

	var summary ledger.Summary
	_ = json.Unmarshal(f.expect(t, http.MethodGet, "/v1/accounts/"+client.String()+"/summary", identity.Zero, nil, http.StatusOK), &summary)
	if summary.AsClient[job.StatusCreated] != 2 || summary.AsClient[job.StatusAccepted] != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, api.WithRateLimit(0.001, 2))

	for i := range 2 {
		if resp, _ := f.do(t, http.MethodGet, "/v1/jobs", client, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: status %d", i, resp.StatusCode)
		}
	}
	resp, data := f.do(t, http.MethodGet, "/v1/jobs", client, nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429: %s", resp.StatusCode, data)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	// Limits are per caller.
	if resp, _ := f.do(t, http.MethodGet, "/v1/jobs", freelancer, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("other caller: status %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	f.expect(t, http.MethodGet, "/healthz", identity.Zero, nil, http.StatusOK)
}

func TestStream(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/v1/stream?topics=" + stream.JobTopic(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, _, err := ws.Dial(ctx, url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for the subscription to register before creating the job.
	deadline := time.Now().Add(2 * time.Second)
	for f.broker.Stats().SubscriberCount == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	f.expect(t, http.MethodPost, "/v1/jobs", client, createBody(), http.StatusCreated)

	var types []string
	for len(types) < 2 {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var evt struct {
			Type  string `json:"type"`
			Topic string `json:"topic"`
		}
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if evt.Topic != "job:1" {
			t.Errorf("topic = %q", evt.Topic)
		}
		types = append(types, evt.Type)
	}
	if types[0] != string(stream.EventJobCreated) || types[1] != string(stream.EventFundsHeld) {
		t.Errorf("event types = %v", types)
	}
}

func TestStream_AnonymousNeedsTopics(t *testing.T) {
	f := newFixture(t)
	f.expect(t, http.MethodGet, "/v1/stream", identity.Zero, nil, http.StatusBadRequest)
	f.expect(t, http.MethodGet, "/v1/stream?topics=bogus", client, nil, http.StatusBadRequest)
}
