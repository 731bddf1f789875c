package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tessera-ledger/go-client/internal/service"
	"tessera-ledger/go-client/pkg/models"
)

type fakeService struct {
	allocateErr error
	nextSeq     uint64
}

func (f *fakeService) Allocate(ctx context.Context, address string) (models.Allocation, error) {
	if f.allocateErr != nil {
		return models.Allocation{}, f.allocateErr
	}
	seq := f.nextSeq
	f.nextSeq++
	return models.Allocation{Address: address, Seq: seq}, nil
}

func (f *fakeService) Synchronize(ctx context.Context, address string) (models.SyncResult, error) {
	return models.SyncResult{Address: address, Confirmed: f.nextSeq}, nil
}

func (f *fakeService) Status(address string) (models.AccountStatus, error) {
	return models.AccountStatus{Address: address, Initialized: true, Confirmed: 3, Next: 5, InFlight: 2}, nil
}

func (f *fakeService) DeriveAddress(mnemonic string) (models.DerivedAccount, error) {
	return models.DerivedAccount{Address: "tsr1derived"}, nil
}

func newTestServer(t *testing.T, svc DaemonService, opts Options) *httptest.Server {
	t.Helper()
	s := NewServer(svc, opts)
	srv := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func postRPC(t *testing.T, srv *httptest.Server, body string, headers map[string]string) (*http.Response, rpcResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/rpc", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var parsed rpcResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.NewDecoder(resp.Body).Decode(&parsed)
	}
	return resp, parsed
}

func TestAllocateRoundTrip(t *testing.T) {
	srv := newTestServer(t, &fakeService{nextSeq: 12}, Options{})

	_, parsed := postRPC(t, srv,
		`{"jsonrpc":"2.0","id":1,"method":"sequence.allocate","params":{"address":"tsr1abc"}}`, nil)
	if parsed.Error != nil {
		t.Fatalf("unexpected rpc error: %+v", parsed.Error)
	}
	result, err := json.Marshal(parsed.Result)
	if err != nil {
		t.Fatalf("re-marshal result: %v", err)
	}
	var alloc models.Allocation
	if err := json.Unmarshal(result, &alloc); err != nil {
		t.Fatalf("decode allocation: %v", err)
	}
	if alloc.Seq != 12 || alloc.Address != "tsr1abc" {
		t.Fatalf("unexpected allocation %+v", alloc)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{})

	_, parsed := postRPC(t, srv,
		`{"jsonrpc":"2.0","id":2,"method":"sequence.status","params":{"address":"tsr1abc"}}`, nil)
	if parsed.Error != nil {
		t.Fatalf("unexpected rpc error: %+v", parsed.Error)
	}
}

func TestInvalidAddressMapsToInvalidParams(t *testing.T) {
	srv := newTestServer(t, &fakeService{allocateErr: service.ErrInvalidAddress}, Options{})

	_, parsed := postRPC(t, srv,
		`{"jsonrpc":"2.0","id":3,"method":"sequence.allocate","params":{"address":"nope"}}`, nil)
	if parsed.Error == nil || parsed.Error.Code != -32602 {
		t.Fatalf("expected -32602, got %+v", parsed.Error)
	}
}

func TestUnknownMethod(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{})

	_, parsed := postRPC(t, srv,
		`{"jsonrpc":"2.0","id":4,"method":"sequence.destroy","params":{}}`, nil)
	if parsed.Error == nil || parsed.Error.Code != -32601 {
		t.Fatalf("expected -32601, got %+v", parsed.Error)
	}
}

func TestParseError(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{})

	_, parsed := postRPC(t, srv, `{"jsonrpc":`, nil)
	if parsed.Error == nil || parsed.Error.Code != -32700 {
		t.Fatalf("expected -32700, got %+v", parsed.Error)
	}
}

func TestAuthRequiredWhenTokenSet(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{Token: "sekrit"})

	resp, _ := postRPC(t, srv,
		`{"jsonrpc":"2.0","id":5,"method":"sequence.status","params":{"address":"tsr1abc"}}`, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, parsed := postRPC(t, srv,
		`{"jsonrpc":"2.0","id":6,"method":"sequence.status","params":{"address":"tsr1abc"}}`,
		map[string]string{"Authorization": "Bearer sekrit"})
	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		t.Fatalf("expected success with bearer token, got status %d error %+v", resp.StatusCode, parsed.Error)
	}

	resp, _ = postRPC(t, srv,
		`{"jsonrpc":"2.0","id":7,"method":"sequence.status","params":{"address":"tsr1abc"}}`,
		map[string]string{"X-Seqd-RPC-Token": "sekrit"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected success with header token, got %d", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{RateLimitRPS: 1, RateLimitBurst: 2})

	body := `{"jsonrpc":"2.0","id":8,"method":"sequence.status","params":{"address":"tsr1abc"}}`
	for i := 0; i < 2; i++ {
		if resp, _ := postRPC(t, srv, body, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.StatusCode)
		}
	}
	if resp, _ := postRPC(t, srv, body, nil); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, Options{})

	resp, err := http.Get(srv.URL + "/rpc")
	if err != nil {
		t.Fatalf("get rpc: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
