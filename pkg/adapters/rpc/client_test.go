package rpc_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/aretw0/solsim/pkg/adapters/rpc"
	"github.com/aretw0/solsim/pkg/domain"
)

// fakeNode answers a handful of JSON-RPC methods and records the last request.
type fakeNode struct {
	mu       sync.Mutex
	last     gjson.Result
	balances map[string]any
	healthy  bool
}

func (n *fakeNode) handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/", func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		n.mu.Lock()
		defer n.mu.Unlock()
		n.last = gjson.ParseBytes(body)
		id := n.last.Get("id").Int()

		var result any
		var rpcErr map[string]any
		switch n.last.Get("method").String() {
		case "getTokenAccountBalance":
			account := n.last.Get("params.0").String()
			value, ok := n.balances[account]
			if !ok {
				rpcErr = map[string]any{"code": -32602, "message": "Invalid param: could not find account"}
				break
			}
			result = map[string]any{"context": map[string]any{"slot": 12}, "value": value}
		case "getHealth":
			if !n.healthy {
				rpcErr = map[string]any{"code": -32005, "message": "Node is unhealthy"}
				break
			}
			result = "ok"
		case "getSlot":
			result = 4242
		default:
			rpcErr = map[string]any{"code": -32601, "message": "Method not found"}
		}

		resp := map[string]any{"jsonrpc": "2.0", "id": id}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return r
}

func (n *fakeNode) request() gjson.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

func (n *fakeNode) setHealthy(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.healthy = v
}

func newNode(t *testing.T) (*fakeNode, *rpc.Client) {
	t.Helper()
	node := &fakeNode{
		healthy: true,
		balances: map[string]any{
			"vault":  map[string]any{"amount": "1500000", "decimals": 6, "uiAmount": 1.5, "uiAmountString": "1.5"},
			"whale":  map[string]any{"amount": "1", "decimals": 0, "uiAmount": nil, "uiAmountString": "123456789012345678"},
			"broken": map[string]any{"amount": "1"},
		},
	}
	srv := httptest.NewServer(node.handler())
	t.Cleanup(srv.Close)
	client := rpc.New(srv.URL, rpc.WithHTTPClient(srv.Client()))
	t.Cleanup(func() { _ = client.Close() })
	return node, client
}

func TestClient_GetTokenAccountBalance(t *testing.T) {
	node, client := newNode(t)

	balance, err := client.GetTokenAccountBalance(context.Background(), "vault", "")
	require.NoError(t, err)
	assert.Equal(t, 1.5, balance)

	assert.Equal(t, "2.0", node.request().Get("jsonrpc").String())
	assert.Equal(t, "confirmed", node.request().Get("params.1.commitment").String())

	_, err = client.GetTokenAccountBalance(context.Background(), "vault", domain.CommitmentFinalized)
	require.NoError(t, err)
	assert.Equal(t, "finalized", node.request().Get("params.1.commitment").String())
}

func TestClient_GetTokenAccountBalance_FallsBackToString(t *testing.T) {
	_, client := newNode(t)

	balance, err := client.GetTokenAccountBalance(context.Background(), "whale", domain.CommitmentProcessed)
	require.NoError(t, err)
	assert.InDelta(t, 1.2345678901234568e17, balance, 1e3)
}

func TestClient_GetTokenAccountBalance_Errors(t *testing.T) {
	_, client := newNode(t)

	_, err := client.GetTokenAccountBalance(context.Background(), "missing", "")
	var rpcErr *rpc.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, int64(-32602), rpcErr.Code)

	_, err = client.GetTokenAccountBalance(context.Background(), "broken", "")
	assert.ErrorIs(t, err, rpc.ErrNoValue)

	_, err = client.GetTokenAccountBalance(context.Background(), "", "")
	assert.Error(t, err)
}

func TestClient_GetHealth(t *testing.T) {
	node, client := newNode(t)

	require.NoError(t, client.GetHealth(context.Background()))

	node.setHealthy(false)
	var rpcErr *rpc.Error
	assert.ErrorAs(t, client.GetHealth(context.Background()), &rpcErr)
}

func TestClient_GetSlot(t *testing.T) {
	_, client := newNode(t)

	slot, err := client.GetSlot(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, uint64(4242), slot)
}

func TestClient_RequestIDsIncrease(t *testing.T) {
	node, client := newNode(t)

	require.NoError(t, client.GetHealth(context.Background()))
	first := node.request().Get("id").Int()
	require.NoError(t, client.GetHealth(context.Background()))
	assert.Equal(t, first+1, node.request().Get("id").Int())
}

func TestClient_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := rpc.New(srv.URL).GetHealth(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_ContextCancelled(t *testing.T) {
	_, client := newNode(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetTokenAccountBalance(ctx, "vault", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_DefaultEndpoint(t *testing.T) {
	assert.Equal(t, rpc.DefaultEndpoint, rpc.New("").Endpoint())
}
