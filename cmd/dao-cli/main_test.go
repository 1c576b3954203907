package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daodao/core/internal/api"
	"github.com/daodao/core/internal/chain"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/mempool"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

type testNode struct {
	url   string
	chain *chain.Chain
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()
	h := host.New(nil, storage.NewMemStore(), nil, nil)
	pool := mempool.NewMempool(nil, nil)
	c := chain.New(nil, h, pool, nil, nil)
	srv := httptest.NewServer(api.New(&api.Config{EnableMint: true}, c, h, pool, nil, nil, nil).Handler())
	t.Cleanup(srv.Close)
	return &testNode{url: srv.URL, chain: c}
}

func (n *testNode) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	base := []string{"--node", n.url, "--env-file", filepath.Join(t.TempDir(), "none.env"), "-o", "json"}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestMintSendAndBalance(t *testing.T) {
	n := newTestNode(t)

	_, err := n.run(t, "mint", "alice", "100ujuno")
	require.NoError(t, err)

	out, err := n.run(t, "tx", "send", "bob", "30ujuno", "--from", "alice", "--wait=false")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = n.run(t, "txpool")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	n.chain.ProduceBlock(context.Background())

	out, err = n.run(t, "tx", "get", id)
	require.NoError(t, err)
	var res types.TxResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, id, res.TxID)
	assert.Empty(t, res.Error)

	out, err = n.run(t, "balance", "bob")
	require.NoError(t, err)
	var coins []types.Coin
	require.NoError(t, json.Unmarshal([]byte(out), &coins))
	require.Len(t, coins, 1)
	assert.Equal(t, "30ujuno", coins[0].String())
}

func TestWaitReportsFailure(t *testing.T) {
	n := newTestNode(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n.chain.ProduceBlock(ctx)
			}
		}
	}()

	out, err := n.run(t, "tx", "send", "bob", "30ujuno", "--from", "alice", "--poll", "10ms")
	require.Error(t, err)
	assert.Contains(t, out, host.ErrInsufficientFunds.Error())
}

func TestStatusAndErrors(t *testing.T) {
	n := newTestNode(t)

	out, err := n.run(t, "status")
	require.NoError(t, err)
	var st api.StatusResponse
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, host.DefaultConfig().ChainID, st.ChainID)

	_, err = n.run(t, "contract", "nobody")
	assert.ErrorContains(t, err, "404")

	_, err = n.run(t, "query", "nobody", "{not json")
	assert.ErrorIs(t, err, types.ErrInvalidMessage)

	_, err = n.run(t, "tx", "get", "missing")
	assert.Error(t, err)
}

func TestClientRequests(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.EscapedPath()+"?"+r.URL.RawQuery)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v1/txs/"):
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"tx_id":"pending"}`))
		case r.URL.Path == "/api/v1/contracts":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"contract not found"}`))
		}
	}))
	defer srv.Close()

	c := newClient(srv.URL+"/", time.Second)
	ctx := context.Background()

	_, err := c.tx(ctx, "a/b")
	require.ErrorIs(t, err, errPending)

	_, err = c.contracts(ctx, "dao-core")
	require.NoError(t, err)

	_, err = c.contract(ctx, "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "contract not found")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"/api/v1/txs/a%2Fb?",
		"/api/v1/contracts?code_id=dao-core",
		"/api/v1/contracts/nobody?",
	}, paths)
}

func TestRenderTables(t *testing.T) {
	res := types.TxResult{TxID: "abc", Height: 3, Events: []types.Event{{
		Type:       "wasm",
		Contract:   "dao1xyz",
		Attributes: []types.Attribute{{Key: "action", Value: "propose"}, {Key: "proposal_id", Value: "1"}},
	}}}
	out := renderTxResult(res)
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "propose")
	assert.Contains(t, out, "dao1xyz")

	out = renderCoins([]types.Coin{types.NewCoin(7, "ujuno")})
	assert.Contains(t, out, "ujuno")
	assert.Contains(t, out, "7")
}
