package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/daodao/core/internal/api"
	"github.com/daodao/core/internal/chain"
	"github.com/daodao/core/pkg/types"
)

var errPending = errors.New("transaction pending")

// client talks to the daemon's HTTP API
type client struct {
	http *resty.Client
}

func newClient(node string, timeout time.Duration) *client {
	return &client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(node, "/")+"/api/v1").
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// do sends body as JSON and decodes a 2xx reply into out. 202 replies to
// GETs mean the transaction is not in a block yet.
func (c *client) do(ctx context.Context, method, path string, body, out any, opts ...func(*resty.Request)) error {
	req := c.http.R().SetContext(ctx).SetError(&api.ErrorResponse{})
	if body != nil {
		if raw, ok := body.(json.RawMessage); ok {
			body = []byte(raw)
		}
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= 300 {
		if e, ok := resp.Error().(*api.ErrorResponse); ok && e.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status(), e.Error)
		}
		return fmt.Errorf("%s", resp.Status())
	}
	if method == http.MethodGet && resp.StatusCode() == http.StatusAccepted {
		return errPending
	}
	if out == nil || resp.StatusCode() == http.StatusNoContent {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = resp.Body()
		return nil
	}
	return json.Unmarshal(resp.Body(), out)
}

func pathParam(key, value string) func(*resty.Request) {
	return func(r *resty.Request) { r.SetPathParam(key, value) }
}

func (c *client) status(ctx context.Context) (api.StatusResponse, error) {
	var out api.StatusResponse
	return out, c.do(ctx, http.MethodGet, "/status", nil, &out)
}

func (c *client) blocks(ctx context.Context) ([]chain.Block, error) {
	var out []chain.Block
	return out, c.do(ctx, http.MethodGet, "/blocks", nil, &out)
}

func (c *client) submit(ctx context.Context, sender types.Address, msg types.CosmosMsg) (string, error) {
	var out api.SubmitTxResponse
	err := c.do(ctx, http.MethodPost, "/txs", api.SubmitTxRequest{Sender: sender, Msg: msg}, &out)
	return out.TxID, err
}

func (c *client) tx(ctx context.Context, id string) (types.TxResult, error) {
	var out types.TxResult
	return out, c.do(ctx, http.MethodGet, "/txs/{id}", nil, &out, pathParam("id", id))
}

// wait polls until the transaction is in a block
func (c *client) wait(ctx context.Context, id string, every time.Duration) (types.TxResult, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		res, err := c.tx(ctx, id)
		if !errors.Is(err, errPending) {
			return res, err
		}
		select {
		case <-ctx.Done():
			return types.TxResult{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *client) txPool(ctx context.Context) ([]types.Tx, error) {
	var out []types.Tx
	return out, c.do(ctx, http.MethodGet, "/txpool", nil, &out)
}

func (c *client) contracts(ctx context.Context, codeID string) ([]api.ContractResponse, error) {
	var out []api.ContractResponse
	return out, c.do(ctx, http.MethodGet, "/contracts", nil, &out, func(r *resty.Request) {
		if codeID != "" {
			r.SetQueryParam("code_id", codeID)
		}
	})
}

func (c *client) contract(ctx context.Context, addr string) (api.ContractResponse, error) {
	var out api.ContractResponse
	return out, c.do(ctx, http.MethodGet, "/contracts/{addr}", nil, &out, pathParam("addr", addr))
}

func (c *client) query(ctx context.Context, addr string, msg json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	return out, c.do(ctx, http.MethodPost, "/contracts/{addr}/query", msg, &out, pathParam("addr", addr))
}

func (c *client) balances(ctx context.Context, addr string) ([]types.Coin, error) {
	var out []types.Coin
	return out, c.do(ctx, http.MethodGet, "/bank/{addr}", nil, &out, pathParam("addr", addr))
}

func (c *client) mint(ctx context.Context, addr types.Address, coins []types.Coin) error {
	return c.do(ctx, http.MethodPost, "/bank/mint", api.MintRequest{Address: addr, Coins: coins}, nil)
}
