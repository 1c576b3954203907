package host

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// ErrUnknownVariant is returned when a message sets none of the variants a
// contract accepts
var ErrUnknownVariant = errors.New("unknown message variant")

// Contract is a message handler run by the host. Handlers keep no state of
// their own: everything lives in the store handed to each call.
type Contract interface {
	Instantiate(ctx *Context, msg json.RawMessage) (*Response, error)
	Execute(ctx *Context, msg json.RawMessage) (*Response, error)
	Query(ctx *QueryContext, msg json.RawMessage) ([]byte, error)
}

// Replier is implemented by contracts that dispatch sub-messages with a reply
type Replier interface {
	Reply(ctx *Context, reply types.Reply) (*Response, error)
}

// Migrator is implemented by contracts that accept migrations
type Migrator interface {
	Migrate(ctx *Context, msg json.RawMessage) (*Response, error)
}

// Context is passed to every mutating entry point
type Context struct {
	Block    types.BlockInfo
	Contract types.Address
	Sender   types.Address
	Funds    []types.Coin
	Store    storage.KVStore
	Querier  *Querier
	Logger   *zap.Logger
}

// QueryContext is passed to queries. Its store rejects writes.
type QueryContext struct {
	Block    types.BlockInfo
	Contract types.Address
	Store    storage.KVStore
	Querier  *Querier
	Logger   *zap.Logger
}

// Response is what a handler asks the host to do after it returns
type Response struct {
	Messages   []types.SubMsg    `json:"messages,omitempty"`
	Attributes []types.Attribute `json:"attributes,omitempty"`
	Events     []types.Event     `json:"events,omitempty"`
	Data       json.RawMessage   `json:"data,omitempty"`
}

// NewResponse returns an empty response
func NewResponse() *Response {
	return &Response{}
}

// AddAttribute appends a key/value attribute
func (r *Response) AddAttribute(key string, value any) *Response {
	r.Attributes = append(r.Attributes, types.Attribute{Key: key, Value: fmt.Sprint(value)})
	return r
}

// AddMessage dispatches msg without a reply; a failure aborts the transaction
func (r *Response) AddMessage(msg types.CosmosMsg) *Response {
	r.Messages = append(r.Messages, types.NewSubMsg(msg))
	return r
}

// AddMessages dispatches each msg without a reply
func (r *Response) AddMessages(msgs ...types.CosmosMsg) *Response {
	for _, m := range msgs {
		r.AddMessage(m)
	}
	return r
}

// AddSubMessages appends prepared sub-messages
func (r *Response) AddSubMessages(msgs ...types.SubMsg) *Response {
	r.Messages = append(r.Messages, msgs...)
	return r
}

// AddEvent appends a custom event
func (r *Response) AddEvent(ev types.Event) *Response {
	r.Events = append(r.Events, ev)
	return r
}

// SetData sets the response data to the JSON encoding of v
func (r *Response) SetData(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Data = b
	return nil
}

// InstantiateResult is the data returned from a contract instantiation
type InstantiateResult struct {
	ContractAddress types.Address   `json:"contract_address"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// ParseInstantiateReply extracts the new contract address from a successful
// instantiate reply
func ParseInstantiateReply(reply types.Reply) (types.Address, error) {
	if reply.Failed() {
		return "", fmt.Errorf("instantiate failed: %s", reply.Error)
	}
	var res InstantiateResult
	if err := json.Unmarshal(reply.Data, &res); err != nil {
		return "", fmt.Errorf("decode instantiate reply: %w", err)
	}
	return res.ContractAddress, nil
}

// JSON encodes a query response
func JSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode strictly parses a JSON message into v. Unknown fields are rejected
// so a variant a contract does not implement fails instead of being ignored.
func Decode(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidMessage, err)
	}
	return nil
}
