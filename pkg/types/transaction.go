package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Message errors
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidMessage = errors.New("invalid message")
	ErrInvalidCoin    = errors.New("invalid coin")
)

// Address identifies an account or a contract
type Address string

// Validate checks that the address is non-empty, lowercase and free of whitespace
func (a Address) Validate() error {
	s := string(a)
	if s == "" || len(s) > 255 {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsUpper(r) {
			return fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
	}
	return nil
}

// Bytes returns the address as a key part
func (a Address) Bytes() []byte {
	return []byte(a)
}

func (a Address) String() string {
	return string(a)
}

// ValidateAddress parses and validates a human supplied address
func ValidateAddress(s string) (Address, error) {
	a := Address(strings.TrimSpace(s))
	return a, a.Validate()
}

// Coin is an amount of a native denomination
type Coin struct {
	Denom  string  `json:"denom"`
	Amount Uint128 `json:"amount"`
}

// NewCoin creates a coin
func NewCoin(amount uint64, denom string) Coin {
	return Coin{Denom: denom, Amount: NewUint128(amount)}
}

func (c Coin) String() string {
	return c.Amount.String() + c.Denom
}

// ParseCoin parses an amount followed by a denom, e.g. "100ujuno"
func ParseCoin(s string) (Coin, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if i <= 0 {
		return Coin{}, fmt.Errorf("%w: %q", ErrInvalidCoin, s)
	}
	amount, err := ParseUint128(s[:i])
	if err != nil {
		return Coin{}, err
	}
	return Coin{Denom: s[i:], Amount: amount}, nil
}

// ParseCoins parses a comma separated coin list. An empty string is no coins.
func ParseCoins(s string) ([]Coin, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	coins := make([]Coin, 0, len(parts))
	for _, p := range parts {
		c, err := ParseCoin(p)
		if err != nil {
			return nil, err
		}
		coins = append(coins, c)
	}
	return coins, nil
}

// CosmosMsg is a chain message a contract asks the host to dispatch. Exactly
// one field is set.
type CosmosMsg struct {
	Bank *BankMsg `json:"bank,omitempty"`
	Wasm *WasmMsg `json:"wasm,omitempty"`
}

// BankMsg moves native coins
type BankMsg struct {
	Send *BankSend `json:"send,omitempty"`
}

// BankSend transfers coins from the dispatching contract
type BankSend struct {
	ToAddress Address `json:"to_address"`
	Amount    []Coin  `json:"amount"`
}

// WasmMsg invokes, creates or migrates a contract
type WasmMsg struct {
	Execute     *WasmExecute     `json:"execute,omitempty"`
	Instantiate *WasmInstantiate `json:"instantiate,omitempty"`
	Migrate     *WasmMigrate     `json:"migrate,omitempty"`
}

// WasmInstantiate creates a contract from a registered code
type WasmInstantiate struct {
	Admin  *Address        `json:"admin,omitempty"`
	CodeID string          `json:"code_id"`
	Msg    json.RawMessage `json:"msg"`
	Funds  []Coin          `json:"funds"`
	Label  string          `json:"label"`
}

// WasmMigrate moves a contract to a new code, callable by its admin
type WasmMigrate struct {
	ContractAddr Address         `json:"contract_addr"`
	NewCodeID    string          `json:"new_code_id"`
	Msg          json.RawMessage `json:"msg"`
}

// WasmExecute calls a contract's execute entry point
type WasmExecute struct {
	ContractAddr Address         `json:"contract_addr"`
	Msg          json.RawMessage `json:"msg"`
	Funds        []Coin          `json:"funds"`
}

// NewBankSend builds a bank transfer message
func NewBankSend(to Address, amount ...Coin) CosmosMsg {
	return CosmosMsg{Bank: &BankMsg{Send: &BankSend{ToAddress: to, Amount: amount}}}
}

// NewWasmExecute marshals msg and builds a contract call
func NewWasmExecute(contract Address, msg any, funds ...Coin) (CosmosMsg, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return CosmosMsg{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if funds == nil {
		funds = []Coin{}
	}
	return CosmosMsg{Wasm: &WasmMsg{Execute: &WasmExecute{
		ContractAddr: contract,
		Msg:          raw,
		Funds:        funds,
	}}}, nil
}

// Validate checks that exactly one variant is set
func (m CosmosMsg) Validate() error {
	switch {
	case m.Bank != nil && m.Wasm == nil:
		if m.Bank.Send == nil {
			return fmt.Errorf("%w: empty bank message", ErrInvalidMessage)
		}
		return m.Bank.Send.ToAddress.Validate()
	case m.Wasm != nil && m.Bank == nil:
		return m.Wasm.validate()
	default:
		return fmt.Errorf("%w: exactly one of bank or wasm must be set", ErrInvalidMessage)
	}
}

func (w *WasmMsg) validate() error {
	switch {
	case w.Execute != nil && w.Instantiate == nil && w.Migrate == nil:
		if !json.Valid(w.Execute.Msg) {
			return fmt.Errorf("%w: wasm payload is not JSON", ErrInvalidMessage)
		}
		return w.Execute.ContractAddr.Validate()
	case w.Instantiate != nil && w.Execute == nil && w.Migrate == nil:
		if w.Instantiate.CodeID == "" || !json.Valid(w.Instantiate.Msg) {
			return fmt.Errorf("%w: instantiate needs a code id and JSON payload", ErrInvalidMessage)
		}
		return nil
	case w.Migrate != nil && w.Execute == nil && w.Instantiate == nil:
		if w.Migrate.NewCodeID == "" || !json.Valid(w.Migrate.Msg) {
			return fmt.Errorf("%w: migrate needs a code id and JSON payload", ErrInvalidMessage)
		}
		return w.Migrate.ContractAddr.Validate()
	default:
		return fmt.Errorf("%w: exactly one wasm variant must be set", ErrInvalidMessage)
	}
}

// ReplyOn says when the dispatching contract wants to hear back about a
// sub-message
type ReplyOn uint8

const (
	ReplyNever ReplyOn = iota
	ReplyError
	ReplySuccess
	ReplyAlways
)

// SubMsg is a message a contract dispatches after its own handler returns.
// A failing sub-message rolls back its own writes; when ReplyOn covers
// failures the dispatcher's Reply runs instead of aborting the transaction.
type SubMsg struct {
	ID      uint64    `json:"id"`
	Msg     CosmosMsg `json:"msg"`
	ReplyOn ReplyOn   `json:"reply_on"`
}

// NewSubMsg dispatches msg without a reply
func NewSubMsg(msg CosmosMsg) SubMsg {
	return SubMsg{Msg: msg}
}

// ReplyOnErrorMsg dispatches msg and replies with id if it fails
func ReplyOnErrorMsg(msg CosmosMsg, id uint64) SubMsg {
	return SubMsg{ID: id, Msg: msg, ReplyOn: ReplyError}
}

// Reply reports the outcome of a sub-message back to its dispatcher
type Reply struct {
	ID uint64 `json:"id"`
	// Target is the contract the failed or succeeded message was sent to,
	// empty for bank messages
	Target Address         `json:"target,omitempty"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Events []Event         `json:"events,omitempty"`
}

// Failed reports whether the sub-message errored
func (r Reply) Failed() bool {
	return r.Error != ""
}

// Attribute is a key/value pair emitted by a contract
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event groups the attributes a contract emitted in one call
type Event struct {
	Type       string      `json:"type"`
	Contract   Address     `json:"contract,omitempty"`
	Attributes []Attribute `json:"attributes"`
}

// Tx is a signed-off request to execute a message, as accepted by the mempool
type Tx struct {
	// ID is assigned by the mempool
	ID string `json:"id"`

	// Sender is the account the message executes as
	Sender Address `json:"sender"`

	// Msg is the message to dispatch
	Msg CosmosMsg `json:"msg"`

	// SubmittedAt is the wall clock time of submission
	SubmittedAt Timestamp `json:"submitted_at"`
}

// TxResult records the outcome of an executed Tx
type TxResult struct {
	TxID   string          `json:"tx_id"`
	Height uint64          `json:"height"`
	Events []Event         `json:"events"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}
