// Package types defines the core data types shared by the DAO runtime and
// its contracts.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Block errors
var (
	ErrDurationUnitsConflict = errors.New("cannot combine height and time durations")
	ErrInvalidExpiration     = errors.New("invalid expiration")
)

// Timestamp is nanoseconds since the Unix epoch. It serialises as a string.
type Timestamp uint64

// TimestampFromSeconds builds a timestamp from whole seconds
func TimestampFromSeconds(s uint64) Timestamp {
	return Timestamp(s * uint64(time.Second))
}

// Seconds returns the whole seconds
func (t Timestamp) Seconds() uint64 {
	return uint64(t) / uint64(time.Second)
}

// PlusSeconds returns t + s seconds
func (t Timestamp) PlusSeconds(s uint64) Timestamp {
	return t + Timestamp(s*uint64(time.Second))
}

// Time converts to time.Time
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t)).UTC()
}

// MarshalJSON encodes as a decimal string of nanoseconds
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(t), 10))
}

// UnmarshalJSON accepts a decimal string of nanoseconds
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s, err := unquoteNumber(b)
	if err != nil {
		return err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	*t = Timestamp(n)
	return nil
}

// BlockInfo is the block environment a message executes in
type BlockInfo struct {
	// Height of the block being executed
	Height uint64 `json:"height"`

	// Time of the block being executed
	Time Timestamp `json:"time"`

	// ChainID identifies the runtime instance
	ChainID string `json:"chain_id"`
}

// ExpirationKind selects the unit an Expiration is measured in
type ExpirationKind uint8

const (
	// ExpiresNever never expires
	ExpiresNever ExpirationKind = iota
	// ExpiresAtHeight expires once block height reaches Height
	ExpiresAtHeight
	// ExpiresAtTime expires once block time reaches Time
	ExpiresAtTime
)

// Expiration is a height- or time-based deadline. The zero value never expires.
type Expiration struct {
	Kind   ExpirationKind
	Height uint64
	Time   Timestamp
}

// AtHeight expires at block height h
func AtHeight(h uint64) Expiration {
	return Expiration{Kind: ExpiresAtHeight, Height: h}
}

// AtTime expires at block time t
func AtTime(t Timestamp) Expiration {
	return Expiration{Kind: ExpiresAtTime, Time: t}
}

// Never returns an expiration that never passes
func Never() Expiration {
	return Expiration{}
}

// IsNever checks for the never variant
func (e Expiration) IsNever() bool {
	return e.Kind == ExpiresNever
}

// IsExpired reports whether the block has reached the deadline
func (e Expiration) IsExpired(block BlockInfo) bool {
	switch e.Kind {
	case ExpiresAtHeight:
		return block.Height >= e.Height
	case ExpiresAtTime:
		return block.Time >= e.Time
	default:
		return false
	}
}

// Add extends the deadline. Never stays never.
func (e Expiration) Add(d Duration) (Expiration, error) {
	switch {
	case e.Kind == ExpiresNever:
		return e, nil
	case e.Kind == ExpiresAtHeight && d.Kind == DurationHeight:
		return AtHeight(e.Height + d.Value), nil
	case e.Kind == ExpiresAtTime && d.Kind == DurationTime:
		return AtTime(e.Time.PlusSeconds(d.Value)), nil
	default:
		return Expiration{}, ErrDurationUnitsConflict
	}
}

// Scalar returns the height or whole seconds of the deadline
func (e Expiration) Scalar() uint64 {
	switch e.Kind {
	case ExpiresAtHeight:
		return e.Height
	case ExpiresAtTime:
		return e.Time.Seconds()
	default:
		return 0
	}
}

func (e Expiration) String() string {
	switch e.Kind {
	case ExpiresAtHeight:
		return fmt.Sprintf("expiration height: %d", e.Height)
	case ExpiresAtTime:
		return fmt.Sprintf("expiration time: %d", uint64(e.Time))
	default:
		return "expiration: never"
	}
}

type expirationJSON struct {
	AtHeight *uint64    `json:"at_height,omitempty"`
	AtTime   *Timestamp `json:"at_time,omitempty"`
	Never    *struct{}  `json:"never,omitempty"`
}

// MarshalJSON encodes as {"at_height":n}, {"at_time":"ns"} or {"never":{}}
func (e Expiration) MarshalJSON() ([]byte, error) {
	var j expirationJSON
	switch e.Kind {
	case ExpiresAtHeight:
		h := e.Height
		j.AtHeight = &h
	case ExpiresAtTime:
		t := e.Time
		j.AtTime = &t
	default:
		j.Never = &struct{}{}
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes the tagged form
func (e *Expiration) UnmarshalJSON(b []byte) error {
	var j expirationJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExpiration, err)
	}
	switch {
	case j.AtHeight != nil:
		*e = AtHeight(*j.AtHeight)
	case j.AtTime != nil:
		*e = AtTime(*j.AtTime)
	case j.Never != nil:
		*e = Never()
	default:
		return fmt.Errorf("%w: %s", ErrInvalidExpiration, b)
	}
	return nil
}

// DurationKind selects the unit of a Duration
type DurationKind uint8

const (
	// DurationHeight counts blocks
	DurationHeight DurationKind = iota
	// DurationTime counts seconds
	DurationTime
)

// Duration is a number of blocks or seconds
type Duration struct {
	Kind  DurationKind
	Value uint64
}

// Height returns a duration of n blocks
func Height(n uint64) Duration {
	return Duration{Kind: DurationHeight, Value: n}
}

// Seconds returns a duration of n seconds
func Seconds(n uint64) Duration {
	return Duration{Kind: DurationTime, Value: n}
}

// After returns the expiration this duration after the block
func (d Duration) After(block BlockInfo) Expiration {
	if d.Kind == DurationTime {
		return AtTime(block.Time.PlusSeconds(d.Value))
	}
	return AtHeight(block.Height + d.Value)
}

// SameUnits reports whether both durations count the same unit
func (d Duration) SameUnits(o Duration) bool {
	return d.Kind == o.Kind
}

// IsZero checks for a zero length
func (d Duration) IsZero() bool {
	return d.Value == 0
}

func (d Duration) String() string {
	if d.Kind == DurationTime {
		return fmt.Sprintf("%d seconds", d.Value)
	}
	return fmt.Sprintf("%d blocks", d.Value)
}

type durationJSON struct {
	Height *uint64 `json:"height,omitempty"`
	Time   *uint64 `json:"time,omitempty"`
}

// MarshalJSON encodes as {"height":n} or {"time":n}
func (d Duration) MarshalJSON() ([]byte, error) {
	v := d.Value
	if d.Kind == DurationTime {
		return json.Marshal(durationJSON{Time: &v})
	}
	return json.Marshal(durationJSON{Height: &v})
}

// UnmarshalJSON decodes the tagged form
func (d *Duration) UnmarshalJSON(b []byte) error {
	var j durationJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	switch {
	case j.Height != nil:
		*d = Height(*j.Height)
	case j.Time != nil:
		*d = Seconds(*j.Time)
	default:
		return fmt.Errorf("invalid duration: %s", b)
	}
	return nil
}

// ElapsedBetween returns end - start in the expiration's unit, or zero when
// end is not after start. Both must use the same unit.
func ElapsedBetween(end, start Expiration) (uint64, error) {
	if end.Kind != start.Kind {
		return 0, fmt.Errorf("%w: got end %s, start %s", ErrDurationUnitsConflict, end, start)
	}
	switch end.Kind {
	case ExpiresAtHeight:
		if end.Height > start.Height {
			return end.Height - start.Height, nil
		}
	case ExpiresAtTime:
		if end.Time > start.Time {
			return end.Time.Seconds() - start.Time.Seconds(), nil
		}
	}
	return 0, nil
}
