package condorcet

import (
	"errors"
	"fmt"

	"github.com/daodao/core/pkg/types"
)

// ErrInvalidRanking is returned for ballots that do not rank every choice
// exactly once
var ErrInvalidRanking = errors.New("ballot must rank each choice exactly once")

// Cell is the signed margin by which one choice beats another
type Cell struct {
	Negative bool          `json:"negative,omitempty"`
	Margin   types.Uint128 `json:"margin"`
}

// Positive reports a strict win
func (c Cell) Positive() bool {
	return !c.Negative && !c.Margin.IsZero()
}

func (c Cell) invert() Cell {
	if c.Margin.IsZero() {
		return Cell{Margin: c.Margin}
	}
	return Cell{Negative: !c.Negative, Margin: c.Margin}
}

func (c Cell) add(amount types.Uint128) (Cell, error) {
	if !c.Negative {
		m, err := c.Margin.Add(amount)
		if err != nil {
			return c, err
		}
		return Cell{Margin: m}, nil
	}
	if c.Margin.GT(amount) {
		m, err := c.Margin.Sub(amount)
		return Cell{Negative: true, Margin: m}, err
	}
	m, err := amount.Sub(c.Margin)
	return Cell{Margin: m}, err
}

func (c Cell) sub(amount types.Uint128) (Cell, error) {
	out, err := c.invert().add(amount)
	return out.invert(), err
}

// Matrix stores pairwise margins as the strict lower triangle: the cell at
// (x, y) with x > y holds how far x beats y, and (y, x) is its inverse.
type Matrix struct {
	Cells []Cell `json:"cells"`
	N     uint32 `json:"n"`
}

// NewMatrix returns an all zero matrix over n choices
func NewMatrix(n uint32) Matrix {
	cells := make([]Cell, int(n)*(int(n)-1)/2)
	for i := range cells {
		cells[i] = Cell{Margin: types.ZeroUint128()}
	}
	return Matrix{Cells: cells, N: n}
}

func (m *Matrix) index(x, y uint32) int {
	n := int(m.N)
	row := int(y)*n - (int(y)+1)*int(y)/2
	return row + int(x) - (int(y) + 1)
}

// Get returns the margin by which x beats y
func (m *Matrix) Get(x, y uint32) Cell {
	if x < y {
		return m.Get(y, x).invert()
	}
	return m.Cells[m.index(x, y)]
}

// Increment records amount of power preferring x over y
func (m *Matrix) Increment(x, y uint32, amount types.Uint128) error {
	if x < y {
		i := m.index(y, x)
		c, err := m.Cells[i].sub(amount)
		if err != nil {
			return err
		}
		m.Cells[i] = c
		return nil
	}
	i := m.index(x, y)
	c, err := m.Cells[i].add(amount)
	if err != nil {
		return err
	}
	m.Cells[i] = c
	return nil
}

// PositiveColumn returns the first choice that beats every other one and
// its smallest margin
func (m *Matrix) PositiveColumn() (uint32, types.Uint128, bool) {
cols:
	for col := uint32(0); col < m.N; col++ {
		var smallest *types.Uint128
		for row := uint32(0); row < m.N; row++ {
			if row == col {
				continue
			}
			c := m.Get(col, row)
			if !c.Positive() {
				continue cols
			}
			if smallest == nil || c.Margin.LT(*smallest) {
				margin := c.Margin
				smallest = &margin
			}
		}
		if smallest == nil {
			return col, types.ZeroUint128(), true
		}
		return col, *smallest, true
	}
	return 0, types.Uint128{}, false
}

// reachable reports whether outstanding power could still make col beat
// every other choice
func (m *Matrix) reachable(col uint32, outstanding types.Uint128) bool {
	for row := uint32(0); row < m.N; row++ {
		if row == col {
			continue
		}
		c := m.Get(col, row)
		switch {
		case c.Positive():
		case c.Negative && c.Margin.LT(outstanding):
		case !c.Negative && !outstanding.IsZero():
		default:
			return false
		}
	}
	return true
}

// Winner is the state of the election. Exactly one field is set.
type Winner struct {
	// Never means no choice can win anymore
	Never *struct{} `json:"never,omitempty"`
	// None means no choice currently beats all others
	None *struct{} `json:"none,omitempty"`
	// Some is the current winner, which outstanding votes may still unseat
	Some *uint32 `json:"some,omitempty"`
	// Undisputed is a winner outstanding votes cannot unseat
	Undisputed *uint32 `json:"undisputed,omitempty"`
}

// Choice returns the winning choice, if there is one
func (w Winner) Choice() (uint32, bool) {
	switch {
	case w.Some != nil:
		return *w.Some, true
	case w.Undisputed != nil:
		return *w.Undisputed, true
	}
	return 0, false
}

func (w Winner) String() string {
	switch {
	case w.Never != nil:
		return "never"
	case w.Some != nil:
		return fmt.Sprintf("some(%d)", *w.Some)
	case w.Undisputed != nil:
		return fmt.Sprintf("undisputed(%d)", *w.Undisputed)
	}
	return "none"
}

// Tally is the running pairwise count of a proposal. The winner is updated
// with every ballot.
type Tally struct {
	StartHeight      uint64           `json:"start_height"`
	Expiration       types.Expiration `json:"expiration"`
	PowerOutstanding types.Uint128    `json:"power_outstanding"`
	M                Matrix           `json:"m"`
	Winner           Winner           `json:"winner"`
}

// NewTally starts a tally over n choices
func NewTally(n uint32, totalPower types.Uint128, startHeight uint64, expiration types.Expiration) Tally {
	return Tally{
		StartHeight:      startHeight,
		Expiration:       expiration,
		PowerOutstanding: totalPower,
		M:                NewMatrix(n),
		Winner:           Winner{None: &struct{}{}},
	}
}

// Candidates returns the number of choices
func (t *Tally) Candidates() uint32 {
	return t.M.N
}

// Expired reports whether voting has closed
func (t *Tally) Expired(block types.BlockInfo) bool {
	return t.Expiration.IsExpired(block)
}

// AddVote counts a ranking with power behind it and recomputes the winner
func (t *Tally) AddVote(ranking []uint32, power types.Uint128) error {
	for i, pref := range ranking {
		for _, defeated := range ranking[i+1:] {
			if err := t.M.Increment(pref, defeated, power); err != nil {
				return fmt.Errorf("count ballot: %w", err)
			}
		}
	}
	t.PowerOutstanding = t.PowerOutstanding.SaturatingSub(power)
	t.Winner = t.computeWinner()
	return nil
}

func (t *Tally) computeWinner() Winner {
	if col, margin, ok := t.M.PositiveColumn(); ok {
		if margin.GT(t.PowerOutstanding) {
			return Winner{Undisputed: &col}
		}
		return Winner{Some: &col}
	}
	for col := uint32(0); col < t.M.N; col++ {
		if t.M.reachable(col, t.PowerOutstanding) {
			return Winner{None: &struct{}{}}
		}
	}
	return Winner{Never: &struct{}{}}
}

// ValidateRanking checks that ranking is a permutation of the n choices
func ValidateRanking(ranking []uint32, n uint32) error {
	if uint32(len(ranking)) != n {
		return ErrInvalidRanking
	}
	seen := make([]bool, n)
	for _, c := range ranking {
		if c >= n || seen[c] {
			return ErrInvalidRanking
		}
		seen[c] = true
	}
	return nil
}
