package governance

import (
	"encoding/json"
	"fmt"

	"github.com/daodao/core/pkg/types"
)

// StatusKind enumerates proposal states
type StatusKind uint8

const (
	StatusOpen StatusKind = iota
	StatusRejected
	StatusPassed
	StatusExecuted
	StatusClosed
	StatusExecutionFailed
	StatusVetoTimelock
	StatusVetoed
)

var statusNames = map[StatusKind]string{
	StatusOpen:            "open",
	StatusRejected:        "rejected",
	StatusPassed:          "passed",
	StatusExecuted:        "executed",
	StatusClosed:          "closed",
	StatusExecutionFailed: "execution_failed",
	StatusVetoTimelock:    "veto_timelock",
	StatusVetoed:          "vetoed",
}

// Status is a proposal state. Expiration is only meaningful for
// StatusVetoTimelock and marks the end of the veto window.
type Status struct {
	Kind       StatusKind
	Expiration types.Expiration
}

// Open returns the initial status
func Open() Status { return Status{Kind: StatusOpen} }

// VetoTimelock returns a timelocked status ending at exp
func VetoTimelock(exp types.Expiration) Status {
	return Status{Kind: StatusVetoTimelock, Expiration: exp}
}

// Is reports whether the status has the given kind
func (s Status) Is(k StatusKind) bool { return s.Kind == k }

func (s Status) String() string {
	if s.Kind == StatusVetoTimelock {
		return fmt.Sprintf("veto_timelock { expiration: %s }", s.Expiration)
	}
	return statusNames[s.Kind]
}

// MarshalJSON encodes unit states as strings and the timelock as an object
func (s Status) MarshalJSON() ([]byte, error) {
	if s.Kind == StatusVetoTimelock {
		return json.Marshal(map[string]any{
			"veto_timelock": map[string]types.Expiration{"expiration": s.Expiration},
		})
	}
	name, ok := statusNames[s.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown proposal status %d", s.Kind)
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes either form
func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		for k, n := range statusNames {
			if n == name && k != StatusVetoTimelock {
				*s = Status{Kind: k}
				return nil
			}
		}
		return fmt.Errorf("unknown proposal status %q", name)
	}

	var obj struct {
		VetoTimelock *struct {
			Expiration types.Expiration `json:"expiration"`
		} `json:"veto_timelock"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.VetoTimelock == nil {
		return fmt.Errorf("unknown proposal status %s", string(b))
	}
	*s = VetoTimelock(obj.VetoTimelock.Expiration)
	return nil
}
