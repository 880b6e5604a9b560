package rules

import (
	"fmt"
	"iter"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/repair"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
)

// Severity of a finding.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// Finding is one violation recorded by a rule. LocalID is unique within the
// rule's current result set; it is not a position.
type Finding struct {
	LocalID  int
	Severity Severity
	Message  string
	// Repair is nil for informational findings.
	Repair *repair.Action
}

// Rule inspects a scene and records findings. Rules keep their findings
// between Validate and Repair; Reset drops them.
type Rule interface {
	Name() string
	Reset()
	// Validate must not mutate the scene. Host faults are returned as-is;
	// findings recorded before the fault are kept.
	Validate(sc scene.Accessor) error
	// HasErrors reports whether any finding is recorded, of either severity.
	HasErrors() bool
	IterErrors() iter.Seq[Finding]
	HasRepair(localID int) (bool, error)
	Repair(sc scene.Accessor, localID int) (bool, error)
}
