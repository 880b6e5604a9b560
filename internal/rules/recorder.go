package rules

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/repair"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
)

var ErrFindingNotFound = errors.New("finding not found")

// Recorder keeps a rule's findings. Concrete rules embed it and only supply
// Name and Validate.
type Recorder struct {
	findings []Finding
	next     int
}

func (r *Recorder) Reset() {
	r.findings = nil
	r.next = 0
}

// Warning records a warning and returns its local id.
func (r *Recorder) Warning(message string, fix *repair.Action) int {
	return r.add(SeverityWarning, message, fix)
}

// Error records an error and returns its local id.
func (r *Recorder) Error(message string, fix *repair.Action) int {
	return r.add(SeverityError, message, fix)
}

// Ids come from a counter and are not reused until Reset, so removing a
// repaired finding never changes the id of another.
func (r *Recorder) add(sev Severity, message string, fix *repair.Action) int {
	id := r.next
	r.next++
	r.findings = append(r.findings, Finding{LocalID: id, Severity: sev, Message: message, Repair: fix})
	return id
}

func (r *Recorder) HasErrors() bool { return len(r.findings) > 0 }

// IterErrors yields the findings in insertion order. Each call starts over
// from the findings recorded at that moment.
func (r *Recorder) IterErrors() iter.Seq[Finding] {
	snapshot := slices.Clone(r.findings)
	return func(yield func(Finding) bool) {
		for _, f := range snapshot {
			if !yield(f) {
				return
			}
		}
	}
}

func (r *Recorder) lookup(localID int) (int, error) {
	i := slices.IndexFunc(r.findings, func(f Finding) bool { return f.LocalID == localID })
	if i < 0 {
		return -1, fmt.Errorf("%w: local id %d", ErrFindingNotFound, localID)
	}
	return i, nil
}

func (r *Recorder) HasRepair(localID int) (bool, error) {
	i, err := r.lookup(localID)
	if err != nil {
		return false, err
	}
	return r.findings[i].Repair != nil, nil
}

// Repair applies the finding's fix. A finding without a fix reports false
// and touches nothing. A successful fix removes the finding.
func (r *Recorder) Repair(sc scene.Accessor, localID int) (bool, error) {
	i, err := r.lookup(localID)
	if err != nil {
		return false, err
	}
	fix := r.findings[i].Repair
	if fix == nil {
		return false, nil
	}
	ok, err := repair.Apply(sc, *fix)
	if err != nil || !ok {
		return false, err
	}
	r.findings = slices.Delete(r.findings, i, i+1)
	return true, nil
}
