package validation

import "errors"

var (
	// ErrRuleNotFound is returned for a rule id outside the catalog.
	ErrRuleNotFound = errors.New("rule not found")
	ErrNoDocument   = errors.New("no document loaded")
)

// RepairFailedError reports a repair that ran but could not resolve its
// finding. RepairOne returns it; RepairAll only counts it.
type RepairFailedError struct {
	Rule    string
	Message string
}

func (e *RepairFailedError) Error() string { return "failed to repair - " + e.Message }
