package reporting

import (
	"time"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/rules"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

// Report is a snapshot of one validation pass: the rule selection and the
// consolidated finding list.
type Report struct {
	ID          string                  `json:"id"`
	Document    string                  `json:"document"`
	GeneratedAt time.Time               `json:"generated_at"`
	Rules       []validation.Entry      `json:"rules"`
	Findings    []validation.Item       `json:"findings"`
	Repairs     *validation.BatchResult `json:"repairs,omitempty"`
}

func NewReport(id, document string, reg *validation.Registry) *Report {
	return &Report{
		ID:          id,
		Document:    document,
		GeneratedAt: time.Now().UTC(),
		Rules:       reg.Entries(),
		Findings:    reg.Findings(),
	}
}

// Counts tallies findings by severity and how many can be repaired.
func (r *Report) Counts() (errs, warnings, repairable int) {
	for _, it := range r.Findings {
		if it.Severity == rules.SeverityError {
			errs++
		} else {
			warnings++
		}
		if it.Repairable {
			repairable++
		}
	}
	return errs, warnings, repairable
}
