// Package validation runs the rule catalog against a scene, keeps the
// consolidated finding list and dispatches repairs back to the owning rules.
package validation

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/repair"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/rules"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
)

// Entry is one catalog row as shown to the user.
type Entry struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Item is a finding in the consolidated list. It refers back to its rule by
// (RuleID, LocalID); Position is only its current index in the list.
type Item struct {
	Position   int            `json:"position"`
	RuleID     int            `json:"rule_id"`
	Rule       string         `json:"rule"`
	LocalID    int            `json:"local_id"`
	Severity   rules.Severity `json:"severity"`
	Message    string         `json:"message"`
	Repairable bool           `json:"repairable"`
	Repair     *repair.Action `json:"repair,omitempty"`
}

type key struct{ rule, local int }

func (it Item) key() key { return key{it.RuleID, it.LocalID} }

// Registry owns the rule catalog, the per-rule selection flags and the
// consolidated finding list for one session. All entry points, including the
// Dispatcher's, are serialized on mu.
type Registry struct {
	mu      sync.Mutex
	log     *slog.Logger
	catalog func() []rules.Rule

	rules   []rules.Rule
	enabled []bool
	items   []Item
}

func NewRegistry(logger *slog.Logger, catalog func() []rules.Rule) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if catalog == nil {
		catalog = rules.Catalog
	}
	return &Registry{log: logger, catalog: catalog}
}

// Initialize populates the catalog on first use, enables every rule and
// clears all findings. Calling it again keeps the rule instances but resets
// them.
func (r *Registry) Initialize() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rules == nil {
		r.rules = r.catalog()
	} else {
		for _, rule := range r.rules {
			rule.Reset()
		}
	}
	r.enabled = make([]bool, len(r.rules))
	for i := range r.enabled {
		r.enabled[i] = true
	}
	r.items = nil
	r.log.Debug("registry initialized", "rules", len(r.rules))
}

// Teardown drops the catalog and every finding.
func (r *Registry) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = nil
	r.enabled = nil
	r.items = nil
}

func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.rules))
	for i, rule := range r.rules {
		out[i] = Entry{ID: i, Name: rule.Name(), Enabled: r.enabled[i]}
	}
	return out
}

func (r *Registry) SetEnabled(id int, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.rules) {
		return fmt.Errorf("%w: %d", ErrRuleNotFound, id)
	}
	r.enabled[id] = on
	return nil
}

// Rule returns the catalog rule with the given id.
func (r *Registry) Rule(id int) (rules.Rule, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.rules) {
		return nil, false
	}
	return r.rules[id], true
}

// RunSelected clears the consolidated list and validates every enabled rule
// in catalog order. A host fault stops the run; findings gathered up to that
// point stay in the list.
func (r *Registry) RunSelected(sc scene.Accessor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = nil
	for id := range r.rules {
		if !r.enabled[id] {
			continue
		}
		if err := r.run(sc, id); err != nil {
			return err
		}
	}
	r.log.Info("validation finished", "findings", len(r.items))
	return nil
}

// RunOne clears the whole consolidated list, including other rules'
// findings, then validates a single rule regardless of its selection flag.
// An unknown id does nothing at all.
func (r *Registry) RunOne(sc scene.Accessor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id < 0 || id >= len(r.rules) {
		r.log.Debug("run one: no such rule", "id", id)
		return nil
	}
	r.items = nil
	return r.run(sc, id)
}

func (r *Registry) run(sc scene.Accessor, id int) error {
	rule := r.rules[id]
	rule.Reset()
	err := rule.Validate(sc)

	n := 0
	for f := range rule.IterErrors() {
		r.items = append(r.items, Item{
			RuleID:     id,
			Rule:       rule.Name(),
			LocalID:    f.LocalID,
			Severity:   f.Severity,
			Message:    f.Message,
			Repairable: f.Repair != nil,
			Repair:     f.Repair,
		})
		n++
	}
	r.log.Debug("rule validated", "rule", rule.Name(), "findings", n)
	if err != nil {
		return fmt.Errorf("validate %q: %w", rule.Name(), err)
	}
	return nil
}

// Findings returns a copy of the consolidated list with positions filled in.
func (r *Registry) Findings() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Item, len(r.items))
	for i, it := range r.items {
		it.Position = i
		out[i] = it
	}
	return out
}
