package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/repair"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/rules"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
)

// Outcome of one attempted repair.
type Outcome string

const (
	OutcomeRepaired Outcome = "repaired"
	OutcomeFailed   Outcome = "failed"
	OutcomeFault    Outcome = "fault"
)

// JournalEntry describes one attempted repair.
type JournalEntry struct {
	SessionID string
	At        time.Time
	Rule      string
	Message   string
	Action    *repair.Action
	Outcome   Outcome
	Err       string
}

// Journal receives every attempted repair. It is optional.
type Journal interface {
	Record(ctx context.Context, e JournalEntry) error
}

// BatchResult counts what RepairAll did. Skipped entries had no repair.
type BatchResult struct {
	Attempted int `json:"attempted"`
	Repaired  int `json:"repaired"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Dispatcher resolves positions in the consolidated list to their owning
// rule and applies repairs against sc.
type Dispatcher struct {
	reg       *Registry
	sc        scene.Accessor
	journal   Journal
	log       *slog.Logger
	sessionID string
	now       func() time.Time
}

func NewDispatcher(reg *Registry, sc scene.Accessor, j Journal, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{reg: reg, sc: sc, journal: j, log: logger, now: time.Now}
}

// RepairOne repairs the finding at position. A missing position, a finding
// the rule no longer knows, or a finding without a repair is a no-op. A
// repair that reports false is returned as *RepairFailedError.
func (d *Dispatcher) RepairOne(ctx context.Context, position int) error {
	r := d.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	if position < 0 || position >= len(r.items) {
		d.log.Debug("repair one: no finding at position", "position", position)
		return nil
	}
	it := r.items[position]
	rule, ok := d.repairable(it)
	if !ok {
		return nil
	}

	fixed, err := rule.Repair(d.sc, it.LocalID)
	switch {
	case err != nil:
		d.record(ctx, it, OutcomeFault, err)
		return fmt.Errorf("repair %q: %w", it.Message, err)
	case !fixed:
		d.record(ctx, it, OutcomeFailed, nil)
		return &RepairFailedError{Rule: it.Rule, Message: it.Message}
	}
	r.items = append(r.items[:position], r.items[position+1:]...)
	d.record(ctx, it, OutcomeRepaired, nil)
	d.log.Info("repaired", "rule", it.Rule, "message", it.Message)
	return nil
}

// RepairAll attempts every available repair in list order. Failures leave
// their entry in place and do not stop the pass; repaired entries are removed
// once every entry has been visited. Host faults are joined into the
// returned error.
func (d *Dispatcher) RepairAll(ctx context.Context) (BatchResult, error) {
	r := d.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		res    BatchResult
		faults []error
		done   = map[key]bool{}
	)
	for _, it := range r.items {
		rule, ok := d.repairable(it)
		if !ok {
			res.Skipped++
			continue
		}
		res.Attempted++
		fixed, err := rule.Repair(d.sc, it.LocalID)
		switch {
		case err != nil:
			res.Failed++
			faults = append(faults, fmt.Errorf("repair %q: %w", it.Message, err))
			d.record(ctx, it, OutcomeFault, err)
			d.log.Warn("repair fault", "rule", it.Rule, "message", it.Message, "err", err)
		case !fixed:
			res.Failed++
			d.record(ctx, it, OutcomeFailed, nil)
			d.log.Warn("repair failed", "rule", it.Rule, "message", it.Message)
		default:
			res.Repaired++
			done[it.key()] = true
			d.record(ctx, it, OutcomeRepaired, nil)
		}
	}

	kept := r.items[:0]
	for _, it := range r.items {
		if !done[it.key()] {
			kept = append(kept, it)
		}
	}
	r.items = kept

	d.log.Info("repair pass finished",
		"attempted", res.Attempted, "repaired", res.Repaired,
		"failed", res.Failed, "skipped", res.Skipped)
	return res, errors.Join(faults...)
}

// repairable resolves it to its rule when the rule still has a repair for it.
func (d *Dispatcher) repairable(it Item) (rules.Rule, bool) {
	if it.RuleID < 0 || it.RuleID >= len(d.reg.rules) {
		return nil, false
	}
	rule := d.reg.rules[it.RuleID]
	has, err := rule.HasRepair(it.LocalID)
	if err != nil {
		d.log.Debug("finding gone from rule", "rule", it.Rule, "local_id", it.LocalID, "err", err)
		return nil, false
	}
	return rule, has
}

func (d *Dispatcher) record(ctx context.Context, it Item, outcome Outcome, cause error) {
	if d.journal == nil {
		return
	}
	e := JournalEntry{
		SessionID: d.sessionID,
		At:        d.now().UTC(),
		Rule:      it.Rule,
		Message:   it.Message,
		Action:    it.Repair,
		Outcome:   outcome,
	}
	if cause != nil {
		e.Err = cause.Error()
	}
	if err := d.journal.Record(ctx, e); err != nil {
		d.log.Warn("journal write failed", "rule", it.Rule, "err", err)
	}
}
