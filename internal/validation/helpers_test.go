package validation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/repair"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/rules"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
)

var errHost = errors.New("host went away")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scripted records one error per fix, in order; a nil fix is informational.
type scripted struct {
	rules.Recorder
	name  string
	fixes []*repair.Action
	fault error
}

func (s *scripted) Name() string { return s.name }

func (s *scripted) Validate(scene.Accessor) error {
	for i, fix := range s.fixes {
		s.Error(fmt.Sprintf("%s #%d", s.name, i), fix)
	}
	return s.fault
}

// docWith returns meshes A, B, C whose data names are lower case, plus D
// whose data is named "taken".
func docWith() *scene.Document {
	mesh := func(obj, data string) *scene.Object {
		return &scene.Object{Name: obj, Kind: scene.KindMesh, Mesh: &scene.Mesh{Name: data}}
	}
	return &scene.Document{Objects: []*scene.Object{
		mesh("A", "a"), mesh("B", "b"), mesh("C", "c"), mesh("D", "taken"),
	}}
}

// faultyRenames fails every data rename.
type faultyRenames struct{ *scene.Document }

func (faultyRenames) RenameData(string, string) error { return errHost }

type memJournal struct {
	mu      sync.Mutex
	entries []JournalEntry
	err     error
}

func (j *memJournal) Record(_ context.Context, e JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return j.err
}

func (j *memJournal) outcomes() []Outcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []Outcome
	for _, e := range j.entries {
		out = append(out, e.Outcome)
	}
	return out
}

func catalogOf(rs ...rules.Rule) func() []rules.Rule {
	return func() []rules.Rule { return rs }
}

func messages(items []Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Message)
	}
	return out
}
