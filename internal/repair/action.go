// Package repair holds the fixes a finding can carry. A fix is plain data
// (what to rename, and to what) so it can be logged, journaled and replayed
// without holding on to host objects.
package repair

import (
	"errors"
	"fmt"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
)

type Kind string

const (
	KindRenameData Kind = "rename_data"
	KindRenameBone Kind = "rename_bone"
)

var ErrUnknownKind = errors.New("unknown repair kind")

// Action is one fix. Which fields are meaningful depends on Kind.
type Action struct {
	Kind    Kind   `json:"kind"`
	Object  string `json:"object"`
	Bone    string `json:"bone,omitempty"`
	NewName string `json:"new_name"`
}

// RenameData renames the data block owned by obj.
func RenameData(obj, newName string) *Action {
	return &Action{Kind: KindRenameData, Object: obj, NewName: newName}
}

// RenameBone renames bone on the armature object obj.
func RenameBone(obj, bone, newName string) *Action {
	return &Action{Kind: KindRenameBone, Object: obj, Bone: bone, NewName: newName}
}

// Context is the action's payload as a tuple. Single-value payloads still
// come back as a one-element tuple.
func (a Action) Context() []string {
	switch a.Kind {
	case KindRenameBone:
		return []string{a.Object, a.Bone, a.NewName}
	case KindRenameData:
		return []string{a.Object, a.NewName}
	default:
		return []string{a.Object}
	}
}

func (a Action) String() string {
	switch a.Kind {
	case KindRenameBone:
		return fmt.Sprintf("%s(%s: %s -> %s)", a.Kind, a.Object, a.Bone, a.NewName)
	default:
		return fmt.Sprintf("%s(%s -> %s)", a.Kind, a.Object, a.NewName)
	}
}

// handler applies one kind of action to the scene given its context tuple.
type handler func(sc scene.Accessor, ctx []string) (bool, error)

var handlers = map[Kind]handler{
	KindRenameData: renameData,
	KindRenameBone: renameBone,
}

// Apply performs a against the scene by handing its Context tuple to the
// handler for its kind. It reports false when the host refused the change in
// a way the user can resolve (the name is taken, or the host kept a different
// name), and an error for anything else.
func Apply(sc scene.Accessor, a Action) (bool, error) {
	h, ok := handlers[a.Kind]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
	ok, err := h(sc, a.Context())
	if err != nil {
		return refused(a, err)
	}
	return ok, nil
}

// renameData takes (object, new name).
func renameData(sc scene.Accessor, ctx []string) (bool, error) {
	obj, name := ctx[0], ctx[1]
	if err := sc.RenameData(obj, name); err != nil {
		return false, err
	}
	got, err := sc.DataName(obj)
	if err != nil {
		return false, err
	}
	return got == name, nil
}

// renameBone takes (object, bone, new name).
func renameBone(sc scene.Accessor, ctx []string) (bool, error) {
	obj, bone, name := ctx[0], ctx[1], ctx[2]
	if err := sc.RenameBone(obj, bone, name); err != nil {
		return false, err
	}
	bones, err := sc.Bones(obj)
	if err != nil {
		return false, err
	}
	for _, b := range bones {
		if b == name {
			return true, nil
		}
	}
	return false, nil
}

func refused(a Action, err error) (bool, error) {
	if errors.Is(err, scene.ErrNameTaken) || errors.Is(err, scene.ErrInvalidName) {
		return false, nil
	}
	return false, fmt.Errorf("%s: %w", a, err)
}
