// Package shapekeys holds the mesh maintenance operations: shape key
// ordering, pruning and re-basing, and vertex group cleanup.
package shapekeys

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
)

const (
	BasisName = "Basis"

	// DefaultPruneTolerance is the per-component difference under which a
	// key counts as unused.
	DefaultPruneTolerance = 0.001
	// DefaultAffectedTolerance is the displacement over which a vertex
	// counts as moved by a key.
	DefaultAffectedTolerance = 1e-5

	revertedSuffix = " - Reverted"
)

var (
	ErrRevertConflict = errors.New("reverted shape key conflict")
	ErrBasisKey       = errors.New("shape key is the basis")
)

// CanonicalOrder is the order avatar runtimes expect for the viseme and
// blink keys.
var CanonicalOrder = []string{
	BasisName,
	"vrc.blink_left",
	"vrc.blink_right",
	"vrc.lowerlid_left",
	"vrc.lowerlid_right",
	"vrc.v_aa",
	"vrc.v_ch",
	"vrc.v_dd",
	"vrc.v_e",
	"vrc.v_ff",
	"vrc.v_ih",
	"vrc.v_kk",
	"vrc.v_nn",
	"vrc.v_oh",
	"vrc.v_ou",
	"vrc.v_pp",
	"vrc.v_rr",
	"vrc.v_sil",
	"vrc.v_ss",
	"vrc.v_th",
	"Basis Original",
}

// MeshSource resolves an object name to its live mesh data.
// *scene.Document implements it.
type MeshSource interface {
	Mesh(obj string) (*scene.Mesh, error)
}

// Sort reorders the shape keys of obj: CanonicalOrder first, then extra,
// then every other key in its current relative order.
func Sort(src MeshSource, obj string, extra []string) error {
	m, err := src.Mesh(obj)
	if err != nil {
		return err
	}
	sortKeys(m, extra)
	return nil
}

func sortKeys(m *scene.Mesh, extra []string) {
	order := slices.Clone(CanonicalOrder)
	for _, name := range extra {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}

	slot := 0
	for _, name := range order {
		idx := m.ShapeKeyIndex(name)
		if idx < 0 {
			// A missing basis still holds slot 0.
			if name == BasisName {
				slot++
			}
			continue
		}
		to := min(slot, len(m.ShapeKeys)-1)
		_ = m.MoveShapeKey(idx, to)
		slot++
	}
}

// RemoveUnused deletes every key that differs from its relative key by less
// than tolerance on every coordinate. The reference key is never removed.
func RemoveUnused(src MeshSource, obj string, tolerance float64) ([]string, error) {
	m, err := src.Mesh(obj)
	if err != nil {
		return nil, err
	}
	if tolerance <= 0 {
		tolerance = DefaultPruneTolerance
	}

	var unused []string
	for i := range m.ShapeKeys {
		if i == 0 {
			continue
		}
		k := &m.ShapeKeys[i]
		rel := m.RelativeOf(k)
		if rel == k {
			continue
		}
		if within(k.Positions, rel.Positions, tolerance) {
			unused = append(unused, k.Name)
		}
	}
	for _, name := range unused {
		if err := m.RemoveShapeKey(name); err != nil {
			return nil, err
		}
	}
	return unused, nil
}

func within(a, b []scene.Vec3, tol float64) bool {
	for i := range a {
		d := a[i].Sub(b[i])
		for _, c := range d {
			if math.Abs(c) >= tol {
				return false
			}
		}
	}
	return true
}

// AffectedVertices returns the indices of the vertices that key moves more
// than tolerance away from the basis.
func AffectedVertices(src MeshSource, obj, key string, tolerance float64) ([]int, error) {
	m, err := src.Mesh(obj)
	if err != nil {
		return nil, err
	}
	if tolerance <= 0 {
		tolerance = DefaultAffectedTolerance
	}
	idx := m.ShapeKeyIndex(key)
	switch {
	case idx < 0:
		return nil, fmt.Errorf("%w: %q on %q", scene.ErrShapeKeyNotFound, key, obj)
	case idx == 0:
		return nil, fmt.Errorf("%q on %q: %w", key, obj, ErrBasisKey)
	}
	basis, err := m.ShapeKey(BasisName)
	if err != nil {
		return nil, err
	}

	out := []int{}
	for i, p := range m.ShapeKeys[idx].Positions {
		if p.Sub(basis.Positions[i]).Len() > tolerance {
			out = append(out, i)
		}
	}
	return out, nil
}

// RemoveUnusedVertexGroups deletes the groups no vertex carries a positive
// weight for, highest index first, and returns their names in that order.
func RemoveUnusedVertexGroups(src MeshSource, obj string) ([]string, error) {
	m, err := src.Mesh(obj)
	if err != nil {
		return nil, err
	}
	used := make([]bool, len(m.VertexGroups))
	for _, v := range m.Vertices {
		for _, g := range v.Groups {
			if g.Weight > 0 {
				used[g.Group] = true
			}
		}
	}

	var removed []string
	for i := len(used) - 1; i >= 0; i-- {
		if used[i] {
			continue
		}
		name := m.VertexGroups[i]
		if err := m.RemoveVertexGroup(i); err != nil {
			return removed, err
		}
		removed = append(removed, name)
	}
	return removed, nil
}

func isReverted(name string) bool { return strings.Contains(name, revertedSuffix) }
