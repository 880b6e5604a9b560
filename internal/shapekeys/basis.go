package shapekeys

import (
	"fmt"
	"strings"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
)

// BasisResult reports what ApplyAsBasis did. Reverted is the name the old
// basis was kept under; Restored is set when applying a reverted key undid
// an earlier apply, in which case Reverted is the original key name again.
type BasisResult struct {
	Applied  string `json:"applied"`
	Reverted string `json:"reverted"`
	Restored bool   `json:"restored"`
}

// ApplyAsBasis bakes key into the mesh:
//
//   - the new basis is the key mixed at its current value (1 when zero),
//   - every other key keeps its offset but is re-expressed against the new
//     basis, with its value reset,
//   - the old basis survives as "<key> - Reverted", relative to the new
//     basis, so applying it later undoes the operation.
//
// The keys are sorted afterwards. Nothing is changed on error.
func ApplyAsBasis(src MeshSource, obj, key string) (BasisResult, error) {
	m, err := src.Mesh(obj)
	if err != nil {
		return BasisResult{}, err
	}
	idx := m.ShapeKeyIndex(key)
	switch {
	case idx < 0:
		return BasisResult{}, fmt.Errorf("%w: %q on %q", scene.ErrShapeKeyNotFound, key, obj)
	case idx == 0:
		return BasisResult{}, fmt.Errorf("%q on %q: %w", key, obj, ErrBasisKey)
	}

	target := &m.ShapeKeys[idx]
	if isReverted(key) && m.RelativeOf(target).Name != BasisName {
		for _, k := range m.ShapeKeys {
			if isReverted(k.Name) && m.RelativeOf(&k).Name == BasisName {
				return BasisResult{}, fmt.Errorf("%w: %q must be applied first", ErrRevertConflict, k.Name)
			}
		}
		return BasisResult{}, fmt.Errorf("%w: %q is not relative to %s", ErrRevertConflict, key, BasisName)
	}

	ref := m.ShapeKeys[0]
	rel := m.RelativeOf(target)
	value := target.Value
	if value == 0 {
		value = 1
	}
	basis := make([]scene.Vec3, len(ref.Positions))
	for i := range basis {
		basis[i] = ref.Positions[i].Add(target.Positions[i].Sub(rel.Positions[i]).Scale(value))
	}

	revertedName := key + revertedSuffix
	restored := false
	if strings.Contains(revertedName, revertedSuffix+revertedSuffix) {
		revertedName = strings.ReplaceAll(revertedName, revertedSuffix+revertedSuffix, "")
		restored = true
	}

	keys := []scene.ShapeKey{{
		Name:      revertedName,
		Relative:  BasisName,
		Positions: ref.Positions,
	}}
	for i := range m.ShapeKeys {
		if i == 0 || i == idx {
			continue
		}
		k := m.ShapeKeys[i]
		if isReverted(k.Name) {
			// Reverted keys stay absolute and keep pointing at the key they
			// were relative to, which is now stored under a new name.
			if r := m.RelativeOf(&k); r.Name == ref.Name || r.Name == key {
				k.Relative = revertedName
			}
			keys = append(keys, k)
			continue
		}
		r := m.RelativeOf(&k)
		if r.Name == key {
			r = &ref
		}
		pos := make([]scene.Vec3, len(basis))
		for j := range pos {
			pos[j] = basis[j].Add(k.Positions[j].Sub(r.Positions[j]))
		}
		keys = append(keys, scene.ShapeKey{Name: k.Name, Relative: BasisName, Positions: pos})
	}
	keys = append(keys, scene.ShapeKey{Name: BasisName, Positions: basis})

	seen := map[string]bool{}
	for _, k := range keys {
		if seen[k.Name] {
			return BasisResult{}, fmt.Errorf("apply %q as basis: shape key %q: %w", key, k.Name, scene.ErrNameTaken)
		}
		seen[k.Name] = true
	}

	m.ShapeKeys = keys
	for i := range m.Vertices {
		m.Vertices[i].Co = basis[i]
	}
	sortKeys(m, nil)

	return BasisResult{Applied: key, Reverted: revertedName, Restored: restored}, nil
}
