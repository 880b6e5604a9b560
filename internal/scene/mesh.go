package scene

import (
	"errors"
	"fmt"
	"slices"
)

var ErrShapeKeyNotFound = errors.New("shape key not found")

// Mesh is a geometry data block. ShapeKeys[0], when present, is the
// reference key every other key is ultimately relative to.
type Mesh struct {
	Name         string     `yaml:"name" json:"name"`
	Vertices     []Vertex   `yaml:"vertices,omitempty" json:"vertices,omitempty"`
	VertexGroups []string   `yaml:"vertex_groups,omitempty" json:"vertex_groups,omitempty"`
	ShapeKeys    []ShapeKey `yaml:"shape_keys,omitempty" json:"shape_keys,omitempty"`
}

type Vertex struct {
	Co     Vec3          `yaml:"co" json:"co"`
	Groups []GroupWeight `yaml:"groups,omitempty" json:"groups,omitempty"`
}

// GroupWeight assigns a vertex to VertexGroups[Group].
type GroupWeight struct {
	Group  int     `yaml:"group" json:"group"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// ShapeKey is a blend shape. Relative names the key its offsets are
// measured against; an empty Relative means the reference key.
type ShapeKey struct {
	Name      string  `yaml:"name" json:"name"`
	Relative  string  `yaml:"relative,omitempty" json:"relative,omitempty"`
	Value     float64 `yaml:"value,omitempty" json:"value,omitempty"`
	Positions []Vec3  `yaml:"positions" json:"positions"`
}

func (m *Mesh) check() error {
	names := map[string]bool{}
	for _, k := range m.ShapeKeys {
		if names[k.Name] {
			return fmt.Errorf("shape key %q: %w", k.Name, ErrNameTaken)
		}
		names[k.Name] = true
		if len(k.Positions) != len(m.Vertices) {
			return fmt.Errorf("shape key %q has %d positions for %d vertices", k.Name, len(k.Positions), len(m.Vertices))
		}
	}
	for _, k := range m.ShapeKeys {
		if k.Relative != "" && !names[k.Relative] {
			return fmt.Errorf("shape key %q relative %q: %w", k.Name, k.Relative, ErrShapeKeyNotFound)
		}
	}
	for i, v := range m.Vertices {
		for _, g := range v.Groups {
			if g.Group < 0 || g.Group >= len(m.VertexGroups) {
				return fmt.Errorf("vertex %d references vertex group %d of %d", i, g.Group, len(m.VertexGroups))
			}
		}
	}
	return nil
}

// ShapeKeyIndex returns the index of the named key or -1.
func (m *Mesh) ShapeKeyIndex(name string) int {
	return slices.IndexFunc(m.ShapeKeys, func(k ShapeKey) bool { return k.Name == name })
}

// ShapeKey returns the live key with the given name.
func (m *Mesh) ShapeKey(name string) (*ShapeKey, error) {
	i := m.ShapeKeyIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q on mesh %q", ErrShapeKeyNotFound, name, m.Name)
	}
	return &m.ShapeKeys[i], nil
}

// RelativeOf resolves the key k is measured against, falling back to the
// reference key when Relative is empty or dangling.
func (m *Mesh) RelativeOf(k *ShapeKey) *ShapeKey {
	if k.Relative != "" {
		if i := m.ShapeKeyIndex(k.Relative); i >= 0 {
			return &m.ShapeKeys[i]
		}
	}
	if len(m.ShapeKeys) == 0 {
		return nil
	}
	return &m.ShapeKeys[0]
}

// MoveShapeKey moves the key at index from to index to, shifting the keys in
// between.
func (m *Mesh) MoveShapeKey(from, to int) error {
	n := len(m.ShapeKeys)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move shape key %d -> %d: index out of range [0,%d)", from, to, n)
	}
	if from == to {
		return nil
	}
	k := m.ShapeKeys[from]
	m.ShapeKeys = slices.Delete(m.ShapeKeys, from, from+1)
	m.ShapeKeys = slices.Insert(m.ShapeKeys, to, k)
	return nil
}

// AddShapeKey appends k. Positions default to the current vertex positions.
func (m *Mesh) AddShapeKey(k ShapeKey) error {
	if m.ShapeKeyIndex(k.Name) >= 0 {
		return fmt.Errorf("add shape key %q: %w", k.Name, ErrNameTaken)
	}
	if k.Positions == nil {
		k.Positions = m.BasePositions()
	}
	if len(k.Positions) != len(m.Vertices) {
		return fmt.Errorf("add shape key %q: %d positions for %d vertices", k.Name, len(k.Positions), len(m.Vertices))
	}
	m.ShapeKeys = append(m.ShapeKeys, k)
	return nil
}

// RemoveShapeKey deletes the named key. Keys that were relative to it are
// re-pointed at the reference key.
func (m *Mesh) RemoveShapeKey(name string) error {
	i := m.ShapeKeyIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %q on mesh %q", ErrShapeKeyNotFound, name, m.Name)
	}
	m.ShapeKeys = slices.Delete(m.ShapeKeys, i, i+1)
	ref := ""
	if len(m.ShapeKeys) > 0 {
		ref = m.ShapeKeys[0].Name
	}
	for j := range m.ShapeKeys {
		if m.ShapeKeys[j].Relative == name {
			m.ShapeKeys[j].Relative = ref
		}
	}
	return nil
}

// BasePositions copies the vertex positions.
func (m *Mesh) BasePositions() []Vec3 {
	out := make([]Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Co
	}
	return out
}

// RemoveVertexGroup deletes VertexGroups[index], drops its weights and
// renumbers the weights of later groups.
func (m *Mesh) RemoveVertexGroup(index int) error {
	if index < 0 || index >= len(m.VertexGroups) {
		return fmt.Errorf("remove vertex group %d: index out of range [0,%d)", index, len(m.VertexGroups))
	}
	m.VertexGroups = slices.Delete(m.VertexGroups, index, index+1)
	for vi := range m.Vertices {
		v := &m.Vertices[vi]
		v.Groups = slices.DeleteFunc(v.Groups, func(g GroupWeight) bool { return g.Group == index })
		for gi := range v.Groups {
			if v.Groups[gi].Group > index {
				v.Groups[gi].Group--
			}
		}
	}
	return nil
}
