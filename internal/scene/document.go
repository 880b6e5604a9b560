package scene

import (
	"fmt"
	"math"
	"strings"
)

// Document is an in-memory host scene. It is what the CLI loads from disk
// and what tests build by hand; the validation core only sees it through
// Accessor.
type Document struct {
	Name    string    `yaml:"name,omitempty" json:"name,omitempty"`
	Objects []*Object `yaml:"objects" json:"objects"`
}

type Object struct {
	Name     string    `yaml:"name" json:"name"`
	Kind     Kind      `yaml:"kind" json:"kind"`
	Mesh     *Mesh     `yaml:"mesh,omitempty" json:"mesh,omitempty"`
	Armature *Armature `yaml:"armature,omitempty" json:"armature,omitempty"`
}

type Armature struct {
	Name  string   `yaml:"name" json:"name"`
	Bones []string `yaml:"bones,omitempty" json:"bones,omitempty"`
}

// Vec3 is a vertex position.
type Vec3 [3]float64

func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }
func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v[0] * s, v[1] * s, v[2] * s} }
func (v Vec3) Len() float64         { return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2]) }

// Check verifies the structural invariants the host would guarantee:
// unique object names, kinds matching their data blocks, unique data block
// names per kind and shape key buffers sized to the vertex count.
func (d *Document) Check() error {
	objects := map[string]bool{}
	meshes := map[string]bool{}
	armatures := map[string]bool{}
	for i, o := range d.Objects {
		if o == nil {
			return fmt.Errorf("object #%d: %w", i, ErrObjectNotFound)
		}
		if strings.TrimSpace(o.Name) == "" {
			return fmt.Errorf("object #%d: %w: empty name", i, ErrInvalidName)
		}
		if objects[o.Name] {
			return fmt.Errorf("object %q: %w", o.Name, ErrNameTaken)
		}
		objects[o.Name] = true

		switch o.Kind {
		case KindMesh:
			if o.Mesh == nil {
				return fmt.Errorf("object %q: mesh kind without mesh data", o.Name)
			}
			if meshes[o.Mesh.Name] {
				return fmt.Errorf("mesh data %q: %w", o.Mesh.Name, ErrNameTaken)
			}
			meshes[o.Mesh.Name] = true
			if err := o.Mesh.check(); err != nil {
				return fmt.Errorf("object %q: %w", o.Name, err)
			}
		case KindArmature:
			if o.Armature == nil {
				return fmt.Errorf("object %q: armature kind without armature data", o.Name)
			}
			if armatures[o.Armature.Name] {
				return fmt.Errorf("armature data %q: %w", o.Armature.Name, ErrNameTaken)
			}
			armatures[o.Armature.Name] = true
			bones := map[string]bool{}
			for _, b := range o.Armature.Bones {
				if bones[b] {
					return fmt.Errorf("object %q bone %q: %w", o.Name, b, ErrNameTaken)
				}
				bones[b] = true
			}
		case KindOther, "":
			o.Kind = KindOther
		default:
			return fmt.Errorf("object %q: unknown kind %q", o.Name, o.Kind)
		}
	}
	return nil
}

func (d *Document) object(name string) (*Object, error) {
	for _, o := range d.Objects {
		if o.Name == name {
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrObjectNotFound, name)
}

func (d *Document) armature(obj string) (*Armature, error) {
	o, err := d.object(obj)
	if err != nil {
		return nil, err
	}
	if o.Kind != KindArmature || o.Armature == nil {
		return nil, fmt.Errorf("%w: %q is %s, want armature", ErrWrongKind, obj, o.Kind)
	}
	return o.Armature, nil
}

// Mesh returns the live mesh data owned by obj.
func (d *Document) Mesh(obj string) (*Mesh, error) {
	o, err := d.object(obj)
	if err != nil {
		return nil, err
	}
	if o.Kind != KindMesh || o.Mesh == nil {
		return nil, fmt.Errorf("%w: %q is %s, want mesh", ErrWrongKind, obj, o.Kind)
	}
	return o.Mesh, nil
}

func (d *Document) ObjectNames() ([]string, error) {
	out := make([]string, 0, len(d.Objects))
	for _, o := range d.Objects {
		out = append(out, o.Name)
	}
	return out, nil
}

func (d *Document) ObjectKind(obj string) (Kind, error) {
	o, err := d.object(obj)
	if err != nil {
		return "", err
	}
	return o.Kind, nil
}

func (d *Document) RenameObject(obj, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("rename object %q: %w", obj, ErrInvalidName)
	}
	o, err := d.object(obj)
	if err != nil {
		return err
	}
	if name == obj {
		return nil
	}
	if _, err := d.object(name); err == nil {
		return fmt.Errorf("rename object %q to %q: %w", obj, name, ErrNameTaken)
	}
	o.Name = name
	return nil
}

func (d *Document) DataName(obj string) (string, error) {
	o, err := d.object(obj)
	if err != nil {
		return "", err
	}
	switch {
	case o.Kind == KindMesh && o.Mesh != nil:
		return o.Mesh.Name, nil
	case o.Kind == KindArmature && o.Armature != nil:
		return o.Armature.Name, nil
	}
	return "", fmt.Errorf("%w: %q has no data block", ErrWrongKind, obj)
}

// RenameData renames the data block of obj. Data block names are unique per
// kind, so renaming onto a name another mesh (or armature) already holds is
// rejected with ErrNameTaken.
func (d *Document) RenameData(obj, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("rename data of %q: %w", obj, ErrInvalidName)
	}
	o, err := d.object(obj)
	if err != nil {
		return err
	}
	var target *string
	switch {
	case o.Kind == KindMesh && o.Mesh != nil:
		target = &o.Mesh.Name
	case o.Kind == KindArmature && o.Armature != nil:
		target = &o.Armature.Name
	default:
		return fmt.Errorf("%w: %q has no data block", ErrWrongKind, obj)
	}
	if *target == name {
		return nil
	}
	for _, other := range d.Objects {
		if other == o || other.Kind != o.Kind {
			continue
		}
		if (other.Mesh != nil && other.Mesh.Name == name) || (other.Armature != nil && other.Armature.Name == name) {
			return fmt.Errorf("rename %s data %q to %q: %w", o.Kind, *target, name, ErrNameTaken)
		}
	}
	*target = name
	return nil
}

func (d *Document) Bones(obj string) ([]string, error) {
	a, err := d.armature(obj)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), a.Bones...), nil
}

func (d *Document) RenameBone(obj, bone, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("rename bone %q: %w", bone, ErrInvalidName)
	}
	a, err := d.armature(obj)
	if err != nil {
		return err
	}
	idx := -1
	for i, b := range a.Bones {
		switch b {
		case bone:
			idx = i
		case name:
			return fmt.Errorf("rename bone %q to %q on %q: %w", bone, name, obj, ErrNameTaken)
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %q on %q", ErrBoneNotFound, bone, obj)
	}
	a.Bones[idx] = name
	return nil
}
