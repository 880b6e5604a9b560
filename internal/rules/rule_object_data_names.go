package rules

import (
	"fmt"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/repair"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
)

// ObjectDataNames flags mesh and armature objects whose data block is named
// differently from the object.
type ObjectDataNames struct {
	Recorder
}

func (*ObjectDataNames) Name() string { return "Object Data Names" }

func (r *ObjectDataNames) Validate(sc scene.Accessor) error {
	objects, err := sc.ObjectNames()
	if err != nil {
		return fmt.Errorf("list objects: %w", err)
	}
	for _, obj := range objects {
		kind, err := sc.ObjectKind(obj)
		if err != nil {
			return fmt.Errorf("object %q: %w", obj, err)
		}
		if kind != scene.KindMesh && kind != scene.KindArmature {
			continue
		}
		data, err := sc.DataName(obj)
		if err != nil {
			return fmt.Errorf("object %q: %w", obj, err)
		}
		if data == obj {
			continue
		}
		r.Error(
			fmt.Sprintf("%s name (%s) did not match object name (%s)", kind.Label(), data, obj),
			repair.RenameData(obj, obj),
		)
	}
	return nil
}
