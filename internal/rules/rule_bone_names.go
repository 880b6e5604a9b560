package rules

import (
	"fmt"
	"strings"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/repair"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
)

// boneChecks run in this order; a bone is reported for the first one it
// fails only.
var boneChecks = []struct {
	substr  string
	problem string
}{
	{":", "has a namespace prefix"},
	{" ", "contains spaces"},
	{"Left", "uses Left instead of an _L suffix"},
	{"Right", "uses Right instead of an _R suffix"},
}

// BoneNames enforces the bone naming convention on every armature.
type BoneNames struct {
	Recorder
}

func (*BoneNames) Name() string { return "Bone Names" }

func (r *BoneNames) Validate(sc scene.Accessor) error {
	objects, err := sc.ObjectNames()
	if err != nil {
		return fmt.Errorf("list objects: %w", err)
	}
	for _, obj := range objects {
		kind, err := sc.ObjectKind(obj)
		if err != nil {
			return fmt.Errorf("object %q: %w", obj, err)
		}
		if kind != scene.KindArmature {
			continue
		}
		bones, err := sc.Bones(obj)
		if err != nil {
			return fmt.Errorf("armature %q: %w", obj, err)
		}
		for _, bone := range bones {
			for _, c := range boneChecks {
				if !strings.Contains(bone, c.substr) {
					continue
				}
				var fix *repair.Action
				if fixed := NormalizeBoneName(bone); fixed != "" && fixed != bone {
					fix = repair.RenameBone(obj, bone, fixed)
				}
				r.Warning(fmt.Sprintf("Bone (%s) on %s %s", bone, obj, c.problem), fix)
				break
			}
		}
	}
	return nil
}

// NormalizeBoneName applies the naming convention as a sequence of textual
// edits: drop everything through the last colon, turn Left/Right into _L/_R
// suffixes, then remove spaces.
//
//	"ns:My Left Bone" -> "MyBone_L"
//	"Right Arm"       -> "Arm_R"
func NormalizeBoneName(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	if strings.Contains(name, "Left") {
		name = strings.ReplaceAll(name, "Left", "") + "_L"
	}
	if strings.Contains(name, "Right") {
		name = strings.ReplaceAll(name, "Right", "") + "_R"
	}
	return strings.ReplaceAll(name, " ", "")
}
