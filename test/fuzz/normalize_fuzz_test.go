package fuzz

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/rules"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/shared"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

func FuzzNormalizeBoneName(f *testing.F) {
	for _, s := range []string{"ns:My Left Bone", "Right Arm", "a:b:Hand", "LeftRight", ":", " ", ""} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, name string) {
		got := rules.NormalizeBoneName(name)
		if strings.Contains(got, ":") || strings.Contains(got, " ") {
			t.Fatalf("NormalizeBoneName(%q) = %q still has a colon or space", name, got)
		}
	})
}

func FuzzDecodeAndRepair(f *testing.F) {
	f.Add([]byte("objects:\n  - {name: A, kind: mesh, mesh: {name: a}}\n"))
	f.Add([]byte("objects:\n  - name: Rig\n    kind: armature\n    armature: {name: R, bones: [\"ns:Left Arm\", \"x: \"]}\n"))
	f.Add([]byte("objects: []\n"))
	f.Add([]byte(":::"))

	logger := shared.NewLogger(io.Discard, "text", "error")
	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 1<<16 {
			t.Skip()
		}
		doc, err := scene.Decode(data, scene.FormatYAML)
		if err != nil {
			return
		}
		sess := validation.NewSession(logger, nil)
		sess.Load(doc)
		if err := sess.Validate(); err != nil {
			t.Fatalf("validate decoded document: %v", err)
		}
		before := len(sess.Registry().Findings())
		res, err := sess.Dispatcher().RepairAll(context.Background())
		if err != nil {
			t.Fatalf("repair all on a valid document: %v", err)
		}
		if res.Attempted+res.Skipped != before {
			t.Fatalf("visited %d of %d findings", res.Attempted+res.Skipped, before)
		}
		if after := len(sess.Registry().Findings()); after != before-res.Repaired {
			t.Fatalf("%d findings left, want %d", after, before-res.Repaired)
		}
	})
}
