package golden

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/shared"
	"github.com/MakerOfWyverns/dcc-plug-ins/internal/validation"
)

func validateString(t *testing.T, src string) (*scene.Document, *validation.Session) {
	t.Helper()
	doc, err := scene.Decode([]byte(src), scene.FormatYAML)
	require.NoError(t, err)
	sess := validation.NewSession(shared.NewLogger(io.Discard, "text", "error"), nil)
	sess.Load(doc)
	require.NoError(t, sess.Validate())
	return doc, sess
}

func messagesOf(items []validation.Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Message)
	}
	return out
}

func TestSample_CleanSceneHasNoFindings(t *testing.T) {
	_, sess := validateString(t, `objects:
  - {name: Body, kind: mesh, mesh: {name: Body}}
  - name: Rig
    kind: armature
    armature: {name: Rig, bones: [Hips, Spine, Arm_L, Arm_R]}
`)
	assert.Empty(t, sess.Registry().Findings())
}

func TestSample_OtherObjectsIgnored(t *testing.T) {
	_, sess := validateString(t, `objects:
  - {name: Camera, kind: other}
  - {name: Light}
`)
	assert.Empty(t, sess.Registry().Findings())
}

func TestSample_BoneTransforms(t *testing.T) {
	doc, sess := validateString(t, `objects:
  - name: Rig
    kind: armature
    armature: {name: Rig, bones: ["ns:My Left Bone", Right Arm, "a:b:Hand", LeftFoot]}
`)
	assert.Equal(t, []string{
		"Bone (ns:My Left Bone) on Rig has a namespace prefix",
		"Bone (Right Arm) on Rig contains spaces",
		"Bone (a:b:Hand) on Rig has a namespace prefix",
		"Bone (LeftFoot) on Rig uses Left instead of an _L suffix",
	}, messagesOf(sess.Registry().Findings()))

	res, err := sess.Dispatcher().RepairAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, validation.BatchResult{Attempted: 4, Repaired: 4}, res)

	bones, err := doc.Bones("Rig")
	require.NoError(t, err)
	assert.Equal(t, []string{"MyBone_L", "Arm_R", "Hand", "Foot_L"}, bones)
	assert.Empty(t, sess.Registry().Findings())
}

func TestSample_RepairAllMixedOutcomes(t *testing.T) {
	// Two unfixable warnings, one rename that collides with existing data.
	doc, sess := validateString(t, `objects:
  - {name: A, kind: mesh, mesh: {name: a}}
  - {name: B, kind: mesh, mesh: {name: A}}
  - {name: C, kind: mesh, mesh: {name: c}}
  - name: Rig
    kind: armature
    armature: {name: Rig, bones: ["x: ", "y: "]}
`)
	require.Len(t, sess.Registry().Findings(), 5)

	res, err := sess.Dispatcher().RepairAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, validation.BatchResult{Attempted: 3, Repaired: 2, Failed: 1, Skipped: 2}, res)

	assert.Equal(t, []string{
		"Mesh name (a) did not match object name (A)",
		"Bone (x: ) on Rig has a namespace prefix",
		"Bone (y: ) on Rig has a namespace prefix",
	}, messagesOf(sess.Registry().Findings()))

	name, err := doc.DataName("B")
	require.NoError(t, err)
	assert.Equal(t, "B", name)
	name, err = doc.DataName("A")
	require.NoError(t, err)
	assert.Equal(t, "a", name)
}

func TestSample_RepairOneFailureKeepsList(t *testing.T) {
	_, sess := validateString(t, `objects:
  - {name: A, kind: mesh, mesh: {name: a}}
  - {name: B, kind: mesh, mesh: {name: A}}
`)
	err := sess.Dispatcher().RepairOne(context.Background(), 0)
	var rf *validation.RepairFailedError
	require.ErrorAs(t, err, &rf)
	assert.Len(t, sess.Registry().Findings(), 2)
}
