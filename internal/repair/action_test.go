package repair

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MakerOfWyverns/dcc-plug-ins/internal/scene"
)

func doc() *scene.Document {
	return &scene.Document{Objects: []*scene.Object{
		{Name: "Head", Kind: scene.KindMesh, Mesh: &scene.Mesh{Name: "Mesh.002"}},
		{Name: "Body", Kind: scene.KindMesh, Mesh: &scene.Mesh{Name: "Body"}},
		{Name: "Rig", Kind: scene.KindArmature, Armature: &scene.Armature{Name: "Rig", Bones: []string{"Right Arm", "Arm_R2"}}},
	}}
}

func TestApply_RenameData(t *testing.T) {
	d := doc()
	ok, err := Apply(d, *RenameData("Head", "Head"))
	require.NoError(t, err)
	assert.True(t, ok)
	name, _ := d.DataName("Head")
	assert.Equal(t, "Head", name)
}

func TestApply_RenameDataTaken(t *testing.T) {
	d := doc()
	ok, err := Apply(d, *RenameData("Head", "Body"))
	require.NoError(t, err)
	assert.False(t, ok)
	name, _ := d.DataName("Head")
	assert.Equal(t, "Mesh.002", name)
}

func TestApply_RenameBone(t *testing.T) {
	d := doc()
	ok, err := Apply(d, *RenameBone("Rig", "Right Arm", "Arm_R"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Apply(d, *RenameBone("Rig", "Arm_R", "Arm_R2"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApply_HostFault(t *testing.T) {
	d := doc()
	_, err := Apply(d, *RenameData("Ghost", "Ghost"))
	assert.ErrorIs(t, err, scene.ErrObjectNotFound)

	_, err = Apply(d, *RenameBone("Rig", "Tail", "Tail_1"))
	assert.ErrorIs(t, err, scene.ErrBoneNotFound)

	_, err = Apply(d, Action{Kind: "delete_object", Object: "Head"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

// recordingScene captures the arguments each rename reaches the host with.
type recordingScene struct {
	*scene.Document
	calls [][]string
}

func (r *recordingScene) RenameData(obj, name string) error {
	r.calls = append(r.calls, []string{obj, name})
	return r.Document.RenameData(obj, name)
}

func (r *recordingScene) RenameBone(obj, bone, name string) error {
	r.calls = append(r.calls, []string{obj, bone, name})
	return r.Document.RenameBone(obj, bone, name)
}

func TestApply_ReceivesContextTuple(t *testing.T) {
	rs := &recordingScene{Document: doc()}
	data := RenameData("Head", "Head")
	bone := RenameBone("Rig", "Right Arm", "Arm_R")

	for _, a := range []*Action{data, bone} {
		ok, err := Apply(rs, *a)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, [][]string{data.Context(), bone.Context()}, rs.calls)
}

func TestAction_Context(t *testing.T) {
	assert.Equal(t, []string{"Head", "Head"}, RenameData("Head", "Head").Context())
	assert.Equal(t, []string{"Rig", "Right Arm", "Arm_R"}, RenameBone("Rig", "Right Arm", "Arm_R").Context())
	assert.Equal(t, []string{"Head"}, Action{Kind: "other", Object: "Head"}.Context())
}

func TestAction_JSON(t *testing.T) {
	b, err := json.Marshal(RenameBone("Rig", "Right Arm", "Arm_R"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"rename_bone","object":"Rig","bone":"Right Arm","new_name":"Arm_R"}`, string(b))
	assert.Equal(t, "rename_data(Head -> Head)", RenameData("Head", "Head").String())
}
