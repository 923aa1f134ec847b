package skeleton

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-5

// rigNodes is a small humanoid rig plus a second root that reuses the
// "Hips" joint name.
func rigNodes() map[string]loader.GLTFNode {
	return map[string]loader.GLTFNode{
		"hips":     {JointName: "Hips", Children: []string{"spine", "leftLeg"}, Translation: []float32{0, 1, 0}},
		"spine":    {JointName: "Spine", Children: []string{"head"}, Translation: []float32{0, 1, 0}},
		"head":     {JointName: "Head", Translation: []float32{0, 0.5, 0}},
		"leftLeg":  {JointName: "LeftLeg", Translation: []float32{0.2, -1, 0}},
		"propRoot": {JointName: "Hips", Translation: []float32{5, 0, 0}},
		"mesh":     {Skin: "skin", Skeletons: []string{"hips"}, Meshes: []string{"body"}},
	}
}

func recordingRenderer(t *testing.T) (renderer.Renderer, *renderer.RecordingBackend) {
	t.Helper()
	rec := renderer.NewRecordingBackend()
	r, err := renderer.NewRenderer(renderer.BackendTypeRecording, renderer.WithBackend(rec))
	require.NoError(t, err)
	return r, rec
}

func buildRig(t *testing.T) *Arena {
	t.Helper()
	a, err := BuildArena(rigNodes(), nil)
	require.NoError(t, err)
	return a
}

func TestBuildArenaPreOrder(t *testing.T) {
	a := buildRig(t)
	require.Equal(t, 5, a.Len())

	wantIDs := []string{"hips", "spine", "head", "leftLeg", "propRoot"}
	wantParents := []int{NoParent, 0, 1, 0, NoParent}
	wantSizes := []int{4, 2, 1, 1, 1}
	for i := range wantIDs {
		j := a.Joint(i)
		assert.Equal(t, wantIDs[i], j.ID, "index %d", i)
		assert.Equal(t, wantParents[i], j.Parent, "parent of %s", j.ID)
		assert.Equal(t, wantSizes[i], j.Size, "size of %s", j.ID)
	}
	assert.Equal(t, []int{0, 4}, a.Roots())

	idx, ok := a.Index("head")
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	_, ok = a.Index("mesh")
	assert.False(t, ok, "non-joint nodes stay out of the arena")
}

func TestArenaWorldComposition(t *testing.T) {
	a := buildRig(t)

	for i := 0; i < a.Len(); i++ {
		j := a.Joint(i)
		if j.Parent == NoParent {
			assert.True(t, j.World.ApproxEqualThreshold(j.Local, eps), "root world equals local")
			continue
		}
		want := a.Joint(j.Parent).World.Mul4(j.Local)
		assert.True(t, j.World.ApproxEqualThreshold(want, eps), "world of %s", j.ID)
	}

	head := a.Joint(2).World
	assert.True(t, head.Col(3).Vec3().ApproxEqual(mgl32.Vec3{0, 2.5, 0}))
}

func TestBuildArenaKeepsFirstParent(t *testing.T) {
	a, err := BuildArena(map[string]loader.GLTFNode{
		"a": {JointName: "A", Children: []string{"c"}},
		"b": {JointName: "B", Children: []string{"c", "ghost"}},
		"c": {JointName: "C"},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, a.Len())

	c, _ := a.Index("c")
	aIdx, _ := a.Index("a")
	assert.Equal(t, aIdx, a.Joint(c).Parent)
	assert.Equal(t, 1, a.Joint(mustIndex(t, a, "b")).Size)
}

func TestBuildArenaDetectsCycle(t *testing.T) {
	_, err := BuildArena(map[string]loader.GLTFNode{
		"a": {JointName: "A", Children: []string{"b"}},
		"b": {JointName: "B", Children: []string{"a"}},
	}, nil)
	assert.ErrorIs(t, err, ErrJointCycle)
}

func mustIndex(t *testing.T, a *Arena, id string) int {
	t.Helper()
	i, ok := a.Index(id)
	require.True(t, ok, id)
	return i
}

func TestDuplicateIsolation(t *testing.T) {
	a := buildRig(t)
	before := a.Joint(2)

	inst := NewInstance("mesh")
	root, err := a.Duplicate(0, inst, NoParent)
	require.NoError(t, err)
	require.Equal(t, 4, inst.Len())

	head, ok := inst.Index("head")
	require.True(t, ok)
	assert.Equal(t, before.Local, inst.Joint(head).AnimatedLocal, "animated local starts at bind local")

	pose := common.IdentityTransform()
	pose.Translation = mgl32.Vec3{0, 2, 0}
	inst.SetPose(mustInstanceIndex(t, inst, "spine"), pose)
	inst.Propagate(root)

	assert.True(t, inst.World(head).Col(3).Vec3().ApproxEqual(mgl32.Vec3{0, 3.5, 0}))
	assert.Equal(t, before, a.Joint(2), "canonical arena is untouched")

	other := NewInstance("mesh2")
	_, err = a.Duplicate(0, other, NoParent)
	require.NoError(t, err)
	assert.True(t, other.World(2).Col(3).Vec3().ApproxEqual(mgl32.Vec3{0, 2.5, 0}), "instances do not share state")

	inst.ResetPose(mustInstanceIndex(t, inst, "spine"))
	inst.PropagateAll()
	assert.True(t, inst.World(head).ApproxEqualThreshold(before.World, eps))
}

func mustInstanceIndex(t *testing.T, in *Instance, id string) int {
	t.Helper()
	i, ok := in.Index(id)
	require.True(t, ok, id)
	return i
}

func TestDuplicateUnderParent(t *testing.T) {
	a := buildRig(t)
	inst := NewInstance("mesh")

	_, err := a.Duplicate(0, inst, NoParent)
	require.NoError(t, err)

	prop, err := a.Duplicate(4, inst, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, prop)
	assert.Equal(t, 0, inst.Joint(prop).Parent)
	assert.Equal(t, 5, inst.Joint(0).Size, "ancestor extent grows")
	assert.Equal(t, []int{0}, inst.Roots())

	_, err = a.Duplicate(4, inst, 1)
	assert.ErrorIs(t, err, ErrInvalidParent)
	_, err = a.Duplicate(9, inst, NoParent)
	assert.ErrorIs(t, err, ErrJointOutOfRange)

	inst.PropagateAll()
	assert.True(t, inst.World(prop).Col(3).Vec3().ApproxEqual(mgl32.Vec3{5, 1, 0}), "copied root now follows its parent")
}

func TestFindByJointName(t *testing.T) {
	a := buildRig(t)
	inst := NewInstance("mesh")
	hips, _ := a.Duplicate(0, inst, NoParent)

	i, ok := inst.FindByJointName(hips, "Head")
	require.True(t, ok)
	assert.Equal(t, "head", inst.Joint(i).ID)

	spine := mustInstanceIndex(t, inst, "spine")
	_, ok = inst.FindByJointName(spine, "LeftLeg")
	assert.False(t, ok, "search stays inside the subtree")

	_, ok = inst.FindByJointName(42, "Head")
	assert.False(t, ok)
}

func TestBindTieBreakFollowsRootOrder(t *testing.T) {
	a := buildRig(t)
	r, _ := recordingRenderer(t)

	inst := NewInstance("mesh")
	hips, _ := a.Duplicate(0, inst, NoParent)
	prop, _ := a.Duplicate(4, inst, NoParent)

	spec := SkinSpec{ID: "skin", JointNames: []string{"Hips"}}

	s, err := Bind(spec, inst, []int{prop, hips}, r, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{prop}, s.Bones())

	s, err = Bind(spec, inst, []int{hips, prop}, r, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{hips}, s.Bones())
}

func decodeFloats(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func TestBindSkipsUnresolvedJoints(t *testing.T) {
	a := buildRig(t)
	r, rec := recordingRenderer(t)
	inst := NewInstance("mesh")
	hips, _ := a.Duplicate(0, inst, NoParent)

	ibm := mgl32.Translate3D(0, -1, 0)
	s, err := Bind(SkinSpec{
		ID:                  "skin",
		JointNames:          []string{"Hips", "Ghost", "Head"},
		InverseBindMatrices: []mgl32.Mat4{ibm, mgl32.Ident4(), mgl32.Ident4()},
	}, inst, []int{hips}, r, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, s.BoneCount())
	assert.Equal(t, 2, s.Resolved())
	assert.Equal(t, NoParent, s.Bones()[1])
	assert.Equal(t, 8, s.TextureSize())
	assert.Equal(t, mgl32.Ident4(), s.BindShapeMatrix())

	data, ok := rec.TextureData(s.Texture().ID())
	require.True(t, ok)
	pixels := decodeFloats(data)
	require.Len(t, pixels, 8*8*4)

	// Hips world T(0,1,0) times IBM T(0,-1,0) is identity.
	assert.InDeltaSlice(t, []float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}, pixels[0:16], eps)
	for _, v := range pixels[16:32] {
		require.Zero(t, v, "unresolved bone stays zero")
	}
	// Head world is T(0,2.5,0); row 1 carries the y translation in its last column.
	assert.InDeltaSlice(t, []float32{0, 1, 0, 2.5}, pixels[36:40], eps)
	for _, v := range pixels[48:] {
		require.Zero(t, v, "texels beyond the bones stay zero")
	}
}

func TestBindPadsMissingInverseBindMatrices(t *testing.T) {
	a := buildRig(t)
	r, _ := recordingRenderer(t)
	inst := NewInstance("mesh")
	hips, _ := a.Duplicate(0, inst, NoParent)

	s, err := Bind(SkinSpec{ID: "skin", JointNames: []string{"Spine"}}, inst, []int{hips}, r, nil)
	require.NoError(t, err)
	assert.True(t, s.BoneMatrix(0).ApproxEqualThreshold(inst.World(1), eps))
}

func TestRefreshTracksPose(t *testing.T) {
	a := buildRig(t)
	r, rec := recordingRenderer(t)
	inst := NewInstance("mesh")
	hips, _ := a.Duplicate(0, inst, NoParent)

	s, err := Bind(SkinSpec{ID: "skin", JointNames: []string{"Hips"}}, inst, []int{hips}, r, nil)
	require.NoError(t, err)

	pose := common.IdentityTransform()
	pose.Translation = mgl32.Vec3{3, 0, 0}
	inst.SetPose(hips, pose)
	inst.Propagate(hips)
	require.NoError(t, s.Refresh())

	data, _ := rec.TextureData(s.Texture().ID())
	assert.InDelta(t, 3, decodeFloats(data)[3], eps, "row 0 last column is x translation")
	assert.Equal(t, 2, rec.TextureUploads(s.Texture().ID()))
}

func TestBoneTextureLadder(t *testing.T) {
	tests := []struct {
		bones int
		size  int
	}{
		{0, 8}, {1, 8}, {16, 8},
		{17, 16}, {64, 16},
		{65, 32}, {256, 32},
		{257, 64}, {1024, 64},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d bones", tt.bones), func(t *testing.T) {
			size, err := BoneTextureSize(tt.bones)
			require.NoError(t, err)
			assert.Equal(t, tt.size, size)
			assert.LessOrEqual(t, tt.bones, BoneCapacity(size))
		})
	}

	_, err := BoneTextureSize(1025)
	assert.ErrorIs(t, err, ErrBoneCapacity)
}

func TestBindRejectsTooManyBones(t *testing.T) {
	r, _ := recordingRenderer(t)
	names := make([]string, 1025)
	for i := range names {
		names[i] = fmt.Sprintf("j%d", i)
	}
	_, err := Bind(SkinSpec{ID: "huge", JointNames: names}, NewInstance("mesh"), nil, r, nil)
	assert.ErrorIs(t, err, ErrBoneCapacity)
}
