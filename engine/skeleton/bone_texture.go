package skeleton

import (
	"errors"
	"fmt"
)

// TexelsPerBone is the number of RGBA texels one bone matrix occupies.
const TexelsPerBone = 4

// ErrBoneCapacity is returned when a skin has more bones than the largest bone texture holds.
var ErrBoneCapacity = errors.New("bone count exceeds bone texture capacity")

// boneTextureLadder maps bone count ceilings to texture side lengths.
var boneTextureLadder = []struct {
	maxBones int
	size     int
}{
	{16, 8},
	{64, 16},
	{256, 32},
	{1024, 64},
}

// BoneTextureSize picks the side length of the square bone texture for a bone count.
//
// Parameters:
//   - boneCount: number of bones in the skin
//
// Returns:
//   - int: side length in texels (8, 16, 32 or 64)
//   - error: ErrBoneCapacity if boneCount exceeds the 64×64 capacity
func BoneTextureSize(boneCount int) (int, error) {
	for _, step := range boneTextureLadder {
		if boneCount <= step.maxBones {
			return step.size, nil
		}
	}
	return 0, fmt.Errorf("%d bones, max %d: %w", boneCount, BoneCapacity(64), ErrBoneCapacity)
}

// BoneCapacity returns how many bones a bone texture of the given side length holds.
func BoneCapacity(size int) int {
	return size * size / TexelsPerBone
}
