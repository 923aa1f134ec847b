package renderer

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// drawUniformSize is the per-draw uniform block: the model matrix, then
	// the bone texture size in a 16-byte aligned tail.
	drawUniformSize = 80

	drawUniformBinding = 0
	boneTextureBinding = 1
)

// encodeDrawUniforms packs the per-draw uniform block of a draw.
func encodeDrawUniforms(info *DrawInfo) []byte {
	out := make([]byte, drawUniformSize)
	for i, v := range info.Model {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(out[64:], math.Float32bits(float32(info.BoneTextureSize)))
	return out
}

// bindingKey identifies a draw across frames, so its bindings can be reused.
func bindingKey(info *DrawInfo) string {
	var buffer uint32
	switch {
	case info.Elements != nil && info.Elements.Buffer != nil:
		buffer = info.Elements.Buffer.ID()
	case len(info.Attributes) > 0 && info.Attributes[0].Buffer != nil:
		buffer = info.Attributes[0].Buffer.ID()
	}
	return fmt.Sprintf("%s/%s/%d/%d", info.Node, info.Program, buffer, info.Offset)
}
