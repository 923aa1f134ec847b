// Package technique turns glTF 1.0 primitives, materials and techniques
// into renderer draw requests.
package technique

// Variant is the closed set of technique variants the renderer knows how to draw.
type Variant int

const (
	// Diffuse is the unskinned technique.
	Diffuse Variant = iota

	// DiffuseSkinned samples a bone texture in the vertex stage.
	DiffuseSkinned
)

// Select returns DiffuseSkinned when the primitive has a bone texture.
func Select(skinned bool) Variant {
	if skinned {
		return DiffuseSkinned
	}
	return Diffuse
}

func (v Variant) String() string {
	switch v {
	case DiffuseSkinned:
		return "diffuse_skinned"
	default:
		return "diffuse"
	}
}
