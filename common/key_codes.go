package common

// Key codes for the viewer controls.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeySpace = 32 // toggle playback
	KeyMinus = 45
	KeyEqual = 61 // = / + shares the key
	KeyN     = 78 // next clip
	KeyR     = 82 // rewind and reframe

	KeyEsc   = 256
	KeyRight = 262
	KeyLeft  = 263
	KeyDown  = 264
	KeyUp    = 265

	KeyKPSubtract = 333
	KeyKPAdd      = 334
)
