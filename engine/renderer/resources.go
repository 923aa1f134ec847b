package renderer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTextureSize is returned when a texture is allocated with a non-positive dimension.
	ErrInvalidTextureSize = errors.New("texture dimensions must be positive")

	// ErrPixelSizeMismatch is returned when an update does not cover the whole texture.
	ErrPixelSizeMismatch = errors.New("pixel data size does not match texture")

	// ErrBufferOverflow is returned when a buffer write runs past the allocation.
	ErrBufferOverflow = errors.New("write exceeds buffer size")

	// ErrInvalidBufferSize is returned when a buffer is allocated with a non-positive length.
	ErrInvalidBufferSize = errors.New("buffer length must be positive")
)

// TextureFormat identifies the texel format of a texture resource.
type TextureFormat int

const (
	// TextureFormatRGBA8 stores four 8-bit unsigned normalized channels. Used for material images.
	TextureFormatRGBA8 TextureFormat = iota

	// TextureFormatRGBA32Float stores four 32-bit float channels. Used for bone textures.
	TextureFormatRGBA32Float
)

// BytesPerTexel returns the size of one texel in bytes.
func (f TextureFormat) BytesPerTexel() int {
	switch f {
	case TextureFormatRGBA32Float:
		return 16
	default:
		return 4
	}
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA32Float:
		return "rgba32float"
	default:
		return "rgba8"
	}
}

// TextureConfig describes a 2D texture allocation.
type TextureConfig struct {
	Label  string
	Width  int
	Height int
	Format TextureFormat
}

// ByteSize returns the number of bytes a full update of the texture carries.
func (c TextureConfig) ByteSize() int {
	return c.Width * c.Height * c.Format.BytesPerTexel()
}

func (c TextureConfig) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%q %dx%d: %w", c.Label, c.Width, c.Height, ErrInvalidTextureSize)
	}
	return nil
}

// TextureHandle is a renderer-owned 2D texture.
type TextureHandle interface {
	// ID returns the renderer-unique identifier of the texture.
	ID() uint32

	// Config returns the allocation parameters of the texture.
	Config() TextureConfig

	// Update replaces the full contents of the texture. The data must be
	// Width*Height texels in the texture's format, rows top to bottom.
	//
	// Parameters:
	//   - data: the raw texel bytes
	//
	// Returns:
	//   - error: ErrPixelSizeMismatch if the data does not cover the texture exactly
	Update(data []byte) error
}

// BufferKind identifies how a GPU buffer is bound.
type BufferKind int

const (
	// BufferKindVertex is an ARRAY_BUFFER binding.
	BufferKindVertex BufferKind = iota

	// BufferKindIndex is an ELEMENT_ARRAY_BUFFER binding.
	BufferKindIndex
)

func (k BufferKind) String() string {
	if k == BufferKindIndex {
		return "index"
	}
	return "vertex"
}

// BufferHandle is a renderer-owned vertex or index buffer.
type BufferHandle interface {
	// ID returns the renderer-unique identifier of the buffer.
	ID() uint32

	// Kind returns whether this is a vertex or index buffer.
	Kind() BufferKind

	// Size returns the allocation size in bytes.
	Size() int

	// Write copies data into the buffer at the given byte offset.
	//
	// Parameters:
	//   - offset: the destination byte offset
	//   - data: the bytes to copy
	//
	// Returns:
	//   - error: ErrBufferOverflow if the write runs past the allocation
	Write(offset int, data []byte) error
}

func checkBufferWrite(size, offset int, data []byte) error {
	if offset < 0 || offset+len(data) > size {
		return fmt.Errorf("offset %d + %d bytes > %d: %w", offset, len(data), size, ErrBufferOverflow)
	}
	return nil
}
