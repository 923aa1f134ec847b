package loader

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-gltf/common"
)

// Common errors returned by the parser
var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 1.x")
	errInvalidDataURI     = errors.New("invalid data URI")
	errMissingScene       = errors.New("document has no scene to display")
)

// ParseFile reads and parses a glTF 1.0 document from disk.
//
// Parameters:
//   - path: path to the .gltf JSON file
//
// Returns:
//   - *GLTFDocument: the parsed document
//   - error: error if the file cannot be read or parsed
func ParseFile(path string) (*GLTFDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseDocument(data)
}

// ParseReader parses a glTF 1.0 document from a reader stream.
//
// Parameters:
//   - r: reader containing glTF JSON
//
// Returns:
//   - *GLTFDocument: the parsed document
//   - error: error if reading or parsing fails
func ParseReader(r io.Reader) (*GLTFDocument, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument parses glTF 1.0 JSON. Documents declaring a 2.x version are
// rejected; a missing version is accepted since many 1.0 exporters omit it.
//
// Parameters:
//   - data: the JSON bytes
//
// Returns:
//   - *GLTFDocument: the parsed document
//   - error: error if the JSON is malformed or the version is unsupported
func ParseDocument(data []byte) (*GLTFDocument, error) {
	var doc GLTFDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse glTF JSON: %w", err)
	}

	if v := doc.Asset.Version; v != "" && !strings.HasPrefix(v, "1") {
		return nil, fmt.Errorf("version %q: %w", v, errInvalidGLTFVersion)
	}

	return &doc, nil
}

// DefaultSceneRoots returns the root node ids of the document's default
// scene. When no default is declared the first scene by id is used.
//
// Returns:
//   - []string: the root node ids
//   - error: errMissingScene if the document has no scenes
func (d *GLTFDocument) DefaultSceneRoots() ([]string, error) {
	if s, ok := d.Scenes[d.Scene]; ok {
		return s.Nodes, nil
	}
	keys := common.SortedKeys(d.Scenes)
	if len(keys) == 0 {
		return nil, errMissingScene
	}
	return d.Scenes[keys[0]].Nodes, nil
}

// Transform returns the node's local transform, defaulting missing
// components to identity. A matrix is decomposed only when no TRS
// component is present.
//
// Returns:
//   - common.Transform: the local TRS
func (n GLTFNode) Transform() common.Transform {
	t := common.IdentityTransform()

	if len(n.Matrix) == 16 && n.Translation == nil && n.Rotation == nil && n.Scale == nil {
		return common.DecomposeMatrix(common.Mat4Or(n.Matrix, t.Matrix()))
	}

	t.Translation = common.Vec3Or(n.Translation, t.Translation)
	t.Rotation = common.QuatOr(n.Rotation, t.Rotation)
	t.Scale = common.Vec3Or(n.Scale, t.Scale)
	return t
}

// Manifest lists the external resources the document needs: one binary per
// buffer and one image per image entry. Relative URIs resolve against baseDir.
//
// Parameters:
//   - baseDir: the directory of the document
//
// Returns:
//   - []AssetDescriptor: the resources, sorted by kind then id
func (d *GLTFDocument) Manifest(baseDir string) []AssetDescriptor {
	manifest := make([]AssetDescriptor, 0, len(d.Buffers)+len(d.Images)+len(d.Shaders))
	for _, id := range common.SortedKeys(d.Buffers) {
		manifest = append(manifest, AssetDescriptor{
			Name:   BufferAssetName(id),
			Kind:   AssetKindBinary,
			Source: resolveURI(baseDir, d.Buffers[id].URI),
		})
	}
	for _, id := range common.SortedKeys(d.Images) {
		manifest = append(manifest, AssetDescriptor{
			Name:   ImageAssetName(id),
			Kind:   AssetKindImage,
			Source: resolveURI(baseDir, d.Images[id].URI),
		})
	}
	for _, id := range common.SortedKeys(d.Shaders) {
		manifest = append(manifest, AssetDescriptor{
			Name:     ShaderAssetName(id),
			Kind:     AssetKindBinary,
			Source:   resolveURI(baseDir, d.Shaders[id].URI),
			Optional: true,
		})
	}
	return manifest
}

// BufferAssetName is the manifest name of a buffer id.
func BufferAssetName(id string) string { return "buffer:" + id }

// ImageAssetName is the manifest name of an image id.
func ImageAssetName(id string) string { return "image:" + id }

// ShaderAssetName is the manifest name of a shader id. Shader sources are
// optional: the runtime only inspects them.
func ShaderAssetName(id string) string { return "shader:" + id }

// resolveURI joins a relative URI to baseDir, leaving data URIs untouched.
func resolveURI(baseDir, uri string) string {
	if strings.HasPrefix(uri, "data:") || filepath.IsAbs(uri) || baseDir == "" {
		return uri
	}
	return filepath.Join(baseDir, uri)
}

// readSource loads bytes from a data URI or file path.
func readSource(source string) ([]byte, error) {
	if strings.HasPrefix(source, "data:") {
		return decodeDataURI(source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to load file %q: %w", source, err)
	}
	return data, nil
}

// decodeDataURI decodes a base64 data URI.
// Format: data:[<mediatype>][;base64],<data>
func decodeDataURI(uri string) ([]byte, error) {
	commaIdx := strings.Index(uri, ",")
	if commaIdx < 0 {
		return nil, errInvalidDataURI
	}

	header := uri[5:commaIdx]
	dataStr := uri[commaIdx+1:]

	if !strings.Contains(header, "base64") {
		return nil, fmt.Errorf("unsupported data URI encoding %q: %w", header, errInvalidDataURI)
	}

	data, err := base64.StdEncoding.DecodeString(dataStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return data, nil
}
