// Package shader reads the interface of GLSL shaders: the attributes,
// uniforms and varyings a program declares, with their GL types. The runtime
// never compiles shaders; it uses the interface to check that techniques bind
// what their programs expect.
package shader

import (
	"fmt"
	"sort"
)

// ShaderType is the GL shader stage enum used by glTF 1.0 shader entries.
type ShaderType int

const (
	ShaderTypeFragment ShaderType = 35632
	ShaderTypeVertex   ShaderType = 35633
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// Qualifier is the storage qualifier of a declaration.
type Qualifier int

const (
	QualifierAttribute Qualifier = iota
	QualifierUniform
	QualifierVarying
)

func (q Qualifier) String() string {
	switch q {
	case QualifierAttribute:
		return "attribute"
	case QualifierUniform:
		return "uniform"
	case QualifierVarying:
		return "varying"
	default:
		return "unknown"
	}
}

// Declaration is one global interface variable of a shader.
type Declaration struct {
	Qualifier Qualifier
	Name      string

	// TypeName is the GLSL type as written, e.g. "mat4".
	TypeName string

	// Type is the GL type enum of TypeName, 0 for types outside the table.
	Type int

	// Count is the array length, 1 for non-arrays.
	Count int
}

// shader is the implementation of the Shader interface.
type shader struct {
	name       string
	source     string
	shaderType ShaderType
	decls      []Declaration
	index      map[Qualifier]map[string]int
}

// Shader is a parsed GLSL shader.
type Shader interface {
	// Name returns the shader id.
	Name() string

	// Type returns the shader stage.
	Type() ShaderType

	// Source returns the GLSL source.
	Source() string

	// Declarations returns the global declarations in source order.
	Declarations() []Declaration

	// Lookup finds a declaration by qualifier and name.
	//
	// Parameters:
	//   - q: the storage qualifier
	//   - name: the variable name
	//
	// Returns:
	//   - Declaration: the declaration
	//   - bool: whether the shader declares it
	Lookup(q Qualifier, name string) (Declaration, bool)
}

var _ Shader = &shader{}

// NewShader parses the interface declarations of a GLSL source. Both
// GLSL ES 1.00 (attribute/varying) and 3.00 (in/out) qualifiers are read.
//
// Parameters:
//   - name: the shader id
//   - shaderType: the stage, which decides how in/out are read
//   - source: the GLSL source
//
// Returns:
//   - Shader: the parsed shader
func NewShader(name string, shaderType ShaderType, source string) Shader {
	s := &shader{
		name:       name,
		source:     source,
		shaderType: shaderType,
		decls:      parseDeclarations(source, shaderType),
		index:      make(map[Qualifier]map[string]int),
	}
	for i, d := range s.decls {
		if s.index[d.Qualifier] == nil {
			s.index[d.Qualifier] = make(map[string]int)
		}
		if _, dup := s.index[d.Qualifier][d.Name]; !dup {
			s.index[d.Qualifier][d.Name] = i
		}
	}
	return s
}

func (s *shader) Name() string {
	return s.name
}

func (s *shader) Type() ShaderType {
	return s.shaderType
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Declarations() []Declaration {
	out := make([]Declaration, len(s.decls))
	copy(out, s.decls)
	return out
}

func (s *shader) Lookup(q Qualifier, name string) (Declaration, bool) {
	i, ok := s.index[q][name]
	if !ok {
		return Declaration{}, false
	}
	return s.decls[i], true
}

// Names returns the sorted names of the declarations with qualifier q.
func Names(s Shader, q Qualifier) []string {
	var names []string
	for _, d := range s.Declarations() {
		if d.Qualifier == q {
			names = append(names, d.Name)
		}
	}
	sort.Strings(names)
	return names
}
