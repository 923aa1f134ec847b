package shader

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

var (
	ErrUndeclared   = errors.New("not declared by the program")
	ErrTypeMismatch = errors.New("declared with a different type")
)

// Program pairs a vertex and a fragment shader with the attribute list of a
// glTF program entry. Either shader may be nil when its source is unavailable.
type Program struct {
	Name       string
	Vertex     Shader
	Fragment   Shader
	Attributes []string
}

// NewProgram creates a Program.
//
// Parameters:
//   - name: the program id
//   - vertex: the vertex shader, or nil
//   - fragment: the fragment shader, or nil
//   - attributes: the attribute names the program entry lists
//
// Returns:
//   - *Program: the program
func NewProgram(name string, vertex, fragment Shader, attributes []string) *Program {
	return &Program{
		Name:       name,
		Vertex:     vertex,
		Fragment:   fragment,
		Attributes: attributes,
	}
}

// Uniform finds a uniform in the vertex shader, then the fragment shader.
func (p *Program) Uniform(name string) (Declaration, bool) {
	for _, s := range []Shader{p.Vertex, p.Fragment} {
		if s == nil {
			continue
		}
		if d, ok := s.Lookup(QualifierUniform, name); ok {
			return d, true
		}
	}
	return Declaration{}, false
}

// Check compares what a technique binds against what the program declares.
// An attribute must be listed by the program entry and, when the vertex
// source is known, declared there. A uniform is only reported missing when
// both sources are known. Types are compared when both sides have one.
//
// Parameters:
//   - attributes: attribute name to GL type
//   - uniforms: uniform name to GL type
//
// Returns:
//   - error: the joined mismatches, each wrapping ErrUndeclared or ErrTypeMismatch
func (p *Program) Check(attributes, uniforms map[string]int) error {
	var errs []error

	for _, name := range sortedKeys(attributes) {
		if len(p.Attributes) > 0 && !slices.Contains(p.Attributes, name) {
			errs = append(errs, fmt.Errorf("program %q attribute %q: %w", p.Name, name, ErrUndeclared))
			continue
		}
		if p.Vertex == nil {
			continue
		}
		d, ok := p.Vertex.Lookup(QualifierAttribute, name)
		if !ok {
			errs = append(errs, fmt.Errorf("program %q attribute %q: %w", p.Name, name, ErrUndeclared))
			continue
		}
		if err := compareType(d, attributes[name]); err != nil {
			errs = append(errs, fmt.Errorf("program %q attribute %q: %w", p.Name, name, err))
		}
	}

	for _, name := range sortedKeys(uniforms) {
		d, ok := p.Uniform(name)
		if !ok {
			if p.Vertex != nil && p.Fragment != nil {
				errs = append(errs, fmt.Errorf("program %q uniform %q: %w", p.Name, name, ErrUndeclared))
			}
			continue
		}
		if err := compareType(d, uniforms[name]); err != nil {
			errs = append(errs, fmt.Errorf("program %q uniform %q: %w", p.Name, name, err))
		}
	}

	return errors.Join(errs...)
}

func compareType(d Declaration, glType int) error {
	if d.Type == 0 || glType == 0 || d.Type == glType {
		return nil
	}
	return fmt.Errorf("%s, bound as %d: %w", d.TypeName, glType, ErrTypeMismatch)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
