package shader

import (
	"regexp"
	"strconv"
	"strings"
)

// glslTypeMap maps GLSL type names to the GL type enums glTF technique
// parameters use.
var glslTypeMap = map[string]int{
	"int":         5124,
	"float":       5126,
	"vec2":        35664,
	"vec3":        35665,
	"vec4":        35666,
	"ivec2":       35667,
	"ivec3":       35668,
	"ivec4":       35669,
	"bool":        35670,
	"bvec2":       35671,
	"bvec3":       35672,
	"bvec4":       35673,
	"mat2":        35674,
	"mat3":        35675,
	"mat4":        35676,
	"sampler2D":   35678,
	"samplerCube": 35680,
}

var (
	// blockCommentRegex matches /* ... */ comments, across lines
	blockCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// lineCommentRegex matches // comments to the end of the line
	lineCommentRegex = regexp.MustCompile(`//[^\n]*`)

	// declRegex captures the qualifier, type and declarator list of a global
	// interface declaration such as "uniform highp mat4 u_joint[32];".
	// Layout and interpolation qualifiers are skipped.
	declRegex = regexp.MustCompile(`(?m)^\s*(?:(?:layout\s*\([^)]*\)|flat|smooth|centroid|invariant)\s+)*(attribute|uniform|varying|in|out)\s+(?:(?:lowp|mediump|highp)\s+)?(\w+)\s+([^;{}()]+);`)

	// declaratorRegex captures a name and an optional array length
	declaratorRegex = regexp.MustCompile(`^(\w+)\s*(?:\[\s*(\d+)\s*\])?$`)
)

// parseDeclarations extracts the global attribute, uniform and varying
// declarations of a GLSL source in source order. Fragment outputs are ignored.
//
// Parameters:
//   - source: the raw GLSL source
//   - stage: the shader stage, used to read in/out
//
// Returns:
//   - []Declaration: the declarations
func parseDeclarations(source string, stage ShaderType) []Declaration {
	cleaned := stripComments(source)

	var decls []Declaration
	for _, match := range declRegex.FindAllStringSubmatch(cleaned, -1) {
		q, ok := qualifierOf(match[1], stage)
		if !ok {
			continue
		}
		typeName := match[2]
		for _, part := range strings.Split(match[3], ",") {
			m := declaratorRegex.FindStringSubmatch(strings.TrimSpace(part))
			if m == nil {
				continue
			}
			count := 1
			if m[2] != "" {
				count, _ = strconv.Atoi(m[2])
			}
			decls = append(decls, Declaration{
				Qualifier: q,
				Name:      m[1],
				TypeName:  typeName,
				Type:      glslTypeMap[typeName],
				Count:     count,
			})
		}
	}
	return decls
}

// qualifierOf maps a GLSL storage keyword to a Qualifier for the stage.
func qualifierOf(keyword string, stage ShaderType) (Qualifier, bool) {
	switch keyword {
	case "attribute":
		return QualifierAttribute, true
	case "uniform":
		return QualifierUniform, true
	case "varying":
		return QualifierVarying, true
	case "in":
		if stage == ShaderTypeVertex {
			return QualifierAttribute, true
		}
		return QualifierVarying, true
	case "out":
		if stage == ShaderTypeVertex {
			return QualifierVarying, true
		}
	}
	return 0, false
}

// stripComments removes block and line comments from GLSL source.
func stripComments(source string) string {
	source = blockCommentRegex.ReplaceAllString(source, "")
	return lineCommentRegex.ReplaceAllString(source, "")
}
