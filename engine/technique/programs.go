package technique

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/common/logger"
	"github.com/Carmen-Shannon/oxy-gltf/engine/loader"
	"github.com/Carmen-Shannon/oxy-gltf/engine/renderer/shader"
	"go.uber.org/zap"
)

var ErrUnknownProgram = errors.New("technique references unknown program")

// Programs parses the shaders of a document and pairs them into programs.
// Shaders without a source are left nil in their programs.
//
// Parameters:
//   - doc: the document
//   - sources: GLSL source bytes keyed by shader id
//
// Returns:
//   - map[string]*shader.Program: programs keyed by program id
func Programs(doc *loader.GLTFDocument, sources map[string][]byte) map[string]*shader.Program {
	shaders := make(map[string]shader.Shader, len(sources))
	for id, src := range sources {
		entry, ok := doc.Shaders[id]
		if !ok {
			continue
		}
		shaders[id] = shader.NewShader(id, shader.ShaderType(entry.Type), string(src))
	}

	programs := make(map[string]*shader.Program, len(doc.Programs))
	for id, p := range doc.Programs {
		programs[id] = shader.NewProgram(id, shaders[p.VertexShader], shaders[p.FragmentShader], p.Attributes)
	}
	return programs
}

// CheckPrograms verifies that every technique only binds attributes and
// uniforms its program declares, with matching types. Each problem is
// logged at warn level; drawing still proceeds.
//
// Parameters:
//   - doc: the document
//   - sources: GLSL source bytes keyed by shader id
//   - log: the logger, or nil
//
// Returns:
//   - error: the joined problems, nil if every technique matches
func CheckPrograms(doc *loader.GLTFDocument, sources map[string][]byte, log *zap.Logger) error {
	if log == nil {
		log = logger.Named("technique")
	}
	programs := Programs(doc, sources)

	var errs []error
	for _, id := range common.SortedKeys(doc.Techniques) {
		tech := doc.Techniques[id]
		p, ok := programs[tech.Program]
		if !ok {
			err := fmt.Errorf("technique %q program %q: %w", id, tech.Program, ErrUnknownProgram)
			log.Warn("technique check failed", zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if err := p.Check(parameterTypes(tech, tech.Attributes), parameterTypes(tech, tech.Uniforms)); err != nil {
			err = fmt.Errorf("technique %q: %w", id, err)
			log.Warn("technique does not match its program", zap.String("technique", id), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// parameterTypes maps program variable names to the GL type of the
// technique parameter bound to them. Unknown parameters map to 0.
func parameterTypes(tech loader.GLTFTechnique, bindings map[string]string) map[string]int {
	out := make(map[string]int, len(bindings))
	for name, param := range bindings {
		out[name] = tech.Parameters[param].Type
	}
	return out
}
