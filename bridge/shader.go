package bridge

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-gl/errors"
	"github.com/wippyai/wasm-gl/gl"
	"github.com/wippyai/wasm-gl/resource"
)

// PrecisionHeader is prepended to every shader source before compilation.
// WebGL fragment shaders have no default float precision.
const PrecisionHeader = "precision mediump float;\n"

// CompileShader compiles source for stage and registers the result.
// On failure no handle is issued and the backend's info log is returned
// verbatim in the error.
func (c *Context) CompileShader(stage Stage, source string) (resource.Handle, error) {
	kind, ok := stage.glKind()
	if !ok {
		return 0, errors.InvalidEnum(errors.PhaseCompile, uint32(stage), "shader stage")
	}
	c.log.Debug("compiling shader", zap.Stringer("stage", stage))

	obj := c.backend.CreateShader(kind)
	if obj == 0 {
		return 0, errors.AllocationFailed(errors.PhaseCompile, "shader")
	}
	c.backend.ShaderSource(obj, PrecisionHeader+source)
	c.backend.CompileShader(obj)
	if c.backend.GetShaderParameter(obj, gl.CompileStatus) == 0 {
		log := c.backend.GetShaderInfoLog(obj)
		c.backend.DeleteShader(obj)
		return 0, errors.CompileFailed(stage.String(), log)
	}

	s := &Shader{backend: c.backend, object: obj, stage: stage}
	h, err := c.shaders.Insert(s)
	if err != nil {
		s.Drop()
		return 0, closedError(errors.PhaseCompile, err)
	}
	return h, nil
}

// DeinitShader releases a shader. Programs already linked from it are
// unaffected. An absent handle is ignored.
func (c *Context) DeinitShader(h resource.Handle) {
	if s, ok := c.shaders.Remove(h); ok {
		s.Drop()
	}
}

func closedError(phase errors.Phase, cause error) error {
	return errors.New(phase, errors.KindNotInitialized).
		Detail("context closed").
		Cause(cause).
		Build()
}
