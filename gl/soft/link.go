package soft

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/wippyai/wasm-gl/gl"
)

// link validates the program's attached stages and builds the active
// attribute and uniform lists. A failed link clears any previous result.
func link(prog *programObject) {
	prog.linked = false
	prog.attribs = nil
	prog.uniforms = nil
	prog.fragColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

	var b strings.Builder
	fail := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	var vs, fs *shaderObject
	for _, s := range prog.attached {
		switch s.kind {
		case gl.VertexShader:
			vs = s
		case gl.FragmentShader:
			fs = s
		}
	}
	switch {
	case vs == nil:
		fail("Missing vertex shader.")
	case fs == nil:
		fail("Missing fragment shader.")
	case !vs.compiled || vs.translation == nil:
		fail("Attached vertex shader is not compiled.")
	case !fs.compiled || fs.translation == nil:
		fail("Attached fragment shader is not compiled.")
	}
	if b.Len() > 0 {
		prog.log = b.String()
		return
	}
	v, f := vs.translation, fs.translation

	for _, in := range f.active(qualVarying) {
		out, ok := v.lookup(qualVarying, in.name)
		if !ok {
			fail("Fragment shader varying %s does not match any vertex shader varying", in.name)
			continue
		}
		if out.typ != in.typ || out.size != in.size {
			fail("Varying %s has type %s in the vertex shader and %s in the fragment shader",
				in.name, gl.TypeName(out.typ), gl.TypeName(in.typ))
		}
	}
	for _, fu := range f.vars {
		if fu.qual != qualUniform {
			continue
		}
		vu, ok := v.lookup(qualUniform, fu.name)
		if ok && (vu.typ != fu.typ || vu.size != fu.size) {
			fail("Uniform %s is declared with different types in the vertex and fragment shaders", fu.name)
		}
	}

	attribs := v.active(qualAttribute)
	if len(attribs) > MaxVertexAttribs {
		fail("Too many attributes (%d, maximum %d)", len(attribs), MaxVertexAttribs)
	}
	if b.Len() > 0 {
		prog.log = b.String()
		return
	}

	for _, a := range attribs {
		prog.attribs = append(prog.attribs, gl.ActiveInfo{Name: a.name, Size: a.size, Type: a.typ})
	}
	seen := make(map[string]bool)
	for _, t := range []*translation{v, f} {
		for _, u := range t.active(qualUniform) {
			if seen[u.name] {
				continue
			}
			seen[u.name] = true
			name := u.name
			if u.array {
				name += "[0]"
			}
			prog.uniforms = append(prog.uniforms, gl.ActiveInfo{Name: name, Size: u.size, Type: u.typ})
		}
	}
	if f.fragColor != nil {
		prog.fragColor = *f.fragColor
	}
	prog.log = ""
	prog.linked = true
}
