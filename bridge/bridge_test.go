package bridge

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	wglerrors "github.com/wippyai/wasm-gl/errors"
	"github.com/wippyai/wasm-gl/gl"
	"github.com/wippyai/wasm-gl/gl/soft"
	"github.com/wippyai/wasm-gl/resource"
)

const (
	triangleVS = `attribute vec2 position;
attribute vec3 color;
uniform float scale;
varying vec3 v_color;
void main() {
    v_color = color;
    gl_Position = vec4(position * scale, 0.0, 1.0);
}`
	triangleFS = `varying vec3 v_color;
void main() { gl_FragColor = vec4(v_color, 1.0); }`
)

// faultBackend wraps the software backend to inject failures.
type faultBackend struct {
	*soft.Context
	nullAttribs   map[uint32]bool
	nullUniforms  map[uint32]bool
	failBuffers   bool
	failShaders   bool
	failPrograms  bool
	deleted       []string
	sourcesByName map[gl.Shader]string
}

func newFault() *faultBackend {
	return &faultBackend{
		Context:       soft.New(soft.Config{}),
		nullAttribs:   map[uint32]bool{},
		nullUniforms:  map[uint32]bool{},
		sourcesByName: map[gl.Shader]string{},
	}
}

func (f *faultBackend) CreateBuffer() gl.Buffer {
	if f.failBuffers {
		return 0
	}
	return f.Context.CreateBuffer()
}

func (f *faultBackend) CreateShader(kind gl.Enum) gl.Shader {
	if f.failShaders {
		return 0
	}
	return f.Context.CreateShader(kind)
}

func (f *faultBackend) CreateProgram() gl.Program {
	if f.failPrograms {
		return 0
	}
	return f.Context.CreateProgram()
}

func (f *faultBackend) ShaderSource(s gl.Shader, src string) {
	f.sourcesByName[s] = src
	f.Context.ShaderSource(s, src)
}

func (f *faultBackend) GetActiveAttrib(p gl.Program, i uint32) (gl.ActiveInfo, bool) {
	if f.nullAttribs[i] {
		return gl.ActiveInfo{}, false
	}
	return f.Context.GetActiveAttrib(p, i)
}

func (f *faultBackend) GetActiveUniform(p gl.Program, i uint32) (gl.ActiveInfo, bool) {
	if f.nullUniforms[i] {
		return gl.ActiveInfo{}, false
	}
	return f.Context.GetActiveUniform(p, i)
}

func (f *faultBackend) DeleteShader(s gl.Shader) {
	f.deleted = append(f.deleted, "shader")
	f.Context.DeleteShader(s)
}

func (f *faultBackend) DeleteProgram(p gl.Program) {
	f.deleted = append(f.deleted, "program")
	f.Context.DeleteProgram(p)
}

func (f *faultBackend) DeleteBuffer(b gl.Buffer) {
	f.deleted = append(f.deleted, "buffer")
	f.Context.DeleteBuffer(b)
}

func floats(v ...float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

func mustCompile(t *testing.T, c *Context, stage Stage, src string) resource.Handle {
	t.Helper()
	h, err := c.CompileShader(stage, src)
	if err != nil {
		t.Fatalf("CompileShader(%v): %v", stage, err)
	}
	return h
}

func mustLink(t *testing.T, c *Context, vs, fs string) resource.Handle {
	t.Helper()
	h, err := c.LinkProgram(mustCompile(t, c, StageVertex, vs), mustCompile(t, c, StageFragment, fs))
	if err != nil {
		t.Fatalf("LinkProgram: %v", err)
	}
	return h
}

func TestCompileShader_EmptyMainScenario(t *testing.T) {
	c := New(soft.New(soft.Config{}), Options{})
	vs := mustCompile(t, c, StageVertex, "void main(){}")
	fs := mustCompile(t, c, StageFragment, "void main(){}")
	if vs != 0 || fs != 1 {
		t.Errorf("shader handles = %d, %d, want 0, 1", vs, fs)
	}
	h, err := c.LinkProgram(vs, fs)
	if err != nil {
		t.Fatal(err)
	}
	if h != 0 {
		t.Errorf("program handle = %d, want 0", h)
	}
	p, _ := c.Program(h)
	if len(p.Attributes()) != 0 || len(p.Uniforms()) != 0 {
		t.Errorf("attributes %v uniforms %v, want both empty", p.Attributes(), p.Uniforms())
	}
}

func TestCompileShader_PrependsPrecisionHeader(t *testing.T) {
	b := newFault()
	c := New(b, Options{})
	h := mustCompile(t, c, StageFragment, "void main(){}")
	s, _ := c.Shader(h)
	if got := b.sourcesByName[s.Object()]; got != PrecisionHeader+"void main(){}" {
		t.Errorf("source = %q", got)
	}
	if s.Stage() != StageFragment {
		t.Errorf("Stage = %v", s.Stage())
	}
}

func TestCompileShader_UnknownStage(t *testing.T) {
	c := New(soft.New(soft.Config{}), Options{})
	_, err := c.CompileShader(Stage(7), "void main(){}")
	if !errors.Is(err, wglerrors.ErrInvalidEnum) {
		t.Fatalf("err = %v, want invalid enum", err)
	}
	if st := c.Stats().Shaders; st.Live != 0 || st.Next != 0 {
		t.Errorf("shader table changed: %+v", st)
	}
	if h := mustCompile(t, c, StageVertex, "void main(){}"); h != 0 {
		t.Errorf("next handle = %d, want 0", h)
	}
}

func TestCompileShader_FailureCarriesLog(t *testing.T) {
	b := newFault()
	c := New(b, Options{})
	_, err := c.CompileShader(StageVertex, "void main(){ @ }")
	if !errors.Is(err, wglerrors.ErrCompile) {
		t.Fatalf("err = %v, want compile error", err)
	}
	var e *wglerrors.Error
	if !errors.As(err, &e) {
		t.Fatal("not an *errors.Error")
	}
	if !strings.Contains(e.Log, "'@' : invalid character") {
		t.Errorf("log = %q", e.Log)
	}
	if !strings.Contains(err.Error(), e.Log) {
		t.Error("log not surfaced verbatim in Error()")
	}
	if c.Stats().Shaders.Next != 0 {
		t.Error("failed compile advanced the counter")
	}
	if b.Live() != 0 {
		t.Errorf("backend leaked %d objects", b.Live())
	}
}

func TestCompileShader_Allocation(t *testing.T) {
	b := newFault()
	b.failShaders = true
	c := New(b, Options{})
	if _, err := c.CompileShader(StageVertex, "void main(){}"); !errors.Is(err, wglerrors.ErrAllocation) {
		t.Errorf("err = %v, want allocation error", err)
	}
}

func TestLinkProgram_MissingShader(t *testing.T) {
	c := New(soft.New(soft.Config{}), Options{})
	vs := mustCompile(t, c, StageVertex, "void main(){}")

	_, err := c.LinkProgram(99, vs)
	if !errors.Is(err, wglerrors.ErrMissingResource) || !strings.Contains(err.Error(), "first shader 99") {
		t.Errorf("first missing: %v", err)
	}
	_, err = c.LinkProgram(vs, 42)
	if !errors.Is(err, wglerrors.ErrMissingResource) || !strings.Contains(err.Error(), "second shader 42") {
		t.Errorf("second missing: %v", err)
	}
	if c.Stats().Programs.Next != 0 {
		t.Error("program counter advanced")
	}
}

func TestLinkProgram_MismatchedVaryings(t *testing.T) {
	b := newFault()
	c := New(b, Options{})
	vs := mustCompile(t, c, StageVertex, "varying vec2 v; void main(){ v = vec2(0.0); }")
	fs := mustCompile(t, c, StageFragment, "varying vec4 v; void main(){ gl_FragColor = v; }")

	_, err := c.LinkProgram(vs, fs)
	if !errors.Is(err, wglerrors.ErrLink) {
		t.Fatalf("err = %v, want link error", err)
	}
	var e *wglerrors.Error
	errors.As(err, &e)
	if !strings.Contains(e.Log, "Varying v") {
		t.Errorf("log = %q", e.Log)
	}
	if st := c.Stats().Programs; st.Next != 0 || st.Live != 0 {
		t.Errorf("program table changed: %+v", st)
	}

	// The context stays usable.
	if _, err := c.LinkProgram(mustCompile(t, c, StageVertex, "void main(){}"), fs); err == nil {
		t.Error("fragment varying without a vertex output should not link")
	}
	if _, err := mustLinkErr(c, "void main(){}", "void main(){}"); err != nil {
		t.Errorf("unrelated link failed: %v", err)
	}
}

func mustLinkErr(c *Context, vs, fs string) (resource.Handle, error) {
	a, err := c.CompileShader(StageVertex, vs)
	if err != nil {
		return 0, err
	}
	b, err := c.CompileShader(StageFragment, fs)
	if err != nil {
		return 0, err
	}
	return c.LinkProgram(a, b)
}

func TestLinkProgram_Reflection(t *testing.T) {
	c := New(soft.New(soft.Config{}), Options{})
	h := mustLink(t, c, triangleVS, triangleFS)
	p, _ := c.Program(h)

	attrs := p.Attributes()
	if len(attrs) != 2 {
		t.Fatalf("attributes = %v, want position and color", attrs)
	}
	seen := map[uint32]bool{}
	for name, a := range attrs {
		if a.Name != name {
			t.Errorf("attribute %q has name %q", name, a.Name)
		}
		if a.Location >= 2 || seen[a.Location] {
			t.Errorf("attribute %q location %d not distinct in [0, 2)", name, a.Location)
		}
		seen[a.Location] = true
	}
	if a, _ := p.Attribute("position"); a.Type != gl.FloatVec2 || a.Size != 1 {
		t.Errorf("position = %+v", a)
	}
	if u, ok := p.Uniform("scale"); !ok || u.Type != gl.Float {
		t.Errorf("scale = %+v, %v", u, ok)
	}
}

func TestLinkProgram_SnapshotIsImmutable(t *testing.T) {
	c := New(soft.New(soft.Config{}), Options{})
	h := mustLink(t, c, triangleVS, triangleFS)
	p, _ := c.Program(h)

	attrs := p.Attributes()
	delete(attrs, "position")
	attrs["bogus"] = Attribute{}
	if _, ok := p.Attribute("position"); !ok {
		t.Error("mutating the returned map changed the program")
	}
	if _, ok := p.Attribute("bogus"); ok {
		t.Error("mutating the returned map changed the program")
	}

	// A later program with the same name and different metadata does not
	// touch the first snapshot.
	h2 := mustLink(t, c, "attribute vec4 position; void main(){ gl_Position = position; }", "void main(){}")
	p2, _ := c.Program(h2)
	if a, _ := p2.Attribute("position"); a.Type != gl.FloatVec4 {
		t.Errorf("second program position = %+v", a)
	}
	if a, _ := p.Attribute("position"); a.Type != gl.FloatVec2 {
		t.Errorf("first program position changed to %+v", a)
	}
}

func TestLinkProgram_SkipsNullEntries(t *testing.T) {
	b := newFault()
	b.nullAttribs[0] = true
	b.nullUniforms[0] = true
	c := New(b, Options{})
	h := mustLink(t, c, triangleVS, triangleFS)
	p, _ := c.Program(h)

	if len(p.Attributes()) != 1 {
		t.Errorf("attributes = %v, want one entry", p.Attributes())
	}
	if _, ok := p.Attributes()[""]; ok {
		t.Error("null entry inserted as placeholder")
	}
	if len(p.Uniforms()) != 0 {
		t.Errorf("uniforms = %v, want none", p.Uniforms())
	}
}

func TestLinkProgram_ShadersReleasableAfterLink(t *testing.T) {
	c := New(soft.New(soft.Config{}), Options{})
	vs := mustCompile(t, c, StageVertex, triangleVS)
	fs := mustCompile(t, c, StageFragment, triangleFS)
	h, err := c.LinkProgram(vs, fs)
	if err != nil {
		t.Fatal(err)
	}
	c.DeinitShader(vs)
	c.DeinitShader(fs)
	if _, ok := c.Program(h); !ok {
		t.Fatal("program released with its shaders")
	}
	c.UseProgram(h)
	if !c.Bound().HasProgram {
		t.Error("program unusable after shader release")
	}
}

func TestHandles_IndependentAndNeverReused(t *testing.T) {
	c := New(soft.New(soft.Config{}), Options{})
	b0, _ := c.CreateVertexBuffer([]byte{1})
	s0 := mustCompile(t, c, StageVertex, "void main(){}")
	if b0 != 0 || s0 != 0 {
		t.Errorf("first handles = %d, %d, want 0, 0", b0, s0)
	}
	c.DeinitVertexBuffer(b0)
	if _, ok := c.Buffer(b0); ok {
		t.Error("lookup after release should miss")
	}
	c.DeinitVertexBuffer(b0)
	b1, _ := c.CreateVertexBuffer([]byte{2})
	if b1 != 1 {
		t.Errorf("handle after release = %d, want 1", b1)
	}
	if _, ok := c.Shader(s0); !ok {
		t.Error("buffer release touched the shader table")
	}
}

func TestCreateVertexBuffer_RoundTrip(t *testing.T) {
	c := New(soft.New(soft.Config{}), Options{})
	data := floats(0, 1, 2, 3, 4, 5, 6)
	data = append(data, 0xAB) // odd length
	h, err := c.CreateVertexBuffer(data)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := c.ReadBuffer(h)
	if !ok {
		t.Fatal("ReadBuffer failed")
	}
	if string(got) != string(data) {
		t.Errorf("read back %x, want %x", got, data)
	}
	if b := c.Bound(); !b.HasBuffer || b.Buffer != h {
		t.Errorf("new buffer not bound: %+v", b)
	}
	if buf, _ := c.Buffer(h); buf.Size() != len(data) {
		t.Errorf("Size = %d", buf.Size())
	}
}

func TestCreateVertexBuffer_Allocation(t *testing.T) {
	b := newFault()
	b.failBuffers = true
	c := New(b, Options{})
	_, err := c.CreateVertexBuffer([]byte{1, 2})
	if !errors.Is(err, wglerrors.ErrAllocation) {
		t.Fatalf("err = %v, want allocation error", err)
	}
	if c.Stats().Buffers.Next != 0 {
		t.Error("counter advanced on allocation failure")
	}
}

func TestAbsentHandles_NeverRaise(t *testing.T) {
	c := New(soft.New(soft.Config{}), Options{})
	prog := mustLink(t, c, triangleVS, triangleFS)
	buf, _ := c.CreateVertexBuffer(floats(0, 0, 1, 0, 0, 1))
	c.UseProgram(prog)
	if err := c.SetVertexAttribute(prog, "position", VertexLayout{Size: 2}); err != nil {
		t.Fatal(err)
	}
	before := c.Bound()

	c.UseProgram(77)
	c.DeinitProgram(77)
	c.DeinitShader(77)
	c.DeinitVertexBuffer(77)
	if err := c.SetVertexAttribute(77, "position", VertexLayout{Size: 2}); err != nil {
		t.Errorf("set-attribute on absent program: %v", err)
	}
	after := c.Bound()
	if after.Program != before.Program || after.HasProgram != before.HasProgram ||
		after.Buffer != buf || !after.HasBuffer || len(after.Enabled) != len(before.Enabled) {
		t.Errorf("bound state changed: %+v -> %+v", before, after)
	}

	c.BindVertexBuffer(77)
	if b := c.Bound(); b.HasBuffer {
		t.Errorf("bind of absent buffer should bind none: %+v", b)
	}
}

func TestSetVertexAttribute_UnknownName(t *testing.T) {
	c := New(soft.New(soft.Config{}), Options{})
	prog := mustLink(t, c, triangleVS, triangleFS)
	c.CreateVertexBuffer(floats(0, 0))
	before := c.Bound()
	if err := c.SetVertexAttribute(prog, "missing", VertexLayout{Size: 2}); err != nil {
		t.Fatal(err)
	}
	after := c.Bound()
	if len(after.Enabled) != 0 || after.Program != before.Program || after.Buffer != before.Buffer ||
		after.HasProgram != before.HasProgram || after.HasBuffer != before.HasBuffer {
		t.Errorf("bound state changed: %+v -> %+v", before, after)
	}
}

func TestSetVertexAttribute_UnknownType(t *testing.T) {
	c := New(soft.New(soft.Config{}), Options{})
	prog := mustLink(t, c, triangleVS, triangleFS)
	err := c.SetVertexAttribute(prog, "position", VertexLayout{Size: 2, Type: ElementType(3)})
	if !errors.Is(err, wglerrors.ErrInvalidEnum) {
		t.Errorf("err = %v, want invalid enum", err)
	}
	// Type is validated before the lookup.
	err = c.SetVertexAttribute(99, "nope", VertexLayout{Type: ElementType(3)})
	if !errors.Is(err, wglerrors.ErrInvalidEnum) {
		t.Errorf("err = %v, want invalid enum", err)
	}
}

func TestSetVertexAttribute_LayoutOverridesReflection(t *testing.T) {
	b := soft.New(soft.Config{})
	c := New(b, Options{})
	prog := mustLink(t, c, triangleVS, triangleFS)
	buf, _ := c.CreateVertexBuffer(make([]byte, 64))
	p, _ := c.Program(prog)
	color, _ := p.Attribute("color")

	layout := VertexLayout{Size: 4, Normalized: true, Stride: 20, Offset: 8}
	if err := c.SetVertexAttribute(prog, "color", layout); err != nil {
		t.Fatal(err)
	}
	bufObj, _ := c.Buffer(buf)
	got := b.Attrib(color.Location)
	want := soft.AttribState{Buffer: bufObj.Object(), Size: 4, Type: gl.Float, Normalized: true, Stride: 20, Offset: 8, Enabled: true}
	if got != want {
		t.Errorf("attrib state = %+v, want %+v", got, want)
	}
	if en := c.Bound().Enabled; len(en) != 1 || en[0] != color.Location {
		t.Errorf("Enabled = %v", en)
	}
}

func TestDrawArrays(t *testing.T) {
	b := soft.New(soft.Config{})
	c := New(b, Options{})

	if err := c.DrawArrays(DrawMode(2), 0, 3); !errors.Is(err, wglerrors.ErrInvalidEnum) {
		t.Errorf("mode 2: err = %v, want invalid enum", err)
	}
	if len(b.Draws()) != 0 || c.Stats().Draws != 0 {
		t.Error("invalid mode issued a draw")
	}

	// Unbound draws pass through to the backend.
	if err := c.DrawArrays(DrawTriangles, 0, 3); err != nil {
		t.Errorf("unbound draw: %v", err)
	}
	if e := b.GetError(); e != gl.InvalidOperation {
		t.Errorf("backend error = %#x, want INVALID_OPERATION", e)
	}

	prog := mustLink(t, c, triangleVS, triangleFS)
	c.UseProgram(prog)
	c.CreateVertexBuffer(floats(0, 0, 1, 0, 0, 1))
	if err := c.SetVertexAttribute(prog, "position", VertexLayout{Size: 2}); err != nil {
		t.Fatal(err)
	}
	if err := c.DrawArrays(DrawTriangles, 0, 3); err != nil {
		t.Fatal(err)
	}
	draws := b.Draws()
	if len(draws) != 1 || draws[0].Count != 3 {
		t.Errorf("draws = %+v", draws)
	}
	if c.Stats().Draws != 2 {
		t.Errorf("Stats.Draws = %d, want 2", c.Stats().Draws)
	}
}

func TestDrawArrays_FirstNearLimit(t *testing.T) {
	b := soft.New(soft.Config{Width: 8, Height: 8})
	c := New(b, Options{})
	if err := c.InitContext(); err != nil {
		t.Fatal(err)
	}
	prog := mustLink(t, c, triangleVS, triangleFS)
	c.UseProgram(prog)
	c.CreateVertexBuffer(floats(0, 0, 1, 0, 0, 1))
	if err := c.SetVertexAttribute(prog, "position", VertexLayout{Size: 2}); err != nil {
		t.Fatal(err)
	}

	if err := c.DrawArrays(DrawTriangles, math.MaxInt32-1, 3); err != nil {
		t.Fatal(err)
	}
	if e := b.GetError(); e != gl.InvalidOperation {
		t.Errorf("backend error = %#x, want INVALID_OPERATION", e)
	}
	if len(b.Draws()) != 0 {
		t.Errorf("draws = %+v", b.Draws())
	}
}

func TestDeinitClearsBoundReference(t *testing.T) {
	c := New(soft.New(soft.Config{}), Options{})
	prog := mustLink(t, c, "void main(){}", "void main(){}")
	buf, _ := c.CreateVertexBuffer([]byte{1})
	c.UseProgram(prog)
	c.DeinitProgram(prog)
	c.DeinitVertexBuffer(buf)
	if b := c.Bound(); b.HasProgram || b.HasBuffer {
		t.Errorf("bound state after deinit: %+v", b)
	}
}

func TestClose_ReleasesEverything(t *testing.T) {
	b := newFault()
	c := New(b, Options{})
	mustLink(t, c, triangleVS, triangleFS)
	c.CreateVertexBuffer([]byte{1, 2, 3})
	b.deleted = nil

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if b.Live() != 0 {
		t.Errorf("backend still holds %d objects", b.Live())
	}
	if len(b.deleted) != 4 || b.deleted[0] != "program" {
		t.Errorf("deletes = %v, want program first", b.deleted)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := c.CreateVertexBuffer([]byte{1}); err == nil {
		t.Error("create after Close should fail")
	}
	if b.Live() != 0 {
		t.Error("create after Close leaked a backend object")
	}
}

func TestClear(t *testing.T) {
	b := soft.New(soft.Config{Width: 4, Height: 4})
	c := New(b, Options{})
	if err := c.InitContext(); err != nil {
		t.Fatal(err)
	}
	c.Clear(1, 0, 0, 1)
	if px := b.Image().RGBAAt(1, 1); px.R != 255 || px.A != 255 || px.G != 0 {
		t.Errorf("pixel = %v", px)
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{StageVertex.String(), "vertex"},
		{StageFragment.String(), "fragment"},
		{Stage(9).String(), "stage(9)"},
		{ElementFloat32.String(), "f32"},
		{ElementType(4).String(), "type(4)"},
		{DrawTriangles.String(), "triangles"},
		{DrawMode(2).String(), "mode(2)"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
