package soft

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-gl/gl"
)

// The scanner understands the declaration surface of GLSL ES 1.00: global
// attribute, uniform and varying declarations, precision statements, and
// function definitions. Function bodies are balanced and scanned for
// identifier use but not type checked.

type tokenKind uint8

const (
	tokIdent tokenKind = iota
	tokNumber
	tokPunct
)

type token struct {
	text string
	line int
	kind tokenKind
}

type qualifier uint8

const (
	qualNone qualifier = iota
	qualAttribute
	qualUniform
	qualVarying
	qualConst
)

func (q qualifier) String() string {
	switch q {
	case qualAttribute:
		return "attribute"
	case qualUniform:
		return "uniform"
	case qualVarying:
		return "varying"
	case qualConst:
		return "const"
	}
	return ""
}

type variable struct {
	name  string
	line  int
	size  int32
	typ   gl.Enum
	qual  qualifier
	array bool
}

// translation is the result of compiling one shader stage.
type translation struct {
	used      map[string]bool
	fragColor *color.RGBA
	vars      []variable
	kind      gl.Enum
}

func (t *translation) lookup(q qualifier, name string) (variable, bool) {
	for _, v := range t.vars {
		if v.qual == q && v.name == name {
			return v, true
		}
	}
	return variable{}, false
}

func (t *translation) active(q qualifier) []variable {
	var out []variable
	for _, v := range t.vars {
		if v.qual == q && t.used[v.name] {
			out = append(out, v)
		}
	}
	return out
}

// diagnostics accumulates an info log in the ANGLE format.
type diagnostics struct {
	b     strings.Builder
	count int
}

func (d *diagnostics) errorf(line int, tok, format string, args ...any) {
	fmt.Fprintf(&d.b, "ERROR: 0:%d: '%s' : %s\n", line, tok, fmt.Sprintf(format, args...))
	d.count++
}

func (d *diagnostics) log() string {
	if d.count == 0 {
		return ""
	}
	fmt.Fprintf(&d.b, "ERROR: %d compilation errors.  No code generated.\n", d.count)
	return d.b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func tokenize(src string, diag *diagnostics) []token {
	var toks []token
	line := 1
	lineStart := true

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '\n':
			line++
			lineStart = true
			i++
			continue
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			i++
			continue
		case c == '#' && lineStart:
			// Preprocessor directives are accepted and ignored.
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				diag.errorf(line, "/*", "unterminated comment")
				return toks
			}
			line += strings.Count(src[i:i+2+end], "\n")
			i += end + 4
			continue
		}
		lineStart = false

		start := i
		switch {
		case isIdentStart(c):
			for i < len(src) && (isIdentStart(src[i]) || isDigit(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], line: line})
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			for i < len(src) {
				ch := src[i]
				if isDigit(ch) || isIdentStart(ch) || ch == '.' {
					i++
					continue
				}
				if (ch == '+' || ch == '-') && (src[i-1] == 'e' || src[i-1] == 'E') {
					i++
					continue
				}
				break
			}
			toks = append(toks, token{kind: tokNumber, text: src[start:i], line: line})
		case strings.IndexByte("(){}[];,.=+-*/<>!&|^%?:~", c) >= 0:
			i++
			toks = append(toks, token{kind: tokPunct, text: src[start:i], line: line})
		default:
			diag.errorf(line, string(c), "invalid character")
			i++
		}
	}
	return toks
}

var precisionQualifiers = map[string]bool{"lowp": true, "mediump": true, "highp": true}

// translate compiles source for the given stage. It returns nil and a
// non-empty info log on failure.
func translate(kind gl.Enum, src string) (*translation, string) {
	var diag diagnostics
	toks := tokenize(src, &diag)
	p := &parser{toks: toks, diag: &diag, kind: kind}
	t := p.parse()
	if diag.count > 0 {
		return nil, diag.log()
	}
	return t, ""
}

type parser struct {
	diag   *diagnostics
	toks   []token
	pos    int
	kind   gl.Enum
	mains  int
	bodies [][]token
}

func (p *parser) eof() bool {
	return p.pos >= len(p.toks)
}

func (p *parser) peek() token {
	if p.eof() {
		line := 1
		if len(p.toks) > 0 {
			line = p.toks[len(p.toks)-1].line
		}
		return token{line: line}
	}
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	if !p.eof() {
		p.pos++
	}
	return t
}

// skipTo advances past the next top-level ';' after an error.
func (p *parser) skipTo() {
	depth := 0
	for !p.eof() {
		t := p.next()
		switch t.text {
		case "{", "(":
			depth++
		case "}", ")":
			depth--
		case ";":
			if depth <= 0 {
				return
			}
		}
		if depth < 0 {
			return
		}
	}
}

func (p *parser) parse() *translation {
	t := &translation{kind: p.kind, used: make(map[string]bool)}
	declared := make(map[string]bool)

	for !p.eof() {
		tok := p.peek()
		switch {
		case tok.text == ";":
			p.next()
			continue
		case tok.text == "precision":
			p.precision()
			continue
		case tok.kind != tokIdent:
			p.diag.errorf(tok.line, tok.text, "syntax error")
			p.skipTo()
			continue
		}
		p.declaration(t, declared)
	}

	if p.diag.count == 0 && p.mains == 0 {
		p.diag.errorf(p.peek().line, "", "Missing main()")
	}

	for _, body := range p.bodies {
		for i, b := range body {
			if b.kind == tokIdent {
				t.used[b.text] = true
			}
			if p.kind == gl.FragmentShader && b.text == "gl_FragColor" {
				if c, ok := constantColor(body[i+1:]); ok {
					t.fragColor = &c
				}
			}
		}
	}
	return t
}

func (p *parser) precision() {
	p.next()
	q := p.next()
	if !precisionQualifiers[q.text] {
		p.diag.errorf(q.line, q.text, "syntax error")
		p.skipTo()
		return
	}
	typ := p.next()
	if typ.text != "float" && typ.text != "int" && typ.text != "sampler2D" && typ.text != "samplerCube" {
		p.diag.errorf(typ.line, typ.text, "illegal type argument for default precision qualifier")
		p.skipTo()
		return
	}
	if semi := p.next(); semi.text != ";" {
		p.diag.errorf(semi.line, semi.text, "syntax error")
		p.skipTo()
	}
}

func (p *parser) declaration(t *translation, declared map[string]bool) {
	qual := qualNone
	first := p.peek()

qualifiers:
	for !p.eof() {
		switch tok := p.peek(); tok.text {
		case "attribute":
			qual = qualAttribute
		case "uniform":
			qual = qualUniform
		case "varying":
			qual = qualVarying
		case "const":
			qual = qualConst
		case "invariant":
		default:
			if !precisionQualifiers[tok.text] {
				break qualifiers
			}
		}
		p.next()
	}

	typTok := p.next()
	if typTok.text == "struct" {
		p.diag.errorf(typTok.line, typTok.text, "struct declarations are not supported")
		p.skipTo()
		return
	}
	typ, isType := gl.TypeByName(typTok.text)
	if !isType && typTok.text != "void" {
		p.diag.errorf(typTok.line, typTok.text, "syntax error")
		p.skipTo()
		return
	}

	if qual == qualAttribute && p.kind != gl.VertexShader {
		p.diag.errorf(first.line, "attribute", "supported in vertex shaders only")
		p.skipTo()
		return
	}

	nameTok := p.next()
	if nameTok.kind != tokIdent {
		p.diag.errorf(nameTok.line, nameTok.text, "syntax error")
		p.skipTo()
		return
	}

	if p.peek().text == "(" {
		p.function(typTok, nameTok, qual)
		return
	}

	if typTok.text == "void" {
		p.diag.errorf(nameTok.line, nameTok.text, "illegal use of type 'void'")
		p.skipTo()
		return
	}
	p.checkQualifiedType(qual, typ, typTok)

	for {
		v := variable{name: nameTok.text, typ: typ, qual: qual, size: 1, line: nameTok.line}
		if p.peek().text == "[" {
			p.next()
			n := p.next()
			size, err := strconv.ParseInt(n.text, 10, 32)
			if n.kind != tokNumber || err != nil || size <= 0 {
				p.diag.errorf(n.line, n.text, "array size must be a positive integer")
				p.skipTo()
				return
			}
			if closeTok := p.next(); closeTok.text != "]" {
				p.diag.errorf(closeTok.line, closeTok.text, "syntax error")
				p.skipTo()
				return
			}
			if qual == qualAttribute {
				p.diag.errorf(nameTok.line, nameTok.text, "cannot declare arrays of this qualifier")
			}
			v.size = int32(size)
			v.array = true
		}

		if declared[v.name] {
			p.diag.errorf(v.line, v.name, "redefinition")
		}
		declared[v.name] = true
		t.vars = append(t.vars, v)

		if p.peek().text == "=" {
			if qual == qualAttribute || qual == qualUniform || qual == qualVarying {
				p.diag.errorf(p.peek().line, v.name, "cannot initialize this type of qualifier")
			}
			p.initializer()
		}

		sep := p.next()
		switch sep.text {
		case ";":
			return
		case ",":
			nameTok = p.next()
			if nameTok.kind != tokIdent {
				p.diag.errorf(nameTok.line, nameTok.text, "syntax error")
				p.skipTo()
				return
			}
		default:
			if p.eof() && sep.text == "" {
				p.diag.errorf(sep.line, "", "syntax error, unexpected end of file")
				return
			}
			p.diag.errorf(sep.line, sep.text, "syntax error")
			p.skipTo()
			return
		}
	}
}

func (p *parser) checkQualifiedType(qual qualifier, typ gl.Enum, at token) {
	switch qual {
	case qualAttribute, qualVarying:
		switch typ {
		case gl.Float, gl.FloatVec2, gl.FloatVec3, gl.FloatVec4, gl.FloatMat2, gl.FloatMat3, gl.FloatMat4:
		default:
			p.diag.errorf(at.line, at.text, "cannot be used with a %s qualifier", qual)
		}
	}
}

// initializer consumes an expression up to, not including, the next
// top-level ',' or ';'.
func (p *parser) initializer() {
	p.next()
	depth := 0
	for !p.eof() {
		switch p.peek().text {
		case "(", "[":
			depth++
		case ")", "]":
			depth--
		case ",", ";":
			if depth == 0 {
				return
			}
		case "{", "}":
			return
		}
		p.next()
	}
}

func (p *parser) function(typTok, name token, qual qualifier) {
	if qual != qualNone {
		p.diag.errorf(name.line, name.text, "invalid qualifier on function")
	}

	// Parameter list.
	depth := 0
	var params []token
	for !p.eof() {
		t := p.next()
		if t.text == "(" {
			depth++
			if depth == 1 {
				continue
			}
		}
		if t.text == ")" {
			depth--
			if depth == 0 {
				break
			}
		}
		params = append(params, t)
	}
	if depth != 0 {
		p.diag.errorf(p.peek().line, "", "syntax error, unexpected end of file")
		return
	}

	switch next := p.next(); next.text {
	case ";":
		return
	case "{":
	default:
		p.diag.errorf(next.line, next.text, "syntax error")
		p.skipTo()
		return
	}

	body, ok := p.block()
	if !ok {
		return
	}
	p.bodies = append(p.bodies, body)

	if name.text == "main" {
		if typTok.text != "void" || !(len(params) == 0 || (len(params) == 1 && params[0].text == "void")) {
			p.diag.errorf(name.line, "main", "function cannot take any parameter(s) or return a value")
			return
		}
		p.mains++
		if p.mains > 1 {
			p.diag.errorf(name.line, "main", "function already has a body")
		}
	}
}

// block reads a function body after its opening brace.
func (p *parser) block() ([]token, bool) {
	depth := 1
	parens := 0
	var body []token
	for !p.eof() {
		t := p.next()
		switch t.text {
		case "{":
			depth++
		case "}":
			depth--
			if depth == 0 {
				if parens != 0 {
					p.diag.errorf(t.line, "}", "syntax error")
					return nil, false
				}
				return body, true
			}
		case "(":
			parens++
		case ")":
			parens--
			if parens < 0 {
				p.diag.errorf(t.line, ")", "syntax error")
				return nil, false
			}
		}
		body = append(body, t)
	}
	p.diag.errorf(p.peek().line, "", "syntax error, unexpected end of file")
	return nil, false
}

// constantColor matches `= vec4(r, g, b, a)` with literal components.
func constantColor(toks []token) (color.RGBA, bool) {
	want := []string{"=", "vec4", "(", "", ",", "", ",", "", ",", "", ")"}
	if len(toks) < len(want) {
		return color.RGBA{}, false
	}
	var comps []float64
	for i, w := range want {
		if w == "" {
			if toks[i].kind != tokNumber {
				return color.RGBA{}, false
			}
			f, err := strconv.ParseFloat(strings.TrimSuffix(toks[i].text, "f"), 64)
			if err != nil {
				return color.RGBA{}, false
			}
			comps = append(comps, f)
			continue
		}
		if toks[i].text != w {
			return color.RGBA{}, false
		}
	}
	return color.RGBA{R: unit(comps[0]), G: unit(comps[1]), B: unit(comps[2]), A: unit(comps[3])}, true
}

func unit(f float64) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(f*255 + 0.5)
}
