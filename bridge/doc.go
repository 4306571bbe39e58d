// Package bridge implements the resource registry and the compile, link,
// bind and draw protocol a guest module drives.
//
// A Context owns three independent handle tables for shaders, programs and
// vertex buffers. Handles start at 0 in each table and are never reused.
// Operations take plain Go values; decoding guest memory is the caller's
// job.
//
//	c := bridge.New(soft.New(soft.Config{}), bridge.Options{})
//	vs, err := c.CompileShader(bridge.StageVertex, vertexSource)
//	fs, err := c.CompileShader(bridge.StageFragment, fragmentSource)
//	prog, err := c.LinkProgram(vs, fs)
//	c.UseProgram(prog)
//	c.CreateVertexBuffer(vertices)
//	c.SetVertexAttribute(prog, "position", bridge.VertexLayout{Size: 2})
//	c.DrawArrays(bridge.DrawTriangles, 0, 3)
//
// # Errors
//
// Values outside a closed enumeration (stage, element type, draw mode)
// fail with errors.KindInvalidEnum. Compile and link failures carry the
// backend info log verbatim. Linking with an unknown shader handle fails
// with errors.KindMissingResource and a backend that cannot create an
// object yields errors.KindAllocation.
//
// Lookups of absent handles in use, bind, deinit and set-attribute calls
// never fail: use and set-attribute do nothing, bind binds no buffer, and
// deinit is a no-op.
//
// # Lifetime
//
// Resources live until the guest releases them or Close is called.
// Programs do not own their shaders; a shader may be released right after
// linking.
package bridge
