// Package resource provides the handle tables behind every shader, program
// and buffer a guest module creates.
//
// Each resource kind gets its own Table, so handle 0 in the shader table and
// handle 0 in the buffer table are unrelated. Handles are issued by a
// per-table counter starting at 0 and are never reused: a released slot
// keeps a tombstone, so a stale handle reports not-found instead of
// resolving to a newer resource.
//
//	shaders := resource.NewTable[*Shader](resource.KindShader)
//
//	h, _ := shaders.Insert(s)   // 0, 1, 2, ...
//	s, ok := shaders.Get(h)
//	s, ok = shaders.Remove(h)   // caller disposes of s
//	_, ok = shaders.Remove(h)   // no-op, ok == false
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	shaders.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s %d %s", e.Kind, e.Handle, e.Type)
//	}))
//
// # Teardown
//
// Clear and Close drop every live value, calling Drop on values that
// implement Dropper. Remove never calls Drop; the caller owns disposal.
package resource
