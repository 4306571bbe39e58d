package demo

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
)

func TestTriangle_Compiles(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	mod, err := r.CompileModule(ctx, DefaultTriangle().Build())
	if err != nil {
		t.Fatal(err)
	}
	imports := mod.ImportedFunctions()
	if len(imports) != 15 {
		t.Fatalf("imports = %d, want 15", len(imports))
	}
	for _, name := range []string{"_start", "frame"} {
		if _, ok := mod.ExportedFunctions()[name]; !ok {
			t.Errorf("missing export %q", name)
		}
	}
	if _, ok := mod.ExportedMemories()["memory"]; !ok {
		t.Error("memory not exported")
	}
}

func TestData_Aligns(t *testing.T) {
	d := NewData(nil, 8)
	if got := d.Put(nil); got != (Region{Ptr: 8}) || d.next != 8 {
		t.Errorf("empty Put = %+v, next %d", got, d.next)
	}
}

func TestFloats(t *testing.T) {
	b := Floats(1, -2)
	want := []byte{0, 0, 0x80, 0x3f, 0, 0, 0, 0xc0}
	if string(b) != string(want) {
		t.Errorf("Floats = %x, want %x", b, want)
	}
}
