package soft

import (
	"encoding/binary"
	"image"
	"math"

	"golang.org/x/image/vector"
)

// positionSlot picks the attribute used as clip-space position: the lowest
// enabled float attribute with at least two components.
func (c *Context) positionSlot() (*AttribState, bool) {
	for i := range c.attribs {
		a := &c.attribs[i]
		if a.Enabled && a.Size >= 2 {
			if _, ok := c.buffers[a.Buffer]; ok {
				return a, true
			}
		}
	}
	return nil, false
}

// vertex fetches vertex i of the attribute and maps it to window space.
func (c *Context) vertex(a *AttribState, i int64) (float32, float32) {
	data := c.buffers[a.Buffer].data
	base := int(int64(a.Offset) + int64(a.stride())*i)
	comp := func(k int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[base+4*k:]))
	}
	x, y := comp(0), comp(1)
	if a.Size == 4 {
		if w := comp(3); w > 0 {
			x, y = x/w, y/w
		}
	}
	width, height := float32(c.cfg.Width), float32(c.cfg.Height)
	return (x + 1) / 2 * width, (1 - y) / 2 * height
}

// rasterize fills each complete triangle of the vertex range with the
// program's flat color.
func (c *Context) rasterize(prog *programObject, first, count int32) {
	a, ok := c.positionSlot()
	if !ok {
		return
	}
	bounds := c.fb.Bounds()
	r := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	base := int64(first)
	for t := int64(0); t+3 <= int64(count); t += 3 {
		x0, y0 := c.vertex(a, base+t)
		x1, y1 := c.vertex(a, base+t+1)
		x2, y2 := c.vertex(a, base+t+2)
		r.MoveTo(x0, y0)
		r.LineTo(x1, y1)
		r.LineTo(x2, y2)
		r.ClosePath()
	}
	r.Draw(c.fb, bounds, image.NewUniform(prog.fragColor), image.Point{})
}
