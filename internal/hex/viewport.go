package hex

import "math"

// Viewport is the screen rectangle in pixels.
type Viewport struct {
	Width  float64
	Height float64
}

// Transform is the pan/zoom applied to the map before drawing:
// screen = map*Scale + Translate.
type Transform struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
}

// VisibleCells lists every cell whose polygon may intersect the viewport.
// The scan is a bounding box in offset space with a margin, so the result can
// contain a few cells just outside the screen.
func VisibleCells(vp Viewport, tr Transform, size float64) []Cell {
	if tr.Scale <= 0 || size <= 0 || vp.Width <= 0 || vp.Height <= 0 {
		return nil
	}
	left := -tr.TranslateX / tr.Scale
	top := -tr.TranslateY / tr.Scale
	right := (vp.Width - tr.TranslateX) / tr.Scale
	bottom := (vp.Height - tr.TranslateY) / tr.Scale

	colW := Width(size)
	rowH := RowPitch(size)

	startCol := int(math.Floor(left/colW)) - 2
	endCol := int(math.Ceil(right/colW)) + 1
	startRow := int(math.Floor(top/rowH)) - 2
	endRow := int(math.Ceil(bottom/rowH)) + 2

	cells := make([]Cell, 0, (endCol-startCol+2)*(endRow-startRow+1))
	for r := startRow; r <= endRow; r++ {
		// odd rows sit half a hex to the right; widen by one to avoid a ragged edge
		first := startCol
		if r&1 != 0 {
			first--
		}
		for c := first; c <= endCol; c++ {
			cells = append(cells, Cell{Col: c, Row: r})
		}
	}
	return cells
}

// WithinBackground reports whether c's center lies on a background image of
// width x height pixels centered on the origin, allowing 1.5 hexes of slack.
func WithinBackground(c Cell, size float64, width, height int) bool {
	p := CellToPoint(c, size)
	limitX := float64(width) / 2
	limitY := float64(height) / 2
	buffer := size * 1.5
	return p.X >= -limitX-buffer && p.X <= limitX+buffer &&
		p.Y >= -limitY-buffer && p.Y <= limitY+buffer
}
