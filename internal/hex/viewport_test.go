package hex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibleCells_CoversIntersectingHexes(t *testing.T) {
	cases := []struct {
		name string
		vp   Viewport
		tr   Transform
		size float64
	}{
		{name: "identity", vp: Viewport{Width: 800, Height: 600}, tr: Transform{Scale: 1}, size: 40},
		{name: "panned", vp: Viewport{Width: 800, Height: 600}, tr: Transform{Scale: 1, TranslateX: 413, TranslateY: -271}, size: 40},
		{name: "zoomed in", vp: Viewport{Width: 640, Height: 480}, tr: Transform{Scale: 2.5, TranslateX: -90, TranslateY: 33}, size: 23},
		{name: "zoomed out", vp: Viewport{Width: 1024, Height: 768}, tr: Transform{Scale: 0.3, TranslateX: 512, TranslateY: 384}, size: 60},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := make(map[Cell]bool)
			for _, c := range VisibleCells(tc.vp, tc.tr, tc.size) {
				got[c] = true
			}

			left := -tc.tr.TranslateX / tc.tr.Scale
			top := -tc.tr.TranslateY / tc.tr.Scale
			right := (tc.vp.Width - tc.tr.TranslateX) / tc.tr.Scale
			bottom := (tc.vp.Height - tc.tr.TranslateY) / tc.tr.Scale

			// brute force over a generous window around the viewport
			center := PointToCell(Point{X: (left + right) / 2, Y: (top + bottom) / 2}, tc.size)
			reach := int((right-left)/Width(tc.size)) + int((bottom-top)/RowPitch(tc.size)) + 6
			for row := center.Row - reach; row <= center.Row+reach; row++ {
				for col := center.Col - reach; col <= center.Col+reach; col++ {
					c := Cell{Col: col, Row: row}
					minX, minY, maxX, maxY := bounds(Corners(CellToPoint(c, tc.size), tc.size))
					intersects := minX < right && maxX > left && minY < bottom && maxY > top
					if intersects && !got[c] {
						t.Fatalf("cell %v intersects the viewport but was not listed", c)
					}
				}
			}
		})
	}
}

func TestVisibleCells_DegenerateTransform(t *testing.T) {
	assert.Nil(t, VisibleCells(Viewport{Width: 100, Height: 100}, Transform{Scale: 0}, 40))
	assert.Nil(t, VisibleCells(Viewport{}, Transform{Scale: 1}, 40))
}

func TestWithinBackground(t *testing.T) {
	assert.True(t, WithinBackground(Cell{}, 40, 2000, 2000))
	assert.True(t, WithinBackground(Cell{Col: 14, Row: 0}, 40, 2000, 2000))
	assert.False(t, WithinBackground(Cell{Col: 40, Row: 0}, 40, 2000, 2000))
	assert.False(t, WithinBackground(Cell{Col: 0, Row: -60}, 40, 2000, 2000))
}

func bounds(pts [6]Point) (minX, minY, maxX, maxY float64) {
	minX, minY = pts[0].X, pts[0].Y
	maxX, maxY = minX, minY
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}
