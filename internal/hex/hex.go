// Package hex maps between offset hex cells and points on the squashed,
// isometric-looking map surface.
//
// Cells use an odd-row offset layout: every odd row is shifted right by half a
// hex width. Hexes are pointy-topped and the whole surface is scaled vertically
// by IsoScaleY.
package hex

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IsoScaleY is the vertical squash applied to centers and vertices.
const IsoScaleY = 0.75

// Cell addresses one hexagon by (column, row).
type Cell struct {
	Col int
	Row int
}

// Point is a position on the map surface.
type Point struct {
	X float64
	Y float64
}

// Key returns the sparse-storage key "col,row".
func (c Cell) Key() string {
	return strconv.Itoa(c.Col) + "," + strconv.Itoa(c.Row)
}

func (c Cell) String() string { return c.Key() }

// ParseKey is the inverse of Cell.Key.
func ParseKey(key string) (Cell, error) {
	col, row, ok := strings.Cut(key, ",")
	if !ok {
		return Cell{}, fmt.Errorf("hex key %q: missing comma", key)
	}
	c, err := strconv.Atoi(strings.TrimSpace(col))
	if err != nil {
		return Cell{}, fmt.Errorf("hex key %q: column: %w", key, err)
	}
	r, err := strconv.Atoi(strings.TrimSpace(row))
	if err != nil {
		return Cell{}, fmt.Errorf("hex key %q: row: %w", key, err)
	}
	return Cell{Col: c, Row: r}, nil
}

// MarshalText lets Cell be used as a JSON object key.
func (c Cell) MarshalText() ([]byte, error) {
	return []byte(c.Key()), nil
}

func (c *Cell) UnmarshalText(b []byte) error {
	parsed, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Width is the horizontal distance between neighbouring centers in a row.
func Width(size float64) float64 { return math.Sqrt(3) * size }

// RowPitch is the vertical distance between row centers after the squash.
func RowPitch(size float64) float64 { return 1.5 * size * IsoScaleY }

// CellToPoint returns the center of c for a hex radius of size.
func CellToPoint(c Cell, size float64) Point {
	w := Width(size)
	return Point{
		X: float64(c.Col)*w + float64(c.Row&1)*w/2,
		Y: float64(c.Row) * RowPitch(size),
	}
}

// PointToCell returns the cell whose center is nearest to p in hex distance.
func PointToCell(p Point, size float64) Cell {
	y := p.Y / IsoScaleY
	q := (math.Sqrt(3)/3*p.X - y/3) / size
	r := (2.0 / 3 * y) / size
	a := cubeRound(q, r, -q-r)
	return a.toOffset()
}

// axial is a (q, r) coordinate; the third cube coordinate is -q-r.
type axial struct {
	Q int
	R int
}

func (a axial) toOffset() Cell {
	return Cell{Col: a.Q + (a.R-(a.R&1))/2, Row: a.R}
}

func toAxial(c Cell) axial {
	return axial{Q: c.Col - (c.Row-(c.Row&1))/2, R: c.Row}
}

// cubeRound rounds each cube component and repairs the one with the largest
// error so q+r+s stays zero.
func cubeRound(q, r, s float64) axial {
	rq, rr, rs := math.Round(q), math.Round(r), math.Round(s)
	dq, dr, ds := math.Abs(rq-q), math.Abs(rr-r), math.Abs(rs-s)
	switch {
	case dq > dr && dq > ds:
		rq = -rr - rs
	case dr > ds:
		rr = -rq - rs
	}
	return axial{Q: int(rq), R: int(rr)}
}

// Corners returns the six vertices of the hex centered on center.
func Corners(center Point, size float64) [6]Point {
	var pts [6]Point
	for i := range pts {
		rad := math.Pi / 180 * float64(60*i-30)
		pts[i] = Point{
			X: center.X + size*math.Cos(rad),
			Y: center.Y + size*math.Sin(rad)*IsoScaleY,
		}
	}
	return pts
}

// Distance is the hex step distance between two cells.
func Distance(a, b Cell) int {
	aa, bb := toAxial(a), toAxial(b)
	dq := abs(aa.Q - bb.Q)
	dr := abs(aa.R - bb.R)
	ds := abs((-aa.Q - aa.R) - (-bb.Q - bb.R))
	return max(dq, dr, ds)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
