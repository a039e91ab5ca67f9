package geometry

import (
	"math"

	"github.com/roach88/fxdispatch/internal/ir"
)

// Measurer measures the distance between two canvas points in scene units.
type Measurer interface {
	Measure(a, b ir.Point) float64
}

// GridMeasurer measures in whole grid spaces using the grid's diagonal rule.
type GridMeasurer struct {
	Grid ir.Grid
}

// Measure snaps both points to their cells and counts the spaces between
// them, scaled to scene units.
func (m GridMeasurer) Measure(a, b ir.Point) float64 {
	size := m.Grid.Size
	dx := math.Abs(math.Floor(a.X/size) - math.Floor(b.X/size))
	dy := math.Abs(math.Floor(a.Y/size) - math.Floor(b.Y/size))

	var spaces float64
	switch m.Grid.Diagonal {
	case ir.Diagonal5105:
		diagonal := math.Min(dx, dy)
		straight := math.Max(dx, dy) - diagonal
		spaces = straight + diagonal + math.Floor(diagonal/2)
	case ir.DiagonalEuclidean:
		spaces = math.Hypot(dx, dy)
	default:
		spaces = math.Max(dx, dy)
	}
	return spaces * m.Grid.Distance
}

// cellCenter returns the center of the grid cell containing (x, y).
func cellCenter(x, y, size float64) ir.Point {
	return ir.Point{
		X: math.Floor(x/size)*size + size/2,
		Y: math.Floor(y/size)*size + size/2,
	}
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// footprintStart is the offset of the first sampled cell center. Tokens
// smaller than a cell sample their own middle.
func footprintStart(cells float64) float64 {
	if cells >= 1 {
		return 0.5
	}
	return cells / 2
}

// footprintCenters samples one point per occupied cell, snapped to the
// cell center.
func footprintCenters(t ir.Token, size float64) []ir.Point {
	var pts []ir.Point
	for x := footprintStart(t.Width); x < t.Width; x++ {
		for y := footprintStart(t.Height); y < t.Height; y++ {
			pts = append(pts, cellCenter(
				roundHalfUp(t.X+size*x),
				roundHalfUp(t.Y+size*y),
				size,
			))
		}
	}
	return pts
}

// MultiCellDistance is the closest approach between two tokens in grid
// units: the minimum measured distance over every pair of occupied cells,
// divided by the scene distance per cell.
//
// Returns ir.DistanceUnknown when the grid is unusable, the measurer is
// missing, or either footprint is empty.
func MultiCellDistance(src, tgt ir.Token, grid ir.Grid, m Measurer) float64 {
	if !grid.Valid() || m == nil {
		return ir.DistanceUnknown
	}

	from := footprintCenters(src, grid.Size)
	to := footprintCenters(tgt, grid.Size)
	if len(from) == 0 || len(to) == 0 {
		return ir.DistanceUnknown
	}

	best := math.Inf(1)
	for _, a := range from {
		for _, b := range to {
			if d := m.Measure(a, b); d < best {
				best = d
			}
		}
	}
	return best / grid.Distance
}

// EdgeDistance is the edge-to-edge separation of two tokens in grid units.
//
// The measured origin moves to the near edge of the source footprint when
// the target lies right of or below it, and the measured destination moves
// to the near edge of the target footprint when the target lies left of or
// above it. Without a measurer the pixel separation is divided by the cell
// size.
func EdgeDistance(src, tgt ir.Token, grid ir.Grid, m Measurer) float64 {
	if grid.Size <= 0 {
		return ir.DistanceUnknown
	}
	size := grid.Size

	srcW, srcH := src.Width*size, src.Height*size
	tgtW, tgtH := tgt.Width*size, tgt.Height*size

	isLeftOf := src.X+srcW <= tgt.X
	isRightOf := src.X >= tgt.X+tgtW
	isAbove := src.Y+srcH <= tgt.Y
	isBelow := src.Y >= tgt.Y+tgtH

	x1, x2 := src.X, tgt.X
	y1, y2 := src.Y, tgt.Y

	if isLeftOf {
		x1 += (src.Width - 1) * size
	} else if isRightOf {
		x2 += (tgt.Width - 1) * size
	}

	if isAbove {
		y1 += (src.Height - 1) * size
	} else if isBelow {
		y2 += (tgt.Height - 1) * size
	}

	a, b := ir.Point{X: x1, Y: y1}, ir.Point{X: x2, Y: y2}
	if m == nil || grid.Distance <= 0 {
		return math.Hypot(b.X-a.X, b.Y-a.Y) / size
	}
	return m.Measure(a, b) / grid.Distance
}
