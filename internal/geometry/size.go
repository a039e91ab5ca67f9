package geometry

import (
	"github.com/roach88/fxdispatch/internal/ir"
)

// Size returns the rendered size of a layer, in grid cells, placed on a
// token footprintWidth cells wide.
//
// Radius layers are 2×size across, plus the footprint when AddTokenWidth is
// set; other layers scale with the footprint at 1.5×size. The constants are
// calibrated against the asset library.
func Size(l *ir.LayerSpec, footprintWidth float64) float64 {
	if l.Radius {
		if l.AddTokenWidth {
			return l.Size*2 + footprintWidth
		}
		return l.Size * 2
	}
	return footprintWidth * 1.5 * l.Size
}

// Elevation returns the render elevation: the level itself when pinned,
// otherwise one band below it.
func Elevation(absolute bool, level float64) float64 {
	if absolute {
		return level
	}
	return level - 1
}
