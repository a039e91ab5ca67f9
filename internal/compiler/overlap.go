package compiler

import (
	"fmt"

	"github.com/roach88/fxdispatch/internal/ir"
)

// OverlapWarning reports a normalized name that belongs to more than one
// category.
//
// Overlaps are warnings, not errors: the first declared category wins at
// match time. Overlaps between categories with different menus change the
// played behavior and are reported at level "warning"; same-menu overlaps
// are "info".
type OverlapWarning struct {
	Name       string   `json:"name"`       // normalized item name
	Categories []string `json:"categories"` // in declaration order; first wins
	Message    string   `json:"message"`
	Level      string   `json:"level"` // "warning" or "info"
}

// AnalyzeOverlaps reports names claimed by several categories.
//
// A catalog without overlaps returns an empty warning list. Warnings are
// ordered by the first occurrence of the name in declaration order.
func AnalyzeOverlaps(categories []ir.Category) []OverlapWarning {
	if len(categories) == 0 {
		return []OverlapWarning{}
	}

	var order []string
	owners := make(map[string][]int)
	for ci, cat := range categories {
		for _, m := range cat.Members {
			idx := owners[m]
			if len(idx) > 0 && idx[len(idx)-1] == ci {
				continue
			}
			if len(idx) == 0 {
				order = append(order, m)
			}
			owners[m] = append(idx, ci)
		}
	}

	warnings := []OverlapWarning{}
	for _, name := range order {
		idx := owners[name]
		if len(idx) < 2 {
			continue
		}
		warnings = append(warnings, overlapToWarning(name, idx, categories))
	}
	return warnings
}

func overlapToWarning(name string, idx []int, categories []ir.Category) OverlapWarning {
	w := OverlapWarning{Name: name, Level: "info"}
	winner := categories[idx[0]]
	for _, i := range idx {
		w.Categories = append(w.Categories, categories[i].Name)
		if categories[i].Menu != winner.Menu {
			w.Level = "warning"
		}
	}
	if w.Level == "warning" {
		w.Message = fmt.Sprintf("%q is in categories %v with different menus; %q (%s) wins",
			name, w.Categories, winner.Name, winner.Menu)
	} else {
		w.Message = fmt.Sprintf("%q is in categories %v; %q wins", name, w.Categories, winner.Name)
	}
	return w
}
