package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/fxdispatch/internal/ir"
)

// TraceEvent is one line of a scenario trace.
type TraceEvent struct {
	Step int `json:"step"`

	// Type is "dispatch", "skip", "batch", "placement", "sound", "removal",
	// "unload", "retract" or "advance".
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds every dispatch and renderer call in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(step int, typ, format string, args ...any) {
	r.Trace = append(r.Trace, TraceEvent{Step: step, Type: typ, Detail: fmt.Sprintf(format, args...)})
}

// FormatTrace renders a trace one event per line:
//
//	0 dispatch d-1 success rule=exact_name definition=animation/firebolt
//	0 batch d-1 origin=bolt-1 placements=2
//	0 placement source cast token:hero
func FormatTrace(trace []TraceEvent) string {
	var b strings.Builder
	for _, ev := range trace {
		fmt.Fprintf(&b, "%d %s %s\n", ev.Step, ev.Type, ev.Detail)
	}
	return b.String()
}

// FormatLocation renders a location in trace notation: "token:<id>",
// "miss:<id>", "point:<x>,<y>" or "template:<id>".
func FormatLocation(loc ir.Location) string {
	switch loc.Kind {
	case ir.LocationToken:
		return "token:" + string(loc.Token)
	case ir.LocationMissSpot:
		return "miss:" + string(loc.Token)
	case ir.LocationTemplate:
		return "template:" + loc.Template
	case ir.LocationPoint:
		if loc.Point == nil {
			return "point:?"
		}
		return "point:" + formatFloat(loc.Point.X) + "," + formatFloat(loc.Point.Y)
	default:
		return string(loc.Kind)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatPlacement renders a placement as phase, file and location plus its
// origin point and timing flags.
func FormatPlacement(p *ir.Placement) string {
	s := fmt.Sprintf("%s %s %s", p.Phase, p.File, FormatLocation(p.Location))
	if p.From != nil {
		s += " from=" + FormatLocation(*p.From)
	}
	if p.Persist {
		s += " persist"
	}
	if p.Timing.Mode == ir.TimingWait {
		s += " wait"
	}
	return s
}
