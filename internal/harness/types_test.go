package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/fxdispatch/internal/ir"
)

func TestFormatLocation(t *testing.T) {
	tests := []struct {
		loc  ir.Location
		want string
	}{
		{ir.Location{Kind: ir.LocationToken, Token: "orc"}, "token:orc"},
		{ir.Location{Kind: ir.LocationMissSpot, Token: "orc"}, "miss:orc"},
		{ir.Location{Kind: ir.LocationTemplate, Template: "tpl-1"}, "template:tpl-1"},
		{ir.Location{Kind: ir.LocationPoint, Point: &ir.Point{X: 50, Y: 12.5}}, "point:50,12.5"},
		{ir.Location{Kind: ir.LocationPoint}, "point:?"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatLocation(tt.loc))
		})
	}
}

func TestFormatTrace(t *testing.T) {
	r := NewResult()
	r.add(0, "dispatch", "d-1 success")
	r.add(1, "advance", "%s fired=%d", "1s", 0)

	assert.Equal(t, "0 dispatch d-1 success\n1 advance 1s fired=0\n", FormatTrace(r.Trace))
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
