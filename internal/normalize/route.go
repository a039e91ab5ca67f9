package normalize

import "github.com/roach88/fxdispatch/internal/ir"

// Workflow names the routing lane a record travels.
type Workflow string

const (
	// WorkflowOn is the lane for active-effect triggers.
	WorkflowOn Workflow = "on"
	// WorkflowRoll is the lane for roll-driven events.
	WorkflowRoll Workflow = "roll"
)

// WorkflowOf returns the lane for rec.
func WorkflowOf(rec ir.ActionRecord) Workflow {
	if rec.IsActiveEffectTrigger {
		return WorkflowOn
	}
	return WorkflowRoll
}

// Routes reports whether this step of a multi-step resolution should
// dispatch. A single action emits several events (attack, damage, pass) and
// exactly one of them may animate.
//
// With playOnDamage the damage roll animates; items that roll no damage
// animate on their pass event. Without it the attack roll animates, and items
// without an attack animate on any non-damage event. Active-effect triggers
// always route.
func Routes(rec ir.ActionRecord, playOnDamage bool) bool {
	if WorkflowOf(rec) == WorkflowOn {
		return true
	}

	if playOnDamage {
		switch rec.RollPhase {
		case ir.RollPhaseDamage:
			return true
		case ir.RollPhasePass:
			return !rec.HasDamage
		default:
			return false
		}
	}

	switch rec.RollPhase {
	case ir.RollPhaseDamage:
		return false
	case ir.RollPhaseAttack:
		return true
	default:
		return !rec.HasAttack
	}
}
