// Package pabt plans with go-pabt (Planning and Acting with Behavior
// Trees) over an agent's blackboard.
//
// A State exposes blackboard entries as planner variables and supplies the
// actions whose effects can satisfy a failed condition. The Plan action
// ties this into the flow engine:
//
//	plan := &pabt.Plan{
//		Goal: []pabt.Requirement{{Key: "door", Value: "open"}},
//		Steps: []pabt.Step{
//			{Name: "fetch_key", Effects: []pabt.Assignment{{Key: "has_key", Value: true}}, Ticks: 2},
//			{Name: "open", Conditions: []pabt.Requirement{{Key: "has_key", Value: true}},
//				Effects: []pabt.Assignment{{Key: "door", Value: "open"}}},
//		},
//	}
//
// Steps are declarative and serializable. Go callers can add arbitrary
// Actions, or a Generator for parametric ones.
package pabt
