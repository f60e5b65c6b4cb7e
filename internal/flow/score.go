package flow

import (
	"math"
	"slices"

	"github.com/joeycumines/reactree/internal/world"
)

// ScoreContext is the Context of the responding child, plus the identity
// of the node asking.
type ScoreContext struct {
	Context
	Requester world.Entity
}

// ScoreResponse is one child's answer to a score request.
type ScoreResponse struct {
	Requester world.Entity
	Responder world.Entity
	Value     Score
}

// requestScores collects a response from every ScoreProvider of every
// child of requester, in child then action declaration order. The best
// value of each responding child is also stored as its Score attachment.
func (e *Engine) requestScores(requester world.Entity) []ScoreResponse {
	var out []ScoreResponse
	for _, child := range e.world.Children(requester) {
		actions, ok := world.Get[Actions](e.world, child)
		if !ok {
			continue
		}
		sctx := &ScoreContext{Context: Context{engine: e, node: child}, Requester: requester}
		var best Score
		responded := false
		for _, a := range slices.Clone(*actions) {
			p, ok := a.(ScoreProvider)
			if !ok {
				continue
			}
			v := p.Score(sctx)
			out = append(out, ScoreResponse{Requester: requester, Responder: child, Value: v})
			if !responded || v > best {
				best = v
			}
			responded = true
		}
		if responded {
			world.Insert(e.world, child, best)
		}
	}
	return out
}

// Best returns the highest-valued response. Exact ties go to the earliest
// response, which for RequestScores means the first-declared child. NaN
// values never win.
func Best(responses []ScoreResponse) (ScoreResponse, bool) {
	var best ScoreResponse
	found := false
	for _, r := range responses {
		if math.IsNaN(float64(r.Value)) {
			continue
		}
		if !found || r.Value > best.Value {
			best = r
			found = true
		}
	}
	return best, found
}

// ValueOf returns the highest value responder offered, if it responded.
func ValueOf(responses []ScoreResponse, responder world.Entity) (Score, bool) {
	var best Score
	found := false
	for _, r := range responses {
		if r.Responder != responder || math.IsNaN(float64(r.Value)) {
			continue
		}
		if !found || r.Value > best {
			best = r.Value
			found = true
		}
	}
	return best, found
}
