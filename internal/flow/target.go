package flow

import "github.com/joeycumines/reactree/internal/world"

// ResolveTarget returns the agent entity node acts on: an explicit
// TargetAgent, or for a TargetRoot node the root of its tree. The root
// lookup happens once; the answer replaces the marker as a TargetAgent.
func (e *Engine) ResolveTarget(node world.Entity) (world.Entity, bool) {
	if t, ok := world.Get[TargetAgent](e.world, node); ok {
		return t.Entity, true
	}
	if !world.Has[TargetRoot](e.world, node) {
		return world.Nil, false
	}
	root := e.world.Root(node)
	world.Insert(e.world, node, TargetAgent{Entity: root})
	world.Remove[TargetRoot](e.world, node)
	return root, true
}

// AttachTree resolves the target of root and every descendant, so that
// TargetRoot markers become TargetAgent attachments before the tree first
// runs. Call it after the tree has been parented under its agent.
func (e *Engine) AttachTree(root world.Entity) {
	e.ResolveTarget(root)
	for node := range e.world.Descendants(root) {
		e.ResolveTarget(node)
	}
}
