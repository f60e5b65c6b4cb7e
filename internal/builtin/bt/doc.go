// Package bt adapts go-behaviortree nodes and an agent blackboard to the
// flow engine.
//
// A Leaf wraps a bt.Node as a polled action: the node is ticked when its
// entity starts running and on every engine tick after, and the run
// concludes once the node reports Success or Failure.
//
// A Blackboard is attached to an agent entity as a *Blackboard component.
// Actions reach it through their node's target agent with Of. SetValue and
// Check are the blackboard's built-in actions.
package bt
