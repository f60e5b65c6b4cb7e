/*
Package flow is the control-flow runtime for reactive behaviour trees.

# Model

A tree is a set of world entities joined by parent/child edges. A node is
any entity carrying an Actions attachment; the engine never looks inside an
Action, it only invokes the capability interfaces the Action implements:

  - RunHandler: what "start" means for the node
  - ResultHandler: how a composite reacts when one of its children concludes
  - TickHandler: polled once per tick while the node is Running
  - ScoreProvider: utility value offered to a score-based parent
  - StopHandler: cleanup when Running is removed from the node

Control-flow state lives beside the actions as ordinary attachments:
Running, RunResult, Score, RunTimer and TargetAgent.

# Run / Result

Engine.TriggerRun marks a node Running and invokes its run handlers.
Engine.TriggerResult attaches a RunResult to the node and hands the outcome
to the parent's result handlers. When the parent has none, or is not
Running, the default reaction interrupts the node: Running is cleared from
the node and every Running descendant, skipping subtrees marked
NoInterrupt.

Both triggers are synchronous and depth-first. Every reaction they cause
runs to completion before the trigger returns, and structural mutations
queued on world.Commands during that cascade are flushed once, after the
outermost trigger settles. Triggering against a node without Actions is a
programmer error and panics.

# Ticks

Engine.Tick advances the engine clock and runs three phases, each fully
settled before the next:

 1. RunResults produced on the previous tick are removed.
 2. Completions posted from other goroutines (Engine.Post, Context.Completer)
    are turned into results. Completions for nodes that were interrupted or
    restarted since are dropped.
 3. Tick handlers of Running nodes are polled in entity order.

Engine.Post is the only method that may be called from another goroutine.

# Selectors

Sequence, Fallback and ScoreSelector keep at most one child Running and
always interrupt the previous active child before advancing, switching or
concluding. ScoreSelector picks the child with the highest Score, breaking
exact ties by declaration order.

# Synchronous and asynchronous actions

Return concludes inside its run handler. SucceedAfter, Repeat and anything
built on Context.Completer conclude on a later tick. Idle never concludes.
*/
package flow
