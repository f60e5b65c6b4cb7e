package treedef

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"
	btmod "github.com/joeycumines/reactree/internal/builtin/bt"
	"github.com/joeycumines/reactree/internal/flow"
	"github.com/joeycumines/reactree/internal/world"
	"gopkg.in/yaml.v3"
)

// NodeID is the definition id of a spawned node.
type NodeID uuid.UUID

func (id NodeID) String() string { return uuid.UUID(id).String() }

// Build constructs the action a describes. Parameters the action does not
// declare are rejected.
func (a ActionDef) Build(reg *flow.Registry) (flow.Action, error) {
	action, err := reg.New(a.Kind)
	if err != nil {
		return nil, err
	}
	params := a.Params
	params.Content = nil
	for i := 0; i+1 < len(a.Params.Content); i += 2 {
		if a.Params.Content[i].Value == "kind" {
			continue
		}
		params.Content = append(params.Content, a.Params.Content[i], a.Params.Content[i+1])
	}
	if params.Kind != yaml.MappingNode {
		params = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	data, err := yaml.Marshal(&params)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(action); err != nil {
		return nil, fmt.Errorf("%s: %w", a.Kind, err)
	}
	if v, ok := action.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", a.Kind, err)
		}
	}
	return action, nil
}

// Validate checks def against reg: ids are well-formed and unique, every
// node has at least one action, and every action builds.
func Validate(def *Definition, reg *flow.Registry) error {
	var errs []error
	fail := func(path string, err error) {
		errs = append(errs, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err))
	}
	if def.ID != "" {
		if _, err := uuid.Parse(def.ID); err != nil {
			fail("id", err)
		}
	}
	ids := make(map[uuid.UUID]string)
	def.Root.Walk(func(path string, n *NodeDef) {
		if n.ID != "" {
			id, err := uuid.Parse(n.ID)
			if err != nil {
				fail(path, err)
			} else if other, dup := ids[id]; dup {
				fail(path, fmt.Errorf("id %s already used by %s", id, other))
			} else {
				ids[id] = path
			}
		}
		if len(n.Actions) == 0 {
			fail(path, errors.New("node has no actions"))
		}
		for i, a := range n.Actions {
			if _, err := a.Build(reg); err != nil {
				fail(fmt.Sprintf("%s: action %d", path, i), err)
			}
		}
	})
	return errors.Join(errs...)
}

// Spawn validates def, then instantiates it under agent: the root node
// becomes a child of agent, every node targets agent, and agent gets a
// blackboard seeded from def. It returns the root node.
func Spawn(e *flow.Engine, def *Definition, agent world.Entity) (world.Entity, error) {
	w := e.World()
	if !w.Alive(agent) {
		return world.Nil, fmt.Errorf("spawn on %s: %w", agent, world.ErrDead)
	}
	if err := Validate(def, e.Registry()); err != nil {
		return world.Nil, err
	}
	root, err := spawnNode(e, agent, &def.Root)
	if err != nil {
		return world.Nil, err
	}
	bb := btmod.Attach(w, agent)
	for k, v := range def.Blackboard {
		bb.Set(k, v)
	}
	e.AttachTree(root)
	return root, nil
}

func spawnNode(e *flow.Engine, parent world.Entity, n *NodeDef) (world.Entity, error) {
	actions := make([]flow.Action, 0, len(n.Actions))
	for _, a := range n.Actions {
		action, err := a.Build(e.Registry())
		if err != nil {
			return world.Nil, err
		}
		actions = append(actions, action)
	}
	node := e.Spawn(parent, actions...)
	w := e.World()
	world.Insert(w, node, flow.TargetRoot{})
	if n.Name != "" {
		world.Insert(w, node, world.Name(n.Name))
	}
	if n.NoInterrupt {
		world.Insert(w, node, flow.NoInterrupt{})
	}
	id := uuid.New()
	if n.ID != "" {
		id = uuid.MustParse(n.ID)
	}
	world.Insert(w, node, NodeID(id))
	for i := range n.Children {
		if _, err := spawnNode(e, node, &n.Children[i]); err != nil {
			w.Despawn(node)
			return world.Nil, err
		}
	}
	return node, nil
}

// Export reconstructs the definition of the live tree at root, including
// the current blackboard of its agent. Nodes spawned without a NodeID get a
// fresh one.
func Export(e *flow.Engine, root world.Entity) (*Definition, error) {
	w := e.World()
	if !w.Alive(root) {
		return nil, fmt.Errorf("export %s: %w", root, world.ErrDead)
	}
	n, err := exportNode(w, root)
	if err != nil {
		return nil, err
	}
	def := &Definition{Root: *n}
	if agent, ok := e.ResolveTarget(root); ok {
		if bb, ok := btmod.Lookup(w, agent); ok {
			def.Blackboard = bb.Snapshot()
		}
	}
	return def, nil
}

func exportNode(w *world.World, node world.Entity) (*NodeDef, error) {
	n := &NodeDef{NoInterrupt: world.Has[flow.NoInterrupt](w, node)}
	if name, ok := world.Get[world.Name](w, node); ok {
		n.Name = string(*name)
	}
	if id, ok := world.Get[NodeID](w, node); ok {
		n.ID = id.String()
	} else {
		n.ID = uuid.NewString()
	}
	if actions, ok := world.Get[flow.Actions](w, node); ok {
		for _, a := range *actions {
			def, err := exportAction(a)
			if err != nil {
				return nil, fmt.Errorf("export %s: %w", node, err)
			}
			n.Actions = append(n.Actions, def)
		}
	}
	for _, child := range w.Children(node) {
		c, err := exportNode(w, child)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, *c)
	}
	return n, nil
}

func exportAction(a flow.Action) (ActionDef, error) {
	var params yaml.Node
	if err := params.Encode(a); err != nil {
		return ActionDef{}, fmt.Errorf("%s: %w", a.Kind(), err)
	}
	if params.Kind != yaml.MappingNode {
		return ActionDef{}, fmt.Errorf("%s: encodes as a %v, want a mapping", a.Kind(), params.Kind)
	}
	params.Style = 0
	kind := []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "kind"},
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: a.Kind()},
	}
	params.Content = append(kind, params.Content...)
	return ActionDef{Kind: a.Kind(), Params: params}, nil
}
