// Package treedef reads and writes YAML tree definitions and instantiates
// them on a flow engine.
//
//	name: forager
//	blackboard:
//	  hunger: 0.2
//	root:
//	  name: root
//	  actions:
//	    - kind: score
//	  children:
//	    - name: eat
//	      actions:
//	        - kind: expr_score
//	          expression: hunger
//	        - kind: succeed_after
//	          duration: 2s
//	    - name: wander
//	      actions:
//	        - kind: constant_score
//	          value: 0.3
//	        - kind: idle
//
// Each action is a mapping whose kind selects a registered factory; the
// remaining keys are decoded into the constructed action.
package treedef

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid tree definition")

// Definition is a complete tree: its root node and the initial blackboard of
// every agent it is spawned on.
type Definition struct {
	ID         string         `yaml:"id,omitempty"`
	Name       string         `yaml:"name,omitempty"`
	Blackboard map[string]any `yaml:"blackboard,omitempty"`
	Root       NodeDef        `yaml:"root"`
}

// NodeDef is one node: its actions in declaration order and its children.
type NodeDef struct {
	ID          string      `yaml:"id,omitempty"`
	Name        string      `yaml:"name,omitempty"`
	NoInterrupt bool        `yaml:"no_interrupt,omitempty"`
	Actions     []ActionDef `yaml:"actions"`
	Children    []NodeDef   `yaml:"children,omitempty"`
}

// ActionDef is an undecoded action: its kind and the mapping holding its
// parameters.
type ActionDef struct {
	Kind   string
	Params yaml.Node
}

func (a *ActionDef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: action must be a mapping", value.Line)
	}
	var head struct {
		Kind string `yaml:"kind"`
	}
	if err := value.Decode(&head); err != nil {
		return err
	}
	if head.Kind == "" {
		return fmt.Errorf("line %d: action has no kind", value.Line)
	}
	a.Kind, a.Params = head.Kind, *value
	return nil
}

func (a ActionDef) MarshalYAML() (any, error) {
	if a.Params.Kind != yaml.MappingNode {
		return map[string]string{"kind": a.Kind}, nil
	}
	return &a.Params, nil
}

// Parse decodes a definition. It does not validate it.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parse tree definition: %w", err)
	}
	return &def, nil
}

// LoadFile reads and parses the definition at path.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Marshal encodes def as YAML.
func Marshal(def *Definition) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(def); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Walk calls fn for n and every descendant in depth-first order, with the
// slash-separated path of each node.
func (n *NodeDef) Walk(fn func(path string, n *NodeDef)) {
	n.walk(n.label(0), fn)
}

func (n *NodeDef) walk(path string, fn func(string, *NodeDef)) {
	fn(path, n)
	for i := range n.Children {
		c := &n.Children[i]
		c.walk(path+"/"+c.label(i), fn)
	}
}

func (n *NodeDef) label(i int) string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("#%d", i)
}
