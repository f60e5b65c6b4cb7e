package command

import (
	"flag"
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/joeycumines/reactree/internal/builtin"
	"github.com/joeycumines/reactree/internal/flow"
)

// KindsCommand lists the action kinds a tree definition may use.
type KindsCommand struct {
	*BaseCommand
	registry *flow.Registry
}

// NewKindsCommand creates a kinds command over reg. A nil reg lists the
// builtin kinds.
func NewKindsCommand(reg *flow.Registry) *KindsCommand {
	if reg == nil {
		reg = builtin.NewRegistry(builtin.Options{})
	}
	return &KindsCommand{
		BaseCommand: NewBaseCommand(
			"kinds",
			"List the action kinds and their parameters",
			"kinds",
		),
		registry: reg,
	}
}

func (c *KindsCommand) SetupFlags(*flag.FlagSet) {}

func (c *KindsCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tPARAMETERS")
	for _, kind := range c.registry.Kinds() {
		action, err := c.registry.New(kind)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", kind, strings.Join(Params(action), ", "))
	}
	return w.Flush()
}

// Params returns the yaml keys an action decodes, in field order.
func Params(action flow.Action) []string {
	t := reflect.TypeOf(action)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var params []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag, ok := field.Tag.Lookup("yaml")
		name, _, _ := strings.Cut(tag, ",")
		switch {
		case name == "-":
			continue
		case !ok || name == "":
			name = strings.ToLower(field.Name)
		}
		params = append(params, name)
	}
	return params
}
