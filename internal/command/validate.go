package command

import (
	"flag"
	"fmt"
	"io"

	"github.com/joeycumines/reactree/internal/builtin"
	"github.com/joeycumines/reactree/internal/flow"
	"github.com/joeycumines/reactree/internal/treedef"
)

// ValidateCommand checks tree definition files without running them.
type ValidateCommand struct {
	*BaseCommand
	registry *flow.Registry
	quiet    bool
}

// NewValidateCommand creates a validate command over reg. A nil reg uses
// the builtin kinds.
func NewValidateCommand(reg *flow.Registry) *ValidateCommand {
	if reg == nil {
		reg = builtin.NewRegistry(builtin.Options{})
	}
	return &ValidateCommand{
		BaseCommand: NewBaseCommand(
			"validate",
			"Check tree definition files",
			"validate [options] <file.yaml>...",
		),
		registry: reg,
	}
}

func (c *ValidateCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.quiet, "quiet", false, "Only report invalid files")
}

func (c *ValidateCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "no definition files given")
		return fmt.Errorf("no definition files given")
	}
	var invalid int
	for _, path := range args {
		def, err := treedef.LoadFile(path)
		if err == nil {
			err = treedef.Validate(def, c.registry)
		}
		if err != nil {
			invalid++
			_, _ = fmt.Fprintf(stderr, "%s: %v\n", path, err)
			continue
		}
		if !c.quiet {
			_, _ = fmt.Fprintf(stdout, "%s: ok\n", path)
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d definitions invalid", invalid, len(args))
	}
	return nil
}
