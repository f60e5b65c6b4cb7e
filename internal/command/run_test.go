package command

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/reactree/internal/config"
	"github.com/joeycumines/reactree/internal/treedef"
)

const sequenceTree = `
name: checker
root:
  name: root
  actions:
    - kind: sequence
  children:
    - name: set
      actions:
        - kind: set_value
          key: done
          value: true
    - name: check
      actions:
        - kind: check
          key: done
          value: true
`

func TestRunCommand_Success(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "tree.yaml", sequenceTree)

	stdout, _, err := execute(t, NewRunCommand(nil), "-fast", "-agents", "2", path)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, part := range []string{"agent-0: success", "agent-1: success", "ticks: 0"} {
		if !strings.Contains(stdout, part) {
			t.Errorf("expected output to contain %q, got:\n%s", part, stdout)
		}
	}
}

func TestRunCommand_TicksUntilDone(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "tree.yaml", `
root:
  name: wait
  actions:
    - kind: succeed_after
      duration: 300ms
`)

	stdout, _, err := execute(t, NewRunCommand(nil), "-fast", "-interval", "100ms", "-view", "-color", "never", path)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, part := range []string{"tick 1 (100ms)", "wait [succeed_after]", "agent-0: success"} {
		if !strings.Contains(stdout, part) {
			t.Errorf("expected output to contain %q, got:\n%s", part, stdout)
		}
	}
	if strings.Contains(stdout, "\x1b[") {
		t.Errorf("expected no escape codes with -color never, got %q", stdout)
	}
}

func TestRunCommand_Failure(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "tree.yaml", `
root:
  actions:
    - kind: return
      outcome: failure
`)

	stdout, _, err := execute(t, NewRunCommand(nil), "-fast", "-agents", "3", path)
	if err == nil || err.Error() != "3 of 3 agents failed" {
		t.Fatalf("expected 3 of 3 agents failed, got %v", err)
	}
	if !strings.Contains(stdout, "agent-2: failure") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestRunCommand_MaxTicksFromConfig(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "tree.yaml", `
root:
  actions:
    - kind: idle
`)
	cfg := config.NewConfig()
	cfg.SetGlobalOption("tick.max", "2")

	stdout, _, err := execute(t, NewRunCommand(cfg), "-fast", path)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, part := range []string{"agent-0: running", "ticks: 2"} {
		if !strings.Contains(stdout, part) {
			t.Errorf("expected output to contain %q, got:\n%s", part, stdout)
		}
	}
}

func TestRunCommand_ReportsEveryInvalidSetting(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "tree.yaml", sequenceTree)
	cfg := config.NewConfig()
	cfg.SetCommandOption(config.SectionRun, config.KeyAgents, "0")
	cfg.SetGlobalOption(config.KeyTickInterval, "-1s")
	cfg.SetGlobalOption(config.KeyTickMax, "-1")

	_, stderr, err := execute(t, NewRunCommand(cfg), "-fast", path)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, part := range []string{
		"agents must be at least 1, got 0",
		"tick interval must be positive, got -1s",
		"max ticks must not be negative, got -1",
	} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("expected error to contain %q, got: %v", part, err)
		}
		if !strings.Contains(stderr, part) {
			t.Errorf("expected stderr to contain %q, got:\n%s", part, stderr)
		}
	}
}

func TestRunCommand_Export(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "tree.yaml", sequenceTree)
	out := filepath.Join(t.TempDir(), "out", "final.yaml")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := execute(t, NewRunCommand(nil), "-fast", "-export", out, path)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stdout, "Exported agent-0 to "+out) {
		t.Errorf("unexpected output:\n%s", stdout)
	}

	def, err := treedef.LoadFile(out)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if def.Name != "checker" {
		t.Errorf("expected name checker, got %q", def.Name)
	}
	if def.Blackboard["done"] != true {
		t.Errorf("expected exported blackboard done=true, got %v", def.Blackboard)
	}
	if len(def.Root.Children) != 2 || def.Root.Children[1].Name != "check" {
		t.Errorf("unexpected exported tree %+v", def.Root)
	}
}

func TestRunCommand_Metrics(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "tree.yaml", sequenceTree)

	stdout, _, err := execute(t, NewRunCommand(nil), "-fast", "-metrics-addr", "127.0.0.1:0", path)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stdout, "Serving metrics on http://127.0.0.1:") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestRunCommand_Script(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "tree.yaml", `
blackboard:
  count: 0
root:
  actions:
    - kind: script
      source: |
        function tick(ctx) {
          var n = ctx.blackboard.get("count") + 1;
          ctx.blackboard.set("count", n);
          return n >= 3 ? status.success : status.running;
        }
`)

	stdout, _, err := execute(t, NewRunCommand(nil), "-fast", path)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stdout, "agent-0: success") || !strings.Contains(stdout, "ticks: 3") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestRunCommand_Errors(t *testing.T) {
	t.Parallel()
	good := writeFile(t, "good.yaml", sequenceTree)
	bad := writeFile(t, "bad.yaml", `
root:
  actions: []
`)

	for _, tt := range []struct {
		name string
		args []string
	}{
		{"no file", nil},
		{"two files", []string{good, good}},
		{"missing file", []string{filepath.Join(t.TempDir(), "missing.yaml")}},
		{"invalid definition", []string{bad}},
		{"bad colour", []string{"-color", "sometimes", good}},
		{"bad log level", []string{"-log-level", "loud", good}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := execute(t, NewRunCommand(nil), append([]string{"-fast"}, tt.args...)...); err == nil {
				t.Error("expected error")
			}
		})
	}
}
