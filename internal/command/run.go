package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joeycumines/reactree/internal/builtin"
	"github.com/joeycumines/reactree/internal/builtin/exprscore"
	"github.com/joeycumines/reactree/internal/builtin/script"
	"github.com/joeycumines/reactree/internal/config"
	"github.com/joeycumines/reactree/internal/flow"
	"github.com/joeycumines/reactree/internal/metrics"
	"github.com/joeycumines/reactree/internal/storage"
	"github.com/joeycumines/reactree/internal/termui"
	"github.com/joeycumines/reactree/internal/treedef"
	"github.com/joeycumines/reactree/internal/world"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// RunCommand loads a tree definition, spawns it on one or more agents and
// ticks the engine until every root concludes.
type RunCommand struct {
	*BaseCommand
	config *config.Config

	agents      int
	interval    time.Duration
	maxTicks    int
	view        bool
	color       string
	metricsAddr string
	export      string
	fast        bool
	log         logFlags
}

// NewRunCommand creates a run command. Flags left unset fall back to cfg.
func NewRunCommand(cfg *config.Config) *RunCommand {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &RunCommand{
		BaseCommand: NewBaseCommand(
			"run",
			"Run a tree definition",
			"run [options] <file.yaml>",
		),
		config:   cfg,
		maxTicks: -1,
	}
}

func (c *RunCommand) SetupFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.agents, "agents", 0, "Number of agents to spawn the tree on (default from config, 1)")
	fs.DurationVar(&c.interval, "interval", 0, "Tick interval (default from config, 100ms)")
	fs.IntVar(&c.maxTicks, "max-ticks", -1, "Stop after this many ticks, 0 for no limit (default from config)")
	fs.BoolVar(&c.view, "view", false, "Print the tree of every agent after each tick")
	fs.StringVar(&c.color, "color", "", "Colour output: auto, always or never")
	fs.StringVar(&c.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&c.export, "export", "", "Write the final tree of the first agent to this file")
	fs.BoolVar(&c.fast, "fast", false, "Tick without waiting for the interval")
	fs.StringVar(&c.log.file, "log-file", "", "Write logs to this file")
	fs.StringVar(&c.log.level, "log-level", "", "Log level: debug, info, warn or error")
	fs.StringVar(&c.log.format, "log-format", "", "Log format: text or json")
}

// runSettings is the effective configuration of one run.
type runSettings struct {
	agents        int
	interval      time.Duration
	maxTicks      int
	view          bool
	color         string
	metricsAddr   string
	export        string
	scriptTimeout time.Duration
	exprCacheSize int
}

func (c *RunCommand) settings() (runSettings, error) {
	schema := config.DefaultSchema()
	global := func(key string) string { return schema.Resolve(c.config, key) }
	section := func(key string) string { return schema.ResolveCommand(c.config, config.SectionRun, key) }

	s := runSettings{
		agents:      c.agents,
		interval:    c.interval,
		maxTicks:    c.maxTicks,
		view:        c.view,
		color:       c.color,
		metricsAddr: c.metricsAddr,
		export:      c.export,
	}
	var errs []error
	atoi := func(key, v string) int {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return n
	}
	duration := func(key, v string) time.Duration {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}

	if s.agents <= 0 {
		s.agents = atoi(config.KeyAgents, section(config.KeyAgents))
	}
	if s.interval <= 0 {
		s.interval = duration(config.KeyTickInterval, global(config.KeyTickInterval))
	}
	if s.maxTicks < 0 {
		s.maxTicks = atoi(config.KeyTickMax, global(config.KeyTickMax))
	}
	if !s.view {
		if v := section(config.KeyView); v != "" {
			b, err := config.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", config.KeyView, err))
			}
			s.view = b
		}
	}
	if s.color == "" {
		s.color = global(config.KeyColor)
	}
	if s.metricsAddr == "" {
		s.metricsAddr = global(config.KeyMetricsAddr)
	}
	if s.export == "" {
		s.export = section(config.KeyExportTo)
	}
	s.scriptTimeout = duration(config.KeyScriptTimeout, global(config.KeyScriptTimeout))
	s.exprCacheSize = atoi(config.KeyExprCacheSize, global(config.KeyExprCacheSize))

	if s.agents < 1 {
		errs = append(errs, fmt.Errorf("agents must be at least 1, got %d", s.agents))
	}
	if s.interval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %s", s.interval))
	}
	if s.maxTicks < 0 {
		errs = append(errs, fmt.Errorf("max ticks must not be negative, got %d", s.maxTicks))
	}
	if opt := schema.Lookup("", config.KeyColor); opt != nil {
		if err := opt.Check(s.color); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", config.KeyColor, err))
		}
	}
	return s, errors.Join(errs...)
}

func (c *RunCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintln(stderr, "run takes exactly one definition file")
		return errors.New("run takes exactly one definition file")
	}
	s, err := c.settings()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Invalid settings: %v\n", err)
		return err
	}

	lc, err := resolveLogConfig(c.log, c.config, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return err
	}
	defer lc.Close()
	logger := lc.logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := script.NewRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.SetTimeout(s.scriptTimeout)
	exprscore.SetCacheSize(s.exprCacheSize)

	reg := builtin.NewRegistry(builtin.Options{Runtime: rt})
	def, err := treedef.LoadFile(args[0])
	if err == nil {
		err = treedef.Validate(def, reg)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
		return err
	}

	rec := metrics.NewRecorder()
	if s.metricsAddr != "" {
		shutdown, err := serveMetrics(s.metricsAddr, rec, logger, stdout)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	e := flow.New(world.New(),
		flow.WithLogger(logger),
		flow.WithRecorder(rec),
		flow.WithRegistry(reg),
	)
	r := &run{engine: e, logger: logger}
	for i := range s.agents {
		if err := r.spawn(def, fmt.Sprintf("agent-%d", i)); err != nil {
			return err
		}
	}
	logger.Info("running tree", "file", args[0], "name", def.Name, "agents", s.agents)

	renderOpts := termui.Options{Timers: true}
	if s.view {
		renderOpts = renderOptions(newRenderer(stdout, s.color))
	}

	for _, root := range r.roots {
		e.TriggerRun(root)
	}
	r.collect()

	var ticker *time.Ticker
	if !c.fast {
		ticker = time.NewTicker(s.interval)
		defer ticker.Stop()
	}
	for r.pending() > 0 && (s.maxTicks == 0 || e.TickCount() < uint64(s.maxTicks)) && ctx.Err() == nil {
		if ticker != nil {
			select {
			case <-ctx.Done():
				continue
			case <-ticker.C:
			}
		}
		e.Tick(s.interval)
		r.collect()
		if s.view {
			r.render(stdout, renderOpts)
		}
	}

	r.summarize(stdout)

	if s.export != "" {
		if err := r.exportTo(s.export, def.Name); err != nil {
			_, _ = fmt.Fprintf(stderr, "Export failed: %v\n", err)
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Exported %s to %s\n", r.names[0], s.export)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	if failed := r.failed(); failed > 0 {
		return fmt.Errorf("%d of %d agents failed", failed, len(r.roots))
	}
	return nil
}

// run tracks the roots of one invocation.
type run struct {
	engine   *flow.Engine
	logger   *slog.Logger
	roots    []world.Entity
	names    []string
	outcomes []*flow.Outcome
}

func (r *run) spawn(def *treedef.Definition, name string) error {
	w := r.engine.World()
	agent := w.Spawn()
	world.Insert(w, agent, world.Name(name))
	root, err := treedef.Spawn(r.engine, def, agent)
	if err != nil {
		return fmt.Errorf("spawn %s: %w", name, err)
	}
	r.roots = append(r.roots, root)
	r.names = append(r.names, name)
	r.outcomes = append(r.outcomes, nil)
	return nil
}

// collect records roots that concluded since the last call. Results last a
// single tick, so it runs after every step.
func (r *run) collect() {
	for i, root := range r.roots {
		if r.outcomes[i] != nil || r.engine.IsRunning(root) {
			continue
		}
		if outcome, ok := r.engine.Result(root); ok {
			r.outcomes[i] = &outcome
			r.logger.Info("agent concluded", "agent", r.names[i], "outcome", outcome, "tick", r.engine.TickCount())
		}
	}
}

func (r *run) pending() (n int) {
	for _, o := range r.outcomes {
		if o == nil {
			n++
		}
	}
	return n
}

func (r *run) failed() (n int) {
	for _, o := range r.outcomes {
		if o != nil && *o == flow.Failure {
			n++
		}
	}
	return n
}

func (r *run) render(w io.Writer, opts termui.Options) {
	_, _ = fmt.Fprintf(w, "tick %d (%s)\n", r.engine.TickCount(), r.engine.Now())
	for i, root := range r.roots {
		_, _ = fmt.Fprintf(w, "%s\n%s\n", r.names[i], termui.RenderTree(r.engine, root, opts))
	}
}

func (r *run) summarize(w io.Writer) {
	for i, o := range r.outcomes {
		state := termui.StateRunning
		if o != nil {
			state = o.String()
		}
		_, _ = fmt.Fprintf(w, "%s: %s\n", r.names[i], state)
	}
	_, _ = fmt.Fprintf(w, "ticks: %d, elapsed: %s\n", r.engine.TickCount(), r.engine.Now())
}

func (r *run) exportTo(path, name string) error {
	def, err := treedef.Export(r.engine, r.roots[0])
	if err != nil {
		return err
	}
	def.Name = name
	data, err := treedef.Marshal(def)
	if err != nil {
		return err
	}
	return storage.AtomicWriteFile(path, data, 0o644)
}

// newRenderer returns a renderer on w honouring mode: never is plain text,
// always forces 256 colours, and auto colours only terminals.
func newRenderer(w io.Writer, mode string) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	switch mode {
	case "never":
		r.SetColorProfile(termenv.Ascii)
	case "always":
		r.SetColorProfile(termenv.ANSI256)
	default:
		if f, ok := w.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
			r.SetColorProfile(termenv.Ascii)
		}
	}
	return r
}

func renderOptions(r *lipgloss.Renderer) termui.Options {
	return termui.Options{
		Styles: termui.NewStyles(r),
		Gauge: termui.NewGauge(termui.WithStyles(
			r.NewStyle().Foreground(lipgloss.Color("42")),
			r.NewStyle().Foreground(lipgloss.Color("240")),
		)),
		Timers: true,
	}
}

// serveMetrics exposes rec on addr until the returned function is called.
func serveMetrics(addr string, rec *metrics.Recorder, logger *slog.Logger, stdout io.Writer) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	_, _ = fmt.Fprintf(stdout, "Serving metrics on http://%s/metrics\n", ln.Addr())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
