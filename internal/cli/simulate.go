package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/moa/internal/engine"
	"github.com/roach88/moa/internal/metrics"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Database string
	Metrics  bool
	Steps    []SimulationStep

	// Sessions allows overriding the session token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Sessions engine.SessionGenerator
}

// SimulationStep is one interaction given on the command line.
// Exactly one of Toggle and Range is set.
type SimulationStep struct {
	Toggle   string
	Selected bool
	Range    string
	Low      float64
	High     float64
}

// SimulationResult is the outcome of a simulate run.
type SimulationResult struct {
	Hash     string              `json:"hash"`
	Trace    []engine.TraceEntry `json:"trace"`
	Rejected int                 `json:"rejected"`
	Layout   LayoutView          `json:"layout"`
	Metrics  string              `json:"metrics,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	return newSimulateCommand(&SimulateOptions{RootOptions: rootOpts})
}

func newSimulateCommand(opts *SimulateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <catalog-dir | catalog-ref>",
		Short: "Apply interactions to a catalog and show the result",
		Long: `Start the engine for a catalog, apply toggle and range interactions in the
order given, then print the trace and the final layout.

--toggle takes name=true|false (a bare name selects). --range takes
name=low:high; an empty bound means the end of the filter's full range.
Rejected interactions (e.g. selecting a disabled option) are reported in
the trace and do not stop the run.

Examples:
  moa simulate ./catalogs/car --toggle petrol --range weight=200:400
  moa simulate --db ./moa.db car --toggle diesel=true --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().Var(&toggleFlag{steps: &opts.Steps}, "toggle", "select or deselect an option: name[=true|false] (repeatable)")
	cmd.Flags().Var(&rangeFlag{steps: &opts.Steps}, "range", "set a filter range: name=low:high (repeatable)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics for the run")
	cmd.Flags().StringVar(&opts.Database, "db", "", "read the catalog from this SQLite database")

	return cmd
}

func runSimulate(opts *SimulateOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	loaded, err := loadSource(cmd.Context(), opts.Database, arg)
	if err != nil {
		return commandError(formatter, err)
	}

	m, err := BuildMatrix(loaded, engine.WithBuildLogger(logger))
	if err != nil {
		return commandError(formatter, err)
	}

	var (
		registry *prometheus.Registry
		recorder *metrics.Recorder
	)
	if opts.Metrics {
		registry = prometheus.NewRegistry()
		recorder, err = metrics.NewRecorder(registry, m)
		if err != nil {
			return commandError(formatter, err)
		}
		m.AddObserver(recorder)
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = engine.UUIDv7Generator{}
	}
	eng := engine.New(m, engine.WithLogger(logger), engine.WithSessionGenerator(sessions))

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- eng.Run(ctx)
	}()

	result := &SimulationResult{Hash: loaded.Hash}
	for _, step := range opts.Steps {
		entry, err := applyStep(ctx, eng, step)
		if err != nil && entry.Seq == 0 {
			// The event never reached the loop.
			eng.Stop()
			<-done
			return commandError(formatter, WrapExitError(ExitCommandError, "engine error", err))
		}
		if entry.Error != "" {
			result.Rejected++
		}
		if recorder != nil {
			recorder.ObserveEvent(entry)
		}
	}

	eng.Stop()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return commandError(formatter, WrapExitError(ExitCommandError, "engine error", err))
	}

	// Run has returned, so the matrix is no longer shared.
	result.Trace = eng.Trace()
	result.Layout = NewLayoutView(m.Layout())
	if registry != nil {
		var buf bytes.Buffer
		if err := metrics.WriteText(&buf, registry); err != nil {
			return commandError(formatter, err)
		}
		result.Metrics = buf.String()
	}

	if formatter.Format == "json" {
		return writeSimulationJSON(formatter.Writer, eng.Session(), result)
	}
	return writeSimulationText(formatter.Writer, m, result)
}

func applyStep(ctx context.Context, eng *engine.Engine, step SimulationStep) (engine.TraceEntry, error) {
	if step.Range != "" {
		return eng.SetRange(ctx, step.Range, step.Low, step.High)
	}
	return eng.Toggle(ctx, step.Toggle, step.Selected)
}

func writeSimulationJSON(w io.Writer, session string, result *SimulationResult) error {
	return encodeJSON(w, CLIResponse{Status: "ok", Data: result, Session: session})
}

func writeSimulationText(w io.Writer, m *engine.Matrix, result *SimulationResult) error {
	fmt.Fprintln(w, "Trace")
	if len(result.Trace) == 0 {
		fmt.Fprintln(w, "  (no interactions)")
	}
	for _, e := range result.Trace {
		fmt.Fprintf(w, "  %s\n", FormatTraceEntry(e))
	}
	fmt.Fprintln(w)

	if err := RenderText(w, m.Layout()); err != nil {
		return err
	}

	if result.Metrics != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, result.Metrics)
	}
	return nil
}

// FormatTraceEntry renders one trace entry on a single line, e.g.
//
//	[1] toggle petrol=true changed=[petrol diesel electric]
//	[2] range weight=200:400 changed=[petrol]
//	[3] toggle petrol=true rejected: option is disabled: petrol (1 active reasons)
func FormatTraceEntry(e engine.TraceEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s %s", e.Seq, e.Type, e.Target)
	switch {
	case e.Selected != nil:
		fmt.Fprintf(&b, "=%t", *e.Selected)
	case e.Low != nil && e.High != nil:
		fmt.Fprintf(&b, "=%s:%s", num(*e.Low), num(*e.High))
	}
	if e.Error != "" {
		fmt.Fprintf(&b, " rejected: %s", e.Error)
		return b.String()
	}
	fmt.Fprintf(&b, " changed=[%s]", strings.Join(e.Changed, " "))
	return b.String()
}

// toggleFlag collects --toggle values into the shared step list.
type toggleFlag struct {
	steps *[]SimulationStep
}

func (f *toggleFlag) String() string { return "" }

func (f *toggleFlag) Type() string { return "name[=bool]" }

func (f *toggleFlag) Set(v string) error {
	name, value, hasValue := strings.Cut(v, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%s: missing option name in %q", ErrCodeBadFlag, v)
	}
	selected := true
	if hasValue {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: invalid selection %q for %s: want true or false", ErrCodeBadFlag, value, name)
		}
		selected = b
	}
	*f.steps = append(*f.steps, SimulationStep{Toggle: name, Selected: selected})
	return nil
}

// rangeFlag collects --range values into the shared step list.
type rangeFlag struct {
	steps *[]SimulationStep
}

func (f *rangeFlag) String() string { return "" }

func (f *rangeFlag) Type() string { return "name=low:high" }

func (f *rangeFlag) Set(v string) error {
	name, bounds, ok := strings.Cut(v, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("%s: want name=low:high, got %q", ErrCodeBadFlag, v)
	}
	lowStr, highStr, ok := strings.Cut(bounds, ":")
	if !ok {
		return fmt.Errorf("%s: want name=low:high, got %q", ErrCodeBadFlag, v)
	}
	low, err := parseBound(lowStr)
	if err != nil {
		return fmt.Errorf("%s: invalid low bound for %s: %w", ErrCodeBadFlag, name, err)
	}
	high, err := parseBound(highStr)
	if err != nil {
		return fmt.Errorf("%s: invalid high bound for %s: %w", ErrCodeBadFlag, name, err)
	}
	*f.steps = append(*f.steps, SimulationStep{Range: name, Low: low, High: high})
	return nil
}

// parseBound parses one range bound. An empty bound is NaN, which the
// filter reads as the end of its full range.
func parseBound(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
