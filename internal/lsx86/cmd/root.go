package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"lsx86/internal/analysis"
	"lsx86/internal/elfx"
	"lsx86/internal/lsx86/log"
	"lsx86/internal/report"
	"lsx86/internal/ui/colorize"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsx86 [flags] BINARY",
		Short: "Print the x86 instruction set extensions used by a binary",
		Long: `lsx86 decodes the executable code of an x86 or x86-64 ELF binary and reports
which instruction set extensions (SSE, AVX, AVX-512, BMI, ...) it actually uses,
either for the whole binary or per function symbol.`,
		Example: `
# Table of extensions and opcodes used by a binary
lsx86 /usr/bin/ffmpeg

# Which functions use AVX-512, with demangled names
lsx86 -g -d -F 'avx512*' ./libfoo.so

# Per-symbol JSON for functions in a namespace
lsx86 -j -D 'foo::*' ./libfoo.so
  `,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			log.Setup(debug)
		},
		RunE: runReport,
	}

	cmd.PersistentFlags().Bool("debug", false, "Debug")
	cmd.PersistentFlags().IntP("workers", "w", 0, "Symbol ranges decoded in parallel (default: number of CPUs)")

	cmd.Flags().BoolP("list", "l", false, "Print output as list")
	cmd.Flags().BoolP("table", "t", false, "Print output as table (default)")
	cmd.Flags().BoolP("json", "j", false, "Print output as JSON")
	cmd.Flags().BoolP("markdown", "m", false, "Print output as markdown")
	cmd.MarkFlagsMutuallyExclusive("list", "table", "json", "markdown")

	cmd.Flags().BoolP("show-symbol", "s", false, "Include raw symbol names in output")
	cmd.Flags().BoolP("show-demangled", "d", false, "Include demangled symbol names in output")
	cmd.MarkFlagsMutuallyExclusive("show-symbol", "show-demangled")
	cmd.Flags().BoolP("group-by-feature", "g", false, "List the functions using each extension")

	cmd.Flags().StringArrayP("feature-filter", "F", nil,
		"Comma-separated list of extension sets to include in the output (can include wildcards)")
	cmd.Flags().StringArrayP("raw-symbol-filter", "S", nil,
		"Comma-separated list of raw symbol names to include in the output (can include wildcards)")
	cmd.Flags().StringArrayP("demangled-symbol-filter", "D", nil,
		"Comma-separated list of demangled symbol names to include in the output (can include wildcards)")

	cmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	cmd.Flags().String("memprofile", "", "Write memory profile to file")

	cmd.AddCommand(newCheckCmd(), newBrowseCmd(), newSchemaCmd())
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := configFromFlags(cmd)

	if cfg.CPUProfile != "" {
		f, err := os.Create(cfg.CPUProfile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}
	if cfg.MemProfile != "" {
		defer writeHeapProfile(cmd.ErrOrStderr(), cfg.MemProfile)
	}

	q, err := cfg.Query()
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	a, err := newAnalyzer(args[0], cfg.Workers)
	if err != nil {
		return err
	}
	slog.Debug("Running analysis", "file", args[0], "mode", q.EffectiveMode(), "format", format)
	rep, err := a.Run(cmd.Context(), q)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	opts := report.Options{Format: format}
	if width, ok := terminalWidth(out); ok && !colorize.Disabled() {
		opts.Color = true
		opts.Width = width
	}
	return report.Render(out, rep, opts)
}

// newAnalyzer loads the binary at path and prepares it for analysis.
func newAnalyzer(path string, workers int) (*analysis.Analyzer, error) {
	obj, err := elfx.Load(path)
	if err != nil {
		return nil, err
	}
	return analysis.New(obj, analysis.Options{Workers: workers})
}

func writeHeapProfile(stderr io.Writer, path string) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(stderr, "could not create memory profile: %v\n", err)
		return
	}
	defer f.Close()
	if err := pprof.WriteHeapProfile(f); err != nil {
		fmt.Fprintf(stderr, "could not write memory profile: %v\n", err)
	}
}

// terminalWidth returns the width of w when it is a terminal.
func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(f.Fd()) {
		return 0, false
	}
	width, _, err := term.GetSize(f.Fd())
	if err != nil || width <= 0 {
		width = 80
	}
	return width, true
}

func Execute() {
	defer log.Shutdown()
	rootCmd := newRootCmd()

	// fang renders help and errors with markdown styling, which only makes
	// sense on a terminal.
	if !term.IsTerminal(os.Stdout.Fd()) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := rootCmd.ExecuteContext(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			log.Shutdown()
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		log.Shutdown()
		os.Exit(1)
	}
}
