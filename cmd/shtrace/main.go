package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/shtrace/pkg/breakpoint"
	"github.com/ormasoftchile/shtrace/pkg/config"
	"github.com/ormasoftchile/shtrace/pkg/debugger"
	"github.com/ormasoftchile/shtrace/pkg/session"
	"github.com/ormasoftchile/shtrace/pkg/tui"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shtrace [flags] SCRIPT [ARGS...]",
	Short: "Interactive step debugger for bash scripts",
	Long: `shtrace runs a bash script under a tracing wrapper and holds it
statement by statement: step, skip, return, evaluate expressions in the
live shell. The default interface is a full-screen terminal UI; --repl
gives a readline loop on the plain terminal and --no-ui runs unattended.

Everything after SCRIPT is passed to the script untouched. shtrace exits
with the script's own exit status (128+N when it died from signal N).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoot,
}

// --- root runner ---

var (
	runSleep   float64
	runBreak   string
	runWhen    string
	runNoUI    bool
	runREPL    bool
	runWrapper string
	runLog     string
	runRecord  string
	runConfig  string
)

func runRoot(cmd *cobra.Command, args []string) error {
	script, scriptArgs := args[0], args[1:]

	if runNoUI && runREPL {
		return fmt.Errorf("--no-ui and --repl are mutually exclusive")
	}

	// Manifest values apply wherever the command line stays silent.
	var cfg *config.Config
	var err error
	if runConfig != "" {
		cfg, err = config.Load(runConfig)
	} else {
		cfg, err = config.Discover(script)
	}
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	sleep := cfg.SleepDuration()
	if cmd.Flags().Changed("sleep") {
		if runSleep < 0 {
			return fmt.Errorf("--sleep must not be negative")
		}
		sleep = time.Duration(runSleep * float64(time.Second))
	}

	var bp *breakpoint.Breakpoint
	paused := false
	if runBreak != "" {
		bp, paused, err = breakpoint.Parse(runBreak)
		if err != nil {
			return err
		}
	}
	if runWhen != "" {
		if bp == nil {
			return fmt.Errorf("--when needs --break SCRIPT:LINE to attach to")
		}
		if err := bp.WithCondition(runWhen); err != nil {
			return err
		}
	}

	logger := zerolog.Nop()
	if logPath := firstNonEmpty(runLog, cfg.Log); logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		logger = zerolog.New(f).With().Timestamp().Logger()
	}

	sess, err := session.New(session.Config{
		Script:   script,
		Args:     scriptArgs,
		Sleep:    sleep,
		Paused:   paused,
		Break:    bp,
		Headless: runNoUI,
		Wrapper:  firstNonEmpty(runWrapper, cfg.Wrapper),
		Record:   firstNonEmpty(runRecord, cfg.Record),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx := context.Background()

	var status session.ExitStatus
	switch {
	case runNoUI:
		status, err = sess.Run(ctx)
	case runREPL:
		status, err = debugger.New(sess, script).Run(ctx)
	default:
		status, err = tui.Run(sess, script)
	}
	if err != nil {
		return err
	}

	// The REPL prints the exit report itself; the other modes leave
	// nothing behind on the plain terminal.
	if status.Signaled && !runREPL {
		fmt.Fprintln(os.Stderr, status.Describe())
	}
	if status.Code != 0 {
		os.Exit(status.Code)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shtrace %s (build: %s)\n", version, commit)
	},
}

func init() {
	// Flag parsing stops at the first positional so the script's own
	// flags pass through untouched.
	rootCmd.Flags().SetInterspersed(false)
	rootCmd.Flags().Float64VarP(&runSleep, "sleep", "s", 0, "Seconds to linger on each auto-advanced statement")
	rootCmd.Flags().StringVarP(&runBreak, "break", "b", "", "One-shot breakpoint as SCRIPT:LINE (either side optional)")
	rootCmd.Flags().StringVar(&runWhen, "when", "", "Breakpoint condition over script, line, command, depth, subshell")
	rootCmd.Flags().BoolVar(&runNoUI, "no-ui", false, "Headless: advance every statement, leave stdio untouched")
	rootCmd.Flags().BoolVar(&runREPL, "repl", false, "Line-mode debugger instead of the full-screen UI")
	rootCmd.Flags().StringVar(&runWrapper, "wrapper", "", "Alternate step wrapper template")
	rootCmd.Flags().StringVar(&runLog, "log", "", "Write a JSON session log to this file")
	rootCmd.Flags().StringVar(&runRecord, "record", "", "Append a JSONL session transcript to this file")
	rootCmd.Flags().StringVar(&runConfig, "config", "", "Explicit shtrace.yaml (default: nearest manifest above the script)")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}
