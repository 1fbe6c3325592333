package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mabhi256/jmuzzle/internal/config"
	"github.com/mabhi256/jmuzzle/internal/logging"
	"github.com/mabhi256/jmuzzle/internal/telemetry"
	"github.com/mabhi256/jmuzzle/utils"
)

var (
	configFile     string
	logLevel       string
	logJSON        bool
	traceExporter  string
	metricExporter string
	metricsFile    string

	logger            = logging.Discard()
	shutdownTelemetry func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "jmuzzle",
	Short: "Reference safety checks for Java instrumentation",
	Long: `jmuzzle scans instrumentation advice bytecode for the classes, fields and methods
it links against, and checks those references against a target library classpath
before the instrumentation is applied.`,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "install" || cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		setupCompletions(cmd)
		return setupObservability(cmd.Context(), cmd.ErrOrStderr())
	},
}

// setupCompletions installs shell completions on first run. Messages go to
// stderr so command output stays parseable.
func setupCompletions(cmd *cobra.Command) {
	if !isShellSupported() || completionsExist() {
		return
	}

	w := cmd.ErrOrStderr()
	fmt.Fprintln(w, "🔧 First run detected, setting up jmuzzle...")
	if installCompletions(cmd.Root(), w) == nil {
		fmt.Fprintln(w, "✅ Shell completions installed")
		fmt.Fprintln(w, "💡 Restart your shell to enable tab completion")
	} else {
		fmt.Fprintln(w, "⚠️  Auto-setup failed. Run 'jmuzzle install' to try again.")
	}
}

func setupObservability(ctx context.Context, w io.Writer) error {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger = logging.New(logging.Config{Level: level, JSON: logJSON, Writer: w})
	slog.SetDefault(logger)

	shutdownTelemetry, err = telemetry.Init(ctx, telemetry.Config{
		ServiceVersion: version,
		TraceExporter:  traceExporter,
		MetricExporter: metricExporter,
		MetricsFile:    metricsFile,
		Writer:         w,
	})
	return err
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install shell completions",
	Run: func(cmd *cobra.Command, args []string) {
		if !isInPath() {
			printPathInstructions()
			return
		}

		if !isShellSupported() {
			fmt.Printf("❌ Shell completion not supported for: %s\n", detectShell())
			fmt.Println("Supported shells: bash, zsh, fish, powershell")
			return
		}

		if completionsExist() {
			fmt.Println("✅ Already configured!")
			return
		}

		fmt.Println("📦 Installing completions...")
		if err := installCompletions(cmd.Root(), os.Stdout); err != nil {
			fmt.Printf("❌ Failed: %v\n", err)
		} else {
			fmt.Println("✅ Done! Restart your shell to enable tab completion.")
		}
	},
}

func Execute() {
	err := rootCmd.Execute()
	if shutdownTelemetry != nil {
		if serr := shutdownTelemetry(context.Background()); serr != nil {
			fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", serr)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, utils.ErrorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func GetRootCmd() *cobra.Command {
	return rootCmd
}

func completionsExist() bool {
	home, _ := os.UserHomeDir()

	paths := map[string]string{
		"bash":       filepath.Join(home, ".local/share/bash-completion/completions/jmuzzle"),
		"zsh":        filepath.Join(home, ".zsh/completions/_jmuzzle"),
		"fish":       filepath.Join(home, ".config/fish/completions/jmuzzle.fish"),
		"powershell": filepath.Join(home, "jmuzzle_completion.ps1"),
	}

	path := paths[detectShell()]
	_, err := os.Stat(path)
	return err == nil
}

func isShellSupported() bool {
	shell := detectShell()
	return shell == "bash" || shell == "zsh" || shell == "fish" || shell == "powershell"
}

func detectShell() string {
	if runtime.GOOS == "windows" {
		return "powershell"
	}

	shell := filepath.Base(os.Getenv("SHELL"))
	if shell == "" {
		return "bash"
	}
	return shell
}

type completionConfig struct {
	dir         string
	file        string
	genFunc     func(io.Writer) error
	activateCmd string
}

func installCompletions(rootCmd *cobra.Command, w io.Writer) error {
	home, _ := os.UserHomeDir()
	shell := detectShell()

	configs := map[string]completionConfig{
		"bash": {
			dir:     filepath.Join(home, ".local/share/bash-completion/completions"),
			file:    "jmuzzle",
			genFunc: rootCmd.GenBashCompletion,
			activateCmd: fmt.Sprintf("source %s",
				filepath.Join(home, ".local/share/bash-completion/completions/jmuzzle")),
		},
		"zsh": {
			dir:     filepath.Join(home, ".zsh/completions"),
			file:    "_jmuzzle",
			genFunc: rootCmd.GenZshCompletion,
			activateCmd: fmt.Sprintf("fpath=(%s $fpath) && autoload -U compinit && compinit",
				filepath.Join(home, ".zsh/completions")),
		},
		"fish": {
			dir:         filepath.Join(home, ".config/fish/completions"),
			file:        "jmuzzle.fish",
			genFunc:     func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
			activateCmd: "complete --do-complete=jmuzzle", // Trigger fish to reload completions
		},
		"powershell": {
			dir:     home,
			file:    "jmuzzle_completion.ps1",
			genFunc: rootCmd.GenPowerShellCompletionWithDesc,
			activateCmd: fmt.Sprintf(". %s",
				filepath.Join(home, "jmuzzle_completion.ps1")),
		},
	}

	cc, ok := configs[shell]
	if !ok {
		return fmt.Errorf("unsupported shell: %s", shell)
	}

	if err := os.MkdirAll(cc.dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(filepath.Join(cc.dir, cc.file))
	if err != nil {
		return err
	}
	defer file.Close()

	if err := cc.genFunc(file); err != nil {
		return err
	}

	// Print activation command for immediate use
	fmt.Fprintf(w, "🔄 Run this command to enable auto-completions:\n")
	fmt.Fprintf(w, "   %s\n", cc.activateCmd)

	return nil
}

func isInPath() bool {
	execPath, err := os.Executable()
	if err != nil {
		return false
	}

	pathEnv := os.Getenv("PATH")
	paths := strings.Split(pathEnv, string(os.PathListSeparator))
	execDir := filepath.Dir(execPath)

	return slices.Contains(paths, execDir)
}

func printPathInstructions() {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)

	fmt.Printf("❌ jmuzzle not in PATH. Binary location: %s\n\n", execPath)

	if runtime.GOOS == "windows" {
		fmt.Printf("Add to PATH: %s\n", execDir)
	} else {
		fmt.Printf("Add to shell profile: export PATH=\"%s:$PATH\"\n", execDir)
		fmt.Printf("Or copy to: /usr/local/bin\n")
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", config.DefaultFile, "project configuration file")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.BoolVar(&logJSON, "log-json", false, "log as JSON")
	flags.StringVar(&traceExporter, "trace", telemetry.ExporterNone, "trace exporter: none or stdout")
	flags.StringVar(&metricExporter, "metrics", telemetry.ExporterNone, "metric exporter: none, stdout or prometheus")
	flags.StringVar(&metricsFile, "metrics-file", "", "write Prometheus text metrics to this file on exit")

	rootCmd.RegisterFlagCompletionFunc("config", utils.CompleteFilesByExtension(".yaml", ".yml"))
	rootCmd.RegisterFlagCompletionFunc("trace", cobra.FixedCompletions(
		[]string{telemetry.ExporterNone, telemetry.ExporterStdout}, cobra.ShellCompDirectiveNoFileComp))
	rootCmd.RegisterFlagCompletionFunc("metrics", cobra.FixedCompletions(
		[]string{telemetry.ExporterNone, telemetry.ExporterStdout, telemetry.ExporterPrometheus}, cobra.ShellCompDirectiveNoFileComp))

	rootCmd.AddCommand(installCmd)
}
