package cmd

import (
	"fmt"
	"runtime"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mabhi256/jmuzzle/internal/loader"
	"github.com/mabhi256/jmuzzle/internal/muzzle"
	"github.com/mabhi256/jmuzzle/internal/report"
	"github.com/mabhi256/jmuzzle/internal/tui"
	"github.com/mabhi256/jmuzzle/utils"
)

var (
	matchClasspath string
	matchTarget    string
	matchOutput    string
	matchJobs      int
	matchModules   []string
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Check modules against a target library classpath",
	Long: `match collects the references of every configured module, or reads them from a
generated $Muzzle class on the module classpath, and checks them against the
target classpath. Modules whose required classes are absent are skipped. The
exit status is non-zero when any module has mismatches.`,
	Example: `  jmuzzle match --target okhttp-4.12.0.jar
  jmuzzle match --target libs/ --module com.acme.OkHttpModule --output json`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		validFormats := []string{"cli", "tui", "json"}
		if !slices.Contains(validFormats, matchOutput) {
			return fmt.Errorf("invalid output format: %s. Valid options: %v", matchOutput, validFormats)
		}
		if matchJobs < 1 {
			return fmt.Errorf("--jobs must be at least 1")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := loadProjectConfig(cmd)
		if err != nil {
			return err
		}
		modules, err := selectModules(cfg, matchModules)
		if err != nil {
			return err
		}

		build, err := openClasspath(matchClasspath, cfg)
		if err != nil {
			return err
		}
		defer build.Close()
		target, err := loader.ParseClasspath(matchTarget)
		if err != nil {
			return err
		}
		defer target.Close()

		opts := append(muzzleOptions(cfg), muzzle.WithJobs(matchJobs))
		checker := muzzle.NewChecker(newGenerator(cfg), build, opts...)
		results, err := checker.CheckAll(cmd.Context(), modules, target)
		if err != nil {
			return err
		}
		r := report.New(matchTarget, results)

		switch matchOutput {
		case "json":
			if err := r.WriteJSON(cmd.OutOrStdout()); err != nil {
				return err
			}
		case "tui":
			if err := tui.Start(r); err != nil {
				return err
			}
		default:
			fmt.Fprintln(cmd.OutOrStdout(), r.Render(100))
		}

		if r.Failed() {
			return errMismatches
		}
		return nil
	},
}

func init() {
	flags := matchCmd.Flags()
	flags.StringVarP(&matchClasspath, "classpath", "c", "", "classpath holding the modules' classes (default from config)")
	flags.StringVarP(&matchTarget, "target", "t", "", "classpath of the library to check against")
	flags.StringVarP(&matchOutput, "output", "o", "cli", "output format: cli, tui or json")
	flags.IntVarP(&matchJobs, "jobs", "j", runtime.NumCPU(), "modules checked in parallel")
	flags.StringSliceVarP(&matchModules, "module", "m", nil, "check only these modules")
	matchCmd.MarkFlagRequired("target")

	matchCmd.RegisterFlagCompletionFunc("classpath", utils.CompleteFilesByExtension(".jar", ".zip"))
	matchCmd.RegisterFlagCompletionFunc("target", utils.CompleteFilesByExtension(".jar", ".zip"))
	matchCmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(
		[]string{"cli", "tui", "json"}, cobra.ShellCompDirectiveNoFileComp))
	matchCmd.RegisterFlagCompletionFunc("module", completeModuleNames)

	rootCmd.AddCommand(matchCmd)
}
