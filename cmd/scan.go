package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mabhi256/jmuzzle/internal/muzzle"
	"github.com/mabhi256/jmuzzle/internal/report"
	"github.com/mabhi256/jmuzzle/utils"
)

var (
	scanClasspath string
	scanJSON      bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [class-name]",
	Short: "List the references one class and its instrumentation dependencies make",
	Example: `  jmuzzle scan com.acme.instrumentation.OkHttpAdvice -c build/classes
  jmuzzle scan com/acme/instrumentation/OkHttpAdvice -c agent.jar --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := loadProjectConfig(cmd)
		if err != nil {
			return err
		}
		cp, err := openClasspath(scanClasspath, cfg)
		if err != nil {
			return err
		}
		defer cp.Close()

		refs, err := muzzle.NewCreator(muzzleOptions(cfg)...).CreateReferencesFrom(cmd.Context(), args[0], cp)
		if err != nil {
			return err
		}
		sorted := muzzle.SortedReferences(refs)

		if scanJSON {
			return report.WriteReferencesJSON(cmd.OutOrStdout(), sorted)
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.RenderReferences(sorted))
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanClasspath, "classpath", "c", "", "classpath holding the class (default from config)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print references as JSON")
	scanCmd.RegisterFlagCompletionFunc("classpath", utils.CompleteFilesByExtension(".jar", ".zip"))

	rootCmd.AddCommand(scanCmd)
}
