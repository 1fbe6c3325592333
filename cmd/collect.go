package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mabhi256/jmuzzle/internal/report"
	"github.com/mabhi256/jmuzzle/utils"
)

var (
	collectClasspath string
	collectJSON      bool
)

var collectCmd = &cobra.Command{
	Use:               "collect [module]",
	Short:             "List the references a module's advice makes, helpers excluded",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeModuleNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := loadProjectConfig(cmd)
		if err != nil {
			return err
		}
		module, ok := cfg.Module(args[0])
		if !ok {
			return fmt.Errorf("unknown module %s", args[0])
		}
		cp, err := openClasspath(collectClasspath, cfg)
		if err != nil {
			return err
		}
		defer cp.Close()

		refs, err := newGenerator(cfg).CollectReferences(cmd.Context(), module, cp)
		if err != nil {
			return err
		}

		if collectJSON {
			return report.WriteReferencesJSON(cmd.OutOrStdout(), refs)
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.RenderReferences(refs))
		return nil
	},
}

func init() {
	collectCmd.Flags().StringVarP(&collectClasspath, "classpath", "c", "", "classpath holding the module's classes (default from config)")
	collectCmd.Flags().BoolVar(&collectJSON, "json", false, "print references as JSON")
	collectCmd.RegisterFlagCompletionFunc("classpath", utils.CompleteFilesByExtension(".jar", ".zip"))

	rootCmd.AddCommand(collectCmd)
}
