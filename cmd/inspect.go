package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mabhi256/jmuzzle/internal/codegen"
	"github.com/mabhi256/jmuzzle/internal/report"
	"github.com/mabhi256/jmuzzle/utils"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:               "inspect [class-file]",
	Short:             "Print the references stored in a generated $Muzzle class",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: utils.CompleteFilesByExtension(".class"),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		decoded, err := codegen.Decode(data)
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", args[0], err)
		}

		if inspectJSON {
			return report.WriteReferencesJSON(cmd.OutOrStdout(), decoded.References)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, utils.FormatKeyValue("Class", decoded.ClassName, 12))
		fmt.Fprintln(w, utils.FormatKeyValue("Runtime", decoded.Runtime.Package, 12))
		fmt.Fprintln(w, utils.FormatKeyValue("References", fmt.Sprint(len(decoded.References)), 12))
		fmt.Fprintln(w)
		fmt.Fprintln(w, report.RenderReferences(decoded.References))
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print references as JSON")
	rootCmd.AddCommand(inspectCmd)
}
