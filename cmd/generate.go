package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mabhi256/jmuzzle/internal/muzzle"
	"github.com/mabhi256/jmuzzle/utils"
)

var (
	generateClasspath string
	generateOut       string
)

var generateCmd = &cobra.Command{
	Use:   "generate [module...]",
	Short: "Write a $Muzzle class for each module",
	Long: `generate collects each module's references and writes a <Module>$Muzzle class
whose static create() method rebuilds them. The classes are written under --out
in package directories, ready to be packaged next to the module. With no
arguments every configured module is generated.`,
	ValidArgsFunction: completeModuleNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := loadProjectConfig(cmd)
		if err != nil {
			return err
		}
		modules, err := selectModules(cfg, args)
		if err != nil {
			return err
		}
		cp, err := openClasspath(generateClasspath, cfg)
		if err != nil {
			return err
		}
		defer cp.Close()

		generator := newGenerator(cfg)
		for _, module := range modules {
			name := muzzle.MuzzleClassName(module)
			data, err := generator.GenerateMuzzleClass(cmd.Context(), module, name, cp)
			if err != nil {
				return err
			}

			path := filepath.Join(generateOut, filepath.FromSlash(name)+".class")
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n",
				utils.GoodStyle.Render("wrote"), path, utils.FormatSize(len(data)))
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateClasspath, "classpath", "c", "", "classpath holding the modules' classes (default from config)")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", filepath.Join("build", "muzzle"), "output directory")
	generateCmd.RegisterFlagCompletionFunc("classpath", utils.CompleteFilesByExtension(".jar", ".zip"))

	rootCmd.AddCommand(generateCmd)
}
