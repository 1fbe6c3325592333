package cmd

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mabhi256/jmuzzle/internal/config"
	"github.com/mabhi256/jmuzzle/internal/loader"
	"github.com/mabhi256/jmuzzle/internal/muzzle"
)

var errMismatches = errors.New("reference mismatches found")

// loadProjectConfig reads --config. A missing default file yields an empty
// configuration so single-class commands work without a project.
func loadProjectConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		logger.Debug("no configuration file, using defaults", "path", configFile)
		return config.Parse([]byte("{}"))
	}
	return cfg, err
}

// openClasspath opens flag, falling back to the configured classpath
func openClasspath(flag string, cfg *config.Config) (*loader.Classpath, error) {
	cp := flag
	if cp == "" {
		cp = cfg.Classpath
	}
	if cp == "" {
		return nil, fmt.Errorf("no classpath: use --classpath, set classpath in %s or %s", configFile, config.EnvClasspath)
	}
	return loader.ParseClasspath(cp)
}

func muzzleOptions(cfg *config.Config) []muzzle.Option {
	return []muzzle.Option{muzzle.WithLogger(logger), muzzle.WithPolicy(cfg.MuzzlePolicy())}
}

func newGenerator(cfg *config.Config) *muzzle.Generator {
	opts := muzzleOptions(cfg)
	return muzzle.NewGenerator(muzzle.NewCreator(opts...), cfg.Runtime(), opts...)
}

// selectModules returns the named modules, or all of them when names is empty
func selectModules(cfg *config.Config, names []string) ([]muzzle.InstrumentationModule, error) {
	if len(names) == 0 {
		return cfg.InstrumentationModules(), nil
	}
	var out []muzzle.InstrumentationModule
	for _, name := range names {
		m, ok := cfg.Module(name)
		if !ok {
			return nil, fmt.Errorf("unknown module %s", name)
		}
		out = append(out, m)
	}
	return out, nil
}

// completeModuleNames offers the module names of the configuration file
func completeModuleNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var names []string
	for _, m := range cfg.Modules {
		if !slices.Contains(args, m.ModuleName) {
			names = append(names, m.ModuleName)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
