// Package config loads the jmuzzle.yaml project file describing the build
// classpath and the instrumentation modules to check.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mabhi256/jmuzzle/internal/codegen"
	"github.com/mabhi256/jmuzzle/internal/muzzle"
)

const DefaultFile = "jmuzzle.yaml"

const (
	EnvClasspath      = "JMUZZLE_CLASSPATH"
	EnvRuntimePackage = "JMUZZLE_RUNTIME_PACKAGE"
)

var ErrInvalid = errors.New("invalid configuration")

type PolicyConfig struct {
	JDKPrefixes             []string `yaml:"jdkPrefixes"`
	FrameworkPrefixes       []string `yaml:"frameworkPrefixes"`
	InstrumentationPackages []string `yaml:"instrumentationPackages"`
}

type Config struct {
	// Classpath holds the instrumentation classes, in the platform list
	// separator format
	Classpath      string                `yaml:"classpath"`
	RuntimePackage string                `yaml:"runtimePackage"`
	Policy         PolicyConfig          `yaml:"policy"`
	Modules        []muzzle.StaticModule `yaml:"modules"`
}

// Load reads a config file, then applies a .env file in the working
// directory and the JMUZZLE_* environment variables on top.
func Load(path string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if cp := os.Getenv(EnvClasspath); cp != "" {
		c.Classpath = cp
	}
	if pkg := os.Getenv(EnvRuntimePackage); pkg != "" {
		c.RuntimePackage = pkg
	}
}

// Validate rejects unnamed modules, duplicate names and advice bindings
// without a class
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i, m := range c.Modules {
		if strings.TrimSpace(m.ModuleName) == "" {
			return fmt.Errorf("%w: module %d has no name", ErrInvalid, i)
		}
		if seen[m.ModuleName] {
			return fmt.Errorf("%w: duplicate module %s", ErrInvalid, m.ModuleName)
		}
		seen[m.ModuleName] = true
		for _, ti := range m.Instrumentation {
			for _, a := range ti.Advice {
				if a.Advice == "" {
					return fmt.Errorf("%w: module %s has advice for %s without a class", ErrInvalid, m.ModuleName, ti.Type)
				}
			}
		}
	}
	return nil
}

// MuzzlePolicy converts the policy section, keeping the default platform
// prefixes when none are configured
func (c *Config) MuzzlePolicy() muzzle.Policy {
	p := muzzle.DefaultPolicy()
	if len(c.Policy.JDKPrefixes) > 0 {
		p.JDKPrefixes = c.Policy.JDKPrefixes
	}
	p.FrameworkPrefixes = c.Policy.FrameworkPrefixes
	p.InstrumentationPackages = c.Policy.InstrumentationPackages
	return p
}

func (c *Config) Runtime() codegen.Runtime {
	return codegen.NewRuntime(c.RuntimePackage)
}

func (c *Config) InstrumentationModules() []muzzle.InstrumentationModule {
	out := make([]muzzle.InstrumentationModule, len(c.Modules))
	for i := range c.Modules {
		out[i] = &c.Modules[i]
	}
	return out
}

// Module finds a configured module by name
func (c *Config) Module(name string) (muzzle.InstrumentationModule, bool) {
	for i := range c.Modules {
		if c.Modules[i].ModuleName == name {
			return &c.Modules[i], true
		}
	}
	return nil, false
}
