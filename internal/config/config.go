package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SRCGROUP"

// ConfigName is the base name of the application settings file.
const ConfigName = "srcgroup"

// AppSettings are the machine-wide settings shared by every project. They
// are built once per process and passed down explicitly.
type AppSettings struct {
	HeaderSearchPaths     []string      `mapstructure:"header_search_paths"`
	FrameworkSearchPaths  []string      `mapstructure:"framework_search_paths"`
	JreSystemLibraryPaths []string      `mapstructure:"jre_system_library_paths"`
	MavenPath             string        `mapstructure:"maven_path"`
	MavenSettingsPath     string        `mapstructure:"maven_settings_path"`
	GradlePath            string        `mapstructure:"gradle_path"`
	JavaHome              string        `mapstructure:"java_home"`
	IndexerPath           string        `mapstructure:"indexer_path"`
	DependencyTimeout     time.Duration `mapstructure:"dependency_timeout"`
	Workers               int           `mapstructure:"workers"`
	Verbose               bool          `mapstructure:"verbose"`
}

// Default returns the built-in settings.
func Default() AppSettings {
	return AppSettings{
		MavenPath:         "mvn",
		GradlePath:        "gradle",
		IndexerPath:       "srcgroup-indexer",
		DependencyTimeout: 5 * time.Minute,
		Workers:           runtime.NumCPU(),
	}
}

// Validate checks values that would make indexing impossible.
func (a *AppSettings) Validate() error {
	if a.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", a.Workers)
	}
	if a.DependencyTimeout <= 0 {
		return fmt.Errorf("dependency_timeout must be positive, got %s", a.DependencyTimeout)
	}
	return nil
}

// AddFlags declares the persistent flags that Load binds.
func AddFlags(cmd *cobra.Command) {
	d := Default()
	flags := cmd.PersistentFlags()
	flags.String("config", "", "application settings file")
	flags.Int("workers", d.Workers, "number of concurrent indexer commands")
	flags.Duration("dependency-timeout", d.DependencyTimeout, "hard timeout for maven and gradle runs")
	flags.String("indexer", d.IndexerPath, "indexer executable for cxx, java and python commands")
	flags.BoolP("verbose", "v", false, "verbose output")
}

// Load resolves AppSettings from defaults, the settings file, the
// environment and the flags of cmd, later sources winning. configFile
// overrides the lookup in the user config directory and the working
// directory; a missing default file is not an error.
func Load(configFile string, cmd *cobra.Command) (*AppSettings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cmd != nil && configFile == "" {
		if f := cmd.Flags().Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(ConfigName)
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, ConfigName))
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read settings: %w", err)
			}
		}
	}

	if cmd != nil {
		bindFlags(v, cmd)
	}

	var settings AppSettings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	settings.HeaderSearchPaths = splitPathList(settings.HeaderSearchPaths)
	settings.FrameworkSearchPaths = splitPathList(settings.FrameworkSearchPaths)
	settings.JreSystemLibraryPaths = splitPathList(settings.JreSystemLibraryPaths)

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("header_search_paths", []string{})
	v.SetDefault("framework_search_paths", []string{})
	v.SetDefault("jre_system_library_paths", []string{})
	v.SetDefault("maven_path", d.MavenPath)
	v.SetDefault("maven_settings_path", d.MavenSettingsPath)
	v.SetDefault("gradle_path", d.GradlePath)
	v.SetDefault("java_home", d.JavaHome)
	v.SetDefault("indexer_path", d.IndexerPath)
	v.SetDefault("dependency_timeout", d.DependencyTimeout)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("verbose", d.Verbose)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for key, name := range map[string]string{
		"workers":            "workers",
		"dependency_timeout": "dependency-timeout",
		"indexer_path":       "indexer",
		"verbose":            "verbose",
	} {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// splitPathList splits single entries that hold an os.PathListSeparator
// separated list, as environment variables do.
func splitPathList(paths []string) []string {
	var out []string
	for _, p := range paths {
		for _, part := range filepath.SplitList(p) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
