// Package bootstrap loads intake's configuration before any command runs.
//
// Sources are layered, lowest precedence first: built-in defaults, the
// global config file, the directory-local .intake.toml, dotenv files and the
// INTAKE_* environment.
package bootstrap

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"thoreinstein.com/intake/pkg/config"
	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

// LocalConfigFile is the per-directory override file name.
const LocalConfigFile = ".intake.toml"

// EnvPrefix prefixes every environment override, e.g. INTAKE_TRACKER_KIND.
const EnvPrefix = "INTAKE"

// DotenvFiles are loaded in order before the environment is read. Variables
// already set in the process environment are never overwritten, so earlier
// files win over later ones.
var DotenvFiles = []string{".env.local", ".env"}

// GlobalFlags are the persistent flags that must be known before cobra
// parses the command line.
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
}

// PreParseGlobalFlags scans args (including the program name) for
// --config/-C and --verbose/-v. Scanning stops at "--" and at the first
// argument that is not a flag, which is the subcommand.
func PreParseGlobalFlags(args []string) GlobalFlags {
	var flags GlobalFlags

	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "--" || !strings.HasPrefix(arg, "-") {
			break
		}

		if arg == "--verbose" || arg == "-v" {
			flags.Verbose = true
			continue
		}

		value, takesNext, ok := configFlag(arg)
		if !ok {
			continue
		}
		if takesNext {
			if i+1 >= len(args) {
				break
			}
			i++
			value = args[i]
		}
		flags.ConfigFile = value
	}

	return flags
}

// configFlag recognizes the spellings of the config flag. takesNext reports
// that the value is the following argument.
func configFlag(arg string) (value string, takesNext, ok bool) {
	for _, name := range []string{"--config", "-C"} {
		switch {
		case arg == name:
			return "", true, true
		case strings.HasPrefix(arg, name+"="):
			return strings.TrimPrefix(arg, name+"="), false, true
		}
	}
	if strings.HasPrefix(arg, "-C") && len(arg) > 2 {
		return arg[2:], false, true
	}
	return "", false, false
}

// loaded remembers the last successful load so repeated calls from cobra's
// OnInitialize and RunE do not re-read the files.
var loaded struct {
	flags GlobalFlags
	cfg   *config.Config
}

// InitConfig reads configuration for the given flags. It returns the
// validated config and the effective verbosity.
func InitConfig(cfgFile string, verbose bool) (*config.Config, bool, error) {
	flags := GlobalFlags{ConfigFile: cfgFile, Verbose: verbose}
	if os.Getenv("GO_TEST") != "true" && loaded.cfg != nil && loaded.flags == flags {
		return loaded.cfg, verbose, nil
	}

	LoadDotenv(verbose)

	viper.Reset()
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := readGlobalConfig(cfgFile, verbose); err != nil {
		return nil, verbose, err
	}
	LoadLocalConfig(verbose)

	cfg, err := config.Load()
	if err != nil {
		return nil, verbose, err
	}

	for _, w := range config.CheckSecurityWarnings(cfg) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w.Message)
	}

	loaded.flags = flags
	loaded.cfg = cfg
	return cfg, verbose, nil
}

// readGlobalConfig reads the config file named with --config, or
// ~/.config/intake/config.toml. A missing default file is not an error; a
// missing explicit file or a file that does not parse is.
func readGlobalConfig(cfgFile string, verbose bool) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(config.DefaultConfigDir())
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
		return nil
	case cfgFile == "" && intakeerrors.As(err, &notFound):
		return nil
	case cfgFile != "":
		return intakeerrors.NewConfigErrorWithCause("", "cannot read config file "+cfgFile, err)
	default:
		return intakeerrors.NewConfigErrorWithCause("", "cannot read "+viper.ConfigFileUsed(), err)
	}
}

// LoadDotenv loads DotenvFiles from the current directory when present.
func LoadDotenv(verbose bool) {
	logf := discardf
	if verbose {
		logf = stderrf
	}

	for _, name := range DotenvFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			logf("Warning: could not load %s: %v\n", name, err)
			continue
		}
		logf("Loaded environment from %s\n", name)
	}
}

// LoadLocalConfig merges .intake.toml from the current directory over the
// global config. Problems with the local file are reported in verbose mode
// and otherwise ignored.
func LoadLocalConfig(verbose bool) {
	if _, err := os.Stat(LocalConfigFile); err != nil {
		return
	}

	logf := discardf
	if verbose {
		logf = stderrf
	}

	local := viper.New()
	local.SetConfigFile(LocalConfigFile)
	if err := local.ReadInConfig(); err != nil {
		logf("Warning: could not read local config %s: %v\n", LocalConfigFile, err)
		return
	}
	if err := viper.MergeConfigMap(local.AllSettings()); err != nil {
		logf("Warning: could not merge local config: %v\n", err)
		return
	}
	logf("Using local config: %s\n", LocalConfigFile)
}

// Reset clears the cached configuration state.
func Reset() {
	loaded.flags = GlobalFlags{}
	loaded.cfg = nil
}

func stderrf(format string, args ...any) { fmt.Fprintf(os.Stderr, format, args...) }

func discardf(string, ...any) {}
