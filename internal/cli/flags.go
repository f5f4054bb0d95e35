package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"llmapi/internal/common/fsutil"
	"llmapi/internal/config"
)

// Flags holds command-line options. Only flags the user actually set
// override configuration; the rest fall through to files and environment.
type Flags struct {
	ConfigFile string
	EnvFile    string
	Host       string
	Port       int
	Model      string
	OllamaHost string
	LogLevel   string
	Mock       bool
}

func (f *Flags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.ConfigFile, "config", "", "Optional config file (.yaml, .json or .toml)")
	pf.StringVar(&f.EnvFile, "env-file", ".env", "Dotenv file; ignored when missing")
	pf.StringVar(&f.Host, "host", "", "Listen host (API_HOST)")
	pf.IntVar(&f.Port, "port", 0, "Listen port (API_PORT)")
	pf.StringVar(&f.Model, "model", "", "Model used for every request (OLLAMA_MODEL)")
	pf.StringVar(&f.OllamaHost, "ollama-host", "", "Ollama base URL (OLLAMA_HOST)")
	pf.StringVar(&f.LogLevel, "log-level", "", "Log level: debug|info|warn|error (LOG_LEVEL)")
	pf.BoolVar(&f.Mock, "mock", false, "Serve from the in-process mock backend (MOCK_OLLAMA)")
}

// overrides maps explicitly set flags onto setting names.
func (f *Flags) overrides(cmd *cobra.Command) map[string]string {
	set := cmd.Flags().Changed
	out := map[string]string{}
	if set("host") {
		out["api_host"] = f.Host
	}
	if set("port") {
		out["api_port"] = strconv.Itoa(f.Port)
	}
	if set("model") {
		out["ollama_model"] = f.Model
	}
	if set("ollama-host") {
		out["ollama_host"] = f.OllamaHost
	}
	if set("log-level") {
		out["log_level"] = f.LogLevel
	}
	if set("mock") {
		out["mock_ollama"] = strconv.FormatBool(f.Mock)
	}
	return out
}

// paths returns absolute config and env file paths with a leading ~ expanded.
func (f *Flags) paths() (cfgFile, envFile string, err error) {
	if cfgFile, err = fsutil.Resolve(f.ConfigFile); err != nil {
		return "", "", err
	}
	if envFile, err = fsutil.Resolve(f.EnvFile); err != nil {
		return "", "", err
	}
	return cfgFile, envFile, nil
}

// loadSettings resolves Settings from files, environment and overrides.
func (f *Flags) loadSettings(overrides map[string]string) (config.Settings, error) {
	cfgFile, envFile, err := f.paths()
	if err != nil {
		return config.Settings{}, err
	}
	return config.Load(config.Options{
		ConfigFile: cfgFile,
		EnvFile:    envFile,
		Overrides:  overrides,
	})
}
