package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Settings holds process-wide parameters. It is built once by Load and never
// mutated afterwards; handlers receive it by value.
type Settings struct {
	Environment string

	OllamaHost    string
	OllamaModel   string
	OllamaTimeout time.Duration

	APIHost   string
	APIPort   int
	APIDebug  bool
	APIReload bool

	// DatabaseURL is accepted for compatibility; nothing reads it.
	DatabaseURL string

	LogLevel  string
	LogFormat string

	// EnableCache is declared but has no wired behavior.
	EnableCache   bool
	EnableMetrics bool

	TestMode   bool
	MockOllama bool

	// CORSOrigins lists allowed browser origins; empty disables CORS.
	CORSOrigins []string
}

// Log formats understood by the logging package.
const (
	LogFormatDetailed = "detailed"
	LogFormatJSON     = "json"
)

// Defaults returns the settings used when no source overrides a field.
func Defaults() Settings {
	return Settings{
		Environment:   "dev",
		OllamaHost:    "http://localhost:11434",
		OllamaModel:   "llama3:latest",
		OllamaTimeout: 300 * time.Second,
		APIHost:       "0.0.0.0",
		APIPort:       8000,
		APIDebug:      true,
		APIReload:     true,
		DatabaseURL:   "sqlite:///./dev.db",
		LogLevel:      "info",
		LogFormat:     LogFormatDetailed,
		EnableCache:   false,
		EnableMetrics: true,
	}
}

// Addr returns the listen address for the HTTP server.
func (s Settings) Addr() string {
	return net.JoinHostPort(s.APIHost, strconv.Itoa(s.APIPort))
}

// Options selects the sources Load reads from. Later sources win:
// defaults, ConfigFile, EnvFile, Environ, Overrides.
type Options struct {
	// ConfigFile is an optional .yaml/.json/.toml file.
	ConfigFile string
	// EnvFile is a dotenv file; a missing file is ignored.
	EnvFile string
	// Environ defaults to os.Environ() when nil.
	Environ []string
	// Overrides carries explicit values such as CLI flags, keyed by setting name.
	Overrides map[string]string
}

type field struct {
	name  string
	get   func(s Settings) string
	apply func(s *Settings, v string) error
}

func strField(name string, dst func(*Settings) *string) field {
	return field{
		name:  name,
		get:   func(s Settings) string { return *dst(&s) },
		apply: func(s *Settings, v string) error { *dst(s) = v; return nil },
	}
}

func boolField(name string, dst func(*Settings) *bool) field {
	return field{
		name: name,
		get:  func(s Settings) string { return strconv.FormatBool(*dst(&s)) },
		apply: func(s *Settings, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			*dst(s) = b
			return nil
		},
	}
}

var fields = []field{
	strField("environment", func(s *Settings) *string { return &s.Environment }),
	{"ollama_host", func(s Settings) string { return s.OllamaHost }, func(s *Settings, v string) error {
		h, err := normalizeOllamaHost(v)
		if err != nil {
			return err
		}
		s.OllamaHost = h
		return nil
	}},
	{"ollama_model", func(s Settings) string { return s.OllamaModel }, func(s *Settings, v string) error {
		if strings.TrimSpace(v) == "" {
			return errors.New("must not be empty")
		}
		s.OllamaModel = v
		return nil
	}},
	{"ollama_timeout", func(s Settings) string { return s.OllamaTimeout.String() }, func(s *Settings, v string) error {
		d, err := parseTimeout(v)
		if err != nil {
			return err
		}
		s.OllamaTimeout = d
		return nil
	}},
	strField("api_host", func(s *Settings) *string { return &s.APIHost }),
	{"api_port", func(s Settings) string { return strconv.Itoa(s.APIPort) }, func(s *Settings, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		if n < 1 || n > 65535 {
			return errors.New("must be within 1..65535")
		}
		s.APIPort = n
		return nil
	}},
	boolField("api_debug", func(s *Settings) *bool { return &s.APIDebug }),
	boolField("api_reload", func(s *Settings) *bool { return &s.APIReload }),
	strField("database_url", func(s *Settings) *string { return &s.DatabaseURL }),
	{"log_level", func(s Settings) string { return s.LogLevel }, func(s *Settings, v string) error {
		lvl, err := NormalizeLogLevel(v)
		if err != nil {
			return err
		}
		s.LogLevel = lvl
		return nil
	}},
	{"log_format", func(s Settings) string { return s.LogFormat }, func(s *Settings, v string) error {
		switch f := strings.ToLower(strings.TrimSpace(v)); f {
		case LogFormatDetailed, LogFormatJSON:
			s.LogFormat = f
			return nil
		default:
			return fmt.Errorf("unknown format %q (want %s or %s)", v, LogFormatDetailed, LogFormatJSON)
		}
	}},
	boolField("enable_cache", func(s *Settings) *bool { return &s.EnableCache }),
	boolField("enable_metrics", func(s *Settings) *bool { return &s.EnableMetrics }),
	boolField("test_mode", func(s *Settings) *bool { return &s.TestMode }),
	boolField("mock_ollama", func(s *Settings) *bool { return &s.MockOllama }),
	{"cors_origins", func(s Settings) string { return strings.Join(s.CORSOrigins, ",") }, func(s *Settings, v string) error {
		s.CORSOrigins = splitCSV(v)
		return nil
	}},
}

// Names lists every recognized setting name in declaration order.
func Names() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.name
	}
	return out
}

// Values renders s as setting name to string value. Feeding the result back
// through Load (as a config file or overrides) reproduces s.
func (s Settings) Values() map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.name] = f.get(s)
	}
	return out
}

// Load builds Settings from the sources in opts. Environment variable names
// are matched case-insensitively (OLLAMA_HOST and ollama_host are the same).
// Any malformed value fails with *Error.
func Load(opts Options) (Settings, error) {
	s := Defaults()
	var layers []map[string]string

	if opts.ConfigFile != "" {
		vals, err := LoadFile(opts.ConfigFile)
		if err != nil {
			return s, &Error{Source: opts.ConfigFile, Err: err}
		}
		layers = append(layers, vals)
	}
	if opts.EnvFile != "" {
		vals, err := godotenv.Read(opts.EnvFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return s, &Error{Source: opts.EnvFile, Err: err}
		default:
			layers = append(layers, lowerKeys(vals))
		}
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	layers = append(layers, environMap(environ), lowerKeys(opts.Overrides))

	for _, layer := range layers {
		for _, f := range fields {
			v, ok := layer[f.name]
			if !ok {
				continue
			}
			if err := f.apply(&s, strings.TrimSpace(v)); err != nil {
				return s, &Error{Field: f.name, Value: v, Err: err}
			}
		}
	}
	return s, nil
}

func environMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[strings.ToLower(k)] = v
	}
	return out
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

// DefaultOllamaPort is assumed when OLLAMA_HOST names no scheme and no port.
const DefaultOllamaPort = "11434"

// normalizeOllamaHost accepts what the Ollama CLI accepts: a full http(s)
// URL, or a bare host[:port] which becomes http://host:port with port
// 11434 and host 127.0.0.1 filled in when missing.
func normalizeOllamaHost(v string) (string, error) {
	if v == "" {
		return "", errors.New("must not be empty")
	}
	if !strings.Contains(v, "://") {
		u, err := url.Parse("http://" + v)
		if err != nil {
			return "", err
		}
		host, port := u.Hostname(), u.Port()
		if host == "" {
			host = "127.0.0.1"
		}
		if port == "" {
			port = DefaultOllamaPort
		}
		u.Host = net.JoinHostPort(host, port)
		v = u.String()
	}
	u, err := url.Parse(v)
	if err != nil {
		return "", err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", errors.New("must be an http(s) URL or host[:port]")
	}
	return strings.TrimRight(v, "/"), nil
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empties.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", v)
}

// parseTimeout accepts whole seconds ("300") or a Go duration ("5m").
func parseTimeout(v string) (time.Duration, error) {
	var d time.Duration
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		d = time.Duration(n * float64(time.Second))
	} else {
		d, err = time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("not seconds or a duration: %q", v)
		}
	}
	if d <= 0 {
		return 0, errors.New("must be positive")
	}
	return d, nil
}

// NormalizeLogLevel maps level names (including WARNING and CRITICAL) onto zerolog level strings.
func NormalizeLogLevel(v string) (string, error) {
	l := strings.ToLower(strings.TrimSpace(v))
	switch l {
	case "warning":
		l = "warn"
	case "critical":
		l = "fatal"
	}
	lvl, err := zerolog.ParseLevel(l)
	if err != nil || l == "" {
		return "", fmt.Errorf("unknown log level %q", v)
	}
	return lvl.String(), nil
}
