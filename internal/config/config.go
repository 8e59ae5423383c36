// Package config resolves msgkit settings from flags, environment, a .env
// file, and an optional YAML config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Setting keys, shared by flags, the config file and MSGKIT_* variables.
const (
	KeyBaseURL  = "base-url"
	KeyToken    = "token"
	KeyUserID   = "user-id"
	KeyMessages = "messages"
	KeyTimeout  = "timeout"
	KeyDebug    = "debug"
	KeyLogFile  = "log-file"
)

const (
	// EnvPrefix prefixes every environment override, e.g. MSGKIT_BASE_URL.
	EnvPrefix = "MSGKIT"
	// FileName is the config file name searched in the working directory
	// and then the home directory.
	FileName = ".msgkit"

	DefaultBaseURL = "http://localhost:5000/api"
	DefaultTimeout = 30 * time.Second
)

// ErrInvalid is wrapped by Load when a setting fails validation.
var ErrInvalid = errors.New("config: invalid setting")

// Config is the resolved configuration.
type Config struct {
	BaseURL  string
	Token    string
	UserID   string
	Messages string
	Timeout  time.Duration
	Debug    bool
	LogFile  string

	// File is the config file that was read, "" when none was found.
	File string
}

// LoadDotEnv loads KEY=value pairs from the given files (".env" when none
// are given) into the process environment. Missing files are ignored and
// variables already set are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// SetDefaults registers defaults and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyTimeout, DefaultTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// ReadFile reads the config file into v. With an explicit path the file
// must exist; otherwise FileName is searched in dirs (the working directory
// and the home directory by default) and a missing file is not an error.
// ${env://VAR} references are expanded before parsing.
func ReadFile(v *viper.Viper, explicit string, dirs ...string) (string, error) {
	path := explicit
	if path == "" {
		if len(dirs) == 0 {
			dirs = append(dirs, ".")
			if home, err := os.UserHomeDir(); err == nil {
				dirs = append(dirs, home)
			}
		}
		path = findFile(dirs)
		if path == "" {
			return "", nil
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read config file: %w", err)
	}
	content, err := ExpandEnv(string(raw))
	if err != nil {
		return "", fmt.Errorf("error reading config file '%s': %w", path, err)
	}

	configType := "yaml"
	if strings.HasSuffix(path, ".json") {
		configType = "json"
	}
	v.SetConfigType(configType)
	if err := v.ReadConfig(strings.NewReader(content)); err != nil {
		return "", fmt.Errorf("error parsing config file '%s': %w", path, err)
	}
	return path, nil
}

func findFile(dirs []string) string {
	for _, dir := range dirs {
		for _, ext := range []string{".yml", ".yaml", ".json"} {
			p := filepath.Join(dir, FileName+ext)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

// FromViper builds and validates a Config from v.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		BaseURL:  strings.TrimSpace(v.GetString(KeyBaseURL)),
		Token:    strings.TrimSpace(v.GetString(KeyToken)),
		UserID:   strings.TrimSpace(v.GetString(KeyUserID)),
		Messages: v.GetString(KeyMessages),
		Timeout:  v.GetDuration(KeyTimeout),
		Debug:    v.GetBool(KeyDebug),
		LogFile:  v.GetString(KeyLogFile),
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("%w: %s %q is not an absolute URL", ErrInvalid, KeyBaseURL, cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalid, KeyTimeout, cfg.Timeout)
	}
	return cfg, nil
}

// Load runs the full resolution: .env, defaults and environment, config
// file, validation. Flags must already be bound to v.
func Load(v *viper.Viper, explicitFile string) (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	SetDefaults(v)
	file, err := ReadFile(v, explicitFile)
	if err != nil {
		return Config{}, err
	}
	cfg, err := FromViper(v)
	if err != nil {
		return Config{}, err
	}
	cfg.File = file
	return cfg, nil
}
