// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; passwords go to the OS keychain.
//
// Settings come from, lowest priority first: built-in defaults, config.json
// or config.yaml in the config dir, then the P4* environment. Command-line
// flags are applied last by the caller.
package config

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"p4go/cli/internal/errors"
	"p4go/cli/internal/xdg"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config holds non-sensitive session settings.
type Config struct {
	Port           string `json:"port,omitempty" yaml:"port,omitempty"`
	User           string `json:"user,omitempty" yaml:"user,omitempty"`
	Client         string `json:"client,omitempty" yaml:"client,omitempty"`
	Host           string `json:"host,omitempty" yaml:"host,omitempty"`
	Charset        string `json:"charset,omitempty" yaml:"charset,omitempty"`
	Prog           string `json:"prog,omitempty" yaml:"prog,omitempty"`
	Version        string `json:"version,omitempty" yaml:"version,omitempty"`
	TicketFile     string `json:"ticket_file,omitempty" yaml:"ticket_file,omitempty"`
	ExceptionLevel int    `json:"exception_level" yaml:"exception_level"`
	APILevel       int    `json:"api_level,omitempty" yaml:"api_level,omitempty"`
	Debug          int    `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// environment is the P4* overlay decoded from the process environment.
type environment struct {
	Port       string `env:"P4PORT"`
	User       string `env:"P4USER"`
	Client     string `env:"P4CLIENT"`
	Host       string `env:"P4HOST"`
	Charset    string `env:"P4CHARSET"`
	TicketFile string `env:"P4TICKETS"`
	Prog       string `env:"P4PROG"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Config {
	return Config{ExceptionLevel: 2}
}

// Path returns the settings file in dir: config.yaml when present,
// otherwise config.json.
func Path(dir string) string {
	for _, name := range []string{"config.yaml", "config.yml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, "config.json")
}

// Load reads configuration from the XDG config dir and overlays the
// environment; a missing file yields defaults.
func Load() (Config, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return Defaults(), err
	}
	return LoadFrom(dir)
}

// LoadFrom is Load with an explicit directory.
func LoadFrom(dir string) (Config, error) {
	c, err := readFile(dir)
	if err != nil {
		return c, err
	}
	if err := overlayEnv(&c); err != nil {
		return c, err
	}
	return c, nil
}

// readFile returns the defaults overlaid with the settings file in dir.
func readFile(dir string) (Config, error) {
	c := Defaults()
	p := Path(dir)
	data, err := os.ReadFile(p)
	switch {
	case stderrors.Is(err, os.ErrNotExist):
	case err != nil:
		return c, errors.Wrap(errors.Config, "read "+p, err)
	default:
		if isJSON(p) {
			err = json.Unmarshal(data, &c)
		} else {
			err = yaml.Unmarshal(data, &c)
		}
		if err != nil {
			return c, errors.Wrap(errors.Config, "parse "+p, err)
		}
	}
	return c, nil
}

func isJSON(p string) bool { return strings.HasSuffix(p, ".json") }

func overlayEnv(c *Config) error {
	var env environment
	if err := envdecode.Decode(&env); err != nil && !stderrors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return errors.Wrap(errors.Config, "decode environment", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Port, env.Port)
	set(&c.User, env.User)
	set(&c.Client, env.Client)
	set(&c.Host, env.Host)
	set(&c.Charset, env.Charset)
	set(&c.TicketFile, env.TicketFile)
	set(&c.Prog, env.Prog)
	return nil
}

// Update applies fn to the settings file in the XDG config dir and writes it
// back. The environment overlay is not part of what gets written.
func Update(fn func(*Config)) error {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return errors.Wrap(errors.Config, "locate config dir", err)
	}
	return UpdateIn(dir, fn)
}

// UpdateIn is Update with an explicit directory.
func UpdateIn(dir string, fn func(*Config)) error {
	c, err := readFile(dir)
	if err != nil {
		return err
	}
	fn(&c)
	return SaveTo(dir, c)
}

// SaveTo writes configuration to the settings file in dir with 0600
// permissions, as YAML when a YAML file is in use and as JSON otherwise.
func SaveTo(dir string, c Config) error {
	p := Path(dir)
	var (
		b   []byte
		err error
	)
	if isJSON(p) {
		b, err = json.MarshalIndent(c, "", "  ")
	} else {
		b, err = yaml.Marshal(c)
	}
	if err != nil {
		return errors.Wrap(errors.Config, "encode "+p, err)
	}
	if err := os.WriteFile(p, b, 0o600); err != nil {
		return errors.Wrap(errors.Config, "write "+p, err)
	}
	return nil
}

// Setter assigns a session attribute by name.
type Setter interface {
	SetAttr(name string, v any) error
}

// Apply pushes the settings into a session. Empty strings and zero limits
// leave the session's own defaults in place.
func Apply(c Config, s Setter) error {
	strs := []struct{ name, value string }{
		{"port", c.Port},
		{"user", c.User},
		{"client", c.Client},
		{"host", c.Host},
		{"charset", c.Charset},
		{"prog", c.Prog},
		{"version", c.Version},
		{"ticket_file", c.TicketFile},
	}
	for _, kv := range strs {
		if kv.value == "" {
			continue
		}
		if err := s.SetAttr(kv.name, kv.value); err != nil {
			return errors.Wrap(errors.Config, "apply "+kv.name, err)
		}
	}
	if err := s.SetAttr("exception_level", c.ExceptionLevel); err != nil {
		return errors.Wrap(errors.Config, "apply exception_level", err)
	}
	if c.APILevel != 0 {
		if err := s.SetAttr("api_level", c.APILevel); err != nil {
			return errors.Wrap(errors.Config, "apply api_level", err)
		}
	}
	if c.Debug != 0 {
		if err := s.SetAttr("debug", c.Debug); err != nil {
			return errors.Wrap(errors.Config, "apply debug", err)
		}
	}
	return nil
}
