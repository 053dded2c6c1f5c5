// Package config loads the relay configuration file.
//
// Files may be YAML (.yaml, .yml), TOML (.toml) or JSON (.json). Every file
// is checked against an embedded CUE schema before it is decoded, so typos
// in keys and out-of-range values are reported with their position.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Defaults applied to unset fields.
const (
	DefaultDataDir        = ".relay"
	DefaultPackageID      = "org.x.relay"
	DefaultForwardTimeout = "2s"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultMaxBodyBytes   = 1 << 20
	DefaultOOMScoreAdj    = -500
)

// Config holds runtime parameters for the relay.
// Zero values mean "unspecified" and are replaced by Resolve.
type Config struct {
	DataDir        string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	DBPath         string `json:"db_path" yaml:"db_path" toml:"db_path"`
	Listen         string `json:"listen" yaml:"listen" toml:"listen"`
	PackageID      string `json:"package_id" yaml:"package_id" toml:"package_id"`
	Version        string `json:"version" yaml:"version" toml:"version"`
	ForwardTimeout string `json:"forward_timeout" yaml:"forward_timeout" toml:"forward_timeout"`
	LogLevel       string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat      string `json:"log_format" yaml:"log_format" toml:"log_format"`
	MaxBodyBytes   int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`

	KeepAlive KeepAlive `json:"keep_alive" yaml:"keep_alive" toml:"keep_alive"`
	CORS      CORS      `json:"cors" yaml:"cors" toml:"cors"`
	Consumer  Consumer  `json:"consumer" yaml:"consumer" toml:"consumer"`
}

// KeepAlive configures the foreground indicator and grant.
type KeepAlive struct {
	Title         string `json:"title" yaml:"title" toml:"title"`
	Text          string `json:"text" yaml:"text" toml:"text"`
	IndicatorPath string `json:"indicator_path" yaml:"indicator_path" toml:"indicator_path"`
	OOMScoreAdj   *int   `json:"oom_score_adj" yaml:"oom_score_adj" toml:"oom_score_adj"`
}

// CORS lists browser origins allowed to call the IPC server over TCP.
type CORS struct {
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
}

// Consumer optionally pre-binds a consumer callback at startup.
type Consumer struct {
	CallbackURL string `json:"callback_url" yaml:"callback_url" toml:"callback_url"`
}

// ValidationError is a schema violation in a config file.
type ValidationError struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Path != "" && !strings.HasPrefix(msg, e.Path) {
		msg = e.Path + ": " + msg
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), msg)
	}
	return msg
}

// Load reads and validates a configuration file based on its extension.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg.Resolve(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	var raw map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &raw); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &raw); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}

	if err := Validate(raw); err != nil {
		return cfg, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg.Resolve(), nil
}

// Validate checks a decoded config document against the schema.
func Validate(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	if raw == nil {
		raw = map[string]any{}
	}
	v := def.Unify(ctx.Encode(integralNumbers(raw)))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// integralNumbers turns whole float64 values, as produced by encoding/json,
// into int64 so they satisfy int constraints.
func integralNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = integralNumbers(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = integralNumbers(e)
		}
		return out
	case float64:
		if t == float64(int64(t)) {
			return int64(t)
		}
		return t
	default:
		return v
	}
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	ve := &ValidationError{Path: strings.Join(first.Path(), "."), Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ve.Pos = positions[0]
	}
	return ve
}

// Resolve returns a copy of c with defaults applied and derived paths filled.
func (c Config) Resolve() Config {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "relay.db")
	}
	if c.Listen == "" {
		c.Listen = "unix://" + filepath.Join(c.DataDir, "relay.sock")
	}
	if c.PackageID == "" {
		c.PackageID = DefaultPackageID
	}
	if c.ForwardTimeout == "" {
		c.ForwardTimeout = DefaultForwardTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.KeepAlive.Title == "" {
		c.KeepAlive.Title = "Relay"
	}
	if c.KeepAlive.Text == "" {
		c.KeepAlive.Text = "Running in background for message capture"
	}
	if c.KeepAlive.IndicatorPath == "" {
		c.KeepAlive.IndicatorPath = filepath.Join(c.DataDir, "keepalive.json")
	}
	if c.KeepAlive.OOMScoreAdj == nil {
		adj := DefaultOOMScoreAdj
		c.KeepAlive.OOMScoreAdj = &adj
	}
	return c
}

// ForwardTimeoutDuration parses ForwardTimeout.
func (c Config) ForwardTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.ForwardTimeout)
	if err != nil {
		return 0, fmt.Errorf("forward_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("forward_timeout must be positive, got %s", c.ForwardTimeout)
	}
	return d, nil
}
