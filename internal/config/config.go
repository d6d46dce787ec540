// Package config assembles the submission settings from defaults, an
// optional YAML file, a .env file and TACOTRUCK_* environment variables.
// Command-line flags are applied by the caller on top of the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/duke-git/lancet/v2/strutil"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/backend"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/command"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/credentials"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/logger"
	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/types"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "TACOTRUCK_"

const minRunNameLength = 3

type Config struct {
	Submission  types.SubmissionRequest `yaml:"submission"`
	Workspace   string                  `yaml:"workspace"`
	Helper      HelperConfig            `yaml:"helper"`
	HTTP        backend.HTTPConfig      `yaml:"http"`
	Credentials CredentialsConfig       `yaml:"credentials"`
	Log         logger.Config           `yaml:"log"`
}

// HelperConfig describes how the external helper is launched.
type HelperConfig struct {
	command.Helper   `yaml:",inline"`
	TerminationGrace time.Duration `yaml:"termination_grace"`
	StdoutLimitBytes int           `yaml:"stdout_limit_bytes"`
}

type CredentialsConfig struct {
	// EnvPrefix is prepended to the normalized credential id.
	EnvPrefix string `yaml:"env_prefix"`
	// File is an optional YAML file with a credentials map.
	File string `yaml:"file"`
}

func Default() Config {
	return Config{
		Submission: types.SubmissionRequest{
			Mode:     types.ModeExternalTool,
			Provider: "testfiesta",
		},
		Helper: HelperConfig{
			Helper:           command.DefaultHelper(),
			TerminationGrace: 5 * time.Second,
			StdoutLimitBytes: 1 << 20,
		},
		HTTP:        backend.DefaultHTTPConfig(),
		Credentials: CredentialsConfig{EnvPrefix: credentials.DefaultEnvPrefix},
		Log:         logger.Default(),
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty), then .env in the working directory, then the
// process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}
	// A missing .env is fine; existing variables are not overwritten.
	_ = godotenv.Load()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML file over cfg. Keys absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from TACOTRUCK_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PROVIDER":       &c.Submission.Provider,
		"API_URL":        &c.Submission.APIURL,
		"HANDLE":         &c.Submission.Handle,
		"PROJECT":        &c.Submission.Project,
		"RUN_NAME":       &c.Submission.RunName,
		"RESULTS_PATH":   &c.Submission.ResultsPath,
		"CREDENTIALS_ID": &c.Submission.CredentialID,
		"WORKSPACE":      &c.Workspace,
		"LOG_LEVEL":      &c.Log.Level,
		"LOG_FORMAT":     &c.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	if v, ok := lookup(EnvPrefix + "MODE"); ok {
		m, err := types.ParseMode(v)
		if err != nil {
			return fmt.Errorf("%sMODE: %w", EnvPrefix, err)
		}
		c.Submission.Mode = m
	}
	return nil
}

// Validate reports fatal problems as an error and advisory ones as warnings.
// The credential id is not checked here; a missing id surfaces when the
// credential is resolved.
func (c Config) Validate() (warnings []string, err error) {
	var errs []error
	if _, perr := types.ParseMode(string(c.Submission.Mode)); perr != nil {
		errs = append(errs, perr)
	}
	if strutil.IsBlank(c.Submission.Provider) {
		errs = append(errs, errors.New("provider is required"))
	}
	mode, _ := types.ParseMode(string(c.Submission.Mode))
	if mode == types.ModeExternalTool && strutil.IsBlank(c.Submission.ResultsPath) {
		errs = append(errs, errors.New("results path is required"))
	}
	if u := c.Submission.APIURL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		errs = append(errs, fmt.Errorf("api url %q must start with http:// or https://", u))
	}
	if c.HTTP.ConnectTimeout <= 0 || c.HTTP.RequestTimeout <= 0 {
		errs = append(errs, errors.New("http timeouts must be positive"))
	}
	if c.Helper.TerminationGrace <= 0 {
		errs = append(errs, errors.New("helper termination grace must be positive"))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}

	if utf8.RuneCountInString(strings.TrimSpace(c.Submission.RunName)) < minRunNameLength {
		warnings = append(warnings, fmt.Sprintf("run name %q is shorter than %d characters", c.Submission.RunName, minRunNameLength))
	}
	return warnings, errors.Join(errs...)
}
