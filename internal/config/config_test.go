package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/types"
)

func valid() Config {
	cfg := Default()
	cfg.Submission.ResultsPath = "results/junit.xml"
	cfg.Submission.RunName = "Nightly"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, types.ModeExternalTool, cfg.Submission.Mode)
	assert.Equal(t, "npx", cfg.Helper.Launcher)
	assert.Equal(t, "@testfiesta/tacotruck", cfg.Helper.Package)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ConnectTimeout)
	assert.Equal(t, 60*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, "TACOTRUCK_CREDENTIAL_", cfg.Credentials.EnvPrefix)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tacotruck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
submission:
  mode: direct-http
  provider: testfiesta
  api_url: https://api.testfiesta.com
  credentials_id: tf-token
helper:
  launcher: /opt/node/bin/npx
  termination_grace: 2s
http:
  request_timeout: 10s
log:
  level: debug
`), 0o600))

	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, types.ModeDirectHTTP, cfg.Submission.Mode)
	assert.Equal(t, "https://api.testfiesta.com", cfg.Submission.APIURL)
	assert.Equal(t, "tf-token", cfg.Submission.CredentialID)
	assert.Equal(t, "/opt/node/bin/npx", cfg.Helper.Launcher)
	assert.Equal(t, "@testfiesta/tacotruck", cfg.Helper.Package, "absent keys keep defaults")
	assert.Equal(t, 2*time.Second, cfg.Helper.TerminationGrace)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("submission: [unterminated"), 0o600))
	assert.Error(t, cfg.LoadFile(path))
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TACOTRUCK_MODE":           "DIRECT-HTTP",
		"TACOTRUCK_PROVIDER":       "testrail",
		"TACOTRUCK_PROJECT":        "proj-1",
		"TACOTRUCK_RUN_NAME":       "Build #42",
		"TACOTRUCK_CREDENTIALS_ID": "tr-token",
		"TACOTRUCK_WORKSPACE":      "/var/lib/jenkins/ws",
		"TACOTRUCK_LOG_FORMAT":     "json",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, types.ModeDirectHTTP, cfg.Submission.Mode)
	assert.Equal(t, "testrail", cfg.Submission.Provider)
	assert.Equal(t, "proj-1", cfg.Submission.Project)
	assert.Equal(t, "Build #42", cfg.Submission.RunName)
	assert.Equal(t, "tr-token", cfg.Submission.CredentialID)
	assert.Equal(t, "/var/lib/jenkins/ws", cfg.Workspace)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Submission.Handle)

	env["TACOTRUCK_MODE"] = "carrier-pigeon"
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("TACOTRUCK_HANDLE", "acme")
	t.Setenv("TACOTRUCK_RESULTS_PATH", "out/results.xml")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Submission.Handle)
	assert.Equal(t, "out/results.xml", cfg.Submission.ResultsPath)
}

func TestValidate(t *testing.T) {
	warnings, err := valid().Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)

	cases := map[string]func(*Config){
		"mode":          func(c *Config) { c.Submission.Mode = "ftp" },
		"provider":      func(c *Config) { c.Submission.Provider = "  " },
		"results path":  func(c *Config) { c.Submission.ResultsPath = "" },
		"api url":       func(c *Config) { c.Submission.APIURL = "api.testfiesta.com" },
		"http timeouts": func(c *Config) { c.HTTP.RequestTimeout = 0 },
		"grace":         func(c *Config) { c.Helper.TerminationGrace = -time.Second },
		"log":           func(c *Config) { c.Log.Level = "chatty" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			_, err := cfg.Validate()
			assert.Error(t, err)
		})
	}
}

func TestValidateDoesNotRequireCredential(t *testing.T) {
	cfg := valid()
	cfg.Submission.CredentialID = ""
	_, err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidateDirectHTTPNeedsNoResultsPath(t *testing.T) {
	cfg := valid()
	cfg.Submission.Mode = types.ModeDirectHTTP
	cfg.Submission.ResultsPath = ""
	_, err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidateShortRunNameWarns(t *testing.T) {
	cfg := valid()
	cfg.Submission.RunName = "R1"
	warnings, err := cfg.Validate()
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "shorter than 3")
}
