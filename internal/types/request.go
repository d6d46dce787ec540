// Package types holds the values shared by every stage of one submission.
package types

import (
	"fmt"
	"strings"
)

// Mode selects how results reach the provider.
type Mode string

const (
	// ModeExternalTool runs the tacotruck helper through npx.
	ModeExternalTool Mode = "external-tool"
	// ModeDirectHTTP posts to the provider API without the helper.
	ModeDirectHTTP Mode = "direct-http"
)

// ParseMode accepts the canonical names case-insensitively. An empty string
// selects ModeExternalTool.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeExternalTool):
		return ModeExternalTool, nil
	case string(ModeDirectHTTP):
		return ModeDirectHTTP, nil
	default:
		return "", fmt.Errorf("unknown submission mode %q (want %q or %q)", s, ModeExternalTool, ModeDirectHTTP)
	}
}

// SubmissionRequest describes one run's results to submit. It is built once
// by the host and treated as read-only afterwards.
type SubmissionRequest struct {
	Mode         Mode   `yaml:"mode"`
	Provider     string `yaml:"provider"`
	ResultsPath  string `yaml:"results_path"`
	Project      string `yaml:"project"`
	Handle       string `yaml:"handle"`
	RunName      string `yaml:"run_name"`
	APIURL       string `yaml:"api_url"`
	CredentialID string `yaml:"credentials_id"`
}
