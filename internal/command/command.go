// Package command renders the argv for the tacotruck helper.
//
// The argument order is a contract with the helper:
//
//	<launcher> <package> <provider> run:submit --token <secret> --data <results>
//	  --organization <handle> --name <run> --project <project> --url <api>
//
// "--project" is the only project flag emitted; the "--project-key" spelling
// used by some helper versions is not supported.
package command

import (
	"fmt"

	"github.com/testfiesta/tacotruck-jenkins-plugin/internal/types"
	"github.com/testfiesta/tacotruck-jenkins-plugin/pkg/driver"
)

const (
	TokenFlag   = "--token"
	ProjectFlag = "--project"

	DefaultLauncher = "npx"
	DefaultPackage  = "@testfiesta/tacotruck"
)

// Helper names the launcher and the package it runs.
type Helper struct {
	Launcher string `yaml:"launcher"`
	Package  string `yaml:"package"`
}

// DefaultHelper runs the published package through npx.
func DefaultHelper() Helper {
	return Helper{Launcher: DefaultLauncher, Package: DefaultPackage}
}

var submitTemplate = driver.Template{
	"{tool}", "{package}", "{provider}", "run:submit",
	TokenFlag, "{token}",
	"--data", "{data}",
	"--organization", "{organization}",
	"--name", "{name}",
	ProjectFlag, "{project}",
	"--url", "{url}",
}

// Builder renders helper invocations. It holds no per-invocation state.
type Builder struct {
	helper Helper
}

func NewBuilder(h Helper) *Builder {
	if h.Package == "" {
		h.Package = DefaultPackage
	}
	if h.Launcher == "" {
		h.Launcher = DefaultLauncher
	}
	return &Builder{helper: h}
}

// Helper returns the helper the builder renders for.
func (b *Builder) Helper() Helper { return b.helper }

// Build returns the submit invocation. The same inputs always produce the
// same argv. Dir and Env are left for the caller to fill in.
func (b *Builder) Build(req types.SubmissionRequest, secret, toolPath string) driver.Invocation {
	argv, err := submitTemplate.Render(map[string]string{
		"tool":         toolPath,
		"package":      b.helper.Package,
		"provider":     req.Provider,
		"token":        secret,
		"data":         req.ResultsPath,
		"organization": req.Handle,
		"name":         req.RunName,
		"project":      req.Project,
		"url":          req.APIURL,
	})
	if err != nil {
		panic(fmt.Sprintf("command: submit template out of sync: %v", err))
	}
	return driver.Invocation{Args: argv}
}

const versionFlag = "--version"

// Version returns the invocation that asks the helper for its version.
func (b *Builder) Version(toolPath string) driver.Invocation {
	return driver.Invocation{Args: []string{toolPath, b.helper.Package, versionFlag}}
}

// IsVersion reports whether inv has the shape Version renders.
func IsVersion(inv driver.Invocation) bool {
	return len(inv.Args) == 3 && inv.Args[2] == versionFlag
}

// Redact renders a submit argv from Build for the log with the token value
// masked. Other arguments, even one spelled like the token flag, are kept
// verbatim.
func Redact(argv []string) string {
	return submitTemplate.Redact(argv, "token")
}
