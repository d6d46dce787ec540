package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix is prepended to the normalized identifier by EnvStore.
const DefaultEnvPrefix = "TACOTRUCK_CREDENTIAL_"

// MapStore is a fixed set of secrets keyed by identifier.
type MapStore map[string]string

func (m MapStore) Lookup(_ context.Context, id string) (string, bool, error) {
	s, ok := m[id]
	return s, ok, nil
}

type varsKey struct{}

// WithVars attaches per-invocation environment variables to ctx. EnvStore
// consults them before the process environment.
func WithVars(ctx context.Context, vars map[string]string) context.Context {
	if len(vars) == 0 {
		return ctx
	}
	return context.WithValue(ctx, varsKey{}, vars)
}

func varsFrom(ctx context.Context) map[string]string {
	vars, _ := ctx.Value(varsKey{}).(map[string]string)
	return vars
}

// EnvStore reads secrets from environment variables named
// Prefix + EnvKey(id). Lookup order: Vars, variables attached with
// WithVars, the process environment.
type EnvStore struct {
	Prefix string
	Vars   map[string]string
}

func (e EnvStore) Lookup(ctx context.Context, id string) (string, bool, error) {
	prefix := e.Prefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	key := prefix + EnvKey(id)
	if v, ok := e.Vars[key]; ok {
		return v, true, nil
	}
	if v, ok := varsFrom(ctx)[key]; ok {
		return v, true, nil
	}
	v, ok := os.LookupEnv(key)
	return v, ok, nil
}

// EnvKey upper-cases id and replaces anything that is not a letter or digit
// with an underscore: "testfiesta-token" becomes "TESTFIESTA_TOKEN".
func EnvKey(id string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, strings.TrimSpace(id))
}

type credentialsFile struct {
	Credentials map[string]string `yaml:"credentials"`
}

// LoadFileStore reads a YAML file of the form
//
//	credentials:
//	  testfiesta-token: "..."
func LoadFileStore(path string) (MapStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	var f credentialsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse credentials file %s: %w", path, err)
	}
	if f.Credentials == nil {
		f.Credentials = map[string]string{}
	}
	return MapStore(f.Credentials), nil
}

// Chain consults each store in order and returns the first hit. A store
// error stops the search.
type Chain []Store

func (c Chain) Lookup(ctx context.Context, id string) (string, bool, error) {
	for _, s := range c {
		secret, found, err := s.Lookup(ctx, id)
		if err != nil {
			return "", false, err
		}
		if found {
			return secret, true, nil
		}
	}
	return "", false, nil
}
