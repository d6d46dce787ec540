package driver

import (
	"fmt"
	"slices"
	"strings"
)

// Mask replaces secret values in rendered output.
const Mask = "***"

// Template is an argv whose tokens are either literals or whole-token
// placeholders such as "{token}". Placeholders never match inside a literal,
// so substituted values are not expanded again.
type Template []string

// Render substitutes every placeholder from values. A placeholder with no
// entry in values is an error; an empty value is allowed.
func (t Template) Render(values map[string]string) ([]string, error) {
	out := make([]string, 0, len(t))
	for _, tok := range t {
		name, ok := placeholder(tok)
		if !ok {
			out = append(out, tok)
			continue
		}
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("no value for placeholder %q", tok)
		}
		out = append(out, v)
	}
	return out, nil
}

// Placeholders lists placeholder names in template order.
func (t Template) Placeholders() []string {
	var names []string
	for _, tok := range t {
		if name, ok := placeholder(tok); ok {
			names = append(names, name)
		}
	}
	return names
}

func placeholder(tok string) (string, bool) {
	if len(tok) < 3 || tok[0] != '{' || tok[len(tok)-1] != '}' {
		return "", false
	}
	name := tok[1 : len(tok)-1]
	if strings.ContainsAny(name, "{} ") {
		return "", false
	}
	return name, true
}

// Redact renders argv rendered from t space-joined for logging, with the
// value of every named placeholder replaced by Mask. Masking goes by
// template position, so an argument that happens to equal a flag name is
// left alone.
func (t Template) Redact(argv []string, secrets ...string) string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = arg
		if i >= len(t) {
			continue
		}
		if name, ok := placeholder(t[i]); ok && slices.Contains(secrets, name) {
			out[i] = Mask
		}
	}
	return strings.Join(out, " ")
}

// Redact renders argv space-joined for logging, replacing the value that
// follows the first occurrence of each of secretFlags (or its
// "--flag=value" form) with Mask. Later occurrences are treated as plain
// arguments. Use Template.Redact when the argv came from a Template.
func Redact(argv []string, secretFlags ...string) string {
	var b strings.Builder
	seen := make(map[string]bool, len(secretFlags))
	for i := 0; i < len(argv); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		arg := argv[i]
		if isSecretFlag(arg, secretFlags) && !seen[arg] && i+1 < len(argv) {
			seen[arg] = true
			b.WriteString(arg)
			b.WriteByte(' ')
			b.WriteString(Mask)
			i++
			continue
		}
		if flag, ok := secretAssignment(arg, secretFlags); ok && !seen[flag] {
			seen[flag] = true
			b.WriteString(flag)
			b.WriteByte('=')
			b.WriteString(Mask)
			continue
		}
		b.WriteString(arg)
	}
	return b.String()
}

func isSecretFlag(arg string, flags []string) bool {
	for _, f := range flags {
		if arg == f {
			return true
		}
	}
	return false
}

func secretAssignment(arg string, flags []string) (string, bool) {
	for _, f := range flags {
		if strings.HasPrefix(arg, f+"=") {
			return f, true
		}
	}
	return "", false
}

// MaskSecret replaces every occurrence of secret in text with Mask. An empty
// secret leaves text unchanged.
func MaskSecret(text, secret string) string {
	if secret == "" {
		return text
	}
	return strings.ReplaceAll(text, secret, Mask)
}
