package driver_test

import (
	"strings"
	"testing"

	d "github.com/testfiesta/tacotruck-jenkins-plugin/pkg/driver"
	"pgregory.net/rapid"
)

func TestTemplateRender(t *testing.T) {
	tmpl := d.Template{"{tool}", "pkg", "--token", "{token}", "--name", "{name}"}
	argv, err := tmpl.Render(map[string]string{
		"tool":  "/usr/bin/npx",
		"token": "",
		"name":  "{tool}",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"/usr/bin/npx", "pkg", "--token", "", "--name", "{tool}"}
	if strings.Join(argv, "|") != strings.Join(want, "|") {
		t.Fatalf("argv = %q, want %q", argv, want)
	}

	if _, err := tmpl.Render(map[string]string{"tool": "x"}); err == nil {
		t.Fatalf("expected error for missing placeholder value")
	}
	if got := strings.Join(tmpl.Placeholders(), ","); got != "tool,token,name" {
		t.Fatalf("placeholders = %q", got)
	}
}

func TestRedact(t *testing.T) {
	cases := []struct {
		name string
		argv []string
		want string
	}{
		{"plain", []string{"npx", "--token", "abc123", "--url", "u"}, "npx --token *** --url u"},
		{"empty token", []string{"npx", "--token", "", "--url", "u"}, "npx --token *** --url u"},
		{"token with spaces", []string{"npx", "--token", "a b c", "--data", "r.xml"}, "npx --token *** --data r.xml"},
		{"trailing flag", []string{"npx", "--token"}, "npx --token"},
		{"assignment", []string{"npx", "--token=abc123"}, "npx --token=***"},
		{"token looks like flag", []string{"--token", "--data", "x"}, "--token *** x"},
		{"later flag spelling is plain", []string{"npx", "--token", "s", "--name", "--token", "--project", "p"}, "npx --token *** --name --token --project p"},
		{"later assignment is plain", []string{"--token=s", "--name", "--token=x"}, "--token=*** --name --token=x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.Redact(tc.argv, "--token"); got != tc.want {
				t.Fatalf("Redact = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTemplateRedactProperty(t *testing.T) {
	word := rapid.OneOf(
		rapid.StringMatching(`[a-zA-Z0-9:/._@-]{1,12}`),
		rapid.SampledFrom([]string{"--token", "--token=x", "***"}),
	)
	rapid.Check(t, func(rt *rapid.T) {
		before := rapid.SliceOfN(word, 0, 6).Draw(rt, "before")
		after := rapid.SliceOfN(word, 0, 6).Draw(rt, "after")
		secret := rapid.String().Draw(rt, "secret")
		name := rapid.OneOf(word, rapid.String()).Draw(rt, "name")

		tmpl := d.Template(append(append(append([]string{}, before...), "--token", "{token}", "--name", "{name}"), after...))
		argv, err := tmpl.Render(map[string]string{"token": secret, "name": name})
		if err != nil {
			rt.Fatalf("Render: %v", err)
		}
		got := tmpl.Redact(argv, "token")

		want := strings.Join(append(append(append([]string{}, before...), "--token", "***", "--name", name), after...), " ")
		if got != want {
			rt.Fatalf("Redact = %q, want %q", got, want)
		}
	})
}

func TestMaskSecret(t *testing.T) {
	if got := d.MaskSecret("token abc123 accepted", "abc123"); got != "token *** accepted" {
		t.Fatalf("MaskSecret = %q", got)
	}
	if got := d.MaskSecret("unchanged", ""); got != "unchanged" {
		t.Fatalf("MaskSecret with empty secret = %q", got)
	}
}
