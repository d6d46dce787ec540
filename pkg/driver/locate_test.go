package driver_test

import (
	"os"
	"path/filepath"
	"testing"

	d "github.com/testfiesta/tacotruck-jenkins-plugin/pkg/driver"
)

func writeFile(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho ok\n"), mode); err != nil {
		t.Fatal(err)
	}
}

func TestLocateHelper(t *testing.T) {
	empty := t.TempDir()
	bin := t.TempDir()
	writeFile(t, filepath.Join(bin, "npx"), 0o755)
	writeFile(t, filepath.Join(bin, "plain"), 0o644)

	env := map[string]string{"PATH": empty + string(os.PathListSeparator) + "relative" + string(os.PathListSeparator) + bin}

	if got, want := d.LocateHelper("npx", env), filepath.Join(bin, "npx"); got != want {
		t.Fatalf("LocateHelper(npx) = %q, want %q", got, want)
	}
	if got := d.LocateHelper("plain", env); got != "" {
		t.Fatalf("LocateHelper(plain) = %q, want empty for non-executable", got)
	}
	if got := d.LocateHelper("missing", env); got != "" {
		t.Fatalf("LocateHelper(missing) = %q, want empty", got)
	}
	if got := d.LocateHelper("", env); got != "" {
		t.Fatalf("LocateHelper(\"\") = %q, want empty", got)
	}
	abs := filepath.Join(bin, "npx")
	if got := d.LocateHelper(abs, nil); got != abs {
		t.Fatalf("LocateHelper(abs) = %q, want %q", got, abs)
	}
}

func TestMergeEnv(t *testing.T) {
	got := d.MergeEnv(
		[]string{"PATH=/usr/bin", "HOME=/root", "BROKEN", "=nokey"},
		map[string]string{"HOME": "/workspace", "CI": "true"},
	)
	want := []string{"CI=true", "HOME=/workspace", "PATH=/usr/bin"}
	if len(got) != len(want) {
		t.Fatalf("MergeEnv = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MergeEnv[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
