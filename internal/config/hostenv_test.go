package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadHostEnv_NotExist(t *testing.T) {
	m, err := LoadHostEnv(filepath.Join(t.TempDir(), "host.env"))
	if err != nil {
		t.Fatalf("LoadHostEnv: %v", err)
	}
	if len(m) != 0 {
		t.Fatalf("expected empty map, got %v", m)
	}
}

func TestLoadHostEnv_ParsesKeyValue(t *testing.T) {
	p := filepath.Join(t.TempDir(), "host.env")
	if err := os.WriteFile(p, []byte("# comment\nA=1\n B = two \nnoequals\nC=\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadHostEnv(p)
	if err != nil {
		t.Fatalf("LoadHostEnv: %v", err)
	}
	if m["A"] != "1" || m["B"] != "two" {
		t.Fatalf("unexpected map: %v", m)
	}
	if v, ok := m["C"]; !ok || v != "" {
		t.Fatalf("expected empty value for C, got %q (present=%v)", v, ok)
	}
	if _, ok := m["noequals"]; ok {
		t.Fatalf("line without '=' should be skipped: %v", m)
	}
}

func TestEnsureHostTemplate_DoesNotOverwrite(t *testing.T) {
	p := filepath.Join(t.TempDir(), "host.env")
	if err := os.WriteFile(p, []byte("avx2=false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureHostTemplate(p); err != nil {
		t.Fatalf("EnsureHostTemplate: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "avx2=false\n" {
		t.Fatalf("template overwrote existing file: %q", string(b))
	}
}

func TestEnsureHostTemplate_CreatesWhenMissing(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "host.env")

	if err := EnsureHostTemplate(p); err != nil {
		t.Fatalf("EnsureHostTemplate: %v", err)
	}
	m, err := LoadHostEnv(p)
	if err != nil {
		t.Fatalf("LoadHostEnv: %v", err)
	}
	if len(m) != 0 {
		t.Fatalf("template should only contain comments, got %v", m)
	}
}
