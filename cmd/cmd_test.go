package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kamusis/tooldeck/internal/config"
	"github.com/kamusis/tooldeck/internal/manifest"
	"github.com/kamusis/tooldeck/internal/registry"
)

const gccDoc = `info:
  id: compilers/gnu/gcc
  version: 12.2.0
  summary: GNU Compiler Collection
contacts:
  Jane Doe:
    email: jane@gnu.example
requires:
  tools/kitware/cmake: ">=3.20"
install:
  untar: https://example.invalid/gcc-12.tar.xz
  sha256: abc
  strip: 1
`

const cmakeDoc = `info:
  id: tools/kitware/cmake
  version: 3.28.1
  description: Cross-platform build system generator
`

// setupRegistryTest writes a two-document registry and returns it regenerated.
func setupRegistryTest(t *testing.T) *registry.Registry {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"compilers/gcc.yaml": gccDoc,
		"tools/cmake.yaml":   cmakeDoc,
	}
	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	r, err := registry.Open(root, registry.WithName("test"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Regenerate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestSearchRegistry(t *testing.T) {
	r := setupRegistryTest(t)

	tests := []struct {
		name string
		f    searchFilter
		want []string
	}{
		{"text in summary", searchFilter{Text: "compiler"}, []string{"compilers/gcc.yaml"}},
		{"text in id", searchFilter{Text: "kitware"}, []string{"tools/cmake.yaml"}},
		{"text in description", searchFilter{Text: "generator"}, []string{"tools/cmake.yaml"}},
		{"requires", searchFilter{Requires: "tools/kitware/cmake"}, []string{"compilers/gcc.yaml"}},
		{"contact", searchFilter{Contact: "gnu"}, []string{"compilers/gcc.yaml"}},
		{"min version", searchFilter{Min: "10.0.0"}, []string{"compilers/gcc.yaml"}},
		{"below version", searchFilter{Below: "10.0.0"}, []string{"tools/cmake.yaml"}},
		{"prefix", searchFilter{IDPrefix: "tools/"}, []string{"tools/cmake.yaml"}},
		{"regexp", searchFilter{IDRegexp: regexp.MustCompile(`gcc$`)}, []string{"compilers/gcc.yaml"}},
		{"filters narrow text", searchFilter{Text: "compiler", IDPrefix: "tools/"}, nil},
		{"words across keys", searchFilter{Text: "kitware generator"}, []string{"tools/cmake.yaml"}},
		{"every word required", searchFilter{Text: "kitware compiler"}, nil},
		{"no filter sorted by id", searchFilter{}, []string{"compilers/gcc.yaml", "tools/cmake.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchRegistry(r, tt.f)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("searchRegistry = %v, want %v", got, tt.want)
			}
		})
	}

	if !(searchFilter{}).isEmpty() {
		t.Fatal("zero filter should be empty")
	}
}

func TestRegistryValues(t *testing.T) {
	r := setupRegistryTest(t)

	got := r.Values(registry.KeyID)
	want := []string{"compilers/gnu/gcc", "tools/kitware/cmake"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Values(id) = %v, want %v", got, want)
	}
	if got := r.Values(registry.KeyRequires); !reflect.DeepEqual(got, []string{"tools/kitware/cmake"}) {
		t.Fatalf("Values(requires) = %v", got)
	}
}

func TestDescribeInstaller(t *testing.T) {
	got := describeInstaller(manifest.Installer{Untar: "https://x/y.tar.xz", SHA256: "abc", Strip: 1})
	if want := "untar https://x/y.tar.xz sha256 strip=1"; got != want {
		t.Fatalf("describeInstaller = %q, want %q", got, want)
	}
	got = describeInstaller(manifest.Installer{Git: "https://x/y.git", Commit: "deadbeef"})
	if want := "git https://x/y.git @deadbeef"; got != want {
		t.Fatalf("describeInstaller = %q, want %q", got, want)
	}
	if got := describeInstaller(manifest.Installer{}); got != "(no source)" {
		t.Fatalf("describeInstaller(empty) = %q", got)
	}
}

func TestDescribeSettings_Dedupes(t *testing.T) {
	all := []manifest.Settings{
		{Paths: map[string]manifest.StringList{"bin": {"bin"}}, Tools: map[string]string{"cc": "bin/gcc"}},
		{Paths: map[string]manifest.StringList{"bin": {"bin64"}}},
	}
	got := describeSettings(all)
	want := []string{"path bin", "tool cc"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("describeSettings = %v, want %v", got, want)
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(good, []byte(cmakeDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("info:\n  id: x\nwindows and:\n  message: m\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !validateFile(good, nil) {
		t.Error("good.yaml should validate")
	}
	if validateFile(bad, nil) {
		t.Error("bad.yaml should not validate")
	}
	if validateFile(filepath.Join(dir, "missing.yaml"), nil) {
		t.Error("missing file should not validate")
	}
}

func TestCheckIndex(t *testing.T) {
	r := setupRegistryTest(t)

	if h := checkIndex(r); h.err == nil {
		t.Fatal("expected missing index error")
	}

	if err := r.Save(); err != nil {
		t.Fatal(err)
	}
	if h := checkIndex(r); !h.ok() {
		t.Fatalf("fresh index should be healthy: %+v", h)
	}

	later := time.Now().Add(time.Hour)
	doc := filepath.Join(r.Root(), "tools", "cmake.yaml")
	if err := os.Chtimes(doc, later, later); err != nil {
		t.Fatal(err)
	}
	h := checkIndex(r)
	if !reflect.DeepEqual(h.stale, []string{"tools/cmake.yaml"}) {
		t.Fatalf("stale = %v", h.stale)
	}
}

func TestSelectedRegistries(t *testing.T) {
	cfg := &config.Config{Registries: []config.Registry{
		{Name: "a", Path: "/a"},
		{Name: "b", Path: "/b"},
	}}

	old := flagRegistry
	defer func() { flagRegistry = old }()

	flagRegistry = ""
	got, err := selectedRegistries(cfg)
	if err != nil || len(got) != 2 {
		t.Fatalf("selectedRegistries = %v, %v", got, err)
	}

	flagRegistry = "b"
	got, err = selectedRegistries(cfg)
	if err != nil || len(got) != 1 || got[0].Path != "/b" {
		t.Fatalf("selectedRegistries(b) = %v, %v", got, err)
	}

	flagRegistry = "c"
	if _, err := selectedRegistries(cfg); err == nil {
		t.Fatal("expected error for unknown registry")
	}

	flagRegistry = ""
	if _, err := selectedRegistries(&config.Config{}); err == nil {
		t.Fatal("expected error for empty registry list")
	}
}

func TestLookupChainResolvesInOrder(t *testing.T) {
	r := setupRegistryTest(t)
	a, from, err := findArtifact(context.Background(), []*registry.Registry{r}, "tools/kitware/cmake", ">=3")
	if err != nil {
		t.Fatal(err)
	}
	if from != r || a.Version != "3.28.1" {
		t.Fatalf("findArtifact = %s from %s", a.Key(), from.Name())
	}
	if _, _, err := findArtifact(context.Background(), []*registry.Registry{r}, "tools/kitware/cmake", ">=4"); err == nil {
		t.Fatal("expected error for unsatisfiable range")
	}

	chain := lookupChain([]*registry.Registry{r})
	got, err := chain.Lookup(context.Background(), "compilers/gnu/gcc", "")
	if err != nil || got == nil {
		t.Fatalf("chain lookup = %v, %v", got, err)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{"", false, zapcore.ErrorLevel, zapcore.WarnLevel},
		{"warn", false, zapcore.WarnLevel, zapcore.InfoLevel},
		{"info", false, zapcore.InfoLevel, zapcore.DebugLevel},
		{"error", true, zapcore.DebugLevel, zapcore.DebugLevel - 1},
	}
	for _, tt := range tests {
		l, err := newLogger(tt.level, tt.verbose)
		if err != nil {
			t.Fatalf("newLogger(%q, %v): %v", tt.level, tt.verbose, err)
		}
		if !l.Core().Enabled(tt.enabled) {
			t.Errorf("newLogger(%q, %v): %s should be enabled", tt.level, tt.verbose, tt.enabled)
		}
		if l.Core().Enabled(tt.muted) {
			t.Errorf("newLogger(%q, %v): %s should be muted", tt.level, tt.verbose, tt.muted)
		}
	}

	if _, err := newLogger("loud", false); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

func TestConfiguredLogLevel(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TOOLDECK_LOG_LEVEL", "")

	if got := configuredLogLevel(); got != "" {
		t.Fatalf("uninitialized config should give no level, got %q", got)
	}

	dir := filepath.Join(home, ".tooldeck")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	body := "log_level: warn\nregistries: []\n"
	if err := os.WriteFile(filepath.Join(dir, "tooldeck.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := configuredLogLevel(); got != "warn" {
		t.Fatalf("configuredLogLevel = %q, want warn", got)
	}

	if err := rootCmd.PersistentPreRunE(rootCmd, nil); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { logger = zap.NewNop() })
	if logger.Core().Enabled(zapcore.InfoLevel) || !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Fatal("root logger should follow log_level warn")
	}
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf, true)
	if got := buf.String(); got != version+"\n" {
		t.Fatalf("short version = %q", got)
	}

	buf.Reset()
	printVersion(&buf, false)
	out := buf.String()
	for _, want := range []string{"Commit:     n/a", "Index File: " + registry.IndexFileName, "Host:       "} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}
