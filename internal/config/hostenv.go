package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadHostEnv reads a host override file and returns key/value pairs.
// A missing file yields an empty map.
//
// Parsing rules:
// - Lines starting with '#' are ignored.
// - Empty lines are ignored.
// - Lines must be of form KEY=VALUE.
// - Whitespace around KEY and VALUE is trimmed.
// - An empty VALUE is kept; it removes the feature from the host context.
func LoadHostEnv(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("cannot open host file %s: %w", path, err)
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.Index(line, "=")
		if i <= 0 {
			continue
		}
		k := strings.TrimSpace(line[:i])
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(line[i+1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read host file %s: %w", path, err)
	}
	return out, nil
}

// EnsureHostTemplate creates the host override file at path if it does
// not already exist. Every line of the template is commented out.
func EnsureHostTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot stat host file %s: %w", path, err)
	}

	body := "" +
		"# Host feature overrides, one KEY=VALUE per line.\n" +
		"# true/false become flags, numbers become numbers, an empty value\n" +
		"# removes a detected feature.\n" +
		"#\n" +
		"# avx512=false\n" +
		"# toolset=msvc\n" +
		"# msvc-version=19.38\n"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("cannot write host template %s: %w", path, err)
	}
	return nil
}
