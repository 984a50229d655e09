// Package hostctx builds the host context that media queries are
// evaluated against.
package hostctx

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/cpu"

	"github.com/kamusis/tooldeck/internal/query"
)

// Platform names a GOOS/GOARCH pair.
type Platform struct {
	OS   string
	Arch string
}

// Current returns the platform this binary runs on.
func Current() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// osNames maps GOOS values to the feature names documents use.
var osNames = map[string]string{
	"windows": "windows",
	"linux":   "linux",
	"darwin":  "osx",
	"freebsd": "freebsd",
	"openbsd": "openbsd",
	"netbsd":  "netbsd",
	"android": "android",
	"ios":     "ios",
}

// archNames maps GOARCH values to the feature names documents use.
var archNames = map[string]string{
	"amd64":   "x64",
	"386":     "x86",
	"arm":     "arm",
	"arm64":   "arm64",
	"riscv64": "riscv64",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
	"loong64": "loong64",
}

// Detect returns the context of the running host: its platform flags
// plus the CPU features reported by the processor.
func Detect() query.Context {
	ctx := ForPlatform(Current())
	for name, on := range cpuFeatures() {
		if on {
			ctx[name] = true
		}
	}
	return ctx
}

// ForPlatform returns the context for p without CPU features. Besides the
// boolean OS and arch flags it sets "os", "arch", "host" and "target"
// ("<os>-<arch>") string values.
func ForPlatform(p Platform) query.Context {
	osName := osNames[p.OS]
	if osName == "" {
		osName = p.OS
	}
	arch := archNames[p.Arch]
	if arch == "" {
		arch = p.Arch
	}
	ctx := query.Context{
		osName:   true,
		arch:     true,
		"os":     osName,
		"arch":   arch,
		"host":   osName + "-" + arch,
		"target": osName + "-" + arch,
	}
	if p.OS != "windows" {
		ctx["unix"] = true
	}
	return ctx
}

func cpuFeatures() map[string]bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return map[string]bool{
			"sse2":   cpu.X86.HasSSE2,
			"sse3":   cpu.X86.HasSSE3,
			"ssse3":  cpu.X86.HasSSSE3,
			"sse4":   cpu.X86.HasSSE41 && cpu.X86.HasSSE42,
			"avx":    cpu.X86.HasAVX,
			"avx2":   cpu.X86.HasAVX2,
			"avx512": cpu.X86.HasAVX512F,
			"aes":    cpu.X86.HasAES,
			"bmi2":   cpu.X86.HasBMI2,
			"popcnt": cpu.X86.HasPOPCNT,
			"fma":    cpu.X86.HasFMA,
		}
	case "arm64":
		return map[string]bool{
			"neon":  cpu.ARM64.HasASIMD,
			"aes":   cpu.ARM64.HasAES,
			"crc32": cpu.ARM64.HasCRC32,
			"sve":   cpu.ARM64.HasSVE,
		}
	case "arm":
		return map[string]bool{
			"neon":  cpu.ARM.HasNEON,
			"vfpv4": cpu.ARM.HasVFPv4,
		}
	}
	return nil
}

// ParseValue converts an override value to a context value: "true" and
// "false" become booleans, numbers become float64, "" becomes nil (the
// feature is removed) and anything else stays a string.
func ParseValue(s string) any {
	switch s {
	case "":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if looksNumeric(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

func looksNumeric(s string) bool {
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, ".")
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// Overrides are host features set by the user on top of detection.
type Overrides map[string]any

// ParseOverrides converts KEY=VALUE pairs, as read from a host file or
// given on the command line, to overrides.
func ParseOverrides(pairs map[string]string) Overrides {
	o := make(Overrides, len(pairs))
	for k, v := range pairs {
		o[k] = ParseValue(v)
	}
	return o
}

// ParseAssignments parses "key=value" strings. A bare "key" sets the
// feature to true.
func ParseAssignments(args []string) (Overrides, error) {
	o := make(Overrides, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, fmt.Errorf("invalid host override %q: empty feature name", a)
		}
		if !ok {
			o[k] = true
			continue
		}
		o[k] = ParseValue(strings.TrimSpace(v))
	}
	return o, nil
}

// Merge returns the union of o and other; other wins.
func (o Overrides) Merge(other Overrides) Overrides {
	out := make(Overrides, len(o)+len(other))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Apply returns a copy of ctx with the overrides applied. A nil override
// removes the feature.
func (o Overrides) Apply(ctx query.Context) query.Context {
	out := ctx.Clone()
	for k, v := range o {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// Describe renders ctx as sorted "key=value" lines.
func Describe(ctx query.Context) []string {
	keys := ctx.Keys()
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s=%v", k, ctx[k]))
	}
	return lines
}
