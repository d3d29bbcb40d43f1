package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Platform is the decoded form of a target triple
// (architecture-vendor-os, optionally with a libc/ABI suffix).
type Platform struct {
	Triple string // Original triple string
	OS     string // GOOS value
	Arch   string // GOARCH value
	Vendor string // Vendor component (pc, unknown, apple)
	Libc   string // Libc/ABI component (gnu, musl), empty when absent
}

var tripleArchs = map[string]string{
	"x86_64":  "amd64",
	"aarch64": "arm64",
	"i686":    "386",
	"armv7":   "arm",
}

// ParseTriple decodes a target triple into a Platform. Unknown
// architectures or OS components are an error rather than a guess.
func ParseTriple(triple string) (*Platform, error) {
	parts := strings.Split(triple, "-")
	if len(parts) < 3 {
		return nil, goerr.New("invalid target triple", goerr.V("triple", triple))
	}

	goarch, ok := tripleArchs[parts[0]]
	if !ok {
		return nil, goerr.New("unsupported architecture in target triple",
			goerr.V("triple", triple), goerr.V("arch", parts[0]))
	}

	p := &Platform{
		Triple: triple,
		Arch:   goarch,
		Vendor: parts[1],
	}

	switch {
	case parts[1] == "apple" && parts[2] == "darwin":
		p.OS = "darwin"
	case parts[2] == "windows":
		p.OS = "windows"
		if len(parts) > 3 {
			p.Libc = parts[3]
		}
	case parts[2] == "linux":
		p.OS = "linux"
		if len(parts) > 3 {
			p.Libc = parts[3]
		}
	default:
		return nil, goerr.New("unsupported OS in target triple",
			goerr.V("triple", triple), goerr.V("os", parts[2]))
	}

	return p, nil
}

// ExeSuffix returns the executable file suffix for the platform.
func (p *Platform) ExeSuffix() string {
	if p.OS == "windows" {
		return ".exe"
	}
	return ""
}

// IsDarwin reports whether the platform is macOS. The Homebrew stage
// uses the darwin leg's archive as the formula bottle source.
func (p *Platform) IsDarwin() bool {
	return p.OS == "darwin"
}

// IsStatic reports whether the target is expected to produce a
// statically linked binary (musl legs).
func (p *Platform) IsStatic() bool {
	return p.Libc == "musl"
}
