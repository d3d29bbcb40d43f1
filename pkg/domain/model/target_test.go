package model_test

import (
	"testing"

	"github.com/slipway-dev/slipway/pkg/domain/model"
)

func TestParseTriple(t *testing.T) {
	tests := []struct {
		name    string
		triple  string
		wantOS  string
		wantArc string
		wantLib string
		wantErr bool
	}{
		{
			name:    "Windows gnu",
			triple:  "x86_64-pc-windows-gnu",
			wantOS:  "windows",
			wantArc: "amd64",
			wantLib: "gnu",
		},
		{
			name:    "Linux musl",
			triple:  "x86_64-unknown-linux-musl",
			wantOS:  "linux",
			wantArc: "amd64",
			wantLib: "musl",
		},
		{
			name:    "macOS",
			triple:  "x86_64-apple-darwin",
			wantOS:  "darwin",
			wantArc: "amd64",
		},
		{
			name:    "Linux arm64",
			triple:  "aarch64-unknown-linux-gnu",
			wantOS:  "linux",
			wantArc: "arm64",
			wantLib: "gnu",
		},
		{
			name:    "macOS arm64",
			triple:  "aarch64-apple-darwin",
			wantOS:  "darwin",
			wantArc: "arm64",
		},
		{
			name:    "Unknown architecture",
			triple:  "riscv64-unknown-linux-gnu",
			wantErr: true,
		},
		{
			name:    "Unknown OS",
			triple:  "x86_64-unknown-haiku",
			wantErr: true,
		},
		{
			name:    "Too few components",
			triple:  "x86_64-linux",
			wantErr: true,
		},
		{
			name:    "Empty",
			triple:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := model.ParseTriple(tt.triple)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTriple(%q) error = %v, wantErr %v", tt.triple, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.OS != tt.wantOS {
				t.Errorf("OS = %q, want %q", p.OS, tt.wantOS)
			}
			if p.Arch != tt.wantArc {
				t.Errorf("Arch = %q, want %q", p.Arch, tt.wantArc)
			}
			if p.Libc != tt.wantLib {
				t.Errorf("Libc = %q, want %q", p.Libc, tt.wantLib)
			}
		})
	}
}

func TestPlatform_ExeSuffix(t *testing.T) {
	win, err := model.ParseTriple("x86_64-pc-windows-gnu")
	if err != nil {
		t.Fatal(err)
	}
	if win.ExeSuffix() != ".exe" {
		t.Errorf("windows suffix = %q, want .exe", win.ExeSuffix())
	}

	linux, err := model.ParseTriple("x86_64-unknown-linux-musl")
	if err != nil {
		t.Fatal(err)
	}
	if linux.ExeSuffix() != "" {
		t.Errorf("linux suffix = %q, want empty", linux.ExeSuffix())
	}
	if !linux.IsStatic() {
		t.Error("musl leg should report static")
	}

	darwin, err := model.ParseTriple("x86_64-apple-darwin")
	if err != nil {
		t.Fatal(err)
	}
	if !darwin.IsDarwin() {
		t.Error("darwin leg should report IsDarwin")
	}
}
