package model

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ArchiveKind is the packaging format of a matrix leg output.
type ArchiveKind string

const (
	ArchiveZip   ArchiveKind = "zip"
	ArchiveTarGz ArchiveKind = "tar.gz"
	ArchiveTarXz ArchiveKind = "tar.xz"
)

// Ext returns the archive file extension including the leading dot.
func (k ArchiveKind) Ext() string {
	return "." + string(k)
}

func (k ArchiveKind) valid() bool {
	switch k {
	case ArchiveZip, ArchiveTarGz, ArchiveTarXz:
		return true
	default:
		return false
	}
}

// Workflow is the declarative release pipeline definition, loaded from
// slipway.yml (or slipway.toml).
type Workflow struct {
	Project    Project      `yaml:"project" toml:"project"`
	Trigger    Trigger      `yaml:"on" toml:"on"`
	Build      BuildConfig  `yaml:"build" toml:"build"`
	Matrix     Matrix       `yaml:"matrix" toml:"matrix"`
	ExtraFiles []string     `yaml:"extra-files" toml:"extra-files"`
	Brew       *BrewConfig  `yaml:"brew" toml:"brew"`
	Blobs      []BlobConfig `yaml:"blobs" toml:"blobs"`
	Notify     NotifyConfig `yaml:"notify" toml:"notify"`
}

// Project identifies what the pipeline builds.
type Project struct {
	Name string `yaml:"name" toml:"name"`
	// Dir is the subdirectory holding the buildable tree. Empty means
	// the repository root.
	Dir string `yaml:"dir" toml:"dir"`
}

// Trigger declares which release event actions start the pipeline.
type Trigger struct {
	Release ReleaseTrigger `yaml:"release" toml:"release"`
}

// ReleaseTrigger lists the release event actions that match.
type ReleaseTrigger struct {
	Types []string `yaml:"types" toml:"types"`
}

// DefaultTriggerTypes is applied when the workflow omits on.release.types.
var DefaultTriggerTypes = []string{"published", "created"}

// Matches reports whether a webhook event should start the pipeline.
// Only release events match, and only for the declared actions.
func (t Trigger) Matches(eventType, action string) bool {
	if eventType != "release" {
		return false
	}
	types := t.Release.Types
	if len(types) == 0 {
		types = DefaultTriggerTypes
	}
	for _, v := range types {
		if v == action {
			return true
		}
	}
	return false
}

// BuildConfig controls how each matrix leg compiles the project.
type BuildConfig struct {
	// Command is a template executed per leg. Available fields:
	// .Triple .GOOS .GOARCH .Output .Minify. Empty selects the builtin
	// `go build` invocation.
	Command string `yaml:"command" toml:"command"`
	// Minify strips symbol tables from the produced binary.
	Minify bool `yaml:"minify" toml:"minify"`
}

// Matrix is the fan-out of build legs.
type Matrix struct {
	// FailFast cancels pending legs after the first failure. The
	// default (false) lets every leg run to completion regardless of
	// sibling outcomes.
	FailFast bool           `yaml:"fail-fast" toml:"fail-fast"`
	Targets  []MatrixTarget `yaml:"targets" toml:"targets"`
}

// MatrixTarget is one leg of the matrix: a target triple and the
// archive kinds packaged from its build output.
type MatrixTarget struct {
	Triple   string        `yaml:"triple" toml:"triple"`
	Archives []ArchiveKind `yaml:"archives" toml:"archives"`
}

// DefaultMatrix returns the canonical three-leg matrix.
func DefaultMatrix() []MatrixTarget {
	return []MatrixTarget{
		{Triple: "x86_64-pc-windows-gnu", Archives: []ArchiveKind{ArchiveZip}},
		{Triple: "x86_64-unknown-linux-musl", Archives: []ArchiveKind{ArchiveTarGz, ArchiveTarXz}},
		{Triple: "x86_64-apple-darwin", Archives: []ArchiveKind{ArchiveZip}},
	}
}

// BrewConfig describes the Homebrew bump stage.
type BrewConfig struct {
	// Tap is the tap repository in owner/repo form.
	Tap     string `yaml:"tap" toml:"tap"`
	Formula string `yaml:"formula" toml:"formula"`
	// Homepage and Description feed the generated formula.
	Homepage    string `yaml:"homepage" toml:"homepage"`
	Description string `yaml:"description" toml:"description"`
	// SkipDuplicate short-circuits the bump when an open PR for the
	// same version already exists. Defaults to true.
	SkipDuplicate *bool `yaml:"skip-duplicate" toml:"skip-duplicate"`
}

// SkipDuplicateEnabled resolves the duplicate-PR check default (on).
func (b *BrewConfig) SkipDuplicateEnabled() bool {
	return b.SkipDuplicate == nil || *b.SkipDuplicate
}

// TapOwnerRepo splits the tap identifier.
func (b *BrewConfig) TapOwnerRepo() (string, string, error) {
	owner, repo, ok := strings.Cut(b.Tap, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", goerr.New("brew tap must be in owner/repo form", goerr.V("tap", b.Tap))
	}
	return owner, repo, nil
}

// BlobConfig mirrors produced archives to an object storage bucket.
type BlobConfig struct {
	Bucket string `yaml:"bucket" toml:"bucket"`
	Prefix string `yaml:"prefix" toml:"prefix"`
}

// NotifyConfig configures post-run notification.
type NotifyConfig struct {
	SlackChannel string `yaml:"slack-channel" toml:"slack-channel"`
}

// ApplyDefaults fills omitted fields: trigger types, matrix, extras.
func (w *Workflow) ApplyDefaults() {
	if len(w.Trigger.Release.Types) == 0 {
		w.Trigger.Release.Types = append([]string(nil), DefaultTriggerTypes...)
	}
	if len(w.Matrix.Targets) == 0 {
		w.Matrix.Targets = DefaultMatrix()
	}
	if len(w.ExtraFiles) == 0 {
		w.ExtraFiles = []string{"README.md"}
	}
}

// Validate checks the workflow for structural errors. ApplyDefaults
// must run first so omitted sections do not report as invalid.
func (w *Workflow) Validate() error {
	if w.Project.Name == "" {
		return goerr.New("project.name is required")
	}
	if len(w.Matrix.Targets) == 0 {
		return goerr.New("matrix.targets must not be empty")
	}

	seen := map[string]bool{}
	for _, tgt := range w.Matrix.Targets {
		if seen[tgt.Triple] {
			return goerr.New("duplicate target triple", goerr.V("triple", tgt.Triple))
		}
		seen[tgt.Triple] = true

		if _, err := ParseTriple(tgt.Triple); err != nil {
			return goerr.Wrap(err, "invalid matrix target")
		}
		if len(tgt.Archives) == 0 {
			return goerr.New("target declares no archives", goerr.V("triple", tgt.Triple))
		}
		for _, kind := range tgt.Archives {
			if !kind.valid() {
				return goerr.New("unknown archive kind",
					goerr.V("triple", tgt.Triple), goerr.V("kind", string(kind)))
			}
		}
	}

	for _, pattern := range w.ExtraFiles {
		if filepath.IsAbs(pattern) || strings.Contains(pattern, "..") {
			return goerr.New("extra-files entries must be relative paths without traversal",
				goerr.V("pattern", pattern))
		}
	}

	if w.Brew != nil {
		if _, _, err := w.Brew.TapOwnerRepo(); err != nil {
			return err
		}
		if w.Brew.Formula == "" {
			return goerr.New("brew.formula is required when brew is configured")
		}
	}

	for _, b := range w.Blobs {
		if b.Bucket == "" {
			return goerr.New("blobs entries require a bucket")
		}
	}

	return nil
}

// ArchiveName returns the file name of a leg archive:
// <project>_<version>_<triple>.<ext>.
func (w *Workflow) ArchiveName(version, triple string, kind ArchiveKind) string {
	return fmt.Sprintf("%s_%s_%s%s", w.Project.Name, version, triple, kind.Ext())
}
