package interfaces

import (
	"context"

	"github.com/slipway-dev/slipway/pkg/domain/model"
)

// BuildSpec is the input to one build leg.
type BuildSpec struct {
	Platform *model.Platform
	// Dir is the project directory the build runs in.
	Dir string
	// Output is the absolute path the binary must be written to.
	Output string
	// Command overrides the builtin build invocation (template text).
	Command string
	Minify  bool
}

// Builder compiles the project for one platform.
type Builder interface {
	Build(ctx context.Context, spec BuildSpec) error
}

// BlobStore mirrors archives to object storage.
type BlobStore interface {
	Put(ctx context.Context, bucket, key, path string) error
}

// Notifier reports a finished pipeline run.
type Notifier interface {
	NotifyResult(ctx context.Context, channel string, result *model.PipelineResult) error
}
