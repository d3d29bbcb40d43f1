package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/template"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/slipway-dev/slipway/pkg/domain/interfaces"
)

type runner struct{}

// NewRunner creates the exec-based Builder. Each leg runs the
// configured build command (or the builtin `go build` invocation) in
// the project directory with cross-compilation env set.
func NewRunner() interfaces.Builder {
	return &runner{}
}

// commandData is the template context for build.command.
type commandData struct {
	Triple string
	GOOS   string
	GOARCH string
	Output string
	Minify bool
}

// Build compiles the project for one platform. Non-zero exit is a
// failure carrying the captured stderr tail.
func (r *runner) Build(ctx context.Context, spec interfaces.BuildSpec) error {
	logger := ctxlog.From(ctx)

	argv, err := renderCommand(spec)
	if err != nil {
		return err
	}

	logger.Debug("Running build command",
		"dir", spec.Dir,
		"argv", argv,
		"triple", spec.Platform.Triple,
	)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(),
		"TARGET="+spec.Platform.Triple,
		"GOOS="+spec.Platform.OS,
		"GOARCH="+spec.Platform.Arch,
		"CGO_ENABLED=0",
	)

	var stderr bytes.Buffer
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return goerr.Wrap(err, "build command failed",
			goerr.V("triple", spec.Platform.Triple),
			goerr.V("stderr", tail(stderr.String(), 2048)),
		)
	}

	if _, err := os.Stat(spec.Output); err != nil {
		return goerr.Wrap(err, "build command produced no binary",
			goerr.V("output", spec.Output))
	}

	return nil
}

// renderCommand expands build.command, or falls back to `go build`.
func renderCommand(spec interfaces.BuildSpec) ([]string, error) {
	if spec.Command == "" {
		argv := []string{"go", "build", "-trimpath"}
		if spec.Minify {
			argv = append(argv, "-ldflags", "-s -w")
		}
		return append(argv, "-o", spec.Output, "."), nil
	}

	tmpl, err := template.New("build").Parse(spec.Command)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid build.command template")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, commandData{
		Triple: spec.Platform.Triple,
		GOOS:   spec.Platform.OS,
		GOARCH: spec.Platform.Arch,
		Output: spec.Output,
		Minify: spec.Minify,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to render build.command")
	}

	argv := strings.Fields(buf.String())
	if len(argv) == 0 {
		return nil, goerr.New("build.command rendered to an empty command")
	}
	return argv, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("...%s", s[len(s)-n:])
}
