package usecase

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/slipway-dev/slipway/pkg/domain/interfaces"
	"github.com/slipway-dev/slipway/pkg/domain/model"
)

type pipeline struct {
	wf      *model.Workflow
	builder interfaces.Builder

	github      interfaces.GitHubClient
	blobs       interfaces.BlobStore
	notifier    interfaces.Notifier
	repoRoot    string
	distDir     string
	parallelism int
	skipPublish bool
	skipBrew    bool
}

// PipelineOption is a functional option for pipeline configuration
type PipelineOption func(*pipeline)

// WithGitHub sets the GitHub client used for publishing and the brew bump.
func WithGitHub(client interfaces.GitHubClient) PipelineOption {
	return func(p *pipeline) {
		p.github = client
	}
}

// WithBlobStore enables mirroring archives to object storage.
func WithBlobStore(store interfaces.BlobStore) PipelineOption {
	return func(p *pipeline) {
		p.blobs = store
	}
}

// WithNotifier enables post-run notification.
func WithNotifier(n interfaces.Notifier) PipelineOption {
	return func(p *pipeline) {
		p.notifier = n
	}
}

// WithRepoRoot sets the checkout root the project dir is relative to.
func WithRepoRoot(root string) PipelineOption {
	return func(p *pipeline) {
		p.repoRoot = root
	}
}

// WithDistDir sets where artifacts are written. Defaults to "dist".
func WithDistDir(dir string) PipelineOption {
	return func(p *pipeline) {
		p.distDir = dir
	}
}

// WithParallelism bounds concurrent matrix legs. Defaults to the
// number of legs.
func WithParallelism(n int) PipelineOption {
	return func(p *pipeline) {
		p.parallelism = n
	}
}

// WithSkipPublish disables the publish and brew stages (local build only).
func WithSkipPublish() PipelineOption {
	return func(p *pipeline) {
		p.skipPublish = true
	}
}

// WithSkipBrew disables only the Homebrew bump stage.
func WithSkipBrew() PipelineOption {
	return func(p *pipeline) {
		p.skipBrew = true
	}
}

// NewPipeline creates a PipelineUseCase for one workflow.
func NewPipeline(wf *model.Workflow, builder interfaces.Builder, opts ...PipelineOption) interfaces.PipelineUseCase {
	p := &pipeline{
		wf:      wf,
		builder: builder,
		distDir: "dist",
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.parallelism <= 0 {
		p.parallelism = len(wf.Matrix.Targets)
	}
	return p
}

// Run executes the two-stage pipeline: the build matrix, then the
// Homebrew bump, which only runs when every leg succeeded. Matrix legs run
// concurrently; with fail-fast disabled a failed leg never cancels its
// siblings.
func (p *pipeline) Run(ctx context.Context, release model.ReleaseInfo) (*model.PipelineResult, error) {
	logger := ctxlog.From(ctx)

	result := &model.PipelineResult{
		RunID:   uuid.NewString(),
		Release: release,
		Started: time.Now(),
	}

	logger.Info("Starting release pipeline",
		"run_id", result.RunID,
		"project", p.wf.Project.Name,
		"tag", release.TagName,
		"targets", len(p.wf.Matrix.Targets),
		"fail_fast", p.wf.Matrix.FailFast,
	)

	if release.CommitSHA == "" && p.github != nil && release.Owner != "" {
		sha, err := p.github.ResolveRef(ctx, release.Owner, release.Repo, release.TagName)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve tag revision", goerr.V("tag", release.TagName))
		}
		release.CommitSHA = sha
		result.Release.CommitSHA = sha
	}

	if err := os.MkdirAll(p.distDir, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create dist directory", goerr.V("dir", p.distDir))
	}

	result.Legs = p.runMatrix(ctx, release)
	for _, leg := range result.Legs {
		if leg.Status == model.LegFailed {
			logger.Error("Matrix leg failed",
				"triple", leg.Target.Triple,
				"error", leg.Err,
			)
		}
	}

	if !p.skipPublish && p.github != nil {
		if err := p.publish(ctx, release, result); err != nil {
			result.Finished = time.Now()
			return result, goerr.Wrap(err, "failed to publish release assets")
		}
	}

	// The brew stage carries a needs edge on the matrix: it only runs
	// after every leg is terminal, and only when all of them succeeded.
	result.Brew = model.BrewOutcome{Status: model.BrewNotEnabled}
	if p.wf.Brew != nil {
		switch {
		case p.skipBrew || p.skipPublish || p.github == nil:
			result.Brew = model.BrewOutcome{Status: model.BrewSkipped}
		case !result.Succeeded():
			result.Brew = model.BrewOutcome{Status: model.BrewSkipped}
			logger.Warn("Skipping Homebrew bump, not all matrix legs succeeded",
				"failed_legs", len(result.FailedLegs()),
			)
		default:
			outcome, err := p.bumpFormula(ctx, release, result)
			if err != nil {
				result.Finished = time.Now()
				return result, goerr.Wrap(err, "failed to bump Homebrew formula")
			}
			result.Brew = outcome
		}
	}

	p.mirrorAndNotify(ctx, result)

	result.Finished = time.Now()

	if failed := result.FailedLegs(); len(failed) > 0 {
		triples := make([]string, 0, len(failed))
		for _, leg := range failed {
			triples = append(triples, leg.Target.Triple)
		}
		return result, goerr.New("matrix legs failed", goerr.V("triples", triples))
	}

	logger.Info("Release pipeline finished",
		"run_id", result.RunID,
		"duration_ms", result.Finished.Sub(result.Started).Milliseconds(),
		"published_assets", len(result.Published),
		"brew", string(result.Brew.Status),
	)

	return result, nil
}

// runMatrix fans out the build legs with bounded parallelism.
func (p *pipeline) runMatrix(ctx context.Context, release model.ReleaseInfo) []model.LegResult {
	targets := p.wf.Matrix.Targets
	results := make([]model.LegResult, len(targets))

	sem := make(chan struct{}, p.parallelism)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed bool

	for i, tgt := range targets {
		wg.Add(1)
		go func(i int, tgt model.MatrixTarget) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			skip := ctx.Err() != nil || (p.wf.Matrix.FailFast && failed)
			mu.Unlock()
			if skip {
				results[i] = model.LegResult{Target: tgt, Status: model.LegSkipped}
				return
			}

			res := p.runLeg(ctx, release, tgt)

			mu.Lock()
			if res.Status == model.LegFailed {
				failed = true
			}
			results[i] = res
			mu.Unlock()
		}(i, tgt)
	}

	wg.Wait()
	return results
}

// runLeg builds one target and packages its archives.
func (p *pipeline) runLeg(ctx context.Context, release model.ReleaseInfo, tgt model.MatrixTarget) model.LegResult {
	logger := ctxlog.From(ctx)
	start := time.Now()

	fail := func(err error) model.LegResult {
		return model.LegResult{
			Target:   tgt,
			Status:   model.LegFailed,
			Err:      err,
			Duration: time.Since(start),
		}
	}

	platform, err := model.ParseTriple(tgt.Triple)
	if err != nil {
		return fail(err)
	}

	logger.Info("Building matrix leg",
		"triple", tgt.Triple,
		"goos", platform.OS,
		"goarch", platform.Arch,
	)

	legDir := filepath.Join(p.distDir, tgt.Triple)
	if err := os.MkdirAll(legDir, 0755); err != nil {
		return fail(goerr.Wrap(err, "failed to create leg directory", goerr.V("dir", legDir)))
	}

	binName := p.wf.Project.Name + platform.ExeSuffix()
	binPath, err := filepath.Abs(filepath.Join(legDir, binName))
	if err != nil {
		return fail(goerr.Wrap(err, "failed to resolve binary path"))
	}

	projectDir := filepath.Join(p.repoRoot, p.wf.Project.Dir)
	if err := p.builder.Build(ctx, interfaces.BuildSpec{
		Platform: platform,
		Dir:      projectDir,
		Output:   binPath,
		Command:  p.wf.Build.Command,
		Minify:   p.wf.Build.Minify,
	}); err != nil {
		return fail(goerr.Wrap(err, "build failed", goerr.V("triple", tgt.Triple)))
	}

	extras, err := collectExtraFiles(projectDir, p.wf.ExtraFiles)
	if err != nil {
		return fail(err)
	}
	entries := append([]archiveEntry{{Name: binName, Path: binPath, Mode: 0755}}, extras...)

	var assets []model.Asset
	for _, kind := range tgt.Archives {
		name := p.wf.ArchiveName(release.TagName, tgt.Triple, kind)
		asset, err := writeArchive(filepath.Join(p.distDir, name), kind, entries)
		if err != nil {
			return fail(err)
		}
		assets = append(assets, asset)

		logger.Debug("Packaged archive",
			"name", asset.Name,
			"size_bytes", asset.Size,
			"sha256", asset.SHA256,
		)
	}

	return model.LegResult{
		Target:   tgt,
		Platform: platform,
		Status:   model.LegSucceeded,
		Assets:   assets,
		Duration: time.Since(start),
	}
}

// publish uploads successful legs' archives plus checksums.txt to the
// GitHub release for the tag.
func (p *pipeline) publish(ctx context.Context, release model.ReleaseInfo, result *model.PipelineResult) error {
	logger := ctxlog.From(ctx)

	var assets []model.Asset
	for _, leg := range result.Legs {
		if leg.Status == model.LegSucceeded {
			assets = append(assets, leg.Assets...)
		}
	}
	if len(assets) == 0 {
		logger.Warn("No assets to publish")
		return nil
	}

	sumsPath := filepath.Join(p.distDir, "checksums.txt")
	if err := os.WriteFile(sumsPath, []byte(renderChecksums(assets)), 0644); err != nil {
		return goerr.Wrap(err, "failed to write checksums file")
	}
	sums, err := assetFromFile(sumsPath)
	if err != nil {
		return err
	}
	assets = append(assets, sums)

	releaseID, err := p.github.EnsureRelease(ctx, release.Owner, release.Repo, release.TagName)
	if err != nil {
		return err
	}

	for _, asset := range assets {
		url, err := p.github.UploadReleaseAsset(ctx, release.Owner, release.Repo, releaseID, asset.Path)
		if err != nil {
			return goerr.Wrap(err, "failed to upload asset", goerr.V("asset", asset.Name))
		}
		logger.Info("Uploaded release asset", "asset", asset.Name, "url", url)
	}

	result.Published = assets
	return nil
}

// mirrorAndNotify runs the best-effort post-publish steps. Failures
// here are logged, not fatal to the run.
func (p *pipeline) mirrorAndNotify(ctx context.Context, result *model.PipelineResult) {
	logger := ctxlog.From(ctx)

	if p.blobs != nil {
		for _, blob := range p.wf.Blobs {
			for _, asset := range result.Published {
				key := filepath.ToSlash(filepath.Join(blob.Prefix, result.Release.TagName, asset.Name))
				if err := p.blobs.Put(ctx, blob.Bucket, key, asset.Path); err != nil {
					logger.Error("Failed to mirror asset",
						"bucket", blob.Bucket,
						"key", key,
						"error", err,
					)
				}
			}
		}
	}

	if p.notifier != nil && p.wf.Notify.SlackChannel != "" {
		if err := p.notifier.NotifyResult(ctx, p.wf.Notify.SlackChannel, result); err != nil {
			logger.Error("Failed to send notification", "error", err)
		}
	}
}
