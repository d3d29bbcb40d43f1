package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/slipway-dev/slipway/pkg/domain/interfaces"
	"github.com/slipway-dev/slipway/pkg/domain/model"
	"github.com/slipway-dev/slipway/pkg/usecase"
)

// mockBuilder writes a fake binary, or fails for selected triples.
type mockBuilder struct {
	mu          sync.Mutex
	calls       []string
	failTriples map[string]bool
}

func (b *mockBuilder) Build(ctx context.Context, spec interfaces.BuildSpec) error {
	b.mu.Lock()
	b.calls = append(b.calls, spec.Platform.Triple)
	b.mu.Unlock()

	if b.failTriples[spec.Platform.Triple] {
		return errors.New("compiler exploded")
	}
	return os.WriteFile(spec.Output, []byte("binary for "+spec.Platform.Triple), 0755)
}

// mockGitHub records calls and returns canned values.
type mockGitHub struct {
	mu sync.Mutex

	uploaded    []string
	putFiles    map[string][]byte
	prs         []string
	branches    []string
	openPRExist bool
}

func newMockGitHub() *mockGitHub {
	return &mockGitHub{putFiles: map[string][]byte{}}
}

func (m *mockGitHub) EnsureRelease(ctx context.Context, owner, repo, tag string) (int64, error) {
	return 42, nil
}

func (m *mockGitHub) UploadReleaseAsset(ctx context.Context, owner, repo string, releaseID int64, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploaded = append(m.uploaded, filepath.Base(path))
	return "https://example.com/" + filepath.Base(path), nil
}

func (m *mockGitHub) ResolveRef(ctx context.Context, owner, repo, ref string) (string, error) {
	return "abc1234", nil
}

func (m *mockGitHub) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	return "main", nil
}

func (m *mockGitHub) CreateBranch(ctx context.Context, owner, repo, branch, sha string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.branches = append(m.branches, branch)
	return nil
}

func (m *mockGitHub) PutFile(ctx context.Context, owner, repo, branch, path, message string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putFiles[path] = content
	return nil
}

func (m *mockGitHub) HasOpenPR(ctx context.Context, owner, repo, headBranch string) (bool, error) {
	return m.openPRExist, nil
}

func (m *mockGitHub) CreatePR(ctx context.Context, owner, repo, title, head, base, body string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prs = append(m.prs, head)
	return "https://github.com/acme/homebrew-tap/pull/7", nil
}

func testWorkflow(t *testing.T) (*model.Workflow, string) {
	t.Helper()

	projectDir := t.TempDir()
	err := os.WriteFile(filepath.Join(projectDir, "README.md"), []byte("# replibyte"), 0644)
	gt.NoError(t, err)

	wf := &model.Workflow{
		Project: model.Project{Name: "replibyte"},
		Brew: &model.BrewConfig{
			Tap:     "acme/homebrew-tap",
			Formula: "replibyte",
		},
	}
	wf.ApplyDefaults()
	gt.NoError(t, wf.Validate())

	return wf, projectDir
}

func release() model.ReleaseInfo {
	return model.ReleaseInfo{
		Owner:   "acme",
		Repo:    "replibyte",
		TagName: "v0.10.0",
		Action:  "published",
	}
}

func TestPipeline_Run_Success(t *testing.T) {
	wf, projectDir := testWorkflow(t)
	builder := &mockBuilder{}
	gh := newMockGitHub()

	pipeline := usecase.NewPipeline(wf, builder,
		usecase.WithGitHub(gh),
		usecase.WithRepoRoot(projectDir),
		usecase.WithDistDir(t.TempDir()),
	)

	result, err := pipeline.Run(context.Background(), release())
	gt.NoError(t, err)
	gt.Value(t, result.Succeeded()).Equal(true)
	gt.Array(t, result.Legs).Length(3)

	// All three legs built.
	gt.Number(t, len(builder.calls)).Equal(3)

	// Four archives plus checksums.txt published.
	gt.Array(t, result.Published).Length(5)
	gt.Array(t, gh.uploaded).Length(5)
	gt.Array(t, gh.uploaded).Has("checksums.txt")
	gt.Array(t, gh.uploaded).Has("replibyte_v0.10.0_x86_64-pc-windows-gnu.zip")
	gt.Array(t, gh.uploaded).Has("replibyte_v0.10.0_x86_64-unknown-linux-musl.tar.gz")
	gt.Array(t, gh.uploaded).Has("replibyte_v0.10.0_x86_64-unknown-linux-musl.tar.xz")
	gt.Array(t, gh.uploaded).Has("replibyte_v0.10.0_x86_64-apple-darwin.zip")

	// Revision was auto-derived from the tag.
	gt.Value(t, result.Release.CommitSHA).Equal("abc1234")

	// Brew stage ran after the matrix and produced a PR.
	gt.Value(t, result.Brew.Status).Equal(model.BrewBumped)
	gt.Array(t, gh.branches).Has("bump-replibyte-v0.10.0")
	gt.Array(t, gh.prs).Length(1)

	formula := string(gh.putFiles["Formula/replibyte.rb"])
	gt.String(t, formula).Contains(`version "0.10.0"`)
	gt.String(t, formula).Contains("replibyte_v0.10.0_x86_64-apple-darwin.zip")
	gt.String(t, formula).Contains("class Replibyte < Formula")
}

func TestPipeline_Run_LegFailureDoesNotCancelSiblings(t *testing.T) {
	wf, projectDir := testWorkflow(t)
	builder := &mockBuilder{failTriples: map[string]bool{
		"x86_64-unknown-linux-musl": true,
	}}
	gh := newMockGitHub()

	pipeline := usecase.NewPipeline(wf, builder,
		usecase.WithGitHub(gh),
		usecase.WithRepoRoot(projectDir),
		usecase.WithDistDir(t.TempDir()),
	)

	result, err := pipeline.Run(context.Background(), release())
	gt.Error(t, err)
	gt.Value(t, result).NotNil()

	// fail-fast is disabled: every leg still ran.
	gt.Number(t, len(builder.calls)).Equal(3)

	byTriple := map[string]model.LegStatus{}
	for _, leg := range result.Legs {
		byTriple[leg.Target.Triple] = leg.Status
	}
	gt.Value(t, byTriple["x86_64-unknown-linux-musl"]).Equal(model.LegFailed)
	gt.Value(t, byTriple["x86_64-pc-windows-gnu"]).Equal(model.LegSucceeded)
	gt.Value(t, byTriple["x86_64-apple-darwin"]).Equal(model.LegSucceeded)

	// Successful legs' assets still published (plus checksums).
	gt.Array(t, gh.uploaded).Length(3)

	// The brew stage needs every leg green; it must not have run.
	gt.Value(t, result.Brew.Status).Equal(model.BrewSkipped)
	gt.Array(t, gh.prs).Length(0)
}

func TestPipeline_Run_FailFast(t *testing.T) {
	wf, projectDir := testWorkflow(t)
	wf.Matrix.FailFast = true

	// Every leg fails; with fail-fast and serial execution exactly one
	// leg runs and the rest are skipped.
	builder := &mockBuilder{failTriples: map[string]bool{
		"x86_64-pc-windows-gnu":     true,
		"x86_64-unknown-linux-musl": true,
		"x86_64-apple-darwin":       true,
	}}

	pipeline := usecase.NewPipeline(wf, builder,
		usecase.WithRepoRoot(projectDir),
		usecase.WithDistDir(t.TempDir()),
		usecase.WithParallelism(1),
		usecase.WithSkipPublish(),
	)

	result, err := pipeline.Run(context.Background(), release())
	gt.Error(t, err)

	gt.Number(t, len(builder.calls)).Equal(1)

	var failed, skipped int
	for _, leg := range result.Legs {
		switch leg.Status {
		case model.LegFailed:
			failed++
		case model.LegSkipped:
			skipped++
		}
	}
	gt.Number(t, failed).Equal(1)
	gt.Number(t, skipped).Equal(2)
}

func TestPipeline_Run_DuplicateBumpPR(t *testing.T) {
	wf, projectDir := testWorkflow(t)
	builder := &mockBuilder{}
	gh := newMockGitHub()
	gh.openPRExist = true

	pipeline := usecase.NewPipeline(wf, builder,
		usecase.WithGitHub(gh),
		usecase.WithRepoRoot(projectDir),
		usecase.WithDistDir(t.TempDir()),
	)

	result, err := pipeline.Run(context.Background(), release())
	gt.NoError(t, err)

	gt.Value(t, result.Brew.Status).Equal(model.BrewDuplicate)
	gt.Array(t, gh.prs).Length(0)
	gt.Array(t, gh.branches).Length(0)
}

func TestPipeline_Run_SkipPublish(t *testing.T) {
	wf, projectDir := testWorkflow(t)
	builder := &mockBuilder{}
	gh := newMockGitHub()

	pipeline := usecase.NewPipeline(wf, builder,
		usecase.WithGitHub(gh),
		usecase.WithRepoRoot(projectDir),
		usecase.WithDistDir(t.TempDir()),
		usecase.WithSkipPublish(),
	)

	rel := release()
	rel.CommitSHA = "deadbeef"
	result, err := pipeline.Run(context.Background(), rel)
	gt.NoError(t, err)

	gt.Value(t, result.Succeeded()).Equal(true)
	gt.Array(t, gh.uploaded).Length(0)
	gt.Array(t, gh.prs).Length(0)
	gt.Value(t, result.Brew.Status).Equal(model.BrewSkipped)
}

// mockBlobStore records mirrored objects, optionally failing each put.
type mockBlobStore struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (m *mockBlobStore) Put(ctx context.Context, bucket, key, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, bucket+"/"+key)
	return m.err
}

// mockNotifier records posted channels, optionally failing.
type mockNotifier struct {
	mu       sync.Mutex
	channels []string
	err      error
}

func (m *mockNotifier) NotifyResult(ctx context.Context, channel string, result *model.PipelineResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, channel)
	return m.err
}

func TestPipeline_Run_CancelledContext(t *testing.T) {
	wf, projectDir := testWorkflow(t)
	builder := &mockBuilder{}

	pipeline := usecase.NewPipeline(wf, builder,
		usecase.WithRepoRoot(projectDir),
		usecase.WithDistDir(t.TempDir()),
		usecase.WithSkipPublish(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := pipeline.Run(ctx, release())
	gt.Error(t, err)
	gt.Value(t, result).NotNil()

	// No leg is scheduled once the context is cancelled.
	gt.Number(t, len(builder.calls)).Equal(0)
	gt.Array(t, result.Legs).Length(3)
	for _, leg := range result.Legs {
		gt.Value(t, leg.Status).Equal(model.LegSkipped)
	}
}

func TestPipeline_Run_MirrorAndNotify(t *testing.T) {
	wf, projectDir := testWorkflow(t)
	wf.Blobs = []model.BlobConfig{{Bucket: "releases-bucket", Prefix: "replibyte"}}
	wf.Notify.SlackChannel = "#releases"
	gt.NoError(t, wf.Validate())

	builder := &mockBuilder{}
	gh := newMockGitHub()
	store := &mockBlobStore{}
	notifier := &mockNotifier{}

	pipeline := usecase.NewPipeline(wf, builder,
		usecase.WithGitHub(gh),
		usecase.WithRepoRoot(projectDir),
		usecase.WithDistDir(t.TempDir()),
		usecase.WithBlobStore(store),
		usecase.WithNotifier(notifier),
	)

	result, err := pipeline.Run(context.Background(), release())
	gt.NoError(t, err)
	gt.Value(t, result.Succeeded()).Equal(true)

	// Every published asset is mirrored under <prefix>/<tag>/<name>.
	gt.Array(t, store.keys).Length(5)
	gt.Array(t, store.keys).Has("releases-bucket/replibyte/v0.10.0/replibyte_v0.10.0_x86_64-apple-darwin.zip")
	gt.Array(t, store.keys).Has("releases-bucket/replibyte/v0.10.0/checksums.txt")

	gt.Array(t, notifier.channels).Equal([]string{"#releases"})
}

func TestPipeline_Run_MirrorAndNotifyBestEffort(t *testing.T) {
	wf, projectDir := testWorkflow(t)
	wf.Blobs = []model.BlobConfig{{Bucket: "releases-bucket"}}
	wf.Notify.SlackChannel = "#releases"
	gt.NoError(t, wf.Validate())

	builder := &mockBuilder{}
	gh := newMockGitHub()
	store := &mockBlobStore{err: errors.New("bucket gone")}
	notifier := &mockNotifier{err: errors.New("slack down")}

	pipeline := usecase.NewPipeline(wf, builder,
		usecase.WithGitHub(gh),
		usecase.WithRepoRoot(projectDir),
		usecase.WithDistDir(t.TempDir()),
		usecase.WithBlobStore(store),
		usecase.WithNotifier(notifier),
	)

	// Mirror and notification failures never fail the run.
	result, err := pipeline.Run(context.Background(), release())
	gt.NoError(t, err)
	gt.Value(t, result.Succeeded()).Equal(true)
	gt.Array(t, store.keys).Length(5)
	gt.Array(t, notifier.channels).Length(1)
}

func TestPipeline_Run_ArchivesContainExtras(t *testing.T) {
	wf, projectDir := testWorkflow(t)
	builder := &mockBuilder{}
	dist := t.TempDir()

	pipeline := usecase.NewPipeline(wf, builder,
		usecase.WithRepoRoot(projectDir),
		usecase.WithDistDir(dist),
		usecase.WithSkipPublish(),
	)

	result, err := pipeline.Run(context.Background(), release())
	gt.NoError(t, err)

	for _, leg := range result.Legs {
		gt.Value(t, leg.Status).Equal(model.LegSucceeded)
		for _, asset := range leg.Assets {
			gt.Value(t, strings.HasPrefix(asset.Name, "replibyte_v0.10.0_")).Equal(true)
			gt.Number(t, asset.Size).Greater(int64(0))
			gt.Value(t, len(asset.SHA256)).Equal(64)

			_, statErr := os.Stat(asset.Path)
			gt.NoError(t, statErr)
		}
	}
}
