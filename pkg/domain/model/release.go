package model

import "time"

// ReleaseInfo identifies the release a pipeline run publishes to.
type ReleaseInfo struct {
	Owner     string // Repository owner
	Repo      string // Repository name
	TagName   string // Release tag name
	CommitSHA string // Revision the tag points at (may be resolved lazily)
	Action    string // Release event action that started the run
}

// Asset is one produced artifact of a matrix leg.
type Asset struct {
	Name   string // File name as uploaded
	Path   string // Local path under the dist directory
	SHA256 string // Hex digest of the file
	Size   int64  // Size in bytes
}

// LegStatus is the terminal state of a matrix leg.
type LegStatus string

const (
	LegSucceeded LegStatus = "succeeded"
	LegFailed    LegStatus = "failed"
	LegSkipped   LegStatus = "skipped"
)

// LegResult is the outcome of one matrix leg.
type LegResult struct {
	Target   MatrixTarget
	Platform *Platform
	Status   LegStatus
	Assets   []Asset
	Err      error
	Duration time.Duration
}

// BrewStatus is the outcome of the Homebrew bump stage.
type BrewStatus string

const (
	BrewBumped     BrewStatus = "bumped"
	BrewDuplicate  BrewStatus = "duplicate"
	BrewSkipped    BrewStatus = "skipped"
	BrewNotEnabled BrewStatus = "not-configured"
)

// BrewOutcome reports what the Homebrew stage did.
type BrewOutcome struct {
	Status BrewStatus
	PRURL  string
}

// PipelineResult aggregates a full pipeline run.
type PipelineResult struct {
	RunID     string
	Release   ReleaseInfo
	Legs      []LegResult
	Published []Asset
	Brew      BrewOutcome
	Started   time.Time
	Finished  time.Time
}

// Succeeded reports whether every matrix leg succeeded.
func (r *PipelineResult) Succeeded() bool {
	for _, leg := range r.Legs {
		if leg.Status != LegSucceeded {
			return false
		}
	}
	return len(r.Legs) > 0
}

// FailedLegs returns the legs that did not succeed.
func (r *PipelineResult) FailedLegs() []LegResult {
	var failed []LegResult
	for _, leg := range r.Legs {
		if leg.Status != LegSucceeded {
			failed = append(failed, leg)
		}
	}
	return failed
}
