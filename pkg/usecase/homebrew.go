package usecase

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/slipway-dev/slipway/pkg/domain/model"
)

// formulaTemplate renders the tap formula. The darwin archive is the
// formula's download source; the sha256 pins it.
const formulaTemplate = `class {{ .ClassName }} < Formula
  desc "{{ .Description }}"
  homepage "{{ .Homepage }}"
  version "{{ .Version }}"
  url "{{ .URL }}"
  sha256 "{{ .SHA256 }}"

  def install
    bin.install "{{ .Binary }}"
  end

  test do
    system "#{bin}/{{ .Binary }}", "--version"
  end
end
`

type formulaData struct {
	ClassName   string
	Description string
	Homepage    string
	Version     string
	URL         string
	SHA256      string
	Binary      string
}

// renderFormula produces the formula file body for a release.
func renderFormula(wf *model.Workflow, release model.ReleaseInfo, asset model.Asset) (string, error) {
	tmpl, err := template.New("formula").Parse(formulaTemplate)
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse formula template")
	}

	homepage := wf.Brew.Homepage
	if homepage == "" {
		homepage = fmt.Sprintf("https://github.com/%s/%s", release.Owner, release.Repo)
	}
	desc := wf.Brew.Description
	if desc == "" {
		desc = wf.Project.Name
	}

	data := formulaData{
		ClassName:   formulaClassName(wf.Brew.Formula),
		Description: desc,
		Homepage:    homepage,
		Version:     strings.TrimPrefix(release.TagName, "v"),
		URL: fmt.Sprintf("https://github.com/%s/%s/releases/download/%s/%s",
			release.Owner, release.Repo, release.TagName, asset.Name),
		SHA256: asset.SHA256,
		Binary: wf.Project.Name,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to render formula")
	}
	return buf.String(), nil
}

// formulaClassName converts a formula name to its Ruby class name
// (homebrew convention: dashes and underscores become camel case).
func formulaClassName(name string) string {
	var sb strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case r == '-' || r == '_':
			upper = true
		case upper:
			sb.WriteString(strings.ToUpper(string(r)))
			upper = false
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// bumpBranch is the head branch name of a bump PR. The duplicate-PR
// check keys on it.
func bumpBranch(formula, tag string) string {
	return fmt.Sprintf("bump-%s-%s", formula, tag)
}

// bumpFormula pushes the regenerated formula to the tap repository on
// a bump branch and opens a PR. With the duplicate check enabled an
// already-open bump PR for the same tag is a no-op success.
func (p *pipeline) bumpFormula(ctx context.Context, release model.ReleaseInfo, result *model.PipelineResult) (model.BrewOutcome, error) {
	logger := ctxlog.From(ctx)

	tapOwner, tapRepo, err := p.wf.Brew.TapOwnerRepo()
	if err != nil {
		return model.BrewOutcome{}, err
	}

	var darwinAsset *model.Asset
	for _, leg := range result.Legs {
		if leg.Platform != nil && leg.Platform.IsDarwin() && len(leg.Assets) > 0 {
			darwinAsset = &leg.Assets[0]
			break
		}
	}
	if darwinAsset == nil {
		return model.BrewOutcome{}, goerr.New("no darwin asset available for formula",
			goerr.V("formula", p.wf.Brew.Formula))
	}

	branch := bumpBranch(p.wf.Brew.Formula, release.TagName)

	if p.wf.Brew.SkipDuplicateEnabled() {
		exists, err := p.github.HasOpenPR(ctx, tapOwner, tapRepo, branch)
		if err != nil {
			return model.BrewOutcome{}, goerr.Wrap(err, "failed to check for duplicate bump PR")
		}
		if exists {
			logger.Info("Bump PR already open, skipping",
				"tap", p.wf.Brew.Tap,
				"branch", branch,
			)
			return model.BrewOutcome{Status: model.BrewDuplicate}, nil
		}
	}

	body, err := renderFormula(p.wf, release, *darwinAsset)
	if err != nil {
		return model.BrewOutcome{}, err
	}

	base, err := p.github.DefaultBranch(ctx, tapOwner, tapRepo)
	if err != nil {
		return model.BrewOutcome{}, goerr.Wrap(err, "failed to resolve tap default branch")
	}
	baseSHA, err := p.github.ResolveRef(ctx, tapOwner, tapRepo, base)
	if err != nil {
		return model.BrewOutcome{}, goerr.Wrap(err, "failed to resolve tap base revision")
	}
	if err := p.github.CreateBranch(ctx, tapOwner, tapRepo, branch, baseSHA); err != nil {
		return model.BrewOutcome{}, goerr.Wrap(err, "failed to create bump branch", goerr.V("branch", branch))
	}

	path := fmt.Sprintf("Formula/%s.rb", p.wf.Brew.Formula)
	message := fmt.Sprintf("%s %s", p.wf.Brew.Formula, release.TagName)
	if err := p.github.PutFile(ctx, tapOwner, tapRepo, branch, path, message, []byte(body)); err != nil {
		return model.BrewOutcome{}, goerr.Wrap(err, "failed to update formula file", goerr.V("path", path))
	}

	prBody := fmt.Sprintf("Update %s to %s.\n\nRevision: %s",
		p.wf.Brew.Formula, release.TagName, release.CommitSHA)
	prURL, err := p.github.CreatePR(ctx, tapOwner, tapRepo, message, branch, base, prBody)
	if err != nil {
		return model.BrewOutcome{}, goerr.Wrap(err, "failed to open bump PR")
	}

	logger.Info("Opened Homebrew bump PR",
		"tap", p.wf.Brew.Tap,
		"formula", p.wf.Brew.Formula,
		"pr", prURL,
	)

	return model.BrewOutcome{Status: model.BrewBumped, PRURL: prURL}, nil
}
