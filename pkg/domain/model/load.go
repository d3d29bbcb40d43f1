package model

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadWorkflow reads and decodes a workflow file. The format is chosen
// by extension: .yml/.yaml or .toml. Defaults are applied and the
// result is validated before returning.
func LoadWorkflow(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read workflow file", goerr.V("path", path))
	}

	var wf Workflow
	switch ext := filepath.Ext(path); ext {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &wf); err != nil {
			return nil, goerr.Wrap(err, "failed to parse workflow YAML", goerr.V("path", path))
		}
	case ".toml":
		if err := toml.Unmarshal(data, &wf); err != nil {
			return nil, goerr.Wrap(err, "failed to parse workflow TOML", goerr.V("path", path))
		}
	default:
		return nil, goerr.New("unsupported workflow file extension", goerr.V("path", path), goerr.V("ext", ext))
	}

	wf.ApplyDefaults()
	if err := wf.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid workflow", goerr.V("path", path))
	}

	return &wf, nil
}
