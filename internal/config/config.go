// Package config loads the optional per-directory run configuration.
//
// Most runs need no configuration at all: the defaults (.git directories,
// a root-level .gitmodules, remote "origin", branch "main") match what the
// tool exists to do. A config file in the root directory can override
// marker names, exclude subtrees from the scan, or change the publish
// identifiers, which is useful when flattening trees that mix version
// control systems or when submitting to a remote with different branch
// conventions.
//
// Two formats are accepted. The JSON form is parsed as JSONC (comments and
// trailing commas allowed), the same way editor-adjacent dotfiles like
// devcontainer.json are written in practice; the YAML form is for people
// who keep the rest of their tooling config in YAML. The first candidate
// file found wins.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is the per-run configuration. Zero/empty fields mean "use the
// default"; Load fills them in, so consumers never see an empty field.
type Config struct {
	// MarkerDirs are the directory base names treated as repository
	// metadata. Default: [".git"]. Setting this replaces the default.
	MarkerDirs []string `json:"markerDirs" yaml:"markerDirs"`

	// MarkerFiles are the file names removed from the top level of the
	// root. Default: [".gitmodules"].
	MarkerFiles []string `json:"markerFiles" yaml:"markerFiles"`

	// Exclude lists root-relative path prefixes the scan skips.
	Exclude []string `json:"exclude" yaml:"exclude"`

	// RemoteName is the remote configured during publish. Default "origin".
	RemoteName string `json:"remoteName" yaml:"remoteName"`

	// Branch is the branch renamed to and pushed. Default "main".
	Branch string `json:"branch" yaml:"branch"`

	// ReuseTopLevelRepo controls whether a top-level repository that
	// survived cleanup is reused for publishing (true, the default) or
	// causes publishing to fail explicitly (false).
	ReuseTopLevelRepo *bool `json:"reuseTopLevelRepo" yaml:"reuseTopLevelRepo"`
}

// candidateNames are probed in the root directory, in priority order.
var candidateNames = []string{
	".git-flatten.json",
	".git-flatten.jsonc",
	".git-flatten.yaml",
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	reuse := true
	return Config{
		MarkerDirs:        []string{".git"},
		MarkerFiles:       []string{".gitmodules"},
		RemoteName:        "origin",
		Branch:            "main",
		ReuseTopLevelRepo: &reuse,
	}
}

// Reuse reports the effective value of ReuseTopLevelRepo.
func (c Config) Reuse() bool {
	return c.ReuseTopLevelRepo == nil || *c.ReuseTopLevelRepo
}

// Load reads the first config file found in root and merges it over the
// defaults. A missing file is not an error; a file that exists but cannot
// be parsed is, since silently ignoring a typo'd config would let the tool
// delete directories the user explicitly tried to exclude.
func Load(root string) (Config, error) {
	for _, name := range candidateNames {
		path := filepath.Join(root, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}

		var loaded Config
		if filepath.Ext(name) == ".yaml" {
			if err := yaml.Unmarshal(data, &loaded); err != nil {
				return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		} else {
			// JSONC: strip comments and trailing commas, then parse as
			// plain JSON.
			if err := json.Unmarshal(jsonc.ToJSON(data), &loaded); err != nil {
				return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}

		return merge(loaded), nil
	}

	return Default(), nil
}

// merge fills empty fields of loaded with the defaults.
func merge(loaded Config) Config {
	def := Default()

	if len(loaded.MarkerDirs) == 0 {
		loaded.MarkerDirs = def.MarkerDirs
	}
	if len(loaded.MarkerFiles) == 0 {
		loaded.MarkerFiles = def.MarkerFiles
	}
	if loaded.RemoteName == "" {
		loaded.RemoteName = def.RemoteName
	}
	if loaded.Branch == "" {
		loaded.Branch = def.Branch
	}
	if loaded.ReuseTopLevelRepo == nil {
		loaded.ReuseTopLevelRepo = def.ReuseTopLevelRepo
	}
	return loaded
}
