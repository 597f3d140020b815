// Package config loads the project file that supplies default assembler
// settings to the command line.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

const DefaultFilename = "bass.json"

type Config struct {
	Sources           []string          `json:"sources"`
	Output            string            `json:"output"` // created
	Modify            string            `json:"modify"` // modified in place
	Defines           map[string]string `json:"defines"`
	Constants         map[string]string `json:"constants"`
	Strict            bool              `json:"strict"`
	Benchmark         bool              `json:"benchmark"`
	ArchitecturePaths []string          `json:"architecturePaths"`
}

// Load reads the project file at filename. An empty filename loads
// DefaultFilename, which may be absent; a named file must exist.
func Load(filename string) (*Config, error) {
	explicit := filename != ""
	if !explicit {
		filename = DefaultFilename
	}

	b, err := os.ReadFile(filename)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, errors.Wrapf(err, "unable to read config %s", filename)
	}

	conf := new(Config)
	if err := json.Unmarshal(b, conf); err != nil {
		return nil, errors.Wrapf(err, "unable to parse config %s", filename)
	}
	return conf, nil
}

// Target returns the output filename and whether it is created rather than
// modified. Output wins when both are set.
func (c *Config) Target() (string, bool) {
	if c.Output != "" {
		return c.Output, true
	}
	return c.Modify, false
}
