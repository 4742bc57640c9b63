// Package config reads the backup configuration file: the sources we back up from,
// the targets we back up to & the jobs pairing them.
//
//	sources:
//	  - {id: home, name: Home dir, kind: filesystem, root: /home/me}
//	targets:
//	  - {id: nas, name: NAS, kind: peer, hostname: nas.local, port: 8200}
//	jobs:
//	  - {name: home-to-nas, source: home, target: nas}
package config

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/voidshard/b2b/pkg/errors"
	"github.com/voidshard/b2b/pkg/structs"
)

// Job pairs a source with a target
type Job struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Target string `yaml:"target"`

	// HashAlgorithm overrides the default content hasher (optional)
	HashAlgorithm string `yaml:"hash_algorithm,omitempty"`
}

// Config is a backup configuration file
type Config struct {
	Sources []*structs.Source `yaml:"sources"`
	Targets []*structs.Target `yaml:"targets"`
	Jobs    []*Job            `yaml:"jobs"`
}

// Load reads & validates the config file at path
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes & validates a config. Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w %v", errors.ErrInvalidArg, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks every source, target & job is well formed, IDs & names are unique
// and jobs only reference sources & targets that exist.
func (c *Config) Validate() error {
	sources := map[string]bool{}
	for _, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("%w source with no id", errors.ErrInvalidArg)
		}
		if sources[s.ID] {
			return fmt.Errorf("%w duplicate source %s", errors.ErrInvalidArg, s.ID)
		}
		sources[s.ID] = true
		err := s.Validate()
		if err != nil {
			return err
		}
	}

	targets := map[string]bool{}
	for _, t := range c.Targets {
		if t.ID == "" {
			return fmt.Errorf("%w target with no id", errors.ErrInvalidArg)
		}
		if targets[t.ID] {
			return fmt.Errorf("%w duplicate target %s", errors.ErrInvalidArg, t.ID)
		}
		targets[t.ID] = true
		err := t.Validate()
		if err != nil {
			return err
		}
	}

	jobs := map[string]bool{}
	for _, j := range c.Jobs {
		if j.Name == "" {
			return fmt.Errorf("%w job with no name", errors.ErrInvalidArg)
		}
		if jobs[j.Name] {
			return fmt.Errorf("%w duplicate job %s", errors.ErrInvalidArg, j.Name)
		}
		jobs[j.Name] = true
		if !sources[j.Source] {
			return fmt.Errorf("%w job %s has unknown source %q", errors.ErrInvalidArg, j.Name, j.Source)
		}
		if !targets[j.Target] {
			return fmt.Errorf("%w job %s has unknown target %q", errors.ErrInvalidArg, j.Name, j.Target)
		}
	}

	return nil
}

// JobNames returns the configured job names, sorted
func (c *Config) JobNames() []string {
	names := []string{}
	for _, j := range c.Jobs {
		names = append(names, j.Name)
	}
	sort.Strings(names)
	return names
}

// JobParameters resolves the named job into the parameters of a run.
func (c *Config) JobParameters(jobName string) (structs.JobParameters, error) {
	job := c.job(jobName)
	if job == nil {
		return nil, fmt.Errorf("%w job %s", errors.ErrNotFound, jobName)
	}
	src := c.source(job.Source)
	if src == nil {
		return nil, fmt.Errorf("%w source %s", errors.ErrNotFound, job.Source)
	}
	tgt := c.target(job.Target)
	if tgt == nil {
		return nil, fmt.Errorf("%w target %s", errors.ErrNotFound, job.Target)
	}

	params := src.Parameters()
	for k, v := range tgt.Parameters() {
		params[k] = v
	}
	if job.HashAlgorithm != "" {
		params[structs.ParamHashAlgorithm] = job.HashAlgorithm
	}
	return params, nil
}

func (c *Config) job(name string) *Job {
	for _, j := range c.Jobs {
		if j.Name == name {
			return j
		}
	}
	return nil
}

func (c *Config) source(id string) *structs.Source {
	for _, s := range c.Sources {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (c *Config) target(id string) *structs.Target {
	for _, t := range c.Targets {
		if t.ID == id {
			return t
		}
	}
	return nil
}
