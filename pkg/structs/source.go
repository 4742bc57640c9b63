package structs

import (
	"fmt"
	"strconv"

	"github.com/voidshard/b2b/pkg/errors"
)

const (
	ParamSourceRoot     = "source.root"
	ParamSourceID       = "source.id"
	ParamTargetType     = "target.type"
	ParamTargetHostname = "target.hostname"
	ParamTargetPort     = "target.port"
	ParamHashAlgorithm  = "hash.algorithm"
)

// Source is something we back up from. Fields beyond ID, Name and Kind are only
// meaningful for the matching Kind.
type Source struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`

	// KindFilesystem
	Root string `json:"root,omitempty" yaml:"root,omitempty"`
}

// Target is somewhere we back up to.
type Target struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`

	// KindPeer
	Hostname string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
}

// Validate checks the fields required by the source's kind are set.
func (s *Source) Validate() error {
	switch s.Kind {
	case KindFilesystem:
		if s.Root == "" {
			return fmt.Errorf("%w filesystem source %s has no root", errors.ErrInvalidArg, s.ID)
		}
		return nil
	default:
		return fmt.Errorf("%w source kind %q", errors.ErrNotSupported, s.Kind)
	}
}

// Validate checks the fields required by the target's kind are set.
func (t *Target) Validate() error {
	switch t.Kind {
	case KindPeer:
		if t.Hostname == "" {
			return fmt.Errorf("%w peer target %s has no hostname", errors.ErrInvalidArg, t.ID)
		}
		if t.Port <= 0 || t.Port > 65535 {
			return fmt.Errorf("%w peer target %s has bad port %d", errors.ErrInvalidArg, t.ID, t.Port)
		}
		return nil
	default:
		return fmt.Errorf("%w target kind %q", errors.ErrNotSupported, t.Kind)
	}
}

// Parameters returns the job parameters describing this source.
func (s *Source) Parameters() JobParameters {
	p := JobParameters{}
	switch s.Kind {
	case KindFilesystem:
		p[ParamSourceRoot] = s.Root
	}
	if s.ID != "" {
		p[ParamSourceID] = s.ID
	}
	return p
}

// Parameters returns the job parameters describing this target.
func (t *Target) Parameters() JobParameters {
	p := JobParameters{ParamTargetType: string(t.Kind)}
	switch t.Kind {
	case KindPeer:
		p[ParamTargetHostname] = t.Hostname
		p[ParamTargetPort] = t.Port
	}
	return p
}

// BackupConfig is the resolved configuration of a single run.
type BackupConfig struct {
	Source Source
	Target Target

	// HashAlgorithm names the content hasher, empty for the default
	HashAlgorithm string
}

// ToBackupConfig resolves job parameters into a filesystem -> peer backup config.
func ToBackupConfig(p JobParameters) (*BackupConfig, error) {
	root := p.String(ParamSourceRoot)
	if root == "" {
		return nil, fmt.Errorf("%w missing parameter %s", errors.ErrInvalidArg, ParamSourceRoot)
	}
	if tt := p.String(ParamTargetType); tt != "" && Kind(tt) != KindPeer {
		return nil, fmt.Errorf("%w target type %q", errors.ErrNotSupported, tt)
	}
	host := p.String(ParamTargetHostname)
	if host == "" {
		return nil, fmt.Errorf("%w missing parameter %s", errors.ErrInvalidArg, ParamTargetHostname)
	}
	portStr := p.String(ParamTargetPort)
	if portStr == "" {
		return nil, fmt.Errorf("%w missing parameter %s", errors.ErrInvalidArg, ParamTargetPort)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("%w parameter %s is not an integer: %s", errors.ErrInvalidArg, ParamTargetPort, portStr)
	}

	sourceID := p.String(ParamSourceID)
	if sourceID == "" {
		// stable across runs for the same root
		sourceID = JobKey(JobParameters{ParamSourceRoot: root})
	}

	cfg := &BackupConfig{
		Source:        Source{ID: sourceID, Name: root, Kind: KindFilesystem, Root: root},
		Target:        Target{ID: fmt.Sprintf("%s:%d", host, port), Name: host, Kind: KindPeer, Hostname: host, Port: port},
		HashAlgorithm: p.String(ParamHashAlgorithm),
	}
	if err := cfg.Source.Validate(); err != nil {
		return nil, err
	}
	return cfg, cfg.Target.Validate()
}
