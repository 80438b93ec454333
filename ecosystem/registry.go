package ecosystem

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

type constructor func(Options, log.Logger) Strategy

var constructors = map[types.Ecosystem]constructor{
	types.EcosystemJava:       newJava,
	types.EcosystemGo:         newGo,
	types.EcosystemJavaScript: newJavaScript,
	types.EcosystemKotlin:     newKotlin,
	types.EcosystemDotNet:     newDotNet,
	types.EcosystemPHP:        newPHP,
	types.EcosystemRuby:       newRuby,
	types.EcosystemRust:       newRust,
	types.EcosystemCPP:        newCPP,
}

// Override adjusts a built-in profile without a code change.
type Override struct {
	Root     string         `yaml:"root,omitempty"`
	Exclude  []string       `yaml:"exclude,omitempty"`
	Timeout  *time.Duration `yaml:"timeout,omitempty"`
	MaxDepth int            `yaml:"max_depth,omitempty"`
}

// OverridesFile is the document read from --overrides.
type OverridesFile struct {
	Ecosystems map[types.Ecosystem]Override `yaml:"ecosystems"`
}

// Registry builds strategies with any configured overrides applied.
type Registry struct {
	config    Config
	overrides map[types.Ecosystem]Override
	mu        sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log           log.Logger
	Fs            afero.Fs
	OverridesFile string
	Options       Options
}

// NewRegistry creates a registry, loading the overrides file if one is set.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	r := &Registry{config: cfg, overrides: map[types.Ecosystem]Override{}}
	if cfg.OverridesFile != "" {
		if err := r.loadOverrides(cfg.OverridesFile); err != nil {
			return nil, fmt.Errorf("failed to load overrides: %w", err)
		}
	}
	return r, nil
}

func (r *Registry) loadOverrides(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.config.Log.Debug("Reading overrides file", "path", path)
	data, err := afero.ReadFile(r.config.Fs, path)
	if err != nil {
		return fmt.Errorf("reading overrides file: %w", err)
	}
	var file OverridesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing overrides file: %w", err)
	}
	for id, o := range file.Ecosystems {
		if !id.IsValid() {
			return fmt.Errorf("unknown ecosystem %q in overrides; must be one of %s", id, types.EcosystemNames())
		}
		if o.MaxDepth < 0 {
			return fmt.Errorf("ecosystem %s: max_depth must not be negative", id)
		}
		r.overrides[id] = o
	}
	r.config.Log.Debug("Overrides loaded", "len(ecosystems)", len(r.overrides))
	return nil
}

// Get returns the strategy for id.
func (r *Registry) Get(id types.Ecosystem) (Strategy, error) {
	build, ok := constructors[id]
	if !ok {
		return nil, fmt.Errorf("unsupported ecosystem %q; must be one of %s", id, types.EcosystemNames())
	}
	s := build(r.config.Options, r.config.Log.New("ecosystem", string(id)))

	r.mu.RLock()
	o, ok := r.overrides[id]
	r.mu.RUnlock()
	if !ok {
		return s, nil
	}
	return &overridden{Strategy: s, override: o}, nil
}

// overridden layers an Override over a built-in strategy.
type overridden struct {
	Strategy
	override Override
}

func (s *overridden) DefaultRoot() string {
	if s.override.Root != "" {
		return s.override.Root
	}
	return s.Strategy.DefaultRoot()
}

func (s *overridden) DefaultExclusions() []string {
	return append(s.Strategy.DefaultExclusions(), s.override.Exclude...)
}

func (s *overridden) DiscoveryDepth() int {
	if s.override.MaxDepth > 0 {
		return s.override.MaxDepth
	}
	return s.Strategy.DiscoveryDepth()
}

// Plan applies the timeout override to steps without their own timeout.
func (s *overridden) Plan(fsys afero.Fs, unit types.ServiceUnit) (Plan, error) {
	p, err := s.Strategy.Plan(fsys, unit)
	if err != nil || s.override.Timeout == nil {
		return p, err
	}
	for i := range p.Steps {
		if p.Steps[i].Timeout == 0 {
			p.Steps[i].Timeout = *s.override.Timeout
		}
	}
	return p, nil
}
