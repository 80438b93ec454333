// Package discovery enumerates the service units under an ecosystem's
// service root.
package discovery

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"

	"github.com/ethereum-optimism/infra/weathertop/types"
)

// ServicePredicate decides whether a directory is a service unit.
type ServicePredicate func(fs afero.Fs, dir string) bool

// Config contains discoverer configuration
type Config struct {
	Log  log.Logger
	Fs   afero.Fs
	Root string
	// Exclude names directories skipped at every level.
	Exclude []string
	// MaxDepth is the number of levels below Root searched for services.
	MaxDepth  int
	IsService ServicePredicate
}

// Discoverer walks a service root and returns the service units in it.
type Discoverer struct {
	config  Config
	exclude map[string]struct{}
}

// NewDiscoverer creates a discoverer.
func NewDiscoverer(cfg Config) (*Discoverer, error) {
	if cfg.Root == "" {
		return nil, errors.New("service root is required")
	}
	if cfg.IsService == nil {
		return nil, errors.New("service predicate is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = 1
	}
	exclude := make(map[string]struct{}, len(cfg.Exclude))
	for _, name := range cfg.Exclude {
		exclude[name] = struct{}{}
	}
	return &Discoverer{config: cfg, exclude: exclude}, nil
}

// Discover returns every service unit under the root, sorted by name and
// numbered from 1 in that order. A directory that is a service is not
// searched further.
func (d *Discoverer) Discover() ([]types.ServiceUnit, error) {
	root := d.config.Root
	ok, err := afero.IsDir(d.config.Fs, root)
	if err != nil {
		return nil, types.NewDiscoveryError(root, err)
	}
	if !ok {
		return nil, types.NewDiscoveryError(root, fmt.Errorf("not a directory"))
	}

	var units []types.ServiceUnit
	if err := d.walk(root, 1, &units); err != nil {
		return nil, types.NewDiscoveryError(root, err)
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	for i := range units {
		units[i].Order = i + 1
	}
	d.config.Log.Info("Discovered services", "root", root, "count", len(units))
	return units, nil
}

func (d *Discoverer) walk(dir string, depth int, units *[]types.ServiceUnit) error {
	entries, err := afero.ReadDir(d.config.Fs, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, skip := d.exclude[name]; skip {
			d.config.Log.Debug("Skipping excluded directory", "dir", filepath.Join(dir, name))
			continue
		}
		path := filepath.Join(dir, name)
		if d.config.IsService(d.config.Fs, path) {
			rel, err := filepath.Rel(d.config.Root, path)
			if err != nil {
				return err
			}
			*units = append(*units, types.ServiceUnit{
				Name: filepath.ToSlash(rel),
				Path: path,
				Root: d.config.Root,
			})
			continue
		}
		if depth < d.config.MaxDepth {
			if err := d.walk(path, depth+1, units); err != nil {
				return err
			}
		}
	}
	return nil
}
