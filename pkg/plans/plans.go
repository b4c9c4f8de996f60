// Package plans provides the built-in pipeline definitions.
package plans

import (
	"fmt"
	"sort"

	"github.com/zen-systems/promptchain/pkg/adapter"
	"github.com/zen-systems/promptchain/pkg/pipeline"
)

// Options carry the union of parameters accepted by the built-in
// plans; each plan reads the fields it understands.
type Options struct {
	Travel  TravelParams
	Product ProductParams
	Config  adapter.GenerateConfig
}

// Info describes one built-in plan.
type Info struct {
	Name        string
	Description string
}

type builder func(Options) (*pipeline.Pipeline, error)

var registry = map[string]struct {
	description string
	build       builder
}{
	"travel": {
		description: "Multi-specialist travel planner (flights, hotels, itinerary, transportation, budget)",
		build: func(opts Options) (*pipeline.Pipeline, error) {
			params := opts.Travel
			if params.Config.MaxTokens == 0 {
				params.Config = opts.Config
			}
			return Travel(params)
		},
	},
	"product": {
		description: "Product planning workflow (research, analysis, blueprint, technical, review)",
		build: func(opts Options) (*pipeline.Pipeline, error) {
			params := opts.Product
			if params.Config.MaxTokens == 0 {
				params.Config = opts.Config
			}
			return Product(params)
		},
	},
}

// List returns the built-in plans sorted by name.
func List() []Info {
	infos := make([]Info, 0, len(registry))
	for name, entry := range registry {
		infos = append(infos, Info{Name: name, Description: entry.description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Build constructs a built-in plan by name.
func Build(name string, opts Options) (*pipeline.Pipeline, error) {
	entry, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown plan %q", name)
	}
	return entry.build(opts)
}

// RunParams returns the printable parameter pairs for a plan's run
// metadata, or nil for unknown plans.
func RunParams(name string, opts Options) map[string]string {
	switch name {
	case "travel":
		return opts.Travel.Params()
	case "product":
		return opts.Product.Params()
	default:
		return nil
	}
}
