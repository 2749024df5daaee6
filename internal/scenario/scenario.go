// Package scenario loads tree definitions and delta batches from YAML into
// a scenegraph runtime. Scenarios drive the CLI and make monitoring flows
// reproducible.
package scenario

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"canopy/internal/scenegraph"
	"canopy/pkg/cook"
)

// NodeDef is one node in a scenario file.
type NodeDef struct {
	Type     string         `yaml:"type"`
	Parallel *bool          `yaml:"parallel"`
	Marked   bool           `yaml:"marked"`
	Attrs    map[string]any `yaml:"attrs"`
	Children []string       `yaml:"children"`
}

// DeltaDef is one delta in a scenario's delta batches.
type DeltaDef struct {
	Op          string         `yaml:"op"`
	Path        string         `yaml:"path"`
	Type        string         `yaml:"type"`
	Parallel    *bool          `yaml:"parallel"`
	Marked      *bool          `yaml:"marked"`
	Attrs       map[string]any `yaml:"attrs"`
	Children    []string       `yaml:"children"`
	AddChildren []string       `yaml:"add_children"`
}

// Scenario is a full scenario file: the tree to expand and the delta
// batches to apply while monitoring.
type Scenario struct {
	Root   string             `yaml:"root"`
	Nodes  map[string]NodeDef `yaml:"nodes"`
	Deltas [][]DeltaDef       `yaml:"deltas"`
}

// Load reads and validates a scenario from a YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates scenario YAML.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Root == "" {
		s.Root = "/root"
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if len(s.Nodes) == 0 {
		return fmt.Errorf("scenario: no nodes defined")
	}
	if _, ok := s.Nodes[s.Root]; !ok {
		return fmt.Errorf("scenario: root %q is not a defined node", s.Root)
	}
	for path := range s.Nodes {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("scenario: node path %q is not absolute", path)
		}
	}
	for i, batch := range s.Deltas {
		for j, d := range batch {
			switch d.Op {
			case scenegraph.OpSet, scenegraph.OpRemove:
			default:
				return fmt.Errorf("scenario: delta %d/%d has unknown op %q", i, j, d.Op)
			}
			if d.Path == "" {
				return fmt.Errorf("scenario: delta %d/%d has no path", i, j)
			}
		}
	}
	return nil
}

// BuildGraph seeds a scenegraph with the scenario's nodes. Children that
// reference undefined paths are left in place: they cook as nonexistent,
// which the traversal skips.
func (s *Scenario) BuildGraph() *scenegraph.Graph {
	g := scenegraph.New()
	for path, def := range s.Nodes {
		g.SetNode(path, scenegraph.NodeSpec{
			Type:     def.Type,
			Parallel: def.Parallel,
			Marked:   def.Marked,
			Attrs:    def.Attrs,
			Children: def.Children,
		})
	}
	return g
}

// DeltaBatches converts the scenario's delta definitions into the
// scenegraph wire format, one batch per monitoring drain.
func (s *Scenario) DeltaBatches() [][]cook.Delta {
	batches := make([][]cook.Delta, len(s.Deltas))
	for i, batch := range s.Deltas {
		out := make([]cook.Delta, len(batch))
		for j, d := range batch {
			out[j] = scenegraph.Delta{
				Op:          d.Op,
				Path:        d.Path,
				Type:        d.Type,
				Parallel:    d.Parallel,
				Marked:      d.Marked,
				Attrs:       d.Attrs,
				Children:    d.Children,
				AddChildren: d.AddChildren,
			}
		}
		batches[i] = out
	}
	return batches
}
