package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"canopy/internal/scenario"
	"canopy/pkg/cook"
	"canopy/pkg/traverse"
)

var watchFlags struct {
	scenarioPath string
	workers      int
	leafType     string
	partial      bool
	exclude      bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Expand a tree, then apply its delta batches and print each drain",
	RunE:  runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchFlags.scenarioPath, "scenario", "", "Scenario YAML file (with delta batches)")
	f.IntVar(&watchFlags.workers, "workers", 0, "Worker count (0 = NumCPU)")
	f.StringVar(&watchFlags.leafType, "leaf-type", "", "Only re-cook changed locations of this type")
	f.BoolVar(&watchFlags.partial, "partial", false, "Enable partial monitoring of marked locations")
	f.BoolVar(&watchFlags.exclude, "exclude-marked", false, "With --partial, exclude marked locations instead of including them")
	_ = watchCmd.MarkFlagRequired("scenario")
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := scenario.Load(watchFlags.scenarioPath)
	if err != nil {
		return err
	}

	graph := s.BuildGraph()
	m, err := traverse.NewMonitoring(graph, cook.Op{Name: "cook"}, cook.Op{Name: "monitor"})
	if err != nil {
		return err
	}
	m.SetRootLocationPath(s.Root)
	if watchFlags.workers > 0 {
		m.SetWorkerCount(watchFlags.workers)
	}
	m.SetLeafType(watchFlags.leafType)

	out := cmd.OutOrStdout()

	// Initial expansion.
	count := 0
	for m.Traversal.IsValid() {
		for _, d := range m.GetLocations() {
			printLocation(out, d)
			count++
		}
	}
	fmt.Fprintf(out, "expanded %d locations\n", count)

	// Replay delta batches, draining after each.
	for i, batch := range s.DeltaBatches() {
		if err := m.ApplyOpTreeDeltas(batch, watchFlags.partial, watchFlags.exclude); err != nil {
			return fmt.Errorf("apply delta batch %d: %w", i, err)
		}
		results := m.GetLocations()
		fmt.Fprintf(out, "batch %d: %d updates\n", i, len(results))
		for _, d := range results {
			printLocation(out, d)
		}
	}
	return nil
}
