package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"canopy/internal/scenario"
	"canopy/internal/sqlitegraph"
	"canopy/pkg/cook"
	"canopy/pkg/traverse"
)

var expandFlags struct {
	scenarioPath string
	dbPath       string
	root         string
	workers      int
	serial       bool
}

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Fully expand a tree and print every cooked location",
	RunE:  runExpand,
}

func init() {
	f := expandCmd.Flags()
	f.StringVar(&expandFlags.scenarioPath, "scenario", "", "Scenario YAML file")
	f.StringVar(&expandFlags.dbPath, "db", "", "SQLite node database (alternative to --scenario)")
	f.StringVar(&expandFlags.root, "root", "", "Root location path (default: scenario root or /root)")
	f.IntVar(&expandFlags.workers, "workers", 0, "Worker count (0 = NumCPU)")
	f.BoolVar(&expandFlags.serial, "serial", false, "Disable parallel expansion for every node")
}

func runExpand(cmd *cobra.Command, args []string) error {
	tr, cleanup, err := buildTraversal()
	if err != nil {
		return err
	}
	defer cleanup()

	count := drainAll(cmd, tr)
	fmt.Fprintf(cmd.OutOrStdout(), "%d locations\n", count)
	return nil
}

// buildTraversal constructs a traversal from --scenario or --db.
func buildTraversal() (*traverse.Traversal, func(), error) {
	cleanup := func() {}

	switch {
	case expandFlags.scenarioPath != "":
		s, err := scenario.Load(expandFlags.scenarioPath)
		if err != nil {
			return nil, nil, err
		}
		if expandFlags.serial {
			forceSerial(s)
		}
		tr, err := traverse.NewFromRuntime(s.BuildGraph(), cook.Op{Name: "cook"})
		if err != nil {
			return nil, nil, err
		}
		tr.SetRootLocationPath(s.Root)
		applyCommonFlags(tr)
		return tr, cleanup, nil

	case expandFlags.dbPath != "":
		g, err := sqlitegraph.Open(expandFlags.dbPath)
		if err != nil {
			return nil, nil, err
		}
		tr, err := traverse.New(g)
		if err != nil {
			_ = g.Close()
			return nil, nil, err
		}
		applyCommonFlags(tr)
		return tr, func() { _ = g.Close() }, nil
	}

	return nil, nil, fmt.Errorf("one of --scenario or --db is required")
}

func applyCommonFlags(tr *traverse.Traversal) {
	if expandFlags.root != "" {
		tr.SetRootLocationPath(expandFlags.root)
	}
	if expandFlags.workers > 0 {
		tr.SetWorkerCount(expandFlags.workers)
	}
}

func forceSerial(s *scenario.Scenario) {
	off := false
	for path, def := range s.Nodes {
		def.Parallel = &off
		s.Nodes[path] = def
	}
}

// drainAll pulls until the traversal reports no more data, printing each
// location, and returns the total count.
func drainAll(cmd *cobra.Command, tr *traverse.Traversal) int {
	out := cmd.OutOrStdout()
	count := 0
	for tr.IsValid() {
		for _, d := range tr.GetLocations() {
			printLocation(out, d)
			count++
		}
	}
	return count
}

func printLocation(out io.Writer, d cook.NodeData) {
	if !d.Exists {
		fmt.Fprintf(out, "%s (removed)\n", d.Path)
		return
	}
	if t := d.LeafType(); t != "" {
		fmt.Fprintf(out, "%s type=%s children=%d\n", d.Path, t, len(d.PotentialChildren))
		return
	}
	fmt.Fprintf(out, "%s children=%d\n", d.Path, len(d.PotentialChildren))
}
