package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"canopy/internal/scenario"
	"canopy/internal/sqlitegraph"
)

var seedFlags struct {
	scenarioPath string
	dbPath       string
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write a scenario's tree into a SQLite node database",
	RunE:  runSeed,
}

func init() {
	f := seedCmd.Flags()
	f.StringVar(&seedFlags.scenarioPath, "scenario", "", "Scenario YAML file")
	f.StringVar(&seedFlags.dbPath, "db", "", "SQLite file to create or update")
	_ = seedCmd.MarkFlagRequired("scenario")
	_ = seedCmd.MarkFlagRequired("db")
}

func runSeed(cmd *cobra.Command, args []string) error {
	s, err := scenario.Load(seedFlags.scenarioPath)
	if err != nil {
		return err
	}

	g, err := sqlitegraph.Open(seedFlags.dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = g.Close() }()

	rows := make([]sqlitegraph.Row, 0, len(s.Nodes))
	for path, def := range s.Nodes {
		parallel := true
		if def.Parallel != nil {
			parallel = *def.Parallel
		}
		rows = append(rows, sqlitegraph.Row{
			Path:     path,
			Type:     def.Type,
			Parallel: parallel,
			Marked:   def.Marked,
			Attrs:    def.Attrs,
			Children: def.Children,
		})
	}
	if err := g.Seed(rows); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d nodes into %s\n", len(rows), seedFlags.dbPath)
	return nil
}
