package sqlitegraph

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"canopy/pkg/cook"
)

func openTestGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := Open(filepath.Join(t.TempDir(), "nodes.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestGraph_SeedAndCook(t *testing.T) {
	g := openTestGraph(t)

	err := g.Seed([]Row{
		{Path: "/root", Parallel: true, Children: []string{"a", "b"}},
		{
			Path:     "/root/a",
			Type:     "leaf",
			Marked:   true,
			Attrs:    map[string]any{"lod": "high"},
			Children: []string{},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	d, err := g.Cook("/root", true)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Exists {
		t.Fatal("seeded root cooked as nonexistent")
	}
	if !d.ParallelTraversalEnabled() {
		t.Error("parallel flag lost")
	}
	if diff := cmp.Diff([]string{"a", "b"}, d.PotentialChildren); diff != "" {
		t.Errorf("children (-want +got):\n%s", diff)
	}

	d, err = g.Cook("/root/a", false)
	if err != nil {
		t.Fatal(err)
	}
	if d.LeafType() != "leaf" {
		t.Errorf("LeafType = %q, want leaf", d.LeafType())
	}
	if !d.LiveMarked() {
		t.Error("marked flag lost")
	}
	if got := d.Attrs.String("lod", ""); got != "high" {
		t.Errorf("lod attr = %q, want high", got)
	}
	if len(d.PotentialChildren) != 0 {
		t.Errorf("leaf children = %v, want none", d.PotentialChildren)
	}
}

func TestGraph_CookMissingRow(t *testing.T) {
	g := openTestGraph(t)

	d, err := g.Cook("/nowhere", false)
	if err != nil {
		t.Fatal(err)
	}
	if d.Exists {
		t.Error("missing row cooked as existing")
	}
	if d.Path != "/nowhere" {
		t.Errorf("path = %q, want /nowhere", d.Path)
	}
}

func TestGraph_SeedReplacesExisting(t *testing.T) {
	g := openTestGraph(t)

	if err := g.Seed([]Row{{Path: "/root", Type: "old"}}); err != nil {
		t.Fatal(err)
	}
	if err := g.Seed([]Row{{Path: "/root", Type: "new", Children: []string{"a"}}}); err != nil {
		t.Fatal(err)
	}

	d, err := g.Cook("/root", false)
	if err != nil {
		t.Fatal(err)
	}
	if d.LeafType() != "new" {
		t.Errorf("LeafType after reseed = %q, want new", d.LeafType())
	}
	if diff := cmp.Diff([]string{"a"}, d.PotentialChildren); diff != "" {
		t.Errorf("children after reseed (-want +got):\n%s", diff)
	}
}

func TestGraph_SyncKeepsWatermark(t *testing.T) {
	g := openTestGraph(t)

	v, err := g.Sync(nil, 7)
	if err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Errorf("Sync = %d, want 7", v)
	}
}

func TestGraph_DrivesTraversalShape(t *testing.T) {
	// The sqlite graph is a cook.Client; make sure the data it serves has
	// the shape the traversal consumes.
	g := openTestGraph(t)
	if err := g.Seed([]Row{
		{Path: "/root", Parallel: true, Children: []string{"a"}},
		{Path: "/root/a", Parallel: false},
	}); err != nil {
		t.Fatal(err)
	}

	var c cook.Client = g
	d, err := c.Cook("/root", true)
	if err != nil {
		t.Fatal(err)
	}
	child := cook.ChildPath(d.Path, d.PotentialChildren[0])
	if child != "/root/a" {
		t.Fatalf("child path = %q, want /root/a", child)
	}
	cd, err := c.Cook(child, true)
	if err != nil {
		t.Fatal(err)
	}
	if cd.ParallelTraversalEnabled() {
		t.Error("serial flag lost through sqlite round trip")
	}
}
