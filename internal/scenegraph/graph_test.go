package scenegraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"canopy/pkg/cook"
)

func boolPtr(b bool) *bool { return &b }

func TestGraph_CookSeededNode(t *testing.T) {
	g := New()
	g.SetNode("/root", NodeSpec{
		Type:     "group",
		Parallel: boolPtr(false),
		Marked:   true,
		Attrs:    map[string]any{"color": "red"},
		Children: []string{"a", "b"},
	})

	txn := g.NewTransaction()
	c := txn.NewClient(cook.Op{Name: "cook"})
	if err := g.Commit(txn); err != nil {
		t.Fatal(err)
	}

	d, err := c.Cook("/root", true)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Exists {
		t.Fatal("seeded node cooked as nonexistent")
	}
	if d.LeafType() != "group" {
		t.Errorf("LeafType = %q, want group", d.LeafType())
	}
	if d.ParallelTraversalEnabled() {
		t.Error("parallel should be disabled")
	}
	if !d.LiveMarked() {
		t.Error("marked flag lost")
	}
	if got := d.Attrs.String("color", ""); got != "red" {
		t.Errorf("color attr = %q, want red", got)
	}
	if diff := cmp.Diff([]string{"a", "b"}, d.PotentialChildren); diff != "" {
		t.Errorf("children (-want +got):\n%s", diff)
	}
}

func TestGraph_CookMissingNode(t *testing.T) {
	g := New()
	txn := g.NewTransaction()
	c := txn.NewClient(cook.Op{})
	if err := g.Commit(txn); err != nil {
		t.Fatal(err)
	}

	d, err := c.Cook("/nowhere", false)
	if err != nil {
		t.Fatal(err)
	}
	if d.Exists {
		t.Error("missing node cooked as existing")
	}
	if d.Path != "/nowhere" {
		t.Errorf("path = %q, want /nowhere", d.Path)
	}
}

func TestGraph_CommitBumpsVersionOnce(t *testing.T) {
	g := New()
	before := g.Version()

	txn := g.NewTransaction()
	for _, d := range []Delta{
		{Op: OpSet, Path: "/root", Children: []string{"a"}},
		{Op: OpSet, Path: "/root/a"},
	} {
		if err := txn.ParseDelta(d); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Commit(txn); err != nil {
		t.Fatal(err)
	}
	if got := g.Version(); got != before+1 {
		t.Errorf("version after 2-delta commit = %d, want %d", got, before+1)
	}

	// Client-only transactions leave the version alone.
	txn = g.NewTransaction()
	txn.NewClient(cook.Op{})
	if err := g.Commit(txn); err != nil {
		t.Fatal(err)
	}
	if got := g.Version(); got != before+1 {
		t.Errorf("version after empty commit = %d, want %d", got, before+1)
	}
}

func TestGraph_SetMergesAttrs(t *testing.T) {
	g := New()
	g.SetNode("/root", NodeSpec{Attrs: map[string]any{"keep": 1, "replace": 1}})

	txn := g.NewTransaction()
	if err := txn.ParseDelta(Delta{
		Op:          OpSet,
		Path:        "/root",
		Marked:      boolPtr(true),
		Attrs:       map[string]any{"replace": 2},
		AddChildren: []string{"a"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := g.Commit(txn); err != nil {
		t.Fatal(err)
	}

	d := g.cookLocation("/root")
	if got := d.Attrs["keep"]; got != 1 {
		t.Errorf("untouched attr = %v, want 1", got)
	}
	if got := d.Attrs["replace"]; got != 2 {
		t.Errorf("replaced attr = %v, want 2", got)
	}
	if !d.LiveMarked() {
		t.Error("marked not applied")
	}
	if diff := cmp.Diff([]string{"a"}, d.PotentialChildren); diff != "" {
		t.Errorf("children (-want +got):\n%s", diff)
	}
}

func TestGraph_RemoveDropsSubtree(t *testing.T) {
	g := New()
	for _, p := range []string{"/root", "/root/a", "/root/a/x", "/root/ab"} {
		g.SetNode(p, NodeSpec{})
	}

	txn := g.NewTransaction()
	if err := txn.ParseDelta(Delta{Op: OpRemove, Path: "/root/a"}); err != nil {
		t.Fatal(err)
	}
	if err := g.Commit(txn); err != nil {
		t.Fatal(err)
	}

	for p, want := range map[string]bool{
		"/root":     true,
		"/root/a":   false,
		"/root/a/x": false,
		"/root/ab":  true, // sibling with a shared prefix survives
	} {
		if got := g.cookLocation(p).Exists; got != want {
			t.Errorf("after remove, %s exists = %v, want %v", p, got, want)
		}
	}
}

func TestMonitorClient_EventsForActivePathsOnly(t *testing.T) {
	g := New()
	g.SetNode("/root", NodeSpec{Children: []string{"a"}})
	g.SetNode("/root/a", NodeSpec{})

	txn := g.NewTransaction()
	mc := txn.NewMonitorClient(cook.Op{Name: "monitor"})
	if err := g.Commit(txn); err != nil {
		t.Fatal(err)
	}
	if err := mc.SetLocationsActive([]string{"/root/a"}); err != nil {
		t.Fatal(err)
	}

	// Registration queues a snapshot event.
	events, err := mc.LocationEvents(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Path != "/root/a" || !events[0].HasData {
		t.Fatalf("registration events = %+v, want one snapshot for /root/a", events)
	}

	// A commit touching both paths only notifies for the active one.
	txn = g.NewTransaction()
	for _, d := range []Delta{
		{Op: OpSet, Path: "/root", Attrs: map[string]any{"tick": 1}},
		{Op: OpSet, Path: "/root/a", Attrs: map[string]any{"tick": 1}},
	} {
		if err := txn.ParseDelta(d); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.Commit(txn); err != nil {
		t.Fatal(err)
	}

	events, err = mc.LocationEvents(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Path != "/root/a" {
		t.Fatalf("commit events = %+v, want one for /root/a", events)
	}

	// Drained means drained.
	events, err = mc.LocationEvents(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("drained client returned %d events", len(events))
	}
}

func TestTransaction_ParseDeltaRejectsBadInput(t *testing.T) {
	g := New()
	txn := g.NewTransaction()

	if err := txn.ParseDelta("not a delta"); err == nil {
		t.Error("foreign delta type accepted")
	}
	if err := txn.ParseDelta(Delta{Op: OpSet}); err == nil {
		t.Error("delta without path accepted")
	}
	if err := txn.ParseDelta(Delta{Op: "rename", Path: "/root"}); err == nil {
		t.Error("unknown op accepted")
	}
}

func TestGraph_RejectsForeignTransaction(t *testing.T) {
	g := New()
	other := New()
	if err := g.Commit(other.NewTransaction()); err == nil {
		t.Error("transaction from another graph accepted")
	}
}
