package cook

import "testing"

func TestAttrs_Bool(t *testing.T) {
	cases := []struct {
		name  string
		attrs Attrs
		def   bool
		want  bool
	}{
		{"missing uses default", Attrs{}, true, true},
		{"bool value", Attrs{"flag": false}, true, false},
		{"int one is true", Attrs{"flag": 1}, false, true},
		{"int zero is false", Attrs{"flag": 0}, true, false},
		{"int64 value", Attrs{"flag": int64(1)}, false, true},
		{"float value", Attrs{"flag": 1.0}, false, true},
		{"unusable type uses default", Attrs{"flag": "yes"}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.attrs.Bool("flag", tc.def); got != tc.want {
				t.Errorf("Bool = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAttrs_String(t *testing.T) {
	a := Attrs{"type": "leaf", "n": 3}
	if got := a.String("type", ""); got != "leaf" {
		t.Errorf("String(type) = %q, want leaf", got)
	}
	if got := a.String("missing", "fallback"); got != "fallback" {
		t.Errorf("String(missing) = %q, want fallback", got)
	}
	if got := a.String("n", "fallback"); got != "fallback" {
		t.Errorf("String on non-string = %q, want fallback", got)
	}
}

func TestAttrs_CloneIsIndependent(t *testing.T) {
	a := Attrs{"k": 1}
	c := a.Clone()
	c["k"] = 2
	if a["k"] != 1 {
		t.Errorf("clone write leaked into original: %v", a["k"])
	}
	if Attrs(nil).Clone() != nil {
		t.Error("nil clone should stay nil")
	}
}

func TestChildPath(t *testing.T) {
	if got := ChildPath("/root", "a"); got != "/root/a" {
		t.Errorf("ChildPath = %q, want /root/a", got)
	}
}

func TestNodeDataAttributeHelpers(t *testing.T) {
	d := NodeData{Attrs: Attrs{
		AttrParallelTraversal: false,
		AttrLiveMarked:        true,
		AttrLeafType:          "light",
	}}
	if d.ParallelTraversalEnabled() {
		t.Error("parallel override ignored")
	}
	if !d.LiveMarked() {
		t.Error("live-marked override ignored")
	}
	if got := d.LeafType(); got != "light" {
		t.Errorf("LeafType = %q, want light", got)
	}

	var empty NodeData
	if !empty.ParallelTraversalEnabled() {
		t.Error("parallel should default to enabled")
	}
	if empty.LiveMarked() {
		t.Error("live-marked should default to false")
	}
	if empty.LeafType() != "" {
		t.Error("leaf type should default to empty")
	}
}
