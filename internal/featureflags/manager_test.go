package featureflags

import (
	"fmt"
	"testing"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.Enabled("a", "post-1") || !m.Enabled("c", "") || !m.Enabled("E", "post-1") {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.Enabled("b", "post-1") || m.Enabled("d", "post-1") || m.Enabled("f", "post-1") {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
	if m.Enabled("missing", "post-1") {
		t.Fatal("unknown flags must be off")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,broken=abc%")

	if !m.Enabled("always", "post-1") {
		t.Fatal("100% rollout should always be enabled")
	}
	if m.Enabled("never", "post-1") || m.Enabled("broken", "post-1") {
		t.Fatal("0% and malformed rollouts should be disabled")
	}

	first := m.Enabled("canary", "post-42")
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", "post-42"); got != first {
			t.Fatal("rollout evaluation must be deterministic per key")
		}
	}

	if m.Enabled("canary", "") {
		t.Fatal("percentage rollout requires a key")
	}
}

func TestEnabled_RolloutSplitsKeys(t *testing.T) {
	m := NewManager(WorkflowsOnIngest + "=50%")

	on := 0
	for i := 0; i < 1000; i++ {
		if m.Enabled(WorkflowsOnIngest, fmt.Sprintf("post-%d", i)) {
			on++
		}
	}
	if on < 400 || on > 600 {
		t.Fatalf("expected roughly half of keys enabled, got %d/1000", on)
	}
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off,=on ")

	raw := m.Raw()
	if len(raw) != 3 {
		t.Fatalf("expected 3 parsed flags, got %d", len(raw))
	}
	if raw["x"] != "on" || raw["y"] != "20%" || raw["z"] != "off" {
		t.Fatalf("unexpected raw flags: %#v", raw)
	}
	if got := fmt.Sprint(m.Names()); got != "[x y z]" {
		t.Fatalf("unexpected names: %s", got)
	}

	snap := m.Snapshot("post-123")
	if len(snap) != 3 || !snap["x"] || snap["z"] {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
}

func TestNilManager(t *testing.T) {
	var m *Manager
	if m.Enabled(WorkflowsOnIngest, "post-1") {
		t.Fatal("nil manager must report every flag off")
	}
}
