package engine

import (
	"strings"
	"testing"
)

func TestViolation_Strings(t *testing.T) {
	tests := []struct {
		name      string
		violation Violation
		kind      ViolationKind
		want      string
	}{
		{
			name:      "unresolved network",
			violation: UnresolvedReference{From: "web", Field: "networks", Target: "frontend"},
			kind:      KindUnresolvedReference,
			want:      `containers.web.networks: reference to undefined network "frontend"`,
		},
		{
			name:      "unresolved pool",
			violation: UnresolvedReference{From: "db", Field: "volumes[0].pool", Target: "fast"},
			kind:      KindUnresolvedReference,
			want:      `containers.db.volumes[0].pool: reference to undefined storage pool "fast"`,
		},
		{
			name:      "unresolved profile",
			violation: UnresolvedReference{From: "db", Field: "profiles", Target: "base"},
			kind:      KindUnresolvedReference,
			want:      `containers.db.profiles: reference to undefined profile "base"`,
		},
		{
			name:      "unresolved dependency",
			violation: UnresolvedReference{From: "web", Field: "depends_on", Target: "db"},
			kind:      KindUnresolvedReference,
			want:      `containers.web.depends_on: reference to undefined container "db"`,
		},
		{
			name:      "self dependency",
			violation: SelfDependency{Name: "app"},
			kind:      KindSelfDependency,
			want:      "containers.app.depends_on: container depends on itself",
		},
		{
			name:      "cycle",
			violation: DependencyCycle{Cycle: []string{"a", "b", "c"}},
			kind:      KindDependencyCycle,
			want:      "dependency cycle: a -> b -> c -> a",
		},
		{
			name:      "invalid container device",
			violation: InvalidDevice{Container: "web", Device: "data", MissingField: "source"},
			kind:      KindInvalidDevice,
			want:      `containers.web.devices.data: missing required field "source"`,
		},
		{
			name:      "invalid profile device",
			violation: InvalidDevice{Container: "profiles.base", Device: "eth0", MissingField: "network"},
			kind:      KindInvalidDevice,
			want:      `profiles.base.devices.eth0: missing required field "network"`,
		},
		{
			name:      "invalid resource value",
			violation: InvalidResourceValue{Container: "web", Field: "cpu.limit", Raw: "-3"},
			kind:      KindInvalidResourceValue,
			want:      `containers.web.cpu.limit: invalid resource value "-3"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.violation.Kind(); got != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, got)
			}
			if got := tt.violation.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestViolations_Error(t *testing.T) {
	v := Violations{
		SelfDependency{Name: "a"},
		InvalidResourceValue{Container: "b", Field: "memory.limit", Raw: "x"},
	}

	msg := v.Error()
	if !strings.HasPrefix(msg, "2 semantic violation(s): ") {
		t.Errorf("expected count prefix, got %q", msg)
	}
	if !strings.Contains(msg, "depends on itself") || !strings.Contains(msg, "invalid resource value") {
		t.Errorf("expected both violations in the message, got %q", msg)
	}

	if got := (Violations{}).Error(); got != "no violations" {
		t.Errorf("expected empty message, got %q", got)
	}
}

func TestViolations_ByKindAndCounts(t *testing.T) {
	v := Violations{
		SelfDependency{Name: "a"},
		SelfDependency{Name: "b"},
		DependencyCycle{Cycle: []string{"x", "y"}},
	}

	selfs := v.ByKind(KindSelfDependency)
	if len(selfs) != 2 {
		t.Errorf("expected 2 self dependencies, got %d", len(selfs))
	}
	if len(v.ByKind(KindInvalidDevice)) != 0 {
		t.Errorf("expected no device violations")
	}

	counts := v.CountByKind()
	if counts[KindSelfDependency] != 2 || counts[KindDependencyCycle] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if _, ok := counts[KindUnresolvedReference]; ok {
		t.Errorf("expected absent kinds to stay out of the map")
	}
}

func TestViolationKinds_Complete(t *testing.T) {
	kinds := ViolationKinds()
	if len(kinds) != 5 {
		t.Fatalf("expected 5 kinds, got %d", len(kinds))
	}
	want := []ViolationKind{
		KindUnresolvedReference,
		KindSelfDependency,
		KindDependencyCycle,
		KindInvalidDevice,
		KindInvalidResourceValue,
	}
	for i, kind := range want {
		if kinds[i] != kind {
			t.Errorf("kind %d: expected %s, got %s", i, kind, kinds[i])
		}
	}
}

func TestDependencyCycle_EmptyCycle(t *testing.T) {
	if got := (DependencyCycle{}).String(); got != "dependency cycle" {
		t.Errorf("expected bare message, got %q", got)
	}
}
