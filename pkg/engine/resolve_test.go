package engine

import (
	"reflect"
	"testing"

	"github.com/incus-composer/incus-composer/pkg/compose"
)

func mustParse(t *testing.T, doc string) *compose.IncusCompose {
	t.Helper()
	parsed, err := compose.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return parsed
}

func TestResolve_CleanDocument(t *testing.T) {
	doc := mustParse(t, `
version: "1.0"
containers:
  db:
    image: ubuntu/22.04
    boot_priority: 10
  cache:
    image: alpine/3.19
    boot_priority: 5
  web:
    image: ubuntu/22.04
    depends_on:
      - db
      - cache
    networks:
      - frontend
    profiles:
      - base
networks:
  frontend:
    type: bridge
profiles:
  base:
    config:
      limits.processes: "1000"
`)

	model, violations := Resolve(doc)
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
	if model == nil {
		t.Fatal("expected a resolved model")
	}

	wantOrder := []string{"db", "cache", "web"}
	if !reflect.DeepEqual(model.Plan.Order, wantOrder) {
		t.Errorf("expected order %v, got %v", wantOrder, model.Plan.Order)
	}

	wantLevels := [][]string{{"db", "cache"}, {"web"}}
	if !reflect.DeepEqual(model.Plan.Levels, wantLevels) {
		t.Errorf("expected levels %v, got %v", wantLevels, model.Plan.Levels)
	}

	eff, ok := model.Effective["web"]
	if !ok {
		t.Fatal("expected effective configuration for web")
	}
	if eff.Config["limits.processes"] != "1000" {
		t.Errorf("expected profile config applied, got %v", eff.Config)
	}
}

func TestResolve_UnresolvedReferences(t *testing.T) {
	doc := mustParse(t, `
version: "1.0"
containers:
  web:
    image: ubuntu/22.04
    networks:
      - missing-net
    volumes:
      - source: /srv/data
        target: /data
        pool: missing-pool
    profiles:
      - missing-profile
    depends_on:
      - missing-dep
`)

	model, violations := Resolve(doc)
	if model != nil {
		t.Fatal("expected no model for an invalid document")
	}

	want := []UnresolvedReference{
		{From: "web", Field: "networks", Target: "missing-net"},
		{From: "web", Field: "volumes[0].pool", Target: "missing-pool"},
		{From: "web", Field: "profiles", Target: "missing-profile"},
		{From: "web", Field: "depends_on", Target: "missing-dep"},
	}
	if len(violations) != len(want) {
		t.Fatalf("expected %d violations, got %d: %v", len(want), len(violations), violations)
	}
	for i, expected := range want {
		got, ok := violations[i].(UnresolvedReference)
		if !ok {
			t.Fatalf("violation %d: expected UnresolvedReference, got %T", i, violations[i])
		}
		if !reflect.DeepEqual(got, expected) {
			t.Errorf("violation %d: expected %+v, got %+v", i, expected, got)
		}
	}
}

func TestResolve_SelfDependency(t *testing.T) {
	doc := mustParse(t, `
version: "1.0"
containers:
  app:
    image: ubuntu/22.04
    depends_on:
      - app
`)

	model, violations := Resolve(doc)
	if model != nil {
		t.Fatal("expected no model")
	}
	if len(violations) != 1 {
		t.Fatalf("expected exactly 1 violation, got %d: %v", len(violations), violations)
	}

	v, ok := violations[0].(SelfDependency)
	if !ok {
		t.Fatalf("expected SelfDependency, got %T", violations[0])
	}
	if v.Name != "app" {
		t.Errorf("expected name app, got %q", v.Name)
	}
}

func TestResolve_DependencyCycle(t *testing.T) {
	doc := mustParse(t, `
version: "1.0"
containers:
  a:
    image: img
    depends_on: [b]
  b:
    image: img
    depends_on: [c]
  c:
    image: img
    depends_on: [a]
`)

	model, violations := Resolve(doc)
	if model != nil {
		t.Fatal("expected no model and no start order for a cyclic document")
	}
	if len(violations) != 1 {
		t.Fatalf("expected exactly 1 violation, got %d: %v", len(violations), violations)
	}

	v, ok := violations[0].(DependencyCycle)
	if !ok {
		t.Fatalf("expected DependencyCycle, got %T", violations[0])
	}
	if !reflect.DeepEqual(v.Cycle, []string{"a", "b", "c"}) {
		t.Errorf("expected cycle [a b c], got %v", v.Cycle)
	}
	if want := "dependency cycle: a -> b -> c -> a"; v.String() != want {
		t.Errorf("expected %q, got %q", want, v.String())
	}
}

func TestResolve_DisjointCycles(t *testing.T) {
	doc := mustParse(t, `
version: "1.0"
containers:
  a:
    image: img
    depends_on: [b]
  b:
    image: img
    depends_on: [a]
  x:
    image: img
    depends_on: [y]
  y:
    image: img
    depends_on: [x]
`)

	_, violations := Resolve(doc)
	cycles := violations.ByKind(KindDependencyCycle)
	if len(cycles) != 2 {
		t.Fatalf("expected 2 cycle violations, got %d: %v", len(cycles), violations)
	}
	first := cycles[0].(DependencyCycle)
	second := cycles[1].(DependencyCycle)
	if !reflect.DeepEqual(first.Cycle, []string{"a", "b"}) {
		t.Errorf("expected first cycle [a b], got %v", first.Cycle)
	}
	if !reflect.DeepEqual(second.Cycle, []string{"x", "y"}) {
		t.Errorf("expected second cycle [x y], got %v", second.Cycle)
	}
}

func TestResolve_InvalidDevices(t *testing.T) {
	doc := mustParse(t, `
version: "1.0"
containers:
  web:
    image: ubuntu/22.04
    devices:
      data:
        type: disk
        source: /srv/data
      fwd:
        type: proxy
profiles:
  base:
    devices:
      eth1:
        type: nic
`)

	model, violations := Resolve(doc)
	if model != nil {
		t.Fatal("expected no model")
	}

	want := []InvalidDevice{
		{Container: "web", Device: "data", MissingField: "path"},
		{Container: "web", Device: "fwd", MissingField: "listen"},
		{Container: "web", Device: "fwd", MissingField: "connect"},
		{Container: "profiles.base", Device: "eth1", MissingField: "network"},
	}
	if len(violations) != len(want) {
		t.Fatalf("expected %d violations, got %d: %v", len(want), len(violations), violations)
	}
	for i, expected := range want {
		got, ok := violations[i].(InvalidDevice)
		if !ok {
			t.Fatalf("violation %d: expected InvalidDevice, got %T", i, violations[i])
		}
		if !reflect.DeepEqual(got, expected) {
			t.Errorf("violation %d: expected %+v, got %+v", i, expected, got)
		}
	}
}

func TestResolve_InvalidResourceValues(t *testing.T) {
	doc := mustParse(t, `
version: "1.0"
containers:
  web:
    image: ubuntu/22.04
    cpu:
      limit: "abc"
      allowance: "150%"
    memory:
      limit: "0"
      swap: "sometimes"
`)

	_, violations := Resolve(doc)

	want := []InvalidResourceValue{
		{Container: "web", Field: "cpu.limit", Raw: "abc"},
		{Container: "web", Field: "cpu.allowance", Raw: "150%"},
		{Container: "web", Field: "memory.limit", Raw: "0"},
		{Container: "web", Field: "memory.swap", Raw: "sometimes"},
	}
	if len(violations) != len(want) {
		t.Fatalf("expected %d violations, got %d: %v", len(want), len(violations), violations)
	}
	for i, expected := range want {
		got, ok := violations[i].(InvalidResourceValue)
		if !ok {
			t.Fatalf("violation %d: expected InvalidResourceValue, got %T", i, violations[i])
		}
		if !reflect.DeepEqual(got, expected) {
			t.Errorf("violation %d: expected %+v, got %+v", i, expected, got)
		}
	}
}

func TestResolve_ValidResourceValues(t *testing.T) {
	doc := mustParse(t, `
version: "1.0"
containers:
  web:
    image: ubuntu/22.04
    cpu:
      limit: "1-3"
      allowance: "25ms/100ms"
    memory:
      limit: 512MiB
      swap: "false"
`)

	model, violations := Resolve(doc)
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
	if model == nil {
		t.Fatal("expected a resolved model")
	}
}

func TestResolve_AccumulatesAcrossChecks(t *testing.T) {
	doc := mustParse(t, `
version: "1.0"
containers:
  a:
    image: img
    networks: [nope]
  b:
    image: img
    depends_on: [b]
  c:
    image: img
    depends_on: [d]
  d:
    image: img
    depends_on: [c]
  e:
    image: img
    devices:
      disk0:
        type: disk
        path: /mnt
    memory:
      limit: "-5GB"
`)

	model, violations := Resolve(doc)
	if model != nil {
		t.Fatal("expected no model")
	}
	if len(violations) != 5 {
		t.Fatalf("expected 5 violations, got %d: %v", len(violations), violations)
	}

	wantKinds := []ViolationKind{
		KindUnresolvedReference,
		KindSelfDependency,
		KindDependencyCycle,
		KindInvalidDevice,
		KindInvalidResourceValue,
	}
	for i, kind := range wantKinds {
		if violations[i].Kind() != kind {
			t.Errorf("violation %d: expected kind %s, got %s", i, kind, violations[i].Kind())
		}
	}

	counts := violations.CountByKind()
	for _, kind := range wantKinds {
		if counts[kind] != 1 {
			t.Errorf("expected 1 violation of kind %s, got %d", kind, counts[kind])
		}
	}
}

func TestResolve_PriorityBeforeName(t *testing.T) {
	doc := mustParse(t, `
version: "1.0"
containers:
  a-svc:
    image: img
    boot_priority: 5
  y-svc:
    image: img
    boot_priority: 10
  m1:
    image: img
  m2:
    image: img
`)

	model, violations := Resolve(doc)
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}

	wantOrder := []string{"y-svc", "a-svc", "m1", "m2"}
	if !reflect.DeepEqual(model.Plan.Order, wantOrder) {
		t.Errorf("expected order %v, got %v", wantOrder, model.Plan.Order)
	}
	if model.Plan.Depth() != 1 {
		t.Errorf("expected 1 level, got %d", model.Plan.Depth())
	}
}

func TestResolve_LevelsRespectDependencies(t *testing.T) {
	doc := mustParse(t, `
version: "1.0"
containers:
  a:
    image: img
  b:
    image: img
    depends_on: [a]
  c:
    image: img
    depends_on: [b]
  z:
    image: img
`)

	model, violations := Resolve(doc)
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}

	wantLevels := [][]string{{"a", "z"}, {"b"}, {"c"}}
	if !reflect.DeepEqual(model.Plan.Levels, wantLevels) {
		t.Errorf("expected levels %v, got %v", wantLevels, model.Plan.Levels)
	}

	for _, pair := range [][2]string{{"a", "b"}, {"b", "c"}} {
		dep, dependent := pair[0], pair[1]
		if model.Plan.Position(dep) >= model.Plan.Position(dependent) {
			t.Errorf("expected %s before %s in %v", dep, dependent, model.Plan.Order)
		}
	}
}

func TestResolve_Idempotent(t *testing.T) {
	content := `
version: "1.0"
containers:
  db:
    image: ubuntu/22.04
    boot_priority: 10
  web:
    image: ubuntu/22.04
    depends_on: [db]
    profiles: [base]
profiles:
  base:
    config:
      limits.processes: "1000"
`

	first, firstViolations := Resolve(mustParse(t, content))
	second, secondViolations := Resolve(mustParse(t, content))

	if len(firstViolations) != 0 || len(secondViolations) != 0 {
		t.Fatalf("expected clean documents, got %v / %v", firstViolations, secondViolations)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical resolved models across runs")
	}
}

func TestValidate_IdempotentViolations(t *testing.T) {
	content := `
version: "1.0"
containers:
  a:
    image: img
    depends_on: [b]
  b:
    image: img
    depends_on: [a]
  c:
    image: img
    networks: [ghost]
`

	first := Validate(mustParse(t, content))
	second := Validate(mustParse(t, content))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical violations across runs, got %v and %v", first, second)
	}
}
