package engine

import (
	"fmt"
	"strings"
)

// ViolationKind identifies one class of semantic violation.
type ViolationKind string

const (
	// KindUnresolvedReference flags a name that does not exist in the
	// document map it should resolve against.
	KindUnresolvedReference ViolationKind = "unresolved_reference"

	// KindSelfDependency flags a container listing itself in depends_on.
	KindSelfDependency ViolationKind = "self_dependency"

	// KindDependencyCycle flags a cycle in the depends_on graph.
	KindDependencyCycle ViolationKind = "dependency_cycle"

	// KindInvalidDevice flags a device with an empty required field.
	KindInvalidDevice ViolationKind = "invalid_device"

	// KindInvalidResourceValue flags a resource limit that does not parse
	// or is not positive.
	KindInvalidResourceValue ViolationKind = "invalid_resource_value"
)

// ViolationKinds returns all violation kinds in declaration order.
func ViolationKinds() []ViolationKind {
	return []ViolationKind{
		KindUnresolvedReference,
		KindSelfDependency,
		KindDependencyCycle,
		KindInvalidDevice,
		KindInvalidResourceValue,
	}
}

// Violation is one semantic defect in a structurally valid document.
// Checks accumulate violations instead of stopping at the first one, so a
// single validation pass reports every problem it can see.
type Violation interface {
	// Kind returns the violation class.
	Kind() ViolationKind

	// String returns a one-line human-readable description.
	String() string
}

// UnresolvedReference reports a reference to an entity the document does
// not define.
type UnresolvedReference struct {
	// From is the referring container name.
	From string `json:"from"`

	// Field is the container field holding the reference, e.g.
	// "networks", "depends_on" or "volumes[0].pool".
	Field string `json:"field"`

	// Target is the name that failed to resolve.
	Target string `json:"target"`
}

// Kind returns the violation class.
func (v UnresolvedReference) Kind() ViolationKind { return KindUnresolvedReference }

func (v UnresolvedReference) String() string {
	return fmt.Sprintf("containers.%s.%s: reference to undefined %s %q",
		v.From, v.Field, v.targetKind(), v.Target)
}

// targetKind names what the reference should have resolved to, derived
// from the referring field.
func (v UnresolvedReference) targetKind() string {
	switch {
	case v.Field == "depends_on":
		return "container"
	case v.Field == "networks":
		return "network"
	case v.Field == "profiles":
		return "profile"
	case strings.HasSuffix(v.Field, ".pool"):
		return "storage pool"
	}
	return "name"
}

// SelfDependency reports a container that lists itself in depends_on.
type SelfDependency struct {
	// Name is the container name.
	Name string `json:"name"`
}

// Kind returns the violation class.
func (v SelfDependency) Kind() ViolationKind { return KindSelfDependency }

func (v SelfDependency) String() string {
	return fmt.Sprintf("containers.%s.depends_on: container depends on itself", v.Name)
}

// DependencyCycle reports one cycle in the depends_on graph. Cycle holds
// the member names in dependency order, rotated so the lexicographically
// smallest member comes first; the loop closes back onto Cycle[0].
type DependencyCycle struct {
	Cycle []string `json:"cycle"`
}

// Kind returns the violation class.
func (v DependencyCycle) Kind() ViolationKind { return KindDependencyCycle }

func (v DependencyCycle) String() string {
	if len(v.Cycle) == 0 {
		return "dependency cycle"
	}
	loop := make([]string, 0, len(v.Cycle)+1)
	loop = append(loop, v.Cycle...)
	loop = append(loop, v.Cycle[0])
	return "dependency cycle: " + strings.Join(loop, " -> ")
}

// InvalidDevice reports a device with one empty required field. A device
// missing several fields produces one violation per field.
type InvalidDevice struct {
	// Container is the owning container name, or "profiles.<name>" when
	// the device is contributed by a profile definition.
	Container string `json:"container"`

	// Device is the device name, the map key in the document.
	Device string `json:"device"`

	// MissingField is the required field that is empty.
	MissingField string `json:"missing_field"`
}

// Kind returns the violation class.
func (v InvalidDevice) Kind() ViolationKind { return KindInvalidDevice }

func (v InvalidDevice) String() string {
	origin := v.Container
	if !strings.HasPrefix(origin, "profiles.") {
		origin = "containers." + origin
	}
	return fmt.Sprintf("%s.devices.%s: missing required field %q", origin, v.Device, v.MissingField)
}

// InvalidResourceValue reports a resource limit that does not parse or is
// not positive.
type InvalidResourceValue struct {
	// Container is the owning container name.
	Container string `json:"container"`

	// Field is the limit field, e.g. "cpu.limit" or "memory.swap".
	Field string `json:"field"`

	// Raw is the rejected value as written in the document.
	Raw string `json:"raw"`
}

// Kind returns the violation class.
func (v InvalidResourceValue) Kind() ViolationKind { return KindInvalidResourceValue }

func (v InvalidResourceValue) String() string {
	return fmt.Sprintf("containers.%s.%s: invalid resource value %q", v.Container, v.Field, v.Raw)
}

// Violations is an ordered list of semantic violations. It implements
// error so callers can pass it through error-shaped plumbing; a nil or
// empty list means the document passed every check.
type Violations []Violation

// Error implements the error interface.
func (v Violations) Error() string {
	if len(v) == 0 {
		return "no violations"
	}
	return fmt.Sprintf("%d semantic violation(s): %s", len(v), strings.Join(v.Strings(), "; "))
}

// Strings returns the one-line description of every violation, in order.
func (v Violations) Strings() []string {
	out := make([]string, len(v))
	for i, violation := range v {
		out[i] = violation.String()
	}
	return out
}

// ByKind returns the violations of one kind, preserving order.
func (v Violations) ByKind(kind ViolationKind) Violations {
	var out Violations
	for _, violation := range v {
		if violation.Kind() == kind {
			out = append(out, violation)
		}
	}
	return out
}

// CountByKind returns the number of violations per kind. Kinds without
// violations are absent from the map.
func (v Violations) CountByKind() map[ViolationKind]int {
	counts := make(map[ViolationKind]int)
	for _, violation := range v {
		counts[violation.Kind()]++
	}
	return counts
}
