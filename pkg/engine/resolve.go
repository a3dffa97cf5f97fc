package engine

import (
	"fmt"
	"sort"

	"github.com/incus-composer/incus-composer/pkg/compose"
)

// Resolve runs every semantic check and, when the document is clean,
// builds the resolved model. Violations accumulate across all checks in a
// single pass; any violation means no model, never a partial one.
// Resolving the same document twice yields identical models.
func Resolve(doc *compose.IncusCompose) (*ResolvedModel, Violations) {
	violations := Validate(doc)
	if len(violations) > 0 {
		return nil, violations
	}

	effective := make(map[string]EffectiveConfig, len(doc.Containers))
	for _, name := range doc.ContainerNames() {
		effective[name] = mergeProfiles(doc, doc.Containers[name])
	}

	return &ResolvedModel{
		Doc:       doc,
		Plan:      newStartGraph(doc).plan(),
		Effective: effective,
	}, nil
}

// Validate runs the semantic checks without building a model. The result
// is deterministic: checks run in a fixed sequence and each walks
// containers in name order.
func Validate(doc *compose.IncusCompose) Violations {
	var violations Violations
	violations = append(violations, checkReferences(doc)...)
	violations = append(violations, checkSelfDependencies(doc)...)
	for _, cycle := range newStartGraph(doc).cycles() {
		violations = append(violations, DependencyCycle{Cycle: cycle})
	}
	violations = append(violations, checkDevices(doc)...)
	violations = append(violations, checkResources(doc)...)
	return violations
}

// checkReferences verifies that every name a container refers to exists in
// the corresponding document map. A volume without a pool refers to the
// default pool and is not checked.
func checkReferences(doc *compose.IncusCompose) Violations {
	var out Violations
	for _, name := range doc.ContainerNames() {
		c := doc.Containers[name]

		for _, ref := range c.Networks {
			if _, ok := doc.Networks[ref]; !ok {
				out = append(out, UnresolvedReference{From: name, Field: "networks", Target: ref})
			}
		}
		for i, vol := range c.Volumes {
			if vol.Pool == "" {
				continue
			}
			if _, ok := doc.Storage[vol.Pool]; !ok {
				out = append(out, UnresolvedReference{
					From:   name,
					Field:  fmt.Sprintf("volumes[%d].pool", i),
					Target: vol.Pool,
				})
			}
		}
		for _, ref := range c.Profiles {
			if _, ok := doc.Profiles[ref]; !ok {
				out = append(out, UnresolvedReference{From: name, Field: "profiles", Target: ref})
			}
		}
		for _, ref := range c.DependsOn {
			if _, ok := doc.Containers[ref]; !ok {
				out = append(out, UnresolvedReference{From: name, Field: "depends_on", Target: ref})
			}
		}
	}
	return out
}

// checkSelfDependencies reports containers listing themselves in
// depends_on, one violation per container.
func checkSelfDependencies(doc *compose.IncusCompose) Violations {
	var out Violations
	for _, name := range doc.ContainerNames() {
		for _, ref := range doc.Containers[name].DependsOn {
			if ref == name {
				out = append(out, SelfDependency{Name: name})
				break
			}
		}
	}
	return out
}

// checkDevices verifies required fields on every device, both on
// containers and on profile definitions.
func checkDevices(doc *compose.IncusCompose) Violations {
	var out Violations
	for _, name := range doc.ContainerNames() {
		out = append(out, deviceViolations(name, doc.Containers[name].Devices)...)
	}
	for _, name := range doc.ProfileNames() {
		out = append(out, deviceViolations("profiles."+name, doc.Profiles[name].Devices)...)
	}
	return out
}

// deviceViolations reports one violation per empty required field, walking
// devices in name order.
func deviceViolations(owner string, devices map[string]compose.Device) Violations {
	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)

	var out Violations
	for _, name := range names {
		for _, field := range devices[name].MissingFields() {
			out = append(out, InvalidDevice{Container: owner, Device: name, MissingField: field})
		}
	}
	return out
}

// checkResources verifies that resource limit values parse and are
// positive. The values stay strings in the model; Incus receives them as
// written.
func checkResources(doc *compose.IncusCompose) Violations {
	var out Violations
	for _, name := range doc.ContainerNames() {
		c := doc.Containers[name]

		if c.CPU != nil {
			if c.CPU.Limit != "" {
				if err := compose.ValidateCPULimit(c.CPU.Limit); err != nil {
					out = append(out, InvalidResourceValue{Container: name, Field: "cpu.limit", Raw: c.CPU.Limit})
				}
			}
			if c.CPU.Allowance != "" {
				if err := compose.ValidateCPUAllowance(c.CPU.Allowance); err != nil {
					out = append(out, InvalidResourceValue{Container: name, Field: "cpu.allowance", Raw: c.CPU.Allowance})
				}
			}
		}
		if c.Memory != nil {
			if _, err := compose.ParseMemoryQuantity(c.Memory.Limit); err != nil {
				out = append(out, InvalidResourceValue{Container: name, Field: "memory.limit", Raw: c.Memory.Limit})
			}
			if c.Memory.Swap != "" {
				if err := compose.ValidateMemorySwap(c.Memory.Swap); err != nil {
					out = append(out, InvalidResourceValue{Container: name, Field: "memory.swap", Raw: c.Memory.Swap})
				}
			}
		}
	}
	return out
}
