package engine

import (
	"github.com/incus-composer/incus-composer/pkg/compose"
)

// StartPlan is the deterministic start schedule for a validated topology.
type StartPlan struct {
	// Order lists every container in start order: dependencies before
	// dependents, ties broken by descending boot_priority, then name.
	Order []string `json:"order"`

	// Levels groups Order into stages. Containers in level N have all
	// their dependencies in levels below N and may start concurrently
	// once level N-1 has completed. Each level is sorted with the same
	// tie-break as Order.
	Levels [][]string `json:"levels"`
}

// Depth returns the number of levels.
func (p StartPlan) Depth() int {
	return len(p.Levels)
}

// Position returns the index of a container in the start order, or -1 when
// the container is not part of the plan.
func (p StartPlan) Position(name string) int {
	for i, n := range p.Order {
		if n == name {
			return i
		}
	}
	return -1
}

// EffectiveConfig is a container's configuration after profile application:
// referenced profiles applied left to right, then the container's own
// values on top.
type EffectiveConfig struct {
	// Config is the merged instance configuration.
	Config map[string]string `json:"config,omitempty"`

	// Environment is the container's environment variables. Profiles do
	// not contribute environment entries.
	Environment map[string]string `json:"environment,omitempty"`

	// Devices is the merged device map. Profiles and the container
	// override whole devices by name; devices never merge field-wise.
	Devices map[string]compose.Device `json:"devices,omitempty"`
}

// ResolvedModel is the output of a fully successful validation pass: the
// document, its start plan and the effective configuration of every
// container. A resolved model exists only when the document had zero
// semantic violations, so consumers can rely on every reference resolving.
type ResolvedModel struct {
	// Doc is the validated document.
	Doc *compose.IncusCompose `json:"document"`

	// Plan is the deterministic start plan.
	Plan StartPlan `json:"plan"`

	// Effective maps container names to their post-merge configuration.
	Effective map[string]EffectiveConfig `json:"effective"`
}

// DOT renders the dependency graph in Graphviz DOT format, grouping
// containers into one cluster per start level.
func (m *ResolvedModel) DOT() string {
	return newStartGraph(m.Doc).dot()
}
