package lockfile

import (
	"sort"
	"time"
)

// Lockfile pins generated instance identity for one document. Repeated
// runs against an unchanged lockfile produce the same IDs and hardware
// addresses, so rendered scripts stay stable across regenerations.
type Lockfile struct {
	// Metadata records when and from what the lockfile was generated.
	Metadata Metadata `yaml:"metadata" json:"metadata"`

	// Instances maps container names to their pinned identity.
	Instances map[string]*Instance `yaml:"instances" json:"instances"`
}

// Metadata describes the generation run that produced a lockfile.
type Metadata struct {
	// GeneratedAt is the generation time in UTC, second precision.
	GeneratedAt time.Time `yaml:"generated_at" json:"generated_at"`

	// GeneratorVersion is the tool version that wrote the lockfile.
	GeneratorVersion string `yaml:"generator_version" json:"generator_version"`

	// SourceHash is the sha256 of the source document bytes, hex encoded.
	SourceHash string `yaml:"source_hash" json:"source_hash"`
}

// Instance pins the generated identity of one container.
type Instance struct {
	// ID is a UUID assigned on first generation and kept across merges.
	ID string `yaml:"id" json:"id"`

	// Image is the full image reference the instance launches from,
	// server prefix included.
	Image string `yaml:"image" json:"image"`

	// StartIndex is the container's position in the start plan.
	StartIndex int `yaml:"start_index" json:"start_index"`

	// Hwaddrs maps nic device names to generated hardware addresses.
	// Only nics without an explicit hwaddr in the document appear here.
	Hwaddrs map[string]string `yaml:"hwaddrs,omitempty" json:"hwaddrs,omitempty"`
}

// Hwaddr returns the pinned hardware address for a container's nic
// device. Safe to call on a nil lockfile.
func (l *Lockfile) Hwaddr(container, device string) (string, bool) {
	if l == nil {
		return "", false
	}
	inst, ok := l.Instances[container]
	if !ok {
		return "", false
	}
	addr, ok := inst.Hwaddrs[device]
	return addr, ok
}

// ContainerNames returns the locked container names in lexicographic
// order.
func (l *Lockfile) ContainerNames() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.Instances))
	for name := range l.Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
