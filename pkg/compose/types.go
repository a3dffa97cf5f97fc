package compose

import "sort"

// IncusCompose is the document root: a complete declarative topology of
// instances, networks, storage pools and profiles. All entities are
// immutable value objects constructed once from a parsed document;
// re-validation means re-parsing from scratch.
type IncusCompose struct {
	// Version is the document schema version. Required; there is no default.
	Version string `yaml:"version" json:"version" validate:"required"`

	// Containers maps instance names to their definitions. Required and
	// non-empty; names are unique by mapping semantics.
	Containers map[string]*Container `yaml:"containers" json:"containers" validate:"required,min=1,dive,required"`

	// Networks maps network names to their definitions.
	Networks map[string]*Network `yaml:"networks,omitempty" json:"networks,omitempty" validate:"omitempty,dive,required"`

	// Storage maps storage pool names to their definitions.
	Storage map[string]*StoragePool `yaml:"storage,omitempty" json:"storage,omitempty" validate:"omitempty,dive,required"`

	// Profiles maps profile names to their definitions.
	Profiles map[string]*Profile `yaml:"profiles,omitempty" json:"profiles,omitempty" validate:"omitempty,dive,required"`
}

// Container describes one system container or virtual machine. The name is
// the map key in the document root and is copied here during construction.
type Container struct {
	// Name is the instance name, taken from the document map key.
	Name string `yaml:"-" json:"name"`

	// InstanceType selects between a system container and a virtual
	// machine. Defaults to container.
	InstanceType InstanceType `yaml:"instance_type" json:"instance_type" validate:"required,oneof=container virtual-machine"`

	// Image is the image alias to launch from, e.g. "ubuntu/22.04".
	Image string `yaml:"image" json:"image" validate:"required"`

	// ImageServer is the remote the image is pulled from. Defaults to "images:".
	ImageServer string `yaml:"image_server" json:"image_server" validate:"required"`

	// Description is an optional human-readable description.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// CPU holds optional CPU resource limits.
	CPU *CPULimits `yaml:"cpu,omitempty" json:"cpu,omitempty"`

	// Memory holds optional memory resource limits.
	Memory *MemoryLimits `yaml:"memory,omitempty" json:"memory,omitempty"`

	// Networks lists the names of networks to attach, in order.
	Networks []string `yaml:"networks,omitempty" json:"networks,omitempty"`

	// Volumes lists volume mounts for this instance.
	Volumes []Volume `yaml:"volumes,omitempty" json:"volumes,omitempty" validate:"omitempty,dive"`

	// Devices maps device names to their typed definitions.
	Devices map[string]Device `yaml:"devices,omitempty" json:"devices,omitempty"`

	// Config holds raw instance configuration passed through unchanged,
	// e.g. "security.nesting". The schema does not interpret these keys.
	Config map[string]string `yaml:"config,omitempty" json:"config,omitempty"`

	// Environment holds environment variables set inside the instance.
	Environment map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`

	// Autostart controls whether the instance starts with the host.
	// Defaults to true.
	Autostart bool `yaml:"autostart" json:"autostart"`

	// BootPriority orders instances with no dependency relation between
	// them; higher starts first. Defaults to 0.
	BootPriority int `yaml:"boot_priority,omitempty" json:"boot_priority,omitempty"`

	// DependsOn lists containers that must start before this one.
	DependsOn []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`

	// Profiles lists profile names applied to this instance, in order.
	// Later profiles override earlier ones.
	Profiles []string `yaml:"profiles,omitempty" json:"profiles,omitempty"`

	// CloudInit holds optional cloud-init seed data.
	CloudInit *CloudInit `yaml:"cloud_init,omitempty" json:"cloud_init,omitempty"`
}

// CPULimits holds CPU resource limits for an instance. All fields are
// optional; values are passed through to the instance configuration after
// the validator's sanity checks.
type CPULimits struct {
	// Limit is the number of cores ("2") or a core pinning range ("1-3").
	Limit string `yaml:"limit,omitempty" json:"limit,omitempty"`

	// Allowance caps CPU time, either as a percentage ("50%") or a
	// slice of scheduler time ("25ms/100ms").
	Allowance string `yaml:"allowance,omitempty" json:"allowance,omitempty"`

	// Priority is the CPU scheduling priority (0-10).
	Priority *int `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// MemoryLimits holds memory resource limits for an instance.
type MemoryLimits struct {
	// Limit is the memory limit as a size ("2GB", "512MiB") or a
	// percentage of host memory ("50%"). Required when the block is present.
	Limit string `yaml:"limit" json:"limit" validate:"required"`

	// Swap controls swap usage; a size, or "true"/"false".
	Swap string `yaml:"swap,omitempty" json:"swap,omitempty"`

	// SwapPriority sets the swap priority (0-10).
	SwapPriority *int `yaml:"swap_priority,omitempty" json:"swap_priority,omitempty"`
}

// Volume describes a storage volume mounted into an instance.
type Volume struct {
	// Source is the host path or volume name.
	Source string `yaml:"source" json:"source" validate:"required"`

	// Target is the mount path inside the instance.
	Target string `yaml:"target" json:"target" validate:"required"`

	// Pool names the storage pool providing the volume. Empty means the
	// default pool; only named pools are checked for existence.
	Pool string `yaml:"pool,omitempty" json:"pool,omitempty"`

	// Readonly mounts the volume read-only. Defaults to false.
	Readonly bool `yaml:"readonly,omitempty" json:"readonly,omitempty"`
}

// CloudInit holds cloud-init seed data for an instance. Each field is raw
// text passed through without interpretation.
type CloudInit struct {
	// UserData is the cloud-config user data.
	UserData string `yaml:"user_data,omitempty" json:"user_data,omitempty"`

	// NetworkConfig is the cloud-init network configuration.
	NetworkConfig string `yaml:"network_config,omitempty" json:"network_config,omitempty"`

	// VendorData is the cloud-init vendor data.
	VendorData string `yaml:"vendor_data,omitempty" json:"vendor_data,omitempty"`
}

// Network describes a managed network instances can attach to.
type Network struct {
	// Type is the network kind.
	Type NetworkType `yaml:"type" json:"type" validate:"required,oneof=bridge macvlan sriov ovn physical"`

	// Description is an optional human-readable description.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Config holds free-form network configuration passed through
	// unchanged, e.g. "ipv4.address", "ipv4.nat".
	Config map[string]string `yaml:"config,omitempty" json:"config,omitempty"`
}

// StoragePool describes a storage pool volumes can be placed in.
type StoragePool struct {
	// Driver is the backing storage driver.
	Driver StorageDriver `yaml:"driver" json:"driver" validate:"required,oneof=dir btrfs lvm zfs ceph"`

	// Description is an optional human-readable description.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Config holds free-form pool configuration passed through unchanged.
	Config map[string]string `yaml:"config,omitempty" json:"config,omitempty"`
}

// Profile is a named, reusable bundle of configuration and devices
// applicable to multiple instances.
type Profile struct {
	// Description is an optional human-readable description.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Config holds instance configuration contributed by this profile.
	Config map[string]string `yaml:"config,omitempty" json:"config,omitempty"`

	// Devices maps device names to definitions contributed by this profile.
	Devices map[string]Device `yaml:"devices,omitempty" json:"devices,omitempty"`
}

// sortedKeys returns the keys of m in lexicographic order. Mapping
// iteration order must never leak into outputs, so every place that walks
// an entity map goes through this.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ContainerNames returns the container names in lexicographic order.
func (c *IncusCompose) ContainerNames() []string {
	return sortedKeys(c.Containers)
}

// NetworkNames returns the network names in lexicographic order.
func (c *IncusCompose) NetworkNames() []string {
	return sortedKeys(c.Networks)
}

// StorageNames returns the storage pool names in lexicographic order.
func (c *IncusCompose) StorageNames() []string {
	return sortedKeys(c.Storage)
}

// ProfileNames returns the profile names in lexicographic order.
func (c *IncusCompose) ProfileNames() []string {
	return sortedKeys(c.Profiles)
}
