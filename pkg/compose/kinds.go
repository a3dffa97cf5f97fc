package compose

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion is the document schema version this package targets.
const SchemaVersion = "1.0"

// SupportedVersions returns the schema versions this package can parse.
func SupportedVersions() []string {
	return []string{SchemaVersion}
}

// InstanceType represents the kind of instance a container entry describes.
type InstanceType string

const (
	// InstanceTypeContainer is a system container. This is the default.
	InstanceTypeContainer InstanceType = "container"

	// InstanceTypeVirtualMachine is a full virtual machine.
	InstanceTypeVirtualMachine InstanceType = "virtual-machine"
)

// IsVirtualMachine returns true if the instance is a virtual machine.
func (t InstanceType) IsVirtualMachine() bool {
	return t == InstanceTypeVirtualMachine
}

// Validate checks if the instance type is valid.
func (t InstanceType) Validate() error {
	switch t {
	case InstanceTypeContainer, InstanceTypeVirtualMachine:
		return nil
	default:
		return fmt.Errorf("invalid instance type: %s", t)
	}
}

// InstanceTypes returns all valid instance type values in declaration order.
func InstanceTypes() []string {
	return []string{
		string(InstanceTypeContainer),
		string(InstanceTypeVirtualMachine),
	}
}

// NetworkType represents the kind of managed network.
type NetworkType string

const (
	// NetworkTypeBridge is a local bridge network.
	NetworkTypeBridge NetworkType = "bridge"

	// NetworkTypeMacvlan attaches instances directly to a parent interface.
	NetworkTypeMacvlan NetworkType = "macvlan"

	// NetworkTypeSriov uses SR-IOV virtual functions of a parent interface.
	NetworkTypeSriov NetworkType = "sriov"

	// NetworkTypeOvn is an OVN virtual network.
	NetworkTypeOvn NetworkType = "ovn"

	// NetworkTypePhysical passes a physical interface through.
	NetworkTypePhysical NetworkType = "physical"
)

// Validate checks if the network type is valid.
func (t NetworkType) Validate() error {
	switch t {
	case NetworkTypeBridge, NetworkTypeMacvlan, NetworkTypeSriov,
		NetworkTypeOvn, NetworkTypePhysical:
		return nil
	default:
		return fmt.Errorf("invalid network type: %s", t)
	}
}

// NetworkTypes returns all valid network type values in declaration order.
func NetworkTypes() []string {
	return []string{
		string(NetworkTypeBridge),
		string(NetworkTypeMacvlan),
		string(NetworkTypeSriov),
		string(NetworkTypeOvn),
		string(NetworkTypePhysical),
	}
}

// StorageDriver represents the backing driver of a storage pool.
type StorageDriver string

const (
	// StorageDriverDir stores volumes as plain directories.
	StorageDriverDir StorageDriver = "dir"

	// StorageDriverBtrfs uses btrfs subvolumes.
	StorageDriverBtrfs StorageDriver = "btrfs"

	// StorageDriverLvm uses LVM logical volumes.
	StorageDriverLvm StorageDriver = "lvm"

	// StorageDriverZfs uses ZFS datasets.
	StorageDriverZfs StorageDriver = "zfs"

	// StorageDriverCeph uses Ceph RBD images.
	StorageDriverCeph StorageDriver = "ceph"
)

// Validate checks if the storage driver is valid.
func (d StorageDriver) Validate() error {
	switch d {
	case StorageDriverDir, StorageDriverBtrfs, StorageDriverLvm,
		StorageDriverZfs, StorageDriverCeph:
		return nil
	default:
		return fmt.Errorf("invalid storage driver: %s", d)
	}
}

// StorageDrivers returns all valid storage driver values in declaration order.
func StorageDrivers() []string {
	return []string{
		string(StorageDriverDir),
		string(StorageDriverBtrfs),
		string(StorageDriverLvm),
		string(StorageDriverZfs),
		string(StorageDriverCeph),
	}
}

// DeviceType represents the variant tag of a device definition.
type DeviceType string

const (
	// DeviceTypeDisk attaches a host path or storage volume.
	DeviceTypeDisk DeviceType = "disk"

	// DeviceTypeNic attaches a network interface.
	DeviceTypeNic DeviceType = "nic"

	// DeviceTypeProxy forwards a host address to an instance address.
	DeviceTypeProxy DeviceType = "proxy"

	// DeviceTypeGpu passes a GPU through.
	DeviceTypeGpu DeviceType = "gpu"

	// DeviceTypeUsb passes a USB device through.
	DeviceTypeUsb DeviceType = "usb"
)

// Validate checks if the device type is valid.
func (t DeviceType) Validate() error {
	switch t {
	case DeviceTypeDisk, DeviceTypeNic, DeviceTypeProxy, DeviceTypeGpu, DeviceTypeUsb:
		return nil
	default:
		return fmt.Errorf("invalid device type: %s", t)
	}
}

// DeviceTypes returns all valid device type values in declaration order.
func DeviceTypes() []string {
	return []string{
		string(DeviceTypeDisk),
		string(DeviceTypeNic),
		string(DeviceTypeProxy),
		string(DeviceTypeGpu),
		string(DeviceTypeUsb),
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (t InstanceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (t *InstanceType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*t = InstanceType(str)
	return t.Validate()
}
