package compose

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Device is the closed variant set of resources attachable to an instance
// or contributed by a profile. Each variant carries only its own fields;
// required-per-variant is an invariant of the type, not a runtime
// convention over one flat record.
type Device interface {
	// Type returns the variant tag.
	Type() DeviceType

	// MissingFields returns the names of required fields that are empty.
	// A well-formed device returns nil.
	MissingFields() []string

	// Validate checks the variant's required fields are present.
	Validate() error
}

// DiskDevice attaches a host path or storage volume to an instance.
type DiskDevice struct {
	// Source is the host path or volume name. Required.
	Source string `yaml:"source" json:"source" validate:"required"`

	// Path is the mount path inside the instance. Required.
	Path string `yaml:"path" json:"path" validate:"required"`

	// Readonly mounts the disk read-only. Defaults to false.
	Readonly bool `yaml:"readonly,omitempty" json:"readonly,omitempty"`
}

// Type returns the variant tag.
func (d DiskDevice) Type() DeviceType { return DeviceTypeDisk }

// MissingFields returns the names of required fields that are empty.
func (d DiskDevice) MissingFields() []string {
	var missing []string
	if d.Source == "" {
		missing = append(missing, "source")
	}
	if d.Path == "" {
		missing = append(missing, "path")
	}
	return missing
}

// Validate checks the variant's required fields are present.
func (d DiskDevice) Validate() error { return validateDevice(d) }

// MarshalYAML implements yaml.Marshaler, emitting the variant tag first.
func (d DiskDevice) MarshalYAML() (interface{}, error) {
	return diskWire{Type: DeviceTypeDisk, Source: d.Source, Path: d.Path, Readonly: d.Readonly}, nil
}

// MarshalJSON implements json.Marshaler, emitting the variant tag.
func (d DiskDevice) MarshalJSON() ([]byte, error) {
	return json.Marshal(diskWire{Type: DeviceTypeDisk, Source: d.Source, Path: d.Path, Readonly: d.Readonly})
}

type diskWire struct {
	Type     DeviceType `yaml:"type" json:"type"`
	Source   string     `yaml:"source" json:"source"`
	Path     string     `yaml:"path" json:"path"`
	Readonly bool       `yaml:"readonly,omitempty" json:"readonly,omitempty"`
}

// NICDevice attaches a network interface to an instance.
type NICDevice struct {
	// Network is the managed network to attach to. Required.
	Network string `yaml:"network" json:"network" validate:"required"`

	// Name is the interface name inside the instance.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Hwaddr is the MAC address. Empty means one is generated and pinned
	// in the lockfile.
	Hwaddr string `yaml:"hwaddr,omitempty" json:"hwaddr,omitempty"`
}

// Type returns the variant tag.
func (d NICDevice) Type() DeviceType { return DeviceTypeNic }

// MissingFields returns the names of required fields that are empty.
func (d NICDevice) MissingFields() []string {
	if d.Network == "" {
		return []string{"network"}
	}
	return nil
}

// Validate checks the variant's required fields are present.
func (d NICDevice) Validate() error { return validateDevice(d) }

// MarshalYAML implements yaml.Marshaler, emitting the variant tag first.
func (d NICDevice) MarshalYAML() (interface{}, error) {
	return nicWire{Type: DeviceTypeNic, Network: d.Network, Name: d.Name, Hwaddr: d.Hwaddr}, nil
}

// MarshalJSON implements json.Marshaler, emitting the variant tag.
func (d NICDevice) MarshalJSON() ([]byte, error) {
	return json.Marshal(nicWire{Type: DeviceTypeNic, Network: d.Network, Name: d.Name, Hwaddr: d.Hwaddr})
}

type nicWire struct {
	Type    DeviceType `yaml:"type" json:"type"`
	Network string     `yaml:"network" json:"network"`
	Name    string     `yaml:"name,omitempty" json:"name,omitempty"`
	Hwaddr  string     `yaml:"hwaddr,omitempty" json:"hwaddr,omitempty"`
}

// ProxyDevice forwards a host address to an instance address.
type ProxyDevice struct {
	// Listen is the host-side address, e.g. "tcp:0.0.0.0:8080". Required.
	Listen string `yaml:"listen" json:"listen" validate:"required"`

	// Connect is the instance-side address, e.g. "tcp:127.0.0.1:80". Required.
	Connect string `yaml:"connect" json:"connect" validate:"required"`

	// Bind selects which side the listening socket binds on.
	Bind string `yaml:"bind,omitempty" json:"bind,omitempty"`
}

// Type returns the variant tag.
func (d ProxyDevice) Type() DeviceType { return DeviceTypeProxy }

// MissingFields returns the names of required fields that are empty.
func (d ProxyDevice) MissingFields() []string {
	var missing []string
	if d.Listen == "" {
		missing = append(missing, "listen")
	}
	if d.Connect == "" {
		missing = append(missing, "connect")
	}
	return missing
}

// Validate checks the variant's required fields are present.
func (d ProxyDevice) Validate() error { return validateDevice(d) }

// MarshalYAML implements yaml.Marshaler, emitting the variant tag first.
func (d ProxyDevice) MarshalYAML() (interface{}, error) {
	return proxyWire{Type: DeviceTypeProxy, Listen: d.Listen, Connect: d.Connect, Bind: d.Bind}, nil
}

// MarshalJSON implements json.Marshaler, emitting the variant tag.
func (d ProxyDevice) MarshalJSON() ([]byte, error) {
	return json.Marshal(proxyWire{Type: DeviceTypeProxy, Listen: d.Listen, Connect: d.Connect, Bind: d.Bind})
}

type proxyWire struct {
	Type    DeviceType `yaml:"type" json:"type"`
	Listen  string     `yaml:"listen" json:"listen"`
	Connect string     `yaml:"connect" json:"connect"`
	Bind    string     `yaml:"bind,omitempty" json:"bind,omitempty"`
}

// GPUDevice passes a GPU through to an instance. All fields are optional;
// an empty device passes all GPUs.
type GPUDevice struct {
	// ID is the DRM card identifier or PCI address.
	ID string `yaml:"id,omitempty" json:"id,omitempty"`

	// VendorID restricts the passthrough to a vendor.
	VendorID string `yaml:"vendorid,omitempty" json:"vendorid,omitempty"`

	// ProductID restricts the passthrough to a product.
	ProductID string `yaml:"productid,omitempty" json:"productid,omitempty"`
}

// Type returns the variant tag.
func (d GPUDevice) Type() DeviceType { return DeviceTypeGpu }

// MissingFields returns nil; gpu devices have no required fields.
func (d GPUDevice) MissingFields() []string { return nil }

// Validate checks the variant's required fields are present.
func (d GPUDevice) Validate() error { return nil }

// MarshalYAML implements yaml.Marshaler, emitting the variant tag first.
func (d GPUDevice) MarshalYAML() (interface{}, error) {
	return gpuWire{Type: DeviceTypeGpu, ID: d.ID, VendorID: d.VendorID, ProductID: d.ProductID}, nil
}

// MarshalJSON implements json.Marshaler, emitting the variant tag.
func (d GPUDevice) MarshalJSON() ([]byte, error) {
	return json.Marshal(gpuWire{Type: DeviceTypeGpu, ID: d.ID, VendorID: d.VendorID, ProductID: d.ProductID})
}

type gpuWire struct {
	Type      DeviceType `yaml:"type" json:"type"`
	ID        string     `yaml:"id,omitempty" json:"id,omitempty"`
	VendorID  string     `yaml:"vendorid,omitempty" json:"vendorid,omitempty"`
	ProductID string     `yaml:"productid,omitempty" json:"productid,omitempty"`
}

// USBDevice passes a USB device through to an instance. All fields are
// optional; an empty device passes all USB devices.
type USBDevice struct {
	// VendorID restricts the passthrough to a vendor.
	VendorID string `yaml:"vendorid,omitempty" json:"vendorid,omitempty"`

	// ProductID restricts the passthrough to a product.
	ProductID string `yaml:"productid,omitempty" json:"productid,omitempty"`
}

// Type returns the variant tag.
func (d USBDevice) Type() DeviceType { return DeviceTypeUsb }

// MissingFields returns nil; usb devices have no required fields.
func (d USBDevice) MissingFields() []string { return nil }

// Validate checks the variant's required fields are present.
func (d USBDevice) Validate() error { return nil }

// MarshalYAML implements yaml.Marshaler, emitting the variant tag first.
func (d USBDevice) MarshalYAML() (interface{}, error) {
	return usbWire{Type: DeviceTypeUsb, VendorID: d.VendorID, ProductID: d.ProductID}, nil
}

// MarshalJSON implements json.Marshaler, emitting the variant tag.
func (d USBDevice) MarshalJSON() ([]byte, error) {
	return json.Marshal(usbWire{Type: DeviceTypeUsb, VendorID: d.VendorID, ProductID: d.ProductID})
}

type usbWire struct {
	Type      DeviceType `yaml:"type" json:"type"`
	VendorID  string     `yaml:"vendorid,omitempty" json:"vendorid,omitempty"`
	ProductID string     `yaml:"productid,omitempty" json:"productid,omitempty"`
}

// validateDevice builds the shared required-field error.
func validateDevice(d Device) error {
	missing := d.MissingFields()
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%s device missing required field(s): %s",
		d.Type(), strings.Join(missing, ", "))
}

// RequiredDeviceFields returns the required field names for a device type,
// in declaration order.
func RequiredDeviceFields(t DeviceType) []string {
	switch t {
	case DeviceTypeDisk:
		return []string{"source", "path"}
	case DeviceTypeNic:
		return []string{"network"}
	case DeviceTypeProxy:
		return []string{"listen", "connect"}
	default:
		return nil
	}
}
