package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultImageServer is the image remote used when a container omits
// image_server.
const DefaultImageServer = "images:"

// Parse decodes a YAML compose document into its typed model. Decoding is
// strict: unknown fields, duplicate fields, and values of the wrong shape
// fail with a structural error carrying the document path and the source
// position of the offending node. The first structural error aborts the
// parse; semantic checks (references, cycles, device completeness) are the
// validator's job and run later.
func Parse(data []byte) (*IncusCompose, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	doc := documentNode(&root)
	if doc == nil {
		return nil, &MissingFieldError{FieldPath: "version", Line: 1, Column: 1}
	}
	compose, err := decodeDocument(doc)
	if err != nil {
		return nil, err
	}
	if err := compose.Validate(); err != nil {
		return nil, err
	}
	return compose, nil
}

// Load reads the compose file at path and parses it with the front end
// selected by extension: .cue and .star documents are evaluated and
// converted to the document shape, then run through the same strict decode
// path as plain YAML.
func Load(path string) (*IncusCompose, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseCUE(path, data)
	case ".star":
		return ParseStarlark(path, data)
	default:
		return Parse(data)
	}
}

// Marshal serializes a document to YAML. Defaults are written out
// explicitly so the output parses back into an identical model.
func Marshal(doc *IncusCompose) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal compose document: %w", err)
	}
	return out, nil
}

// documentNode unwraps the document wrapper node. Empty and null documents
// return nil.
func documentNode(root *yaml.Node) *yaml.Node {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil
	}
	n := resolved(root.Content[0])
	if n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		return nil
	}
	return n
}

func decodeDocument(n *yaml.Node) (*IncusCompose, error) {
	entries, err := mapEntries("", n)
	if err != nil {
		return nil, err
	}

	// The version gate runs before any field decoding so schema drift is
	// reported ahead of field-level errors.
	var versionNode *yaml.Node
	for _, e := range entries {
		if e.key == "version" {
			versionNode = e.node
			break
		}
	}
	if versionNode == nil || isNull(versionNode) {
		return nil, &MissingFieldError{FieldPath: "version", Line: n.Line, Column: n.Column}
	}
	version, err := stringValue("version", versionNode)
	if err != nil {
		return nil, err
	}
	if !isSupportedVersion(version) {
		vn := resolved(versionNode)
		return nil, &UnsupportedVersionError{
			Found:     version,
			Supported: SupportedVersions(),
			Line:      vn.Line,
			Column:    vn.Column,
		}
	}

	doc := &IncusCompose{Version: version}
	for _, e := range entries {
		if e.key == "version" || isNull(e.node) {
			continue
		}
		switch e.key {
		case "containers":
			containers, err := decodeContainers(e.node)
			if err != nil {
				return nil, err
			}
			doc.Containers = containers
		case "networks":
			networks, err := decodeNetworks(e.node)
			if err != nil {
				return nil, err
			}
			doc.Networks = networks
		case "storage":
			storage, err := decodeStoragePools(e.node)
			if err != nil {
				return nil, err
			}
			doc.Storage = storage
		case "profiles":
			profiles, err := decodeProfiles(e.node)
			if err != nil {
				return nil, err
			}
			doc.Profiles = profiles
		default:
			return nil, &UnknownFieldError{FieldPath: "", Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}

	if len(doc.Containers) == 0 {
		return nil, &MissingFieldError{FieldPath: "containers", Line: n.Line, Column: n.Column}
	}
	return doc, nil
}

func isSupportedVersion(v string) bool {
	for _, s := range SupportedVersions() {
		if v == s {
			return true
		}
	}
	return false
}

func decodeContainers(n *yaml.Node) (map[string]*Container, error) {
	entries, err := mapEntries("containers", n)
	if err != nil {
		return nil, err
	}
	containers := make(map[string]*Container, len(entries))
	for _, e := range entries {
		c, err := decodeContainer("containers."+e.key, e.key, e.node)
		if err != nil {
			return nil, err
		}
		containers[e.key] = c
	}
	return containers, nil
}

func decodeContainer(path, name string, n *yaml.Node) (*Container, error) {
	entries, err := mapEntries(path, n)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Name:         name,
		InstanceType: InstanceTypeContainer,
		ImageServer:  DefaultImageServer,
		Autostart:    true,
	}

	for _, e := range entries {
		if isNull(e.node) {
			continue
		}
		fieldPath := path + "." + e.key
		switch e.key {
		case "instance_type":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			t := InstanceType(v)
			if t.Validate() != nil {
				vn := resolved(e.node)
				return nil, &UnknownVariantError{FieldPath: fieldPath, Value: v, Allowed: InstanceTypes(), Line: vn.Line, Column: vn.Column}
			}
			c.InstanceType = t
		case "image":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.Image = v
		case "image_server":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			if v != "" {
				c.ImageServer = v
			}
		case "description":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.Description = v
		case "cpu":
			limits, err := decodeCPULimits(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.CPU = limits
		case "memory":
			limits, err := decodeMemoryLimits(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.Memory = limits
		case "networks":
			refs, err := stringSequence(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.Networks = refs
		case "volumes":
			volumes, err := decodeVolumes(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.Volumes = volumes
		case "devices":
			devices, err := decodeDevices(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.Devices = devices
		case "config":
			m, err := stringMap(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.Config = m
		case "environment":
			m, err := stringMap(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.Environment = m
		case "autostart":
			v, err := boolValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.Autostart = v
		case "boot_priority":
			v, err := intValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.BootPriority = v
		case "depends_on":
			refs, err := stringSequence(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.DependsOn = refs
		case "profiles":
			refs, err := stringSequence(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.Profiles = refs
		case "cloud_init":
			ci, err := decodeCloudInit(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			c.CloudInit = ci
		default:
			return nil, &UnknownFieldError{FieldPath: path, Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}

	if c.Image == "" {
		return nil, &MissingFieldError{FieldPath: path + ".image", Line: n.Line, Column: n.Column}
	}
	return c, nil
}

func decodeCPULimits(path string, n *yaml.Node) (*CPULimits, error) {
	entries, err := mapEntries(path, n)
	if err != nil {
		return nil, err
	}
	limits := &CPULimits{}
	for _, e := range entries {
		if isNull(e.node) {
			continue
		}
		fieldPath := path + "." + e.key
		switch e.key {
		case "limit":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			limits.Limit = v
		case "allowance":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			limits.Allowance = v
		case "priority":
			v, err := intValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			limits.Priority = &v
		default:
			return nil, &UnknownFieldError{FieldPath: path, Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}
	return limits, nil
}

func decodeMemoryLimits(path string, n *yaml.Node) (*MemoryLimits, error) {
	entries, err := mapEntries(path, n)
	if err != nil {
		return nil, err
	}
	limits := &MemoryLimits{}
	for _, e := range entries {
		if isNull(e.node) {
			continue
		}
		fieldPath := path + "." + e.key
		switch e.key {
		case "limit":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			limits.Limit = v
		case "swap":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			limits.Swap = v
		case "swap_priority":
			v, err := intValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			limits.SwapPriority = &v
		default:
			return nil, &UnknownFieldError{FieldPath: path, Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}
	if limits.Limit == "" {
		mn := resolved(n)
		return nil, &MissingFieldError{FieldPath: path + ".limit", Line: mn.Line, Column: mn.Column}
	}
	return limits, nil
}

func decodeVolumes(path string, n *yaml.Node) ([]Volume, error) {
	vn := resolved(n)
	if vn.Kind != yaml.SequenceNode {
		return nil, &TypeMismatchError{FieldPath: path, Expected: "sequence", Actual: kindName(vn), Line: vn.Line, Column: vn.Column}
	}
	volumes := make([]Volume, 0, len(vn.Content))
	for i, item := range vn.Content {
		vol, err := decodeVolume(fmt.Sprintf("%s[%d]", path, i), item)
		if err != nil {
			return nil, err
		}
		volumes = append(volumes, vol)
	}
	return volumes, nil
}

func decodeVolume(path string, n *yaml.Node) (Volume, error) {
	var vol Volume
	entries, err := mapEntries(path, n)
	if err != nil {
		return vol, err
	}
	for _, e := range entries {
		if isNull(e.node) {
			continue
		}
		fieldPath := path + "." + e.key
		switch e.key {
		case "source":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return vol, err
			}
			vol.Source = v
		case "target":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return vol, err
			}
			vol.Target = v
		case "pool":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return vol, err
			}
			vol.Pool = v
		case "readonly":
			v, err := boolValue(fieldPath, e.node)
			if err != nil {
				return vol, err
			}
			vol.Readonly = v
		default:
			return vol, &UnknownFieldError{FieldPath: path, Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}
	mn := resolved(n)
	if vol.Source == "" {
		return vol, &MissingFieldError{FieldPath: path + ".source", Line: mn.Line, Column: mn.Column}
	}
	if vol.Target == "" {
		return vol, &MissingFieldError{FieldPath: path + ".target", Line: mn.Line, Column: mn.Column}
	}
	return vol, nil
}

func decodeDevices(path string, n *yaml.Node) (map[string]Device, error) {
	entries, err := mapEntries(path, n)
	if err != nil {
		return nil, err
	}
	devices := make(map[string]Device, len(entries))
	for _, e := range entries {
		d, err := decodeDevice(path+"."+e.key, e.node)
		if err != nil {
			return nil, err
		}
		devices[e.key] = d
	}
	return devices, nil
}

// decodeDevice narrows a device mapping to its typed variant. The type tag
// selects which keys are legal, so it decodes first. Required per-variant
// fields are allowed to be absent here; the validator reports them as
// InvalidDevice violations so all device problems surface in one pass.
func decodeDevice(path string, n *yaml.Node) (Device, error) {
	entries, err := mapEntries(path, n)
	if err != nil {
		return nil, err
	}

	var typeNode *yaml.Node
	for _, e := range entries {
		if e.key == "type" {
			typeNode = e.node
			break
		}
	}
	if typeNode == nil || isNull(typeNode) {
		dn := resolved(n)
		return nil, &MissingFieldError{FieldPath: path + ".type", Line: dn.Line, Column: dn.Column}
	}
	typeValue, err := stringValue(path+".type", typeNode)
	if err != nil {
		return nil, err
	}
	deviceType := DeviceType(typeValue)
	if deviceType.Validate() != nil {
		tn := resolved(typeNode)
		return nil, &UnknownVariantError{FieldPath: path + ".type", Value: typeValue, Allowed: DeviceTypes(), Line: tn.Line, Column: tn.Column}
	}

	switch deviceType {
	case DeviceTypeDisk:
		return decodeDiskDevice(path, entries)
	case DeviceTypeNic:
		return decodeNICDevice(path, entries)
	case DeviceTypeProxy:
		return decodeProxyDevice(path, entries)
	case DeviceTypeGpu:
		return decodeGPUDevice(path, entries)
	default:
		return decodeUSBDevice(path, entries)
	}
}

func decodeDiskDevice(path string, entries []mapEntry) (Device, error) {
	var d DiskDevice
	for _, e := range entries {
		if e.key == "type" || isNull(e.node) {
			continue
		}
		fieldPath := path + "." + e.key
		switch e.key {
		case "source":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.Source = v
		case "path":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.Path = v
		case "readonly":
			v, err := boolValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.Readonly = v
		default:
			return nil, &UnknownFieldError{FieldPath: path, Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}
	return d, nil
}

func decodeNICDevice(path string, entries []mapEntry) (Device, error) {
	var d NICDevice
	for _, e := range entries {
		if e.key == "type" || isNull(e.node) {
			continue
		}
		fieldPath := path + "." + e.key
		switch e.key {
		case "network":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.Network = v
		case "name":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.Name = v
		case "hwaddr":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.Hwaddr = v
		default:
			return nil, &UnknownFieldError{FieldPath: path, Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}
	return d, nil
}

func decodeProxyDevice(path string, entries []mapEntry) (Device, error) {
	var d ProxyDevice
	for _, e := range entries {
		if e.key == "type" || isNull(e.node) {
			continue
		}
		fieldPath := path + "." + e.key
		switch e.key {
		case "listen":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.Listen = v
		case "connect":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.Connect = v
		case "bind":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.Bind = v
		default:
			return nil, &UnknownFieldError{FieldPath: path, Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}
	return d, nil
}

func decodeGPUDevice(path string, entries []mapEntry) (Device, error) {
	var d GPUDevice
	for _, e := range entries {
		if e.key == "type" || isNull(e.node) {
			continue
		}
		fieldPath := path + "." + e.key
		switch e.key {
		case "id":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.ID = v
		case "vendorid":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.VendorID = v
		case "productid":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.ProductID = v
		default:
			return nil, &UnknownFieldError{FieldPath: path, Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}
	return d, nil
}

func decodeUSBDevice(path string, entries []mapEntry) (Device, error) {
	var d USBDevice
	for _, e := range entries {
		if e.key == "type" || isNull(e.node) {
			continue
		}
		fieldPath := path + "." + e.key
		switch e.key {
		case "vendorid":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.VendorID = v
		case "productid":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d.ProductID = v
		default:
			return nil, &UnknownFieldError{FieldPath: path, Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}
	return d, nil
}

func decodeCloudInit(path string, n *yaml.Node) (*CloudInit, error) {
	entries, err := mapEntries(path, n)
	if err != nil {
		return nil, err
	}
	ci := &CloudInit{}
	for _, e := range entries {
		if isNull(e.node) {
			continue
		}
		fieldPath := path + "." + e.key
		switch e.key {
		case "user_data":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			ci.UserData = v
		case "network_config":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			ci.NetworkConfig = v
		case "vendor_data":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			ci.VendorData = v
		default:
			return nil, &UnknownFieldError{FieldPath: path, Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}
	return ci, nil
}

func decodeNetworks(n *yaml.Node) (map[string]*Network, error) {
	entries, err := mapEntries("networks", n)
	if err != nil {
		return nil, err
	}
	networks := make(map[string]*Network, len(entries))
	for _, e := range entries {
		nw, err := decodeNetwork("networks."+e.key, e.node)
		if err != nil {
			return nil, err
		}
		networks[e.key] = nw
	}
	return networks, nil
}

func decodeNetwork(path string, n *yaml.Node) (*Network, error) {
	entries, err := mapEntries(path, n)
	if err != nil {
		return nil, err
	}
	nw := &Network{}
	for _, e := range entries {
		if isNull(e.node) {
			continue
		}
		fieldPath := path + "." + e.key
		switch e.key {
		case "type":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			t := NetworkType(v)
			if t.Validate() != nil {
				vn := resolved(e.node)
				return nil, &UnknownVariantError{FieldPath: fieldPath, Value: v, Allowed: NetworkTypes(), Line: vn.Line, Column: vn.Column}
			}
			nw.Type = t
		case "description":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			nw.Description = v
		case "config":
			m, err := stringMap(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			nw.Config = m
		default:
			return nil, &UnknownFieldError{FieldPath: path, Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}
	if nw.Type == "" {
		mn := resolved(n)
		return nil, &MissingFieldError{FieldPath: path + ".type", Line: mn.Line, Column: mn.Column}
	}
	return nw, nil
}

func decodeStoragePools(n *yaml.Node) (map[string]*StoragePool, error) {
	entries, err := mapEntries("storage", n)
	if err != nil {
		return nil, err
	}
	pools := make(map[string]*StoragePool, len(entries))
	for _, e := range entries {
		p, err := decodeStoragePool("storage."+e.key, e.node)
		if err != nil {
			return nil, err
		}
		pools[e.key] = p
	}
	return pools, nil
}

func decodeStoragePool(path string, n *yaml.Node) (*StoragePool, error) {
	entries, err := mapEntries(path, n)
	if err != nil {
		return nil, err
	}
	pool := &StoragePool{}
	for _, e := range entries {
		if isNull(e.node) {
			continue
		}
		fieldPath := path + "." + e.key
		switch e.key {
		case "driver":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			d := StorageDriver(v)
			if d.Validate() != nil {
				vn := resolved(e.node)
				return nil, &UnknownVariantError{FieldPath: fieldPath, Value: v, Allowed: StorageDrivers(), Line: vn.Line, Column: vn.Column}
			}
			pool.Driver = d
		case "description":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			pool.Description = v
		case "config":
			m, err := stringMap(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			pool.Config = m
		default:
			return nil, &UnknownFieldError{FieldPath: path, Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}
	if pool.Driver == "" {
		mn := resolved(n)
		return nil, &MissingFieldError{FieldPath: path + ".driver", Line: mn.Line, Column: mn.Column}
	}
	return pool, nil
}

func decodeProfiles(n *yaml.Node) (map[string]*Profile, error) {
	entries, err := mapEntries("profiles", n)
	if err != nil {
		return nil, err
	}
	profiles := make(map[string]*Profile, len(entries))
	for _, e := range entries {
		p, err := decodeProfile("profiles."+e.key, e.node)
		if err != nil {
			return nil, err
		}
		profiles[e.key] = p
	}
	return profiles, nil
}

func decodeProfile(path string, n *yaml.Node) (*Profile, error) {
	entries, err := mapEntries(path, n)
	if err != nil {
		return nil, err
	}
	p := &Profile{}
	for _, e := range entries {
		if isNull(e.node) {
			continue
		}
		fieldPath := path + "." + e.key
		switch e.key {
		case "description":
			v, err := stringValue(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			p.Description = v
		case "config":
			m, err := stringMap(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			p.Config = m
		case "devices":
			devices, err := decodeDevices(fieldPath, e.node)
			if err != nil {
				return nil, err
			}
			p.Devices = devices
		default:
			return nil, &UnknownFieldError{FieldPath: path, Field: e.key, Line: e.keyAt.Line, Column: e.keyAt.Column}
		}
	}
	return p, nil
}

// mapEntry is one key/value pair of a mapping node, in document order.
type mapEntry struct {
	key   string
	node  *yaml.Node
	keyAt *yaml.Node
}

// mapEntries returns a mapping's entries, rejecting duplicate and
// non-scalar keys. An empty path denotes the document root.
func mapEntries(path string, n *yaml.Node) ([]mapEntry, error) {
	mn := resolved(n)
	if mn.Kind != yaml.MappingNode {
		return nil, &TypeMismatchError{FieldPath: orDocument(path), Expected: "mapping", Actual: kindName(mn), Line: mn.Line, Column: mn.Column}
	}
	seen := make(map[string]struct{}, len(mn.Content)/2)
	entries := make([]mapEntry, 0, len(mn.Content)/2)
	for i := 0; i+1 < len(mn.Content); i += 2 {
		k := mn.Content[i]
		v := mn.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, &TypeMismatchError{FieldPath: orDocument(path), Expected: "string key", Actual: kindName(resolved(k)), Line: k.Line, Column: k.Column}
		}
		if _, dup := seen[k.Value]; dup {
			return nil, &DuplicateFieldError{FieldPath: path, Field: k.Value, Line: k.Line, Column: k.Column}
		}
		seen[k.Value] = struct{}{}
		entries = append(entries, mapEntry{key: k.Value, node: v, keyAt: k})
	}
	return entries, nil
}

// stringValue decodes a scalar string. Unquoted integers, booleans, and
// floats are not coerced; the document must write strings as strings.
func stringValue(path string, n *yaml.Node) (string, error) {
	sn := resolved(n)
	if sn.Kind != yaml.ScalarNode || sn.Tag != "!!str" {
		return "", &TypeMismatchError{FieldPath: path, Expected: "string", Actual: kindName(sn), Line: sn.Line, Column: sn.Column}
	}
	return sn.Value, nil
}

// intValue decodes a scalar integer. Decoding goes through the node so
// every form the resolver tags !!int (hex, octal, underscores) yields its
// numeric value instead of failing a plain Atoi.
func intValue(path string, n *yaml.Node) (int, error) {
	sn := resolved(n)
	if sn.Kind != yaml.ScalarNode || sn.Tag != "!!int" {
		return 0, &TypeMismatchError{FieldPath: path, Expected: "integer", Actual: kindName(sn), Line: sn.Line, Column: sn.Column}
	}
	var v int
	if err := sn.Decode(&v); err != nil {
		return 0, &TypeMismatchError{FieldPath: path, Expected: "integer", Actual: sn.Value, Line: sn.Line, Column: sn.Column}
	}
	return v, nil
}

// boolValue decodes a scalar boolean. The resolver tags True and TRUE as
// !!bool too, so decoding goes through the node rather than comparing the
// raw scalar text.
func boolValue(path string, n *yaml.Node) (bool, error) {
	sn := resolved(n)
	if sn.Kind != yaml.ScalarNode || sn.Tag != "!!bool" {
		return false, &TypeMismatchError{FieldPath: path, Expected: "boolean", Actual: kindName(sn), Line: sn.Line, Column: sn.Column}
	}
	var v bool
	if err := sn.Decode(&v); err != nil {
		return false, &TypeMismatchError{FieldPath: path, Expected: "boolean", Actual: kindName(sn), Line: sn.Line, Column: sn.Column}
	}
	return v, nil
}

func stringSequence(path string, n *yaml.Node) ([]string, error) {
	sn := resolved(n)
	if sn.Kind != yaml.SequenceNode {
		return nil, &TypeMismatchError{FieldPath: path, Expected: "sequence", Actual: kindName(sn), Line: sn.Line, Column: sn.Column}
	}
	out := make([]string, 0, len(sn.Content))
	for i, item := range sn.Content {
		s, err := stringValue(fmt.Sprintf("%s[%d]", path, i), item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// stringMap decodes a mapping of string keys to string values, used for
// the free-form config and environment passthrough maps. Values must be
// written as strings; incus configuration values are strings on the wire.
func stringMap(path string, n *yaml.Node) (map[string]string, error) {
	entries, err := mapEntries(path, n)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		v, err := stringValue(path+"."+e.key, e.node)
		if err != nil {
			return nil, err
		}
		out[e.key] = v
	}
	return out, nil
}

// resolved follows alias nodes to their anchor target.
func resolved(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// isNull reports whether a value node is an explicit YAML null. A null
// value is treated the same as an absent field.
func isNull(n *yaml.Node) bool {
	rn := resolved(n)
	return rn == nil || (rn.Kind == yaml.ScalarNode && rn.Tag == "!!null")
}

// kindName names a node's shape the way error messages expect.
func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!str":
			return "string"
		case "!!int":
			return "integer"
		case "!!bool":
			return "boolean"
		case "!!float":
			return "float"
		case "!!null":
			return "null"
		}
		return "scalar"
	case yaml.DocumentNode:
		return "document"
	}
	return "unknown"
}

func orDocument(path string) string {
	if path == "" {
		return "document"
	}
	return path
}
