package compose

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// ParseCUE evaluates a .cue compose document against the embedded schema
// and runs the exported result through the same strict decode path as
// plain YAML, so defaults and structural errors behave identically across
// front ends.
func ParseCUE(filename string, data []byte) (*IncusCompose, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(composeSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile compose schema: %w", err)
	}

	val := ctx.CompileString(string(data), cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, cueError(filename, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Compose")).Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(filename, err)
	}

	// Export as JSON, which the YAML decoder accepts as a subset. CUE has
	// already closed the structs, so the strict walk is a formality here,
	// but it keeps default application in one place.
	out, err := unified.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export cue document: %w", err)
	}
	return Parse(out)
}

// cueError flattens a CUE error list into a single positioned message.
// Structural errors are fatal, so only the first one is reported.
func cueError(filename string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %v", filename, err)
	}
	first := errs[0]
	msg := strings.TrimSpace(cueerrors.Details(first, nil))
	pos := cueerrors.Positions(first)
	if len(pos) > 0 {
		return fmt.Errorf("%s:%d:%d: %s", pos[0].Filename(), pos[0].Line(), pos[0].Column(), msg)
	}
	return fmt.Errorf("%s: %s", filename, msg)
}

// composeSchema is the CUE contract for compose documents. Structs are
// definitions and therefore closed: unknown fields fail at CUE validation
// with their source position. Per-variant required device fields stay
// optional here so the semantic validator can report every incomplete
// device in one pass instead of stopping at the first.
const composeSchema = `
#Compose: {
	// Version selects the compose schema revision.
	version: string

	// Containers maps instance names to their definitions.
	containers: {[string]: #Container}

	// Networks maps managed network names to their definitions.
	networks?: {[string]: #Network}

	// Storage maps storage pool names to their definitions.
	storage?: {[string]: #StoragePool}

	// Profiles maps profile names to their definitions.
	profiles?: {[string]: #Profile}
}

#Container: {
	instance_type?: "container" | "virtual-machine"
	image:          string & !=""
	image_server?:  string
	description?:   string
	cpu?:           #CPULimits
	memory?:        #MemoryLimits
	networks?: [...string]
	volumes?: [...#Volume]
	devices?: {[string]: #Device}
	config?: {[string]: string}
	environment?: {[string]: string}
	autostart?:     bool
	boot_priority?: int
	depends_on?: [...string]
	profiles?: [...string]
	cloud_init?: #CloudInit
}

#CPULimits: {
	limit?:     string
	allowance?: string
	priority?:  int
}

#MemoryLimits: {
	limit:          string & !=""
	swap?:          string
	swap_priority?: int
}

#Volume: {
	source:    string & !=""
	target:    string & !=""
	pool?:     string
	readonly?: bool
}

#CloudInit: {
	user_data?:      string
	network_config?: string
	vendor_data?:    string
}

#Device: #DiskDevice | #NICDevice | #ProxyDevice | #GPUDevice | #USBDevice

#DiskDevice: {
	type:      "disk"
	source?:   string
	path?:     string
	readonly?: bool
}

#NICDevice: {
	type:     "nic"
	network?: string
	name?:    string
	hwaddr?:  string
}

#ProxyDevice: {
	type:     "proxy"
	listen?:  string
	connect?: string
	bind?:    string
}

#GPUDevice: {
	type:       "gpu"
	id?:        string
	vendorid?:  string
	productid?: string
}

#USBDevice: {
	type:       "usb"
	vendorid?:  string
	productid?: string
}

#Network: {
	type:         "bridge" | "macvlan" | "sriov" | "ovn" | "physical"
	description?: string
	config?: {[string]: string}
}

#StoragePool: {
	driver:       "dir" | "btrfs" | "lvm" | "zfs" | "ceph"
	description?: string
	config?: {[string]: string}
}

#Profile: {
	description?: string
	config?: {[string]: string}
	devices?: {[string]: #Device}
}
`
