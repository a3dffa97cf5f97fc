package render

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alessio/shellescape"

	"github.com/incus-composer/incus-composer/pkg/compose"
	"github.com/incus-composer/incus-composer/pkg/engine"
	"github.com/incus-composer/incus-composer/pkg/lockfile"
)

// Options configure script rendering.
type Options struct {
	// Lockfile supplies pinned hardware addresses and the generation
	// metadata stamped into the script header. Optional.
	Lockfile *lockfile.Lockfile

	// Version is the generator version for the header. Empty means "dev".
	Version string
}

const banner = "# ============================================"

// Script renders a resolved model as an executable bash script of incus
// commands: storage pools, networks and profiles first, then instances
// in start-plan order. The script documents intent; this tool never
// talks to Incus itself.
func Script(model *engine.ResolvedModel, opts Options) string {
	var b strings.Builder
	writeHeader(&b, opts)

	doc := model.Doc
	if len(doc.Storage) > 0 {
		section(&b, "Storage Pool Creation")
		writeStoragePools(&b, doc)
	}
	if len(doc.Networks) > 0 {
		section(&b, "Network Creation")
		writeNetworks(&b, doc)
	}
	if len(doc.Profiles) > 0 {
		section(&b, "Profile Creation")
		writeProfiles(&b, doc)
	}
	section(&b, "Instance Creation and Configuration")
	writeInstances(&b, model, opts.Lockfile)

	return b.String()
}

// WriteScript renders the script to a file with mode 0755.
func WriteScript(path string, model *engine.ResolvedModel, opts Options) error {
	if err := os.WriteFile(path, []byte(Script(model, opts)), 0755); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	return nil
}

func writeHeader(b *strings.Builder, opts Options) {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	generatedAt := time.Now().UTC().Truncate(time.Second)
	if opts.Lockfile != nil {
		generatedAt = opts.Lockfile.Metadata.GeneratedAt
	}

	b.WriteString("#!/bin/bash\n")
	b.WriteString("# Generated by incus-composer\n")
	fmt.Fprintf(b, "# Generated at: %s\n", generatedAt.Format(time.RFC3339))
	fmt.Fprintf(b, "# Generator version: %s\n", version)
	if opts.Lockfile != nil {
		fmt.Fprintf(b, "# Source hash: %s\n", opts.Lockfile.Metadata.SourceHash)
	}
	b.WriteString("\nset -e  # Exit on any error\n\n")
}

func section(b *strings.Builder, title string) {
	b.WriteString(banner + "\n")
	b.WriteString("# " + title + "\n")
	b.WriteString(banner + "\n\n")
}

func writeStoragePools(b *strings.Builder, doc *compose.IncusCompose) {
	for _, name := range doc.StorageNames() {
		pool := doc.Storage[name]
		args := []string{"incus", "storage", "create", shellescape.Quote(name), shellescape.Quote(string(pool.Driver))}
		args = append(args, configArgs(pool.Config)...)
		b.WriteString(strings.Join(args, " ") + "\n")
	}
	b.WriteString("\n")
}

func writeNetworks(b *strings.Builder, doc *compose.IncusCompose) {
	for _, name := range doc.NetworkNames() {
		net := doc.Networks[name]
		args := []string{"incus", "network", "create", shellescape.Quote(name)}
		if net.Type != compose.NetworkTypeBridge {
			args = append(args, "--type", shellescape.Quote(string(net.Type)))
		}
		args = append(args, configArgs(net.Config)...)
		b.WriteString(strings.Join(args, " ") + "\n")
	}
	b.WriteString("\n")
}

func writeProfiles(b *strings.Builder, doc *compose.IncusCompose) {
	for _, name := range doc.ProfileNames() {
		p := doc.Profiles[name]
		quoted := shellescape.Quote(name)

		fmt.Fprintf(b, "incus profile create %s\n", quoted)
		for _, key := range sortedKeys(p.Config) {
			fmt.Fprintf(b, "incus profile set %s %s %s\n",
				quoted, shellescape.Quote(key), shellescape.Quote(p.Config[key]))
		}
		for _, device := range sortedKeys(p.Devices) {
			fmt.Fprintf(b, "incus profile device add %s %s %s\n",
				quoted, shellescape.Quote(device), deviceArgs(p.Devices[device], ""))
		}
		b.WriteString("\n")
	}
}

// writeInstances emits one block per container in start-plan order:
// init with profiles attached, config sets, device adds, then start.
// Profiles carry their own config and devices, so instance blocks only
// set what the container itself declares, plus per-instance hwaddr
// overrides for profile nics pinned in the lockfile.
func writeInstances(b *strings.Builder, model *engine.ResolvedModel, lock *lockfile.Lockfile) {
	doc := model.Doc
	for _, name := range model.Plan.Order {
		c := doc.Containers[name]
		effective := model.Effective[name].Devices
		quoted := shellescape.Quote(name)

		fmt.Fprintf(b, "# %s\n", name)

		args := []string{"incus", "init", shellescape.Quote(c.ImageServer + c.Image), quoted}
		if c.InstanceType.IsVirtualMachine() {
			args = append(args, "--vm")
		}
		for _, profile := range c.Profiles {
			args = append(args, "--profile", shellescape.Quote(profile))
		}
		b.WriteString(strings.Join(args, " ") + "\n")

		set := func(key, value string) {
			fmt.Fprintf(b, "incus config set %s %s %s\n",
				quoted, shellescape.Quote(key), shellescape.Quote(value))
		}

		if c.CPU != nil {
			if c.CPU.Limit != "" {
				set("limits.cpu", c.CPU.Limit)
			}
			if c.CPU.Allowance != "" {
				set("limits.cpu.allowance", c.CPU.Allowance)
			}
			if c.CPU.Priority != nil {
				set("limits.cpu.priority", strconv.Itoa(*c.CPU.Priority))
			}
		}
		if c.Memory != nil {
			set("limits.memory", c.Memory.Limit)
			if c.Memory.Swap != "" {
				set("limits.memory.swap", c.Memory.Swap)
			}
			if c.Memory.SwapPriority != nil {
				set("limits.memory.swap.priority", strconv.Itoa(*c.Memory.SwapPriority))
			}
		}
		if c.Autostart {
			set("boot.autostart", "true")
		}
		if c.BootPriority != 0 {
			set("boot.autostart.priority", strconv.Itoa(c.BootPriority))
		}
		for _, key := range sortedKeys(c.Config) {
			set(key, c.Config[key])
		}
		for _, key := range sortedKeys(c.Environment) {
			set("environment."+key, c.Environment[key])
		}
		if c.CloudInit != nil {
			if c.CloudInit.UserData != "" {
				set("cloud-init.user-data", c.CloudInit.UserData)
			}
			if c.CloudInit.NetworkConfig != "" {
				set("cloud-init.network-config", c.CloudInit.NetworkConfig)
			}
			if c.CloudInit.VendorData != "" {
				set("cloud-init.vendor-data", c.CloudInit.VendorData)
			}
		}

		for _, device := range sortedKeys(c.Devices) {
			pinned, _ := lock.Hwaddr(name, device)
			fmt.Fprintf(b, "incus config device add %s %s %s\n",
				quoted, shellescape.Quote(device), deviceArgs(c.Devices[device], pinned))
		}

		// Profile nics need instance-level overrides to carry a
		// per-instance address.
		for _, device := range sortedKeys(effective) {
			if _, own := c.Devices[device]; own {
				continue
			}
			pinned, ok := lock.Hwaddr(name, device)
			if !ok {
				continue
			}
			fmt.Fprintf(b, "incus config device override %s %s %s\n",
				quoted, shellescape.Quote(device), shellescape.Quote("hwaddr="+pinned))
		}

		for i, network := range c.Networks {
			device := fmt.Sprintf("eth%d", i)
			if _, ok := effective[device]; ok {
				continue
			}
			pinned, _ := lock.Hwaddr(name, device)
			fmt.Fprintf(b, "incus config device add %s %s %s\n",
				quoted, shellescape.Quote(device), deviceArgs(compose.NICDevice{Network: network}, pinned))
		}

		for i, volume := range c.Volumes {
			fmt.Fprintf(b, "incus config device add %s vol%d %s\n", quoted, i, volumeArgs(volume))
		}

		if c.Autostart {
			fmt.Fprintf(b, "incus start %s\n", quoted)
		}
		b.WriteString("\n")
	}
}

// deviceArgs renders an incus device argument list: the device type
// followed by its non-empty properties. hwaddr pins a nic's address when
// the device itself does not declare one.
func deviceArgs(dev compose.Device, hwaddr string) string {
	args := []string{string(dev.Type())}
	add := func(key, value string) {
		if value != "" {
			args = append(args, shellescape.Quote(key+"="+value))
		}
	}

	switch d := dev.(type) {
	case compose.DiskDevice:
		add("source", d.Source)
		add("path", d.Path)
		if d.Readonly {
			args = append(args, "readonly=true")
		}
	case compose.NICDevice:
		add("network", d.Network)
		add("name", d.Name)
		if d.Hwaddr != "" {
			add("hwaddr", d.Hwaddr)
		} else {
			add("hwaddr", hwaddr)
		}
	case compose.ProxyDevice:
		add("listen", d.Listen)
		add("connect", d.Connect)
		add("bind", d.Bind)
	case compose.GPUDevice:
		add("id", d.ID)
		add("vendorid", d.VendorID)
		add("productid", d.ProductID)
	case compose.USBDevice:
		add("vendorid", d.VendorID)
		add("productid", d.ProductID)
	}
	return strings.Join(args, " ")
}

// volumeArgs renders a volume mount as a disk device argument list.
func volumeArgs(v compose.Volume) string {
	args := []string{"disk", shellescape.Quote("source=" + v.Source), shellescape.Quote("path=" + v.Target)}
	if v.Pool != "" {
		args = append(args, shellescape.Quote("pool="+v.Pool))
	}
	if v.Readonly {
		args = append(args, "readonly=true")
	}
	return strings.Join(args, " ")
}

// configArgs renders a config map as sorted key=value tokens.
func configArgs(config map[string]string) []string {
	args := make([]string, 0, len(config))
	for _, key := range sortedKeys(config) {
		args = append(args, shellescape.Quote(key+"="+config[key]))
	}
	return args
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
