package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		containerNamingPolicy(),
		vmMemoryLimitPolicy(),
		privilegedContainersPolicy(),
		nicHwaddrFormatPolicy(),
	}
}

// containerNamingPolicy enforces DNS-label container names.
func containerNamingPolicy() Policy {
	return Policy{
		Name:        "container-naming",
		Description: "Container names must be valid DNS labels (lowercase alphanumeric and hyphens, no leading or trailing hyphen, at most 63 characters)",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"naming", "conventions"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package incuscomposer.policies.naming

import rego.v1

deny contains violation if {
	input.container
	name := input.container.name

	not regex.match("^[a-z0-9]([a-z0-9-]*[a-z0-9])?$", name)
	violation := {
		"message": sprintf("container name %q is not a valid DNS label", [name]),
		"severity": "error",
		"container": name,
	}
}

deny contains violation if {
	input.container
	name := input.container.name

	count(name) > 63
	violation := {
		"message": sprintf("container name %q exceeds 63 characters", [name]),
		"severity": "error",
		"container": name,
	}
}`,
	}
}

// vmMemoryLimitPolicy requires an explicit memory limit on virtual machines.
func vmMemoryLimitPolicy() Policy {
	return Policy{
		Name:        "vm-memory-limit",
		Description: "Virtual machines must declare an explicit memory limit",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"resources", "virtual-machines"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package incuscomposer.policies.resources

import rego.v1

deny contains violation if {
	input.container
	c := input.container

	c.instance_type == "virtual-machine"
	not c.memory.limit
	violation := {
		"message": sprintf("virtual machine %s must declare a memory limit", [c.name]),
		"severity": "error",
		"container": c.name,
	}
}`,
	}
}

// privilegedContainersPolicy denies privileged containers and flags other
// isolation escape hatches in the effective configuration.
func privilegedContainersPolicy() Policy {
	return Policy{
		Name:        "privileged-containers",
		Description: "Privileged containers are denied; raw LXC passthrough is flagged for review",
		Severity:    SeverityCritical,
		Enabled:     true,
		Tags:        []string{"security"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package incuscomposer.policies.security

import rego.v1

deny contains violation if {
	input.container
	c := input.container

	c.config["security.privileged"] == "true"
	violation := {
		"message": sprintf("container %s runs privileged", [c.name]),
		"severity": "critical",
		"container": c.name,
	}
}

deny contains violation if {
	input.container
	c := input.container

	c.config["raw.lxc"]
	violation := {
		"message": sprintf("container %s sets raw.lxc passthrough", [c.name]),
		"severity": "warning",
		"container": c.name,
	}
}`,
	}
}

// nicHwaddrFormatPolicy validates declared MAC addresses on nic devices.
func nicHwaddrFormatPolicy() Policy {
	return Policy{
		Name:        "nic-hwaddr-format",
		Description: "Declared nic hardware addresses must be colon-separated MAC addresses",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"devices", "networking"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package incuscomposer.policies.devices

import rego.v1

deny contains violation if {
	input.container
	c := input.container

	some name, dev in c.devices
	dev.type == "nic"
	dev.hwaddr
	not regex.match("^[0-9a-f]{2}(:[0-9a-f]{2}){5}$", lower(dev.hwaddr))
	violation := {
		"message": sprintf("container %s device %s has malformed hwaddr %q", [c.name, name, dev.hwaddr]),
		"severity": "error",
		"container": c.name,
	}
}`,
	}
}
