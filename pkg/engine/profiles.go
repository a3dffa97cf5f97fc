package engine

import (
	"dario.cat/mergo"

	"github.com/incus-composer/incus-composer/pkg/compose"
)

// MergeProfiles computes one container's effective configuration:
// referenced profiles applied left to right with later profiles overriding
// earlier ones, then the container's own values applied over everything.
// Config and environment merge per key; devices replace whole per name.
func MergeProfiles(doc *compose.IncusCompose, name string) (EffectiveConfig, error) {
	c, ok := doc.Containers[name]
	if !ok {
		return EffectiveConfig{}, NewValidationError("unknown container", nil).
			WithCode(ErrCodeNotFound).
			WithResource(name).
			WithOperation("merge-profiles")
	}
	for _, pname := range c.Profiles {
		if _, ok := doc.Profiles[pname]; !ok {
			return EffectiveConfig{}, NewValidationError("container references unknown profile", nil).
				WithCode(ErrCodeNotFound).
				WithResource(name).
				WithOperation("merge-profiles").
				WithDetail("profile", pname)
		}
	}
	return mergeProfiles(doc, c), nil
}

// mergeProfiles merges without validating references. Callers guarantee
// every profile name resolves; Resolve's reference check does exactly that.
func mergeProfiles(doc *compose.IncusCompose, c *compose.Container) EffectiveConfig {
	eff := EffectiveConfig{
		Config:      make(map[string]string),
		Environment: make(map[string]string),
		Devices:     make(map[string]compose.Device),
	}

	for _, pname := range c.Profiles {
		p := doc.Profiles[pname]
		if p == nil {
			continue
		}
		overlay(eff.Config, p.Config)
		for dname, dev := range p.Devices {
			eff.Devices[dname] = dev
		}
	}

	overlay(eff.Config, c.Config)
	overlay(eff.Environment, c.Environment)
	for dname, dev := range c.Devices {
		eff.Devices[dname] = dev
	}
	return eff
}

// overlay merges src onto dst with key-level override. Empty-string source
// values count as unset and leave the inherited value in place; clearing an
// inherited key is not expressible. Merging into a map destination cannot
// fail, so the merge error is discarded.
func overlay(dst map[string]string, src map[string]string) {
	_ = mergo.Merge(&dst, src, mergo.WithOverride)
}
