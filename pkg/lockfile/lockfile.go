package lockfile

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/incus-composer/incus-composer/pkg/compose"
	"github.com/incus-composer/incus-composer/pkg/engine"
)

// incusOUI is the locally administered MAC prefix Incus assigns to
// guest interfaces.
const incusOUI = "10:66:6a"

// Generate builds a fresh lockfile for a resolved model. Every instance
// gets a new UUID and every nic device without an explicit hwaddr gets a
// random locally administered address. Merge with a previous lockfile to
// keep identity stable across runs.
func Generate(model *engine.ResolvedModel, source []byte, version string) (*Lockfile, error) {
	if model == nil {
		return nil, fmt.Errorf("nil resolved model")
	}

	hash := sha256.Sum256(source)
	lock := &Lockfile{
		Metadata: Metadata{
			GeneratedAt:      time.Now().UTC().Truncate(time.Second),
			GeneratorVersion: version,
			SourceHash:       hex.EncodeToString(hash[:]),
		},
		Instances: make(map[string]*Instance, len(model.Plan.Order)),
	}

	for i, name := range model.Plan.Order {
		c := model.Doc.Containers[name]
		inst := &Instance{
			ID:         uuid.New().String(),
			Image:      c.ImageServer + c.Image,
			StartIndex: i,
		}

		hwaddrs, err := generateHwaddrs(c, model.Effective[name].Devices)
		if err != nil {
			return nil, fmt.Errorf("failed to generate hardware addresses for %s: %w", name, err)
		}
		inst.Hwaddrs = hwaddrs

		lock.Instances[name] = inst
	}

	return lock, nil
}

// generateHwaddrs assigns a random address to every nic device in the
// effective device map that does not declare one, and to the eth<i>
// devices the renderer synthesizes for the networks list. An explicit
// device named eth<i> shadows the networks entry at the same position.
// Returns nil when nothing needs an address.
func generateHwaddrs(c *compose.Container, devices map[string]compose.Device) (map[string]string, error) {
	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)

	var hwaddrs map[string]string
	assign := func(name string) error {
		addr, err := randomHwaddr()
		if err != nil {
			return err
		}
		if hwaddrs == nil {
			hwaddrs = make(map[string]string)
		}
		hwaddrs[name] = addr
		return nil
	}

	for _, name := range names {
		nic, ok := devices[name].(compose.NICDevice)
		if !ok || nic.Hwaddr != "" {
			continue
		}
		if err := assign(name); err != nil {
			return nil, err
		}
	}

	for i := range c.Networks {
		name := fmt.Sprintf("eth%d", i)
		if _, ok := devices[name]; ok {
			continue
		}
		if err := assign(name); err != nil {
			return nil, err
		}
	}
	return hwaddrs, nil
}

// randomHwaddr returns a random MAC under the Incus OUI.
func randomHwaddr() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return fmt.Sprintf("%s:%02x:%02x:%02x", incusOUI, buf[0], buf[1], buf[2]), nil
}

// Merge carries stable identity from a previous lockfile into a freshly
// generated one. Containers present in both keep the old ID and the old
// hardware addresses for devices that still need one; containers only in
// the fresh lockfile keep their new values, and containers no longer in
// the document drop out. Metadata always comes from the fresh lockfile.
// The fresh lockfile is modified in place and returned.
func Merge(old, fresh *Lockfile) *Lockfile {
	if old == nil {
		return fresh
	}
	for name, inst := range fresh.Instances {
		prev, ok := old.Instances[name]
		if !ok {
			continue
		}
		inst.ID = prev.ID
		for device := range inst.Hwaddrs {
			if addr, ok := prev.Hwaddrs[device]; ok {
				inst.Hwaddrs[device] = addr
			}
		}
	}
	return fresh
}

// Diff reports how a fresh lockfile relates to a previous one: names
// present in both, names only in the fresh one, and names only in the
// old one. All three are sorted.
func Diff(old, fresh *Lockfile) (kept, added, removed []string) {
	for _, name := range fresh.ContainerNames() {
		if old != nil {
			if _, ok := old.Instances[name]; ok {
				kept = append(kept, name)
				continue
			}
		}
		added = append(added, name)
	}
	for _, name := range old.ContainerNames() {
		if _, ok := fresh.Instances[name]; !ok {
			removed = append(removed, name)
		}
	}
	return kept, added, removed
}

// DefaultPath returns the lockfile path for a document path: the
// document path with ".lock" appended.
func DefaultPath(documentPath string) string {
	return documentPath + ".lock"
}
