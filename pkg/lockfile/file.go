package lockfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a lockfile from disk.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lockfile: %w", err)
	}

	var lock Lockfile
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lockfile: %w", err)
	}
	return &lock, nil
}

// Save writes the lockfile to disk with mode 0644. The content goes to a
// temporary file first and moves into place with a rename, so a crash
// mid-write never leaves a truncated lockfile behind.
func (l *Lockfile) Save(path string) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to marshal lockfile: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write lockfile: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace lockfile: %w", err)
	}
	return nil
}
