package store

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	configFileName = "config.yaml"
	logFileName    = "plotline.log"
)

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.plotline).
	if v := strings.TrimSpace(os.Getenv("PLOTLINE_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".plotline"), nil
}

func (s Store) ConfigPath() string {
	return filepath.Join(s.Dir, configFileName)
}

func (s Store) LogPath() string {
	return filepath.Join(s.Dir, logFileName)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// WriteConfigFile replaces config.yaml, keeping a .bak of the previous contents.
func (s Store) WriteConfigFile(b []byte) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	path := s.ConfigPath()
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(s.Dir, "config.yaml.bak.*.tmp", path+".bak", prev, 0o644)
	}
	return atomicWriteFile(s.Dir, "config.yaml.*.tmp", path, b, 0o644)
}
