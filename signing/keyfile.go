package signing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadPrivateKey reads a hex private key from path. Surrounding
// whitespace is ignored.
func LoadPrivateKey(path string) (*PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	k, err := ParsePrivateKeyHex(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("key file %s: %w", path, err)
	}
	return k, nil
}

// WritePrivateKey stores k at path with owner-only permissions,
// together with the public key at path + ".pub". Existing files are
// not overwritten.
func WritePrivateKey(path string, k *PrivateKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	if err := writeNew(path, k.Hex()+"\n", 0o600); err != nil {
		return err
	}
	return writeNew(path+".pub", k.PublicKey().Hex()+"\n", 0o644)
}

func writeNew(path, content string, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
