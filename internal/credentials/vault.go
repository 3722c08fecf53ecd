package credentials

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

const (
	identityFile = "identity.key"
	dataFile     = "credentials.age"
)

// fileVault is the encrypted-file fallback: a JSON map of id → secret,
// age-encrypted to an x25519 identity generated on first use. Key and
// data files are user-readable only.
type fileVault struct {
	dir string
}

func newFileVault(dir string) (*fileVault, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	return &fileVault{dir: dir}, nil
}

// identity loads the vault identity, generating one on first use.
func (v *fileVault) identity() (*age.X25519Identity, error) {
	path := filepath.Join(v.dir, identityFile)
	raw, err := os.ReadFile(path)
	if err == nil {
		return age.ParseX25519Identity(strings.TrimSpace(string(raw)))
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read vault identity: %w", err)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generate vault identity: %w", err)
	}
	if err := os.WriteFile(path, []byte(identity.String()+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write vault identity: %w", err)
	}
	return identity, nil
}

func (v *fileVault) load(identity *age.X25519Identity) (map[string]string, error) {
	path := filepath.Join(v.dir, dataFile)
	ciphertext, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vault: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		// A corrupt vault is unrecoverable; start over rather than brick
		// every future Set.
		return map[string]string{}, nil
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return map[string]string{}, nil
	}
	data := map[string]string{}
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return map[string]string{}, nil
	}
	return data, nil
}

func (v *fileVault) set(id, value string) error {
	identity, err := v.identity()
	if err != nil {
		return err
	}
	data, err := v.load(identity)
	if err != nil {
		return err
	}
	data[id] = value

	plaintext, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode vault: %w", err)
	}
	var ciphertext bytes.Buffer
	w, err := age.Encrypt(&ciphertext, identity.Recipient())
	if err != nil {
		return fmt.Errorf("encrypt vault: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return fmt.Errorf("encrypt vault: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encrypt vault: %w", err)
	}

	path := filepath.Join(v.dir, dataFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, ciphertext.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write vault: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write vault: %w", err)
	}
	return nil
}

func (v *fileVault) get(id string) (string, bool, error) {
	identity, err := v.identity()
	if err != nil {
		return "", false, err
	}
	data, err := v.load(identity)
	if err != nil {
		return "", false, err
	}
	value, ok := data[id]
	return value, ok, nil
}
