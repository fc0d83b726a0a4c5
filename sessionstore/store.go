// Package sessionstore keeps openBIS session tokens between program runs.
//
// Each server gets one file, named after its host, holding a CBOR record
// sealed with XChaCha20-Poly1305. The server URL is the additional
// authenticated data, so a file copied or renamed to another host does not
// open.
package sessionstore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ErrNotFound is returned by Load when no session is saved for the server.
var ErrNotFound = errors.New("sessionstore: no saved session")

const (
	saltFile = "salt"
	keyFile  = "key"
)

// Record is a saved session.
type Record struct {
	URL     string    `cbor:"1,keyasint"`
	User    string    `cbor:"2,keyasint"`
	Token   string    `cbor:"3,keyasint"`
	SavedAt time.Time `cbor:"4,keyasint"`
}

// Store saves records under a directory.
type Store struct {
	dir    string
	sealer *Sealer
	now    func() time.Time

	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for Record.SavedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMarshalUnmarshal replaces CBOR as the record encoding.
func WithMarshalUnmarshal(marshal func(any) ([]byte, error), unmarshal func([]byte, any) error) Option {
	return func(s *Store) {
		s.marshal = marshal
		s.unmarshal = unmarshal
	}
}

// New returns a store writing to dir, which is created on first Save.
func New(dir string, sealer *Sealer, opts ...Option) (*Store, error) {
	if dir == "" || sealer == nil {
		return nil, ErrConfig
	}
	s := &Store{
		dir:       dir,
		sealer:    sealer,
		now:       time.Now,
		marshal:   cbor.Marshal,
		unmarshal: cbor.Unmarshal,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Dir returns the directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

// Save seals rec and writes it, replacing any record for the same host.
// A zero SavedAt is set to the current time.
func (s *Store) Save(rec Record) error {
	name, err := fileName(rec.URL)
	if err != nil {
		return err
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = s.now().UTC()
	}
	plain, err := s.marshal(rec)
	if err != nil {
		return fmt.Errorf("sessionstore: encode: %w", err)
	}
	sealed, err := s.sealer.Seal(plain, []byte(rec.URL))
	if err != nil {
		return fmt.Errorf("sessionstore: seal: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("sessionstore: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".*")
	if err != nil {
		return fmt.Errorf("sessionstore: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(sealed); err != nil {
		tmp.Close()
		return fmt.Errorf("sessionstore: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("sessionstore: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("sessionstore: %w", err)
	}
	return nil
}

// Load returns the record saved for serverURL.
func (s *Store) Load(serverURL string) (*Record, error) {
	name, err := fileName(serverURL)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sessionstore: %w", err)
	}
	plain, err := s.sealer.Open(strings.TrimSpace(string(b)), []byte(serverURL))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := s.unmarshal(plain, &rec); err != nil {
		return nil, fmt.Errorf("sessionstore: decode: %w", err)
	}
	return &rec, nil
}

// Delete removes the record for serverURL. Deleting a missing record is
// not an error.
func (s *Store) Delete(serverURL string) error {
	name, err := fileName(serverURL)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("sessionstore: %w", err)
	}
	return nil
}

// fileName maps a server URL to "<host>.token", with the port joined by
// an underscore.
func fileName(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: server url %q has no host", ErrConfig, serverURL)
	}
	host := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(strings.ToLower(u.Host))
	return host + ".token", nil
}

// Salt returns the passphrase salt kept in dir, creating a random one the
// first time.
func Salt(dir string) ([]byte, error) {
	return randomFile(dir, saltFile, 16)
}

// KeyFile returns the sealing key kept in dir, creating a random one the
// first time. It is used when no passphrase is configured, so the records
// are only as safe as the directory.
func KeyFile(dir string) ([]byte, error) {
	return randomFile(dir, keyFile, KeySize)
}

func randomFile(dir, name string, n int) ([]byte, error) {
	p := filepath.Join(dir, name)
	b, err := os.ReadFile(p)
	if err == nil && len(b) == n {
		return b, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("sessionstore: %w", err)
	}
	b = make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("sessionstore: %w", err)
	}
	if err := os.WriteFile(p, b, 0o600); err != nil {
		return nil, fmt.Errorf("sessionstore: %w", err)
	}
	return b, nil
}
