package sync

import (
	"log/slog"
	"sync"

	"github.com/99designs/keyring"
)

// keyringServiceName namespaces podliner's entry among whatever else shares
// the user's OS keyring.
const keyringServiceName = "podliner-gpodder"

// credentialStore resolves the gPodder account password: OS keyring first,
// falling back to an in-memory value the caller is responsible for
// persisting in plaintext (with a one-time warning) when no keyring backend
// is usable on this machine; Service keeps it in
// SyncConfig.PlaintextPassword, inside appsettings.json.
type credentialStore struct {
	open func() (keyring.Keyring, error)

	mu             sync.Mutex
	warnedFallback bool
}

func newCredentialStore() *credentialStore {
	return &credentialStore{
		open: func() (keyring.Keyring, error) {
			return keyring.Open(keyring.Config{ServiceName: keyringServiceName})
		},
	}
}

// Store saves password for username, preferring the OS keyring. It reports
// fellBackToPlaintext=true the first time the keyring is unusable, so the
// caller can persist the password into its own config file and flip a
// PlaintextFallback flag.
func (c *credentialStore) Store(username, password string) (fellBackToPlaintext bool, err error) {
	kr, openErr := c.open()
	if openErr == nil {
		setErr := kr.Set(keyring.Item{
			Key:  username,
			Data: []byte(password),
		})
		if setErr == nil {
			return false, nil
		}
		openErr = setErr
	}

	c.mu.Lock()
	warn := !c.warnedFallback
	c.warnedFallback = true
	c.mu.Unlock()
	if warn {
		slog.Warn("sync: OS keyring unavailable, falling back to plaintext password storage", "err", openErr)
	}
	return true, nil
}

// Lookup retrieves a previously stored password from the keyring. ok=false
// means the caller should fall back to whatever plaintext password is
// recorded in SyncConfig.PlaintextPassword.
func (c *credentialStore) Lookup(username string) (password string, ok bool) {
	kr, err := c.open()
	if err != nil {
		return "", false
	}
	item, err := kr.Get(username)
	if err != nil {
		return "", false
	}
	return string(item.Data), true
}
