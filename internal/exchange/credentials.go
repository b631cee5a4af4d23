package exchange

import (
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/tartampluch/go-addressbook/internal/config"
)

// SavePassword stores a web-import password in the OS keyring, keyed by
// username under the application's service ID.
func SavePassword(user, pass string) error {
	if err := keyring.Set(config.KeyringService, user, pass); err != nil {
		return fmt.Errorf("%s: %w", config.ErrKeyringSet, err)
	}
	return nil
}

// Password retrieves the stored password for user.
func Password(user string) (string, error) {
	pass, err := keyring.Get(config.KeyringService, user)
	if err != nil {
		return "", fmt.Errorf("%s %q: %w", config.ErrKeyringGet, user, err)
	}
	return pass, nil
}
