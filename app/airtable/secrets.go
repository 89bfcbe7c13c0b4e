package airtable

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups the app's secrets in the OS keychain.
const KeyringService = "crowd-list"

// ResolveAPIKey returns the configured key, falling back to the OS keyring
// entry for the base.
func ResolveAPIKey(configured, baseID string) (string, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return key, nil
	}

	if strings.TrimSpace(baseID) != "" {
		key, err := keyring.Get(KeyringService, KeyringAccount(baseID))
		if err == nil && strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), nil
		}
	}

	return "", errors.New("airtable API key not found (set AIRTABLE_API_KEY or store it in the keychain)")
}

func KeyringAccount(baseID string) string {
	return "airtable:" + baseID
}
