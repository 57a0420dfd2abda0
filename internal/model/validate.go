package model

import (
	"strings"
	"unicode/utf8"
)

// NormalizeLobbyName trims and checks a lobby name
func NormalizeLobbyName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxLobbyNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// NormalizeDisplayName trims and checks a player or spectator name
func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxDisplayNameLength {
		return "", ErrInvalidDisplayName
	}
	return name, nil
}

// ValidateAccess checks the visibility and credential pairing.
// Private lobbies need exactly four digits; public lobbies carry none.
func ValidateAccess(v Visibility, credential string) error {
	switch v {
	case VisibilityPublic:
		if credential != "" {
			return ErrInvalidCredential
		}
		return nil
	case VisibilityPrivate:
		if len(credential) != CredentialLength {
			return ErrInvalidCredential
		}
		for _, r := range credential {
			if r < '0' || r > '9' {
				return ErrInvalidCredential
			}
		}
		return nil
	default:
		return ErrInvalidVisibility
	}
}
