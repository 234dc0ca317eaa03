package domain

import (
	"strings"
	"time"
)

const maxUsernameLength = 255

// FederatedIdentity is a user identity scoped to a broker platform,
// keyed as username@broker-domain.
type FederatedIdentity struct {
	ID        string
	Username  string
	Domain    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i FederatedIdentity) Key() string {
	return IdentityKey(i.Username, i.Domain)
}

func IdentityKey(username, domain string) string {
	return username + "@" + domain
}

// ValidateUsername enforces 1-255 chars from [A-Za-z0-9_-]. Everything else,
// including spaces, '@', '.' and non-ASCII symbols, is rejected.
func ValidateUsername(username string) error {
	if username == "" || len(username) > maxUsernameLength {
		return ErrInvalidUsername
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return ErrInvalidUsername
		}
	}
	return nil
}

// SplitIdentityKey splits "username@domain" on the last '@' so usernames can
// never smuggle a domain. The username part is validated by the caller.
func SplitIdentityKey(key string) (username, domain string, ok bool) {
	idx := strings.LastIndex(key, "@")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}
