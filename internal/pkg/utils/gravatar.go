package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

const defaultGravatarSize = 200

// GetGravatarURL builds the Gravatar avatar URL for an email address.
// Gravatar hashes the lowercased, trimmed address with md5; unknown
// addresses fall back to the "mystery person" placeholder.
func GetGravatarURL(email string, size int) string {
	if size <= 0 {
		size = defaultGravatarSize
	}

	normalized := strings.ToLower(strings.TrimSpace(email))
	digest := md5.Sum([]byte(normalized))

	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", digest, size)
}
