package service

import (
	"path"
	"strings"

	"github.com/gosimple/slug"
)

const maxExtLength = 10

// objectKey builds users/{user}/uploads/{name}. Neither part can leave the
// user's prefix.
func objectKey(userID, filename string) (string, bool) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "", false
	}

	ext := strings.ToLower(path.Ext(base))
	stem := strings.TrimSuffix(base, path.Ext(base))
	if len(ext) > maxExtLength || !isAlnum(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}

	name := slug.Make(stem)
	if name == "" {
		return "", false
	}
	return "users/" + safeSegment(userID) + "/uploads/" + name + ext, true
}

// safeSegment escapes every byte outside [A-Za-z0-9-] as _XX so distinct
// user ids never share a prefix.
func safeSegment(s string) string {
	const hex = "0123456789abcdef"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}

func isAlnum(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
