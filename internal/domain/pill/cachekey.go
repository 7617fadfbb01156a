package pill

import (
	"strings"

	"github.com/turtacn/PillScope/pkg/errors"
)

// CacheKey composes the label cache key "{imprint}:{generic}". Backslashes
// and colons inside the imprint are escaped so that distinct pairs never
// collide; keys for ordinary imprints are left untouched ("M71:Allopurinol").
// Case is preserved.
func CacheKey(imprint, genericName string) string {
	var b strings.Builder
	b.Grow(len(imprint) + len(genericName) + 1)
	for _, r := range imprint {
		if r == '\\' || r == ':' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte(':')
	b.WriteString(genericName)
	return b.String()
}

// ParseCacheKey is the inverse of CacheKey.
func ParseCacheKey(key string) (imprint, genericName string, err error) {
	var b strings.Builder
	escaped := false
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case escaped:
			b.WriteByte(c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == ':':
			return b.String(), key[i+1:], nil
		default:
			b.WriteByte(c)
		}
	}
	return "", "", errors.InvalidParam("malformed label cache key").WithDetail(key)
}

//Personal.AI order the ending
