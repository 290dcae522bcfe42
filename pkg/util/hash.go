package util

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

// HashQuery creates an MD5 hash from normalized query parts, used for cache keys.
// Each part is length-prefixed so no two part lists share an encoding.
func HashQuery(parts ...string) string {
	builder := strings.Builder{}
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		builder.WriteString(strconv.Itoa(len(p)))
		builder.WriteByte(':')
		builder.WriteString(p)
	}
	return hashString(builder.String())
}

func hashString(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}
