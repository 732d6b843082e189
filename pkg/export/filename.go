package export

import (
	"strings"
	"time"
	"unicode"
)

// DefaultBasename is used when a title has no usable characters.
const DefaultBasename = "diagram"

const maxSlug = 48

// Filename returns "<slug>-<YYYYMMDD-HHMMSS>.<ext>" for a document title.
func Filename(title, ext string, t time.Time) string {
	return Slug(title) + "-" + t.Format("20060102-150405") + "." + strings.TrimPrefix(ext, ".")
}

// Slug lowercases title and joins its letter and digit runs with dashes.
// Non-ASCII letters are kept.
func Slug(title string) string {
	var b strings.Builder
	dash := false
	n := 0
	for _, r := range strings.ToLower(title) {
		if n >= maxSlug {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
				n++
			}
			b.WriteRune(r)
			n++
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return DefaultBasename
	}
	return b.String()
}
