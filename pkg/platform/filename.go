package platform

import (
	"path"
	"strings"
	"unicode"
)

// SanitizeFileName reduces a client supplied file name to a printable ASCII
// base name. Accented Latin letters fold to their plain form and anything
// else outside ASCII becomes '-'.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}

	var result strings.Builder
	result.Grow(len(name))

	for _, r := range name {
		switch {
		case r < 128 && unicode.IsPrint(r):
			result.WriteRune(r)
		case r < 128:
			// control characters are dropped
		case unicode.Is(unicode.Latin, r):
			result.WriteRune(foldLatin(r))
		default:
			result.WriteRune('-')
		}
	}

	return strings.TrimSpace(result.String())
}

func foldLatin(r rune) rune {
	switch {
	case r >= '\u00c0' && r <= '\u00c5':
		return 'A'
	case r >= '\u00e0' && r <= '\u00e5':
		return 'a'
	case r >= '\u00c8' && r <= '\u00cb':
		return 'E'
	case r >= '\u00e8' && r <= '\u00eb':
		return 'e'
	case r >= '\u00cc' && r <= '\u00cf':
		return 'I'
	case r >= '\u00ec' && r <= '\u00ef':
		return 'i'
	case r >= '\u00d2' && r <= '\u00d6':
		return 'O'
	case r >= '\u00f2' && r <= '\u00f6':
		return 'o'
	case r >= '\u00d9' && r <= '\u00dc':
		return 'U'
	case r >= '\u00f9' && r <= '\u00fc':
		return 'u'
	case r == '\u00c7':
		return 'C'
	case r == '\u00e7':
		return 'c'
	case r == '\u00d1':
		return 'N'
	case r == '\u00f1':
		return 'n'
	}
	return '-'
}
