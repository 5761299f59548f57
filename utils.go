package packway

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// IsValidRepoPath validates a repository identifier captured from a request path.
// It checks that the identifier:
//   - is not empty
//   - is valid UTF-8
//   - contains no "." or ".." segment
//   - contains no NUL byte
//
// Returns true if the identifier is safe to join onto the repository root.
func IsValidRepoPath(p string) bool {
	p = strings.Trim(p, "/")
	if p == "" {
		return false
	}

	if !utf8.ValidString(p) {
		return false
	}

	if strings.ContainsRune(p, 0) {
		return false
	}

	for _, segment := range strings.Split(p, "/") {
		if segment == "." || segment == ".." {
			return false
		}
	}

	return true
}

// CleanRequestPath percent-decodes p and collapses runs of "/" into one.
// Dot segments are left in place so they can be rejected by IsValidRepoPath.
func CleanRequestPath(p string) (string, error) {
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(decoded) + 1)
	if !strings.HasPrefix(decoded, "/") {
		b.WriteByte('/')
	}

	prevSlash := false
	for i := 0; i < len(decoded); i++ {
		c := decoded[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}

	return b.String(), nil
}
