package api

import "regexp"

var idSuffixPattern = regexp.MustCompile(`^[a-zA-Z0-9]{24}$`)

// ValidateID checks whether id is prefix followed by 24 alphanumeric
// characters. Handlers use it to reject malformed path parameters before
// touching storage.
func ValidateID(prefix, id string) bool {
	if len(id) <= len(prefix) || id[:len(prefix)] != prefix {
		return false
	}
	return idSuffixPattern.MatchString(id[len(prefix):])
}
