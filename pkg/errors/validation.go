package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxIDLength bounds graph document ids.
const MaxIDLength = 128

// graphIDRegex matches ids usable as file names, redis keys and URL path
// segments alike.
var graphIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateGraphID validates the id of a stored graph document.
//
// Ids end up as file names, sqlite keys, redis keys and URL segments, so
// the rules are conservative:
//   - No empty ids
//   - At most [MaxIDLength] characters
//   - Letters, digits, '.', '_' and '-' only, starting with a letter or digit
//   - No ".." sequences
func ValidateGraphID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "graph id cannot be empty")
	}
	if len(id) > MaxIDLength {
		return New(ErrCodeInvalidID, "graph id too long (max %d characters)", MaxIDLength)
	}
	if strings.Contains(id, "..") {
		return New(ErrCodeInvalidID, "graph id cannot contain ..")
	}
	if !graphIDRegex.MatchString(id) {
		return New(ErrCodeInvalidID, "invalid graph id: %q", id)
	}
	return nil
}

// typeTagRegex matches registry type tags.
var typeTagRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateTypeTag validates a node or pin type tag: lowercase snake case,
// at most 64 characters.
func ValidateTypeTag(tag string) error {
	if tag == "" {
		return New(ErrCodeInvalidType, "type tag cannot be empty")
	}
	if len(tag) > 64 {
		return New(ErrCodeInvalidType, "type tag too long (max 64 characters)")
	}
	if !typeTagRegex.MatchString(tag) {
		return New(ErrCodeInvalidType, "invalid type tag: %q", tag)
	}
	return nil
}

// ValidateLabel validates a node title or pin label typed by a user.
// Labels may be empty but cannot hold control characters or exceed 256
// bytes.
func ValidateLabel(label string) error {
	if len(label) > 256 {
		return New(ErrCodeInvalidInput, "label too long (max 256 characters)")
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "label contains invalid control characters")
		}
	}
	return nil
}

// ValidateAddr validates a host:port network address.
func ValidateAddr(addr string) error {
	if addr == "" {
		return New(ErrCodeInvalidInput, "address cannot be empty")
	}
	i := strings.LastIndex(addr, ":")
	if i < 0 || i == len(addr)-1 {
		return New(ErrCodeInvalidInput, "address %q needs a port", addr)
	}
	for _, r := range addr[i+1:] {
		if r < '0' || r > '9' {
			return New(ErrCodeInvalidInput, "address %q has an invalid port", addr)
		}
	}
	return nil
}
