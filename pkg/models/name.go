package models

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/unicode/norm"
)

// MaxNameLength is the longest folder or conversation name accepted.
const MaxNameLength = 255

var forbiddenNameChars = regexp.MustCompile(`^[^/\\]*$`)

// NormalizeName trims surrounding space and converts the name to NFC so visually
// identical names compare equal regardless of how they were typed.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// ValidateName checks that name can be used for a folder or conversation.
func ValidateName(name string) error {
	return validation.Validate(name,
		validation.Required.Error("name cannot be empty"),
		validation.Length(1, MaxNameLength).Error("name must be at most 255 characters"),
		validation.Match(forbiddenNameChars).Error("name cannot contain '/' or '\\'"),
		validation.NotIn(".", "..").Error("name cannot be '.' or '..'"),
		validation.By(noControlChars),
	)
}

func noControlChars(value interface{}) error {
	s, _ := value.(string)
	for _, r := range s {
		if unicode.IsControl(r) {
			return errors.New("name cannot contain control characters")
		}
	}
	return nil
}
