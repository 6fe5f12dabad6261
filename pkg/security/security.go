package security

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// Security limits and configuration
const (
	// MaxKeyPartLength is the maximum length of a key name or group
	MaxKeyPartLength = 255

	// MaxJobTypeLength is the maximum length for job type identifiers
	MaxJobTypeLength = 255

	// MaxCalendarNameLength is the maximum length for calendar names
	MaxCalendarNameLength = 255

	// MaxErrorMessageLength is the maximum length for error messages passed to listeners
	MaxErrorMessageLength = 4096

	// MaxAcquireBatch is the hard limit for triggers acquired in one call
	MaxAcquireBatch = 1000
)

// validJobType matches alphanumeric, hyphens, underscores, and dots
var validJobType = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-\.]*$`)

func validateKeyPart(s string) error {
	if s == "" {
		return core.ErrInvalidKey
	}
	if len(s) > MaxKeyPartLength {
		return core.ErrKeyTooLong
	}
	if strings.ContainsFunc(s, unicode.IsControl) || !utf8.ValidString(s) {
		return core.ErrInvalidKey
	}
	return nil
}

// ValidateJobKey validates both parts of a job key
func ValidateJobKey(k core.JobKey) error {
	if err := validateKeyPart(k.Name); err != nil {
		return err
	}
	return validateKeyPart(k.Group)
}

// ValidateTriggerKey validates both parts of a trigger key
func ValidateTriggerKey(k core.TriggerKey) error {
	if err := validateKeyPart(k.Name); err != nil {
		return err
	}
	return validateKeyPart(k.Group)
}

// ValidateJobType validates a job type identifier. An empty type is allowed.
func ValidateJobType(jobType string) error {
	if jobType == "" {
		return nil
	}
	if len(jobType) > MaxJobTypeLength || !validJobType.MatchString(jobType) {
		return core.ErrInvalidJobType
	}
	return nil
}

// ValidateCalendarName validates a calendar name
func ValidateCalendarName(name string) error {
	if name == "" || len(name) > MaxCalendarNameLength {
		return core.ErrInvalidCalendarName
	}
	if strings.ContainsFunc(name, unicode.IsControl) {
		return core.ErrInvalidCalendarName
	}
	return nil
}

// SanitizeErrorMessage truncates and sanitizes error messages
func SanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}

	// Remove any null bytes or control characters (except newlines)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	if utf8.RuneCountInString(result) > MaxErrorMessageLength {
		runes := []rune(result)
		result = string(runes[:MaxErrorMessageLength-3]) + "..."
	}

	return result
}

// ClampAcquireBatch ensures an acquisition batch size is within limits
func ClampAcquireBatch(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxAcquireBatch {
		return MaxAcquireBatch
	}
	return n
}
