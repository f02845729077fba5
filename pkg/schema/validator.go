package schema

import (
	"fmt"
	"strings"
)

// ValidateDefault checks a default value expression for common SQL
// mistakes and returns an error with the fix when one is detected.
func ValidateDefault(defaultVal string) error {
	trimmed := strings.TrimSpace(defaultVal)
	upperVal := strings.ToUpper(trimmed)

	commonMistakes := map[string]string{
		"CURRENT TIMESTAMP": "CURRENT_TIMESTAMP",
		"CURRENT TIME":      "CURRENT_TIME",
		"CURRENT DATE":      "CURRENT_DATE",
		"NOW ()":            "NOW()",
	}
	for mistake, correct := range commonMistakes {
		if strings.Contains(upperVal, mistake) {
			return fmt.Errorf(
				"invalid DEFAULT %q: %q should be %q",
				defaultVal, mistake, correct,
			)
		}
	}

	sqlKeywords := map[string]bool{
		"NULL": true, "TRUE": true, "FALSE": true,
		"CURRENT_TIMESTAMP": true, "CURRENT_TIME": true, "CURRENT_DATE": true,
		"LOCALTIMESTAMP": true, "LOCALTIME": true,
	}

	// A bare word that smells like a function is probably missing its
	// parentheses, e.g. default(now) instead of default(now()).
	if !sqlKeywords[upperVal] && !strings.Contains(trimmed, "(") && !strings.Contains(trimmed, "'") &&
		!isNumeric(trimmed) && len(trimmed) > 2 {
		lower := strings.ToLower(trimmed)
		if lower == "now" || strings.Contains(lower, "random") || strings.Contains(lower, "generate") {
			return fmt.Errorf(
				"invalid DEFAULT %q: looks like a function missing parentheses, try default(%s())",
				defaultVal, defaultVal,
			)
		}
	}

	return nil
}

// isNumeric checks if a string is a valid number.
func isNumeric(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i, c := range s {
		if i == 0 && (c == '-' || c == '+') {
			continue
		}
		if c == '.' {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
