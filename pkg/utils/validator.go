package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	panRegex   = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	gstinRegex = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][0-9A-Z]Z[0-9A-Z]$`)
	ctrlRegex  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateGSTIN validates a 15-character Indian GST identification
// number (2-digit state code, embedded PAN, entity code, Z, checksum).
func ValidateGSTIN(gstin string) error {
	gstin = strings.ToUpper(strings.TrimSpace(gstin))
	if len(gstin) != 15 {
		return fmt.Errorf("GSTIN must be 15 characters: %s", gstin)
	}
	if !gstinRegex.MatchString(gstin) {
		return fmt.Errorf("invalid GSTIN format: %s", gstin)
	}
	return nil
}

// ValidatePAN validates a 10-character Indian permanent account number.
func ValidatePAN(pan string) error {
	pan = strings.ToUpper(strings.TrimSpace(pan))
	if !panRegex.MatchString(pan) {
		return fmt.Errorf("invalid PAN format: %s", pan)
	}
	return nil
}

// SanitizeString strips control characters from extracted text fields
// before persistence.
func SanitizeString(s string) string {
	return ctrlRegex.ReplaceAllString(s, "")
}
