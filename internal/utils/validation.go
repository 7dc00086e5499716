package utils

import (
	"net"
	"net/mail"
	"regexp"
	"strings"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{3,50}$`)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return NewValidationError("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return NewValidationError("email", "invalid email format")
	}
	return nil
}

// ValidatePassword validates a password
func ValidatePassword(password string) error {
	if password == "" {
		return NewValidationError("password", "is required")
	}
	if len(password) < 6 {
		return NewValidationError("password", "must be at least 6 characters long")
	}
	return nil
}

// ValidateUsername validates a username
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return NewValidationError("username", "is required")
	}
	if !usernamePattern.MatchString(username) {
		return NewValidationError("username", "must be 3-50 letters, digits, '.', '-' or '_'")
	}
	return nil
}

// ValidateRequired validates that a string is not empty
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(fieldName, "is required")
	}
	return nil
}

// NormalizeMAC validates a hardware address and returns it upper-cased with colons
func NormalizeMAC(mac string) (string, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(mac))
	if err != nil || len(hw) != 6 {
		return "", NewValidationError("mac", "invalid MAC address")
	}
	return strings.ToUpper(hw.String()), nil
}

// ValidateRegistration checks every registration field and reports all failures together
func ValidateRegistration(name, username, email, password string) error {
	errs := &MultiError{}
	errs.Add(ValidateRequired(name, "name"))
	errs.Add(ValidateUsername(username))
	errs.Add(ValidateEmail(email))
	errs.Add(ValidatePassword(password))
	return errs.ErrorOrNil()
}
