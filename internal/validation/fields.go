package validation

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	MaxEmailLength    = 254 // RFC 5321
	MinPasswordLength = 12
	MaxPasswordBytes  = 72 // bcrypt ignores the rest
	MaxTitleLength    = 200
)

var weakPatterns = []string{
	"password", "123456", "qwerty", "admin", "letmein",
	"welcome", "monkey", "dragon", "master", "sunshine",
}

var passwordRules = []validation.Rule{
	validation.Required.Error("password is required"),
	validation.RuneLength(MinPasswordLength, 0).Error("password must be at least 12 characters"),
	validation.By(func(value any) error {
		if len(value.(string)) > MaxPasswordBytes {
			return errors.New("password must not exceed 72 characters")
		}
		return nil
	}),
	validation.By(func(value any) error {
		lower := strings.ToLower(value.(string))
		for _, p := range weakPatterns {
			if strings.Contains(lower, p) {
				return errors.New("password is too common, please choose a stronger one")
			}
		}
		return nil
	}),
}

func ValidateEmail(email string) error {
	return validation.Validate(email,
		validation.Required.Error("email address is required"),
		validation.Length(0, MaxEmailLength).Error("email address is too long (max 254 characters)"),
		is.EmailFormat.Error("invalid email address format"),
	)
}

func ValidatePassword(password string) error {
	return validation.Validate(password, passwordRules...)
}

// ValidateTitle requires a non-blank title of at most MaxTitleLength runes.
func ValidateTitle(title string) error {
	return validation.Validate(strings.TrimSpace(title),
		validation.Required.Error("title is required"),
		validation.RuneLength(0, MaxTitleLength).Error("title is too long (max 200 characters)"),
	)
}
