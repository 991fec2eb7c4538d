// Package sanitize normalizes and validates raw client input before it reaches the services.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/and161185/authcore/internal/errs"
	"github.com/and161185/authcore/internal/model"
)

const (
	EmailMinLen = 5
	EmailMaxLen = 50
	PwdMinLen   = 8
	PwdMaxLen   = 30

	// PwdMaxBytes is the longest input bcrypt accepts.
	PwdMaxBytes = 72
)

// PasswordPolicyMsg is the error text for any password policy failure.
var PasswordPolicyMsg = fmt.Sprintf("password must be %d-%d chars with uppercase, lowercase, and special", PwdMinLen, PwdMaxLen)

var (
	validate = validator.New()
	emailRe  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[A-Za-z]{2,63}$`)
)

func lenRule(min, max int) string {
	return fmt.Sprintf("min=%d,max=%d", min, max)
}

// Email trims and lower-cases raw, then checks its length and format.
func Email(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if validate.Var(email, lenRule(EmailMinLen, EmailMaxLen)) != nil ||
		strings.Contains(email, "..") ||
		!emailRe.MatchString(email) {
		return "", errs.Input("email")
	}
	return email, nil
}

// Password checks raw against the password policy and returns it unchanged.
func Password(raw string) (string, error) {
	if validate.Var(raw, lenRule(PwdMinLen, PwdMaxLen)) != nil || len(raw) > PwdMaxBytes {
		return "", errs.Input(PasswordPolicyMsg)
	}
	var lower, upper, special bool
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
		default:
			special = true
		}
	}
	if !lower || !upper || !special {
		return "", errs.Input(PasswordPolicyMsg)
	}
	return raw, nil
}

// StringField trims raw and checks that its length in characters is within [min, max].
func StringField(raw string, min, max int, field string) (string, error) {
	s := strings.TrimSpace(raw)
	if validate.Var(s, lenRule(min, max)) != nil {
		return "", errs.Input(fmt.Sprintf("%s must be %d-%d characters", field, min, max))
	}
	return s, nil
}

// MaxUserAgentLen bounds the user agent kept on a session record.
const MaxUserAgentLen = 256

// Meta drops control characters from client metadata and bounds the user agent length.
func Meta(m model.ClientMeta) model.ClientMeta {
	clean := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsControl(r) {
				return -1
			}
			return r
		}, strings.TrimSpace(s))
	}
	ua := []rune(clean(m.UserAgent))
	if len(ua) > MaxUserAgentLen {
		ua = ua[:MaxUserAgentLen]
	}
	return model.ClientMeta{UserAgent: string(ua), IP: clean(m.IP)}
}
