package farmAuth

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxEmailBytes     = 254
	minPasswordChars  = 8
	maxPasswordBytes  = 72
	maxSanitizedRunes = 100
	minNameRunes      = 2
	maxNameRunes      = 100
)

// Indian mobile numbers: optional +91, 91 or 0 prefix, then ten digits starting
// with 6-9. Spaces and dashes are stripped before matching.
var phonePattern = regexp.MustCompile(`^(?:\+91|91|0)?[6-9][0-9]{9}$`)

// NormalizeEmail trims surrounding space and lower-cases s.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateEmail reports whether s is a bare RFC 5322 address (no display name)
// whose domain contains a dot.
func ValidateEmail(s string) bool {
	if s == "" || len(s) > maxEmailBytes {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

// ValidatePasswordStrength requires at least eight characters with an upper-case
// letter, a lower-case letter and a digit. Passwords over 72 bytes are refused
// so that either hasher can store them.
func ValidatePasswordStrength(s string) bool {
	if utf8.RuneCountInString(s) < minPasswordChars || len(s) > maxPasswordBytes {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// ValidatePhone reports whether s is an Indian mobile number.
func ValidatePhone(s string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
	return phonePattern.MatchString(cleaned)
}

// Sanitize removes angle brackets, quotes and control characters, trims the
// result and truncates it to 100 runes.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '<', r == '>', r == '\'', r == '"':
			continue
		case unicode.IsControl(r):
			continue
		case r == utf8.RuneError:
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	if utf8.RuneCountInString(out) > maxSanitizedRunes {
		runes := []rune(out)
		out = strings.TrimSpace(string(runes[:maxSanitizedRunes]))
	}
	return out
}

// ValidateName reports whether the sanitized name has 2 to 100 runes.
func ValidateName(s string) bool {
	n := utf8.RuneCountInString(Sanitize(s))
	return n >= minNameRunes && n <= maxNameRunes
}

// validateRegistration normalizes req and checks every field. It never touches
// the user store.
func validateRegistration(req RegisterRequest, cfg AccountConfig) (CreateUserInput, error) {
	verr := &ValidationError{}

	email := NormalizeEmail(req.Email)
	if !ValidateEmail(email) {
		verr.add("email", "invalid email address")
	}

	if !ValidatePasswordStrength(req.Password) {
		verr.add("password", "password must be at least 8 characters with uppercase, lowercase, and number")
	}

	rawName := strings.TrimSpace(req.Name)
	name := Sanitize(rawName)
	if utf8.RuneCountInString(rawName) > maxNameRunes {
		verr.add("name", "name too long")
	} else if !ValidateName(name) {
		verr.add("name", "name must be at least 2 characters")
	}

	role := cfg.DefaultRole
	if strings.TrimSpace(req.Role) != "" {
		parsed, ok := ParseRole(strings.ToLower(strings.TrimSpace(req.Role)))
		switch {
		case !ok:
			verr.add("role", "role must be farmer, expert or admin")
		case !containsRole(cfg.AllowedRoles, parsed):
			verr.add("role", "role is not available for self-registration")
		default:
			role = parsed
		}
	}

	phone := strings.TrimSpace(req.Phone)
	if phone != "" && !ValidatePhone(phone) {
		verr.add("phone", "invalid phone number format")
	}

	location := ""
	if strings.TrimSpace(req.Location) != "" {
		location = Sanitize(req.Location)
	}

	if err := verr.orNil(); err != nil {
		return CreateUserInput{}, err
	}

	return CreateUserInput{
		Email:    email,
		Name:     name,
		Phone:    phone,
		Location: location,
		Role:     role,
	}, nil
}
