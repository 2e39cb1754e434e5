package placeholders

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New()

	decimalPattern = regexp.MustCompile(`^-?(\d{1,3}(,\d{3})+|\d+)(\.\d+)?$`)
	phonePattern   = regexp.MustCompile(`^\+?[0-9()\-. ]+$`)

	dateLayouts = []string{"2006-01-02", "01/02/2006", "January 2, 2006", "Jan 2, 2006"}
)

// ValueError describes a placeholder whose value does not match its format.
type ValueError struct {
	Name   string
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("placeholder %s: %s", e.Name, e.Reason)
}

// IsEmail reports whether s is a single bare RFC 5322 address.
func IsEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return validate.Var(s, "email") == nil
}

// ValidateValue checks a filled value against the placeholder's format.
// Unfilled placeholders are always valid.
func ValidateValue(p Placeholder) error {
	v := strings.TrimSpace(p.Value)
	if v == "" {
		return nil
	}
	switch f := p.Format.(type) {
	case nil, TextFormat:
		return nil
	case DateFormat:
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, v); err == nil {
				return nil
			}
		}
		return &ValueError{Name: p.Name, Reason: "not a recognised date"}
	case CurrencyFormat:
		amount := strings.TrimSpace(strings.TrimPrefix(v, f.Code))
		amount = strings.TrimLeft(amount, "$€£¥")
		if !decimalPattern.MatchString(amount) {
			return &ValueError{Name: p.Name, Reason: "not a currency amount"}
		}
		return nil
	case NumberFormat:
		if f.Pattern != "" {
			re, err := regexp.Compile(f.Pattern)
			if err != nil {
				return &ValueError{Name: p.Name, Reason: "invalid pattern: " + err.Error()}
			}
			if !re.MatchString(v) {
				return &ValueError{Name: p.Name, Reason: "does not match pattern " + f.Pattern}
			}
			return nil
		}
		if !decimalPattern.MatchString(v) {
			return &ValueError{Name: p.Name, Reason: "not a number"}
		}
		return nil
	case EmailFormat:
		if !IsEmail(v) {
			return &ValueError{Name: p.Name, Reason: "not an email address"}
		}
		return nil
	case PhoneFormat:
		digits := 0
		for _, r := range v {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if !phonePattern.MatchString(v) || digits < 7 || digits > 15 {
			return &ValueError{Name: p.Name, Reason: "not a phone number"}
		}
		return nil
	default:
		return &ValueError{Name: p.Name, Reason: "unsupported format"}
	}
}

// ValidateNames rejects empty or duplicate placeholder names.
func ValidateNames(placeholders []Placeholder) error {
	seen := make(map[string]struct{}, len(placeholders))
	for _, p := range placeholders {
		if strings.TrimSpace(p.Name) == "" {
			return &ValueError{Name: p.Name, Reason: "name is required"}
		}
		if strings.Contains(p.Name, "}") {
			return &ValueError{Name: p.Name, Reason: "name must not contain '}'"}
		}
		if _, ok := seen[p.Name]; ok {
			return &ValueError{Name: p.Name, Reason: "duplicate name"}
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
