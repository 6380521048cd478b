package privacy

import "regexp"

const (
	EmailToken     = "[EMAIL]"
	PhoneToken     = "[PHONE]"
	SensitiveToken = "[SENSITIVE_DATA]"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// +90 / 0 trunk prefix, optional (area) code, 3-3-2-2 grouping.
	// Word boundaries keep it from eating the head of a longer digit run.
	phonePattern = regexp.MustCompile(`(?:(?:\+90|\b0)[\s\-]?\(?|\(|\b)\d{3}\)?[\s\-]?\d{3}[\s\-]?\d{2}[\s\-]?\d{2}\b`)

	longDigitsPattern = regexp.MustCompile(`\d{16,}`)
)

// Mask replaces emails, phone numbers and long digit runs with fixed tokens.
// Order matters: emails may contain digits and phone numbers are shorter
// than card numbers.
func Mask(text string) string {
	if text == "" {
		return text
	}
	out := emailPattern.ReplaceAllLiteralString(text, EmailToken)
	out = phonePattern.ReplaceAllLiteralString(out, PhoneToken)
	out = longDigitsPattern.ReplaceAllLiteralString(out, SensitiveToken)
	return out
}

// Masker lets callers switch masking off without branching at every call site.
type Masker struct {
	Enabled bool
}

func (m Masker) Apply(text string) string {
	if !m.Enabled {
		return text
	}
	return Mask(text)
}
