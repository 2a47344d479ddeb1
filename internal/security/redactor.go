// Package security holds the secret-handling pieces shared by sigbridge
// modules: log redaction, audit events and signed session tokens.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// ServiceRedactor is the AppContext service name of the shared *Redactor.
// Modules add their configured secrets to it during Provision.
const ServiceRedactor = "security.redactor"

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map keys that likely contain secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|pass|sesskey|captcha|credential)`)

// phonePattern matches E.164-looking numbers inside free text.
var phonePattern = regexp.MustCompile(`\+\d{7,15}`)

// Redactor replaces secret values in strings and maps. It knows regex
// patterns for token formats, literal values registered at runtime, and
// optionally masks phone numbers. All methods are safe for concurrent use.
type Redactor struct {
	mu          sync.RWMutex
	patterns    []*regexp.Regexp
	literals    []string
	maskNumbers bool
}

// NewRedactor creates a Redactor pre-loaded with DefaultPatterns. Phone
// number masking is enabled.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns:    DefaultPatterns(),
		maskNumbers: true,
	}
}

// AddPattern adds a compiled regex pattern to the redactor.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral adds a literal secret value that should be redacted on sight.
// Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// SetMaskNumbers toggles phone number masking.
func (r *Redactor) SetMaskNumbers(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maskNumbers = on
}

// Redact replaces all known secret patterns and literal values in s
// with RedactPlaceholder, then masks phone numbers.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	maskNumbers := r.maskNumbers
	r.mu.RUnlock()

	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}

	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}

	if maskNumbers {
		s = phonePattern.ReplaceAllStringFunc(s, MaskNumber)
	}

	return s
}

// RedactMap walks a map and replaces string values whose keys look like
// secrets. Other string values go through Redact.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if secretKeyPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = RedactPlaceholder
				continue
			}
		}
		switch val := v.(type) {
		case map[string]any:
			r.RedactMap(val)
		case []any:
			for _, item := range val {
				if sub, ok := item.(map[string]any); ok {
					r.RedactMap(sub)
				}
			}
		case string:
			if redacted := r.Redact(val); redacted != val {
				m[k] = redacted
			}
		}
	}
}

// MaskNumber keeps the "+", the first two digits and the last two digits
// of a phone number and replaces the rest with "*". Short input is
// returned unchanged.
func MaskNumber(number string) string {
	if len(number) < 7 {
		return number
	}
	return number[:3] + strings.Repeat("*", len(number)-5) + number[len(number)-2:]
}

// DefaultPatterns returns compiled patterns for the token formats that
// pass through sigbridge.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Authorization headers.
		regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]{8,}=*`),
		// Signed session tokens issued by SessionSigner.
		regexp.MustCompile(sessionTokenPrefix + `[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`),
		// signal captcha tokens ("signalcaptcha://signal-recaptcha-v2.<...>").
		regexp.MustCompile(`signalcaptcha://\S+`),
		// Basic-auth credentials embedded in URLs.
		regexp.MustCompile(`://[^/\s:@]+:[^/\s@]+@`),
	}
}
