package core

import "regexp"

// Default preview settings.
const (
	DefaultMaxPreviewRows  = 10
	DefaultPrefixBytes     = 200 * 1024
	DefaultMaxSampleEmails = 10

	DefaultEmailPattern       = `^[^\s@]+@[^\s@]+\.[^\s@]+$`
	DefaultHeaderLabelPattern = `^[A-Za-z _-]+$`
)

var (
	defaultEmailRe  = regexp.MustCompile(DefaultEmailPattern)
	defaultHeaderRe = regexp.MustCompile(DefaultHeaderLabelPattern)
)

// Patterns holds the two regular expressions the heuristics rely on.
// A nil field falls back to the default pattern.
type Patterns struct {
	Email       *regexp.Regexp
	HeaderLabel *regexp.Regexp
}

// DefaultPatterns returns the strict email and alphabetic-label patterns.
func DefaultPatterns() Patterns {
	return Patterns{Email: defaultEmailRe, HeaderLabel: defaultHeaderRe}
}

func (p Patterns) email() *regexp.Regexp {
	if p.Email == nil {
		return defaultEmailRe
	}
	return p.Email
}

func (p Patterns) headerLabel() *regexp.Regexp {
	if p.HeaderLabel == nil {
		return defaultHeaderRe
	}
	return p.HeaderLabel
}

// IsEmail reports whether the trimmed-by-caller value fully matches the email pattern.
func (p Patterns) IsEmail(v string) bool {
	return p.email().MatchString(v)
}

// PreviewConfig controls a preview session. Zero values take the defaults.
type PreviewConfig struct {
	MaxPreviewRows  int
	PrefixBytes     int64
	MaxSampleEmails int
	Patterns        Patterns
}

// DefaultPreviewConfig returns the stock preview configuration.
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		MaxPreviewRows:  DefaultMaxPreviewRows,
		PrefixBytes:     DefaultPrefixBytes,
		MaxSampleEmails: DefaultMaxSampleEmails,
		Patterns:        DefaultPatterns(),
	}
}

// withDefaults fills in any unset field.
func (c PreviewConfig) withDefaults() PreviewConfig {
	if c.MaxPreviewRows <= 0 {
		c.MaxPreviewRows = DefaultMaxPreviewRows
	}
	if c.PrefixBytes <= 0 {
		c.PrefixBytes = DefaultPrefixBytes
	}
	if c.MaxSampleEmails <= 0 {
		c.MaxSampleEmails = DefaultMaxSampleEmails
	}
	if c.Patterns.Email == nil {
		c.Patterns.Email = defaultEmailRe
	}
	if c.Patterns.HeaderLabel == nil {
		c.Patterns.HeaderLabel = defaultHeaderRe
	}
	return c
}
