package matcher

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Normalization helpers canonicalize free-text and identifier fields so
// that visually equivalent values compare equal. All helpers are
// idempotent and never fail; absent or unusable input yields "".

// NormalizeString trims and lowercases a value.
func NormalizeString(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeVIN lowercases a VIN and strips every character that is not
// a latin letter or digit (spaces, dashes, punctuation).
func NormalizeVIN(value string) string {
	normalized := NormalizeString(value)
	if normalized == "" {
		return ""
	}
	return compactAlphanumeric(normalized, false)
}

// NormalizePolicyNumber lowercases a policy number and strips every
// character that is not a latin/cyrillic letter or digit, so that
// "AB 12-345" and "ab12345" compare equal.
func NormalizePolicyNumber(value string) string {
	normalized := NormalizeString(value)
	if normalized == "" {
		return ""
	}
	return compactAlphanumeric(normalized, true)
}

// NormalizeTextForMatch applies the policy-number compaction rule to
// free text (deal description, calculations) so a policy number can be
// substring-matched inside prose regardless of spacing or punctuation.
func NormalizeTextForMatch(value string) string {
	if value == "" {
		return ""
	}
	return compactAlphanumeric(strings.ToLower(value), true)
}

// NormalizePhone strips every non-digit character from a phone number.
// It deliberately does not canonicalize the Russian "8" national prefix
// against "+7"; that equivalence is applied only by the candidate
// pre-filter.
func NormalizePhone(value string) string {
	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}

// IsSubpath reports whether child equals parent or lives underneath it.
// Both values are trimmed of surrounding whitespace and trailing
// slashes; "a/bc" is not a subpath of "a/b".
func IsSubpath(child, parent string) bool {
	childClean := strings.TrimRight(strings.TrimSpace(child), "/")
	parentClean := strings.TrimRight(strings.TrimSpace(parent), "/")
	if parentClean == "" {
		return false
	}
	if childClean == parentClean {
		return true
	}
	return strings.HasPrefix(childClean, parentClean+"/")
}

// compactAlphanumeric keeps digits and lowercase latin letters, plus
// lowercase cyrillic letters when allowCyrillic is set.
func compactAlphanumeric(value string, allowCyrillic bool) string {
	var compact strings.Builder
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z':
			compact.WriteRune(r)
		case allowCyrillic && (r >= 'а' && r <= 'я' || r == 'ё'):
			compact.WriteRune(r)
		}
	}
	return compact.String()
}

// similarityRatio computes the difflib sequence-matcher ratio between
// two already-normalized strings, in [0, 1]. The 0.8 contractor
// threshold was tuned against this ratio, so the matcher must stay
// difflib-compatible.
func similarityRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	return difflib.NewMatcher(splitRunes(a), splitRunes(b)).Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func formatSimilarity(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
