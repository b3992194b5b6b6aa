// Package privacy masks account identifiers before they reach the terminal or
// the serve API. Masking is on by default; --show-private turns it off.
package privacy

import (
	"regexp"
	"strings"
)

const mask = "******"

var (
	emailPattern   = regexp.MustCompile(`([a-zA-Z0-9._-]+)(@[a-zA-Z0-9._-]+\.[a-zA-Z0-9_-]+)`)
	projectPattern = regexp.MustCompile(`\([a-zA-Z0-9-]+\)`)
)

// Prefixes whose remainder identifies an account. Longer prefixes come first
// so gemini-cli- is not mistaken for gemini-.
var folderPrefixes = []string{"antigravity-", "codex-", "gemini-cli-", "anthropic-", "gemini-"}

// Masker applies masking only when Enabled is set.
type Masker struct {
	Enabled bool
}

// Email masks s when enabled.
func (m Masker) Email(s string) string {
	if !m.Enabled {
		return s
	}
	return MaskEmail(s)
}

// Folder masks s when enabled.
func (m Masker) Folder(s string) string {
	if !m.Enabled {
		return s
	}
	return MaskFolder(s)
}

// APIName masks an API key name when enabled.
func (m Masker) APIName(s string) string {
	if !m.Enabled {
		return s
	}
	return MaskAPIName(s)
}

// MaskAPIName keeps the first and last two characters of an API key name
// and stars up to six in between. Names of four characters or fewer are
// returned unchanged.
func MaskAPIName(name string) string {
	r := []rune(name)
	if len(r) <= 4 {
		return name
	}
	return string(r[:2]) + strings.Repeat("*", min(6, len(r)-4)) + string(r[len(r)-2:])
}

// MaskEmail hides the local part of every email address in s, keeping the
// domain, and hides parenthesized project ids.
//
//	alice@gmail.com (my-project) -> ******@gmail.com (******)
func MaskEmail(s string) string {
	if s == "" {
		return ""
	}
	s = maskEmails(s)
	return projectPattern.ReplaceAllString(s, "("+mask+")")
}

// MaskFolder hides the account part of a credential file name.
func MaskFolder(name string) string {
	if name == "" {
		return ""
	}
	processed := maskEmails(name)
	lower := strings.ToLower(processed)
	lastDash := strings.LastIndex(processed, "-")

	for _, prefix := range folderPrefixes {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		if lastDash > len(prefix)-1 {
			return processed[:lastDash+1] + mask
		}
		return prefix + mask
	}

	if lastDash != -1 && lastDash < len(processed)-1 {
		return processed[:lastDash+1] + mask
	}
	r := []rune(processed)
	return string(r[:min(3, len(r))]) + mask
}

func maskEmails(s string) string {
	return emailPattern.ReplaceAllString(s, mask+"$2")
}

// FormatName turns a credential file name into its display form.
func FormatName(name string) string {
	name = strings.ReplaceAll(name, "_gmail_com", "")
	return strings.TrimSuffix(name, ".json")
}
