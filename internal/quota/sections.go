package quota

import (
	"strings"

	"github.com/joshuadavidthomas/zerolimit/internal/models"
	"github.com/joshuadavidthomas/zerolimit/internal/privacy"
	"github.com/joshuadavidthomas/zerolimit/internal/provider"
)

// FileQuota is the quota state of one credential. Entries are replaced
// wholesale on every update, never mutated in place.
type FileQuota struct {
	FileID      string              `json:"fileId" yaml:"file_id"`
	Filename    string              `json:"filename" yaml:"filename"`
	Provider    string              `json:"provider" yaml:"provider"`
	ProviderKey string              `json:"providerKey" yaml:"provider_key"`
	Loading     bool                `json:"loading" yaml:"loading"`
	Error       string              `json:"error,omitempty" yaml:"error,omitempty"`
	Models      []models.QuotaModel `json:"models,omitempty" yaml:"models,omitempty"`
	// Limits mirrors Models for Codex, whose windows are limits rather than
	// per-model allowances.
	Limits []models.QuotaModel `json:"limits,omitempty" yaml:"limits,omitempty"`
	Plan   string              `json:"plan,omitempty" yaml:"plan,omitempty"`
	Email  string              `json:"email,omitempty" yaml:"email,omitempty"`

	Credential models.Credential `json:"-" yaml:"-"`
}

// Type returns the provider the entry was classified as.
func (f FileQuota) Type() provider.Type {
	t, err := provider.Parse(f.ProviderKey)
	if err != nil {
		return provider.Unknown
	}
	return t
}

// Section groups the credentials of one provider.
type Section struct {
	Provider    provider.Type `json:"-" yaml:"-"`
	Key         string        `json:"provider" yaml:"provider"`
	DisplayName string        `json:"displayName" yaml:"display_name"`
	Files       []FileQuota   `json:"files" yaml:"files"`
}

// sectionOrder is the display order; Unknown renders last as "Other".
var sectionOrder = append(append([]provider.Type{}, provider.All...), provider.Unknown)

// FileID returns the identifier a credential is tracked under.
func FileID(c models.Credential) string {
	if c.ID != "" {
		return c.ID
	}
	return c.Filename
}

// AuthIndex resolves the opaque gateway handle for c.
func AuthIndex(c models.Credential) string {
	if s := c.StringField("auth_index", "authIndex"); s != "" {
		return s
	}
	if c.ID != "" {
		return c.ID
	}
	return c.Filename
}

func newFileQuota(c models.Credential, t provider.Type) FileQuota {
	name := c.Filename
	if name == "" {
		name = c.ID
	}
	if name == "" {
		name = "unknown"
	}
	return FileQuota{
		FileID:      FileID(c),
		Filename:    privacy.FormatName(name),
		Provider:    capitalize(t.ID()),
		ProviderKey: t.ID(),
		Credential:  c,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// groupSections buckets credentials by provider. Only providers with at least
// one credential get a section.
func groupSections(creds []models.Credential) []Section {
	grouped := make(map[provider.Type][]FileQuota, len(sectionOrder))
	for _, c := range creds {
		t := provider.Classify(c)
		grouped[t] = append(grouped[t], newFileQuota(c, t))
	}

	sections := make([]Section, 0, len(grouped))
	for _, t := range sectionOrder {
		files := grouped[t]
		if len(files) == 0 {
			continue
		}
		sections = append(sections, Section{
			Provider:    t,
			Key:         t.ID(),
			DisplayName: t.DisplayName(),
			Files:       files,
		})
	}
	return sections
}

// withFile returns a copy of sections where the entry fileID in section t is
// replaced by update(old). The bool is false when no such entry exists.
func withFile(sections []Section, t provider.Type, fileID string, update func(FileQuota) FileQuota) ([]Section, bool) {
	for si, s := range sections {
		if s.Provider != t {
			continue
		}
		for fi, f := range s.Files {
			if f.FileID != fileID {
				continue
			}
			files := make([]FileQuota, len(s.Files))
			copy(files, s.Files)
			files[fi] = update(f)

			out := make([]Section, len(sections))
			copy(out, sections)
			out[si].Files = files
			return out, true
		}
	}
	return sections, false
}

func findFile(sections []Section, fileID string) (FileQuota, bool) {
	for _, s := range sections {
		for _, f := range s.Files {
			if f.FileID == fileID {
				return f, true
			}
		}
	}
	return FileQuota{}, false
}

// Mask returns a copy of sections with file names and emails masked. FileID
// is kept so the entries stay addressable.
func Mask(sections []Section, m privacy.Masker) []Section {
	if !m.Enabled {
		return sections
	}
	out := make([]Section, len(sections))
	for si, s := range sections {
		files := make([]FileQuota, len(s.Files))
		for fi, f := range s.Files {
			f.Filename = m.Folder(f.Filename)
			f.Email = m.Email(f.Email)
			files[fi] = f
		}
		s.Files = files
		out[si] = s
	}
	return out
}
