package application

import (
	"slices"
	"strings"
	"unicode"
)

// Payload is the normalized submission handed to a Submitter.
type Payload struct {
	Email          string     `json:"email"`
	Twitter        string     `json:"twitter"`
	Website        *string    `json:"website"`
	Why            string     `json:"why"`
	Reasons        []Reason   `json:"reasons"`
	Interests      []Interest `json:"interests"`
	SkillLevel     SkillLevel `json:"skillLevel"`
	Discovery      Discovery  `json:"discovery"`
	DiscoveryOther string     `json:"discoveryOther,omitempty"`
	Expectations   string     `json:"expectations"`
}

// NormalizeTwitter prefixes a non-empty handle with "@".
func NormalizeTwitter(handle string) string {
	handle = strings.TrimSpace(handle)
	if handle == "" || strings.HasPrefix(handle, "@") {
		return handle
	}
	return "@" + handle
}

// NormalizeWebsite drops all whitespace and prepends https:// when the value
// carries no http(s) scheme. Empty input stays empty.
func NormalizeWebsite(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return ""
	}
	lower := strings.ToLower(cleaned)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return cleaned
	}
	return "https://" + cleaned
}

// Normalize derives the outgoing payload. It does not validate; call
// Validate first.
func Normalize(a Application) Payload {
	p := Payload{
		Email:        strings.TrimSpace(a.Email),
		Twitter:      NormalizeTwitter(a.Twitter),
		Why:          a.Why,
		Reasons:      slices.Clone(a.Reasons),
		Interests:    slices.Clone(a.Interests),
		SkillLevel:   a.SkillLevel,
		Discovery:    a.Discovery,
		Expectations: a.Expectations,
	}
	if p.Reasons == nil {
		p.Reasons = []Reason{}
	}
	if p.Interests == nil {
		p.Interests = []Interest{}
	}
	if w := NormalizeWebsite(a.Website); w != "" {
		p.Website = &w
	}
	if a.ShowDiscoveryOther() {
		p.DiscoveryOther = a.DiscoveryOther
	}
	return p
}
