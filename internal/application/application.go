package application

import (
	"errors"
	"fmt"
	"slices"
)

// Field names as used by renderers and in field errors.
const (
	FieldEmail          = "email"
	FieldTwitter        = "twitter"
	FieldWebsite        = "website"
	FieldWhy            = "why"
	FieldReasons        = "reasons"
	FieldInterests      = "interests"
	FieldSkillLevel     = "skillLevel"
	FieldDiscovery      = "discovery"
	FieldDiscoveryOther = "discoveryOther"
	FieldExpectations   = "expectations"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrUnknownTag   = errors.New("unknown tag")
)

// MaxInterests is the soft cap on selected interests.
const MaxInterests = 3

// Application is the working state of the join form. The zero value is the
// empty form.
type Application struct {
	Email          string     `json:"email"`
	Twitter        string     `json:"twitter"`
	Website        string     `json:"website"`
	Why            string     `json:"why"`
	Reasons        []Reason   `json:"reasons"`
	Interests      []Interest `json:"interests"`
	SkillLevel     SkillLevel `json:"skillLevel"`
	Discovery      Discovery  `json:"discovery"`
	DiscoveryOther string     `json:"discoveryOther"`
	Expectations   string     `json:"expectations"`
}

// ShowDiscoveryOther reports whether the "please specify" field applies.
func (a Application) ShowDiscoveryOther() bool {
	return a.Discovery == DiscoveryOther
}

// Clone returns a deep copy so callers can hold a snapshot while the
// original keeps changing.
func (a Application) Clone() Application {
	out := a
	out.Reasons = slices.Clone(a.Reasons)
	out.Interests = slices.Clone(a.Interests)
	return out
}

// Dedupe drops repeated reasons and interests, keeping first occurrences.
// Posted forms may repeat a checkbox value; the sets never do.
func (a Application) Dedupe() Application {
	out := a.Clone()
	out.Reasons = unique(out.Reasons)
	out.Interests = unique(out.Interests)
	return out
}

func unique[T comparable](tags []T) []T {
	if tags == nil {
		return nil
	}
	out := tags[:0]
	seen := make(map[T]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Set assigns one scalar field by name. Enum values are not checked here.
func (a *Application) Set(name, value string) error {
	switch name {
	case FieldEmail:
		a.Email = value
	case FieldTwitter:
		a.Twitter = value
	case FieldWebsite:
		a.Website = value
	case FieldWhy:
		a.Why = value
	case FieldSkillLevel:
		a.SkillLevel = SkillLevel(value)
	case FieldDiscovery:
		a.Discovery = Discovery(value)
	case FieldDiscoveryOther:
		a.DiscoveryOther = value
	case FieldExpectations:
		a.Expectations = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// Toggle adds or removes tag in the reasons or interests set. Adding a tag
// to a full interests set is ignored.
func (a *Application) Toggle(field, tag string, desired bool) error {
	switch field {
	case FieldReasons:
		r := Reason(tag)
		if !r.Valid() {
			return fmt.Errorf("%w: %s %q", ErrUnknownTag, field, tag)
		}
		a.Reasons = toggle(a.Reasons, r, desired, 0)
	case FieldInterests:
		i := Interest(tag)
		if !i.Valid() {
			return fmt.Errorf("%w: %s %q", ErrUnknownTag, field, tag)
		}
		a.Interests = toggle(a.Interests, i, desired, MaxInterests)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// toggle applies set membership; limit <= 0 means uncapped.
func toggle[T comparable](set []T, tag T, desired bool, limit int) []T {
	idx := slices.Index(set, tag)
	switch {
	case desired && idx >= 0:
		return set
	case desired:
		if limit > 0 && len(set) >= limit {
			return set
		}
		return append(set, tag)
	case idx < 0:
		return set
	default:
		return slices.Delete(set, idx, idx+1)
	}
}
