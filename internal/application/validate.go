package application

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is a per-field validation failure surfaced by a renderer.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the full list of failures for one submit attempt.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "invalid application: " + strings.Join(msgs, "; ")
}

// ByField indexes the first message per field.
func (v ValidationErrors) ByField() map[string]string {
	out := make(map[string]string, len(v))
	for _, fe := range v {
		if _, ok := out[fe.Field]; !ok {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

// Rules selects between the form variants.
type Rules struct {
	// RequireTwitter is true for the current form; the earlier variant left
	// the handle optional.
	RequireTwitter bool
}

func DefaultRules() Rules {
	return Rules{RequireTwitter: true}
}

const (
	msgEmail          = "please enter a valid email"
	msgTwitter        = "please enter your twitter/x handle"
	msgWebsiteURL     = "please enter a valid url"
	msgWebsiteDomain  = "please enter a valid domain"
	msgWhy            = "please tell us why you want to join"
	msgReasons        = "please select at least one reason"
	msgReasonTag      = "please select reasons from the list"
	msgReasonTwice    = "please select each reason once"
	msgInterestsMin   = "please select at least one interest"
	msgInterestsMax   = "please select up to 3 interests"
	msgInterestTag    = "please select interests from the list"
	msgInterestTwice  = "please select each interest once"
	msgSkillLevel     = "please select your skill level"
	msgDiscovery      = "please tell us how you found us"
	msgDiscoveryOther = "please specify how you found us"
	msgExpectations   = "please tell us what you're looking to get out of this community"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a against the current form rules.
func Validate(a Application) ValidationErrors {
	return ValidateWith(a, DefaultRules())
}

// ValidateWith checks every field and returns all failures in form order.
// A nil result means the application can be submitted.
func ValidateWith(a Application, rules Rules) ValidationErrors {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	if validate.Var(strings.TrimSpace(a.Email), "required,email") != nil {
		add(FieldEmail, msgEmail)
	}
	if rules.RequireTwitter && blank(a.Twitter) {
		add(FieldTwitter, msgTwitter)
	}
	if msg := checkWebsite(a.Website); msg != "" {
		add(FieldWebsite, msg)
	}
	if blank(a.Why) {
		add(FieldWhy, msgWhy)
	}

	switch {
	case len(a.Reasons) == 0:
		add(FieldReasons, msgReasons)
	case !allValid(a.Reasons):
		add(FieldReasons, msgReasonTag)
	case hasDuplicates(a.Reasons):
		add(FieldReasons, msgReasonTwice)
	}

	switch {
	case len(a.Interests) == 0:
		add(FieldInterests, msgInterestsMin)
	case len(a.Interests) > MaxInterests:
		add(FieldInterests, msgInterestsMax)
	case !allValid(a.Interests):
		add(FieldInterests, msgInterestTag)
	case hasDuplicates(a.Interests):
		add(FieldInterests, msgInterestTwice)
	}

	if !a.SkillLevel.Valid() {
		add(FieldSkillLevel, msgSkillLevel)
	}
	if !a.Discovery.Valid() {
		add(FieldDiscovery, msgDiscovery)
	}
	if a.ShowDiscoveryOther() && blank(a.DiscoveryOther) {
		add(FieldDiscoveryOther, msgDiscoveryOther)
	}
	if blank(a.Expectations) {
		add(FieldExpectations, msgExpectations)
	}

	return errs
}

// checkWebsite validates the normalized form of raw. Empty is allowed.
func checkWebsite(raw string) string {
	w := NormalizeWebsite(raw)
	if w == "" {
		return ""
	}
	if validate.Var(w, "url") != nil {
		return msgWebsiteURL
	}
	u, err := url.Parse(w)
	if err != nil || u.Host == "" {
		return msgWebsiteURL
	}
	if !strings.Contains(u.Hostname(), ".") {
		return msgWebsiteDomain
	}
	return ""
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func allValid[T interface{ Valid() bool }](tags []T) bool {
	for _, t := range tags {
		if !t.Valid() {
			return false
		}
	}
	return true
}

func hasDuplicates[T comparable](tags []T) bool {
	seen := make(map[T]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			return true
		}
		seen[t] = struct{}{}
	}
	return false
}
