package profile

import (
	"strconv"

	"github.com/sumire/profilecreator/internal/domain"
	"github.com/sumire/profilecreator/internal/validate"
)

// DescriptionMaxWords limits the description textarea.
const DescriptionMaxWords = 50

// FieldRule describes how one profile field is labelled and checked.
type FieldRule struct {
	Key         string
	Label       string
	Placeholder string
	Required    bool
	MaxWords    int
}

// FormFields lists the scalar fields of the form in display order.
var FormFields = []FieldRule{
	{Key: domain.FieldFirstName, Label: "First Name", Placeholder: "John", Required: true},
	{Key: domain.FieldLastName, Label: "Last Name", Placeholder: "Doe", Required: true},
	{Key: domain.FieldEmail, Label: "Email Address", Placeholder: "john.doe@example.com", Required: true},
	{Key: domain.FieldDescription, Label: "Description", Placeholder: "Write about yourself...", MaxWords: DescriptionMaxWords},
}

// Check returns the inline error for value, or "".
func (r FieldRule) Check(value string) string {
	if msg := validate.Required(r.Label, value, r.Required); msg != "" {
		return msg
	}
	return validate.WordLimit(value, r.MaxWords)
}

// FieldErrors maps a field key to its inline error. Valid fields are absent.
type FieldErrors map[string]string

// SocialKey is the FieldErrors key of the social link at index.
func SocialKey(index int) string {
	return "socials." + strconv.Itoa(index)
}

// Validate computes the inline errors for every field of s.
func Validate(s Snapshot) FieldErrors {
	errs := FieldErrors{}
	for _, rule := range FormFields {
		if msg := rule.Check(FieldValue(s.Profile, rule.Key)); msg != "" {
			errs[rule.Key] = msg
		}
	}
	for i, link := range s.Socials {
		if msg := validate.SocialURL(link.URL, string(link.Platform)); msg != "" {
			errs[SocialKey(i)] = msg
		}
	}
	return errs
}

// ValidateField computes the inline error for a single scalar field.
func ValidateField(s Snapshot, key string) string {
	for _, rule := range FormFields {
		if rule.Key == key {
			return rule.Check(FieldValue(s.Profile, key))
		}
	}
	return ""
}

// FieldValue reads a scalar field by key.
func FieldValue(p domain.Profile, key string) string {
	switch key {
	case domain.FieldFirstName:
		return p.FirstName
	case domain.FieldLastName:
		return p.LastName
	case domain.FieldEmail:
		return p.Email
	case domain.FieldDescription:
		return p.Description
	}
	return ""
}
