package profile

import "github.com/sumire/profilecreator/internal/domain"

const descriptionPlaceholder = "A short and catchy description about yourself will appear here."

// PreviewCard is what the live preview displays for a snapshot.
type PreviewCard struct {
	DisplayName string              `json:"displayName"`
	Email       string              `json:"email,omitempty"`
	MailTo      string              `json:"mailTo,omitempty"`
	Description string              `json:"description"`
	ImageURL    *string             `json:"imageUrl"`
	Links       []domain.SocialLink `json:"links"`
}

// Preview projects a snapshot onto the preview card.
func Preview(s Snapshot) PreviewCard {
	first, last := s.Profile.FirstName, s.Profile.LastName
	if first == "" {
		first = "Your"
	}
	if last == "" {
		last = "Name"
	}

	card := PreviewCard{
		DisplayName: first + " " + last,
		Email:       s.Profile.Email,
		Description: s.Profile.Description,
		ImageURL:    s.Profile.ImageURL,
		Links:       []domain.SocialLink{},
	}
	if card.Email != "" {
		card.MailTo = "mailto:" + card.Email
	}
	if card.Description == "" {
		card.Description = descriptionPlaceholder
	}
	for _, link := range s.Socials {
		if link.URL != "" {
			card.Links = append(card.Links, link)
		}
	}
	return card
}
