package domain

// Profile is the user-editable record rendered by the form and the preview.
type Profile struct {
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Email       string  `json:"email"`
	Description string  `json:"description"`
	ImageURL    *string `json:"imageUrl"`
}

// Profile field keys accepted by the editor.
const (
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldEmail       = "email"
	FieldDescription = "description"
)

// Platform identifies a supported social network.
type Platform string

const (
	PlatformGitHub   Platform = "github"
	PlatformX        Platform = "x"
	PlatformLinkedIn Platform = "linkedin"
)

// Platforms lists the supported platforms in display order.
var Platforms = []Platform{PlatformGitHub, PlatformX, PlatformLinkedIn}

// SocialLink is a fixed platform with a freely editable URL. An empty URL
// means "not provided".
type SocialLink struct {
	Platform Platform `json:"platform"`
	URL      string   `json:"url"`
	Icon     string   `json:"icon"`
}

// DefaultSocialLinks returns one empty link per supported platform.
func DefaultSocialLinks() []SocialLink {
	links := make([]SocialLink, 0, len(Platforms))
	for _, p := range Platforms {
		links = append(links, SocialLink{Platform: p, Icon: "icon-" + string(p)})
	}
	return links
}
