package validate

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	schemePattern = regexp.MustCompile(`(?i)^https?://`)

	socialPatterns = map[string]*regexp.Regexp{
		"x":        regexp.MustCompile(`(?i)^(www\.)?(x\.com|twitter\.com)`),
		"linkedin": regexp.MustCompile(`(?i)^(www\.)?linkedin\.com`),
		"github":   regexp.MustCompile(`(?i)^(www\.)?github\.com`),
	}
)

// SocialURLValid reports whether url points at the platform's domain. An
// empty url is valid; an unknown platform never is.
func SocialURLValid(url, platform string) bool {
	if strings.TrimSpace(url) == "" {
		return true
	}
	pattern, ok := socialPatterns[strings.ToLower(platform)]
	if !ok {
		return false
	}
	return pattern.MatchString(schemePattern.ReplaceAllString(url, ""))
}

// SocialURL returns the message shown under a social link input.
func SocialURL(url, platform string) string {
	if SocialURLValid(url, platform) {
		return ""
	}
	return fmt.Sprintf("Please enter a valid %s URL (must contain %s)", platform, expectedDomain(platform))
}

// Placeholder is the example value shown in an empty social link input.
func Placeholder(platform string) string {
	if strings.ToLower(platform) == "x" {
		return "x.com/username"
	}
	return strings.ToLower(platform) + ".com/username"
}

func expectedDomain(platform string) string {
	p := strings.ToLower(platform)
	if p == "x" {
		return "x.com or twitter.com"
	}
	return p + ".com"
}
