package utils

import (
	"regexp"
	"strings"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify turns a service name like "Tarot & Palm Reading" into a URL
// slug ("tarot-and-palm-reading"). Apostrophes drop out, ampersands
// become "and", anything else non-alphanumeric collapses to a dash.
func Slugify(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	replacer := strings.NewReplacer("'", "", "&", " and ", "/", " ", " ", "-")
	s = replacer.Replace(s)
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
