package ballfield

import (
	"net/url"
	"strings"
)

// Navigator receives the lower-cased label of an activated body.
type Navigator func(label string)

// Activate surfaces the body's lower-cased label to navigate and returns it.
// The field itself knows nothing about routes.
func Activate(b Body, navigate Navigator) string {
	label := strings.ToLower(b.Label)
	if navigate != nil {
		navigate(label)
	}
	return label
}

// GenreRoute is the client route listing blogs of a genre.
func GenreRoute(label string) string {
	return "/blogs/genre/" + url.PathEscape(strings.ToLower(label))
}
