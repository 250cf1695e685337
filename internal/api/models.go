package api

import "time"

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	ProfilePhoto string `json:"profilePhoto,omitempty"`
}

type Genre struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// GenreNames returns the genre names in order, the label list a ball field is
// built from.
func GenreNames(genres []Genre) []string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return names
}

type Blog struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Author        User      `json:"author"`
	Genres        []Genre   `json:"genres"`
	UpvoteCount   int       `json:"upvoteCount"`
	DownvoteCount int       `json:"downvoteCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// BlogInput is the create/update payload.
type BlogInput struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	GenreIDs []int64 `json:"genreIds"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type vote struct {
	Upvote bool `json:"upvote"`
}

type authStatus struct {
	Authenticated bool `json:"authenticated"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
