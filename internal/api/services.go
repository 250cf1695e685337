package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/safarnama/safarnama/internal/core/observability/log"
	"github.com/safarnama/safarnama/internal/session"
)

type AuthService struct{ c *Client }

// Login authenticates and caches the returned user.
func (s *AuthService) Login(ctx context.Context, username, password string) (*User, error) {
	var u User
	if err := s.c.do(ctx, http.MethodPost, session.LoginPath, nil, credentials{username, password}, &u); err != nil {
		return nil, err
	}
	if s.c.sessions != nil {
		if err := s.c.sessions.Save(session.User{ID: u.ID, Username: u.Username, Email: u.Email}); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

func (s *AuthService) Register(ctx context.Context, r Registration) (*User, error) {
	var u User
	if err := s.c.do(ctx, http.MethodPost, "/auth/register", nil, r, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout ends the backend session and then drops the cached user.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil); err != nil {
		return err
	}
	if s.c.sessions != nil {
		return s.c.sessions.Clear()
	}
	return nil
}

// CheckAuth asks the backend whether the cookie session is still valid.
func (s *AuthService) CheckAuth(ctx context.Context) (bool, error) {
	var st authStatus
	if err := s.c.do(ctx, http.MethodGet, "/auth/check", nil, nil, &st); err != nil {
		return false, err
	}
	return st.Authenticated, nil
}

type GenreService struct{ c *Client }

// List fetches all genres. The backend answers either with a bare array or a
// page object carrying the array under "content".
func (s *GenreService) List(ctx context.Context) ([]Genre, error) {
	var raw json.RawMessage
	if err := s.c.do(ctx, http.MethodGet, "/genres", nil, nil, &raw); err != nil {
		return nil, err
	}

	var genres []Genre
	if err := json.Unmarshal(raw, &genres); err == nil {
		return genres, nil
	}
	var page struct {
		Content []Genre `json:"content"`
	}
	if err := json.Unmarshal(raw, &page); err == nil && page.Content != nil {
		return page.Content, nil
	}
	return nil, fmt.Errorf("unexpected genres response: %.80s", raw)
}

// All is List that never fails: errors are logged and yield an empty list.
func (s *GenreService) All(ctx context.Context) []Genre {
	genres, err := s.List(ctx)
	if err != nil {
		s.c.logger.Warn("Falling back to empty genre list", log.Error(err))
		return []Genre{}
	}
	if genres == nil {
		return []Genre{}
	}
	return genres
}

type BlogService struct{ c *Client }

func (s *BlogService) list(ctx context.Context, path string) ([]Blog, error) {
	var blogs []Blog
	if err := s.c.do(ctx, http.MethodGet, path, nil, nil, &blogs); err != nil {
		return nil, err
	}
	return blogs, nil
}

func (s *BlogService) All(ctx context.Context) ([]Blog, error) {
	return s.list(ctx, "/blogs")
}

func (s *BlogService) Popular(ctx context.Context) ([]Blog, error) {
	return s.list(ctx, "/blogs/popular")
}

func (s *BlogService) ByAuthor(ctx context.Context, username string) ([]Blog, error) {
	return s.list(ctx, "/blogs/author/"+url.PathEscape(username))
}

func (s *BlogService) ByGenre(ctx context.Context, genre string) ([]Blog, error) {
	return s.list(ctx, "/blogs/genre/"+url.PathEscape(genre))
}

func (s *BlogService) ByID(ctx context.Context, id int64) (*Blog, error) {
	var b Blog
	if err := s.c.do(ctx, http.MethodGet, blogPath(id), nil, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create posts a new blog. A nil genre list is sent as an empty array.
func (s *BlogService) Create(ctx context.Context, in BlogInput) (*Blog, error) {
	if in.GenreIDs == nil {
		in.GenreIDs = []int64{}
	}
	var b Blog
	if err := s.c.do(ctx, http.MethodPost, "/blogs", nil, in, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BlogService) Update(ctx context.Context, id int64, in BlogInput) (*Blog, error) {
	if in.GenreIDs == nil {
		in.GenreIDs = []int64{}
	}
	var b Blog
	if err := s.c.do(ctx, http.MethodPut, blogPath(id), nil, in, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BlogService) Delete(ctx context.Context, id int64) error {
	return s.c.do(ctx, http.MethodDelete, blogPath(id), nil, nil, nil)
}

// Vote records an up- or downvote and returns the updated blog.
func (s *BlogService) Vote(ctx context.Context, id int64, upvote bool) (*Blog, error) {
	var b Blog
	if err := s.c.do(ctx, http.MethodPost, blogPath(id)+"/vote", nil, vote{Upvote: upvote}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func blogPath(id int64) string { return "/blogs/" + strconv.FormatInt(id, 10) }

type UserService struct{ c *Client }

func (s *UserService) ByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := s.c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(username), nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserService) Search(ctx context.Context, query string) ([]User, error) {
	var users []User
	if err := s.c.do(ctx, http.MethodGet, "/users/search", url.Values{"query": {query}}, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}
