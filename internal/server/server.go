// Package server is an in-memory implementation of the gallery backend API
// the client talks to, used for local development and tests.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/charadev96/galleryclient/internal/client/domain"
	shared "github.com/charadev96/galleryclient/internal/shared/domain"
)

const (
	authScheme      = "Token"
	defaultPageSize = 30
)

type Server struct {
	Service *Service
	Logger  *zerolog.Logger
	// PageSize bounds album list pages, 30 when zero.
	PageSize int
}

// Handler serves the API below /api/.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", s.handleLogin)
		api.Post("/auth/logout", s.handleLogout)
		api.Get("/auth/users/me/", s.handleMe)

		api.Get("/albums/", s.handleListAlbums)
		api.Post("/albums/", s.handleCreateAlbum)
		api.Get("/albums/{id}/", s.handleGetAlbum)
		api.Patch("/albums/{id}/", s.handleUpdateAlbum)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if s.Logger == nil {
			return
		}
		s.Logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request", r.Header.Get("X-Request-ID")).
			Int("status", ww.Status()).
			Msg("handled request")
	})
}

// tokenFromHeader extracts the token of an "Authorization: Token <token>"
// header.
func tokenFromHeader(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], authScheme) {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// authenticate resolves the request's user. It answers 401 itself when a
// token is required or presented but invalid.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	token := tokenFromHeader(r)
	if token == "" {
		respondDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return domain.User{}, false
	}
	u, err := s.Service.UserByToken(token)
	if err != nil {
		respondDetail(w, http.StatusUnauthorized, "Invalid token.")
		return domain.User{}, false
	}
	return u, true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := s.Service.Login(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respondJSON(w, http.StatusBadRequest, map[string][]string{
				"non_field_errors": {err.Error()},
			})
			return
		}
		respondDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"auth_token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	if err := s.Service.Revoke(tokenFromHeader(r)); err != nil {
		respondDetail(w, http.StatusUnauthorized, "Invalid token.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type userReply struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, userReply{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	})
}

type albumWire struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Date         *string `json:"date"`
	Description  string `json:"description"`
	PhotoCount   int    `json:"photo_count"`
	Public       bool   `json:"public"`
	Parent       *int64 `json:"parent"`
	SortOrder    string `json:"sort_order"`
	Downloadable bool   `json:"downloadable"`
	ShowMetadata bool   `json:"show_metadata"`
	ShowLocation bool   `json:"show_location"`
}

func toWire(a domain.Album) albumWire {
	var date *string
	if !a.Date.IsZero() {
		text := a.Date.Format("2006-01-02")
		date = &text
	}
	return albumWire{
		ID:           a.ID,
		Title:        a.Title,
		Date:         date,
		Description:  a.Description,
		PhotoCount:   a.PhotoCount,
		Public:       a.Public,
		Parent:       a.Parent,
		SortOrder:    a.SortOrder,
		Downloadable: a.Downloadable,
		ShowMetadata: a.ShowMetadata,
		ShowLocation: a.ShowLocation,
	}
}

// applyWire copies the fields present in body onto a.
func applyWire(a *domain.Album, body map[string]json.RawMessage) error {
	fields := map[string]any{
		"title":         &a.Title,
		"description":   &a.Description,
		"public":        &a.Public,
		"parent":        &a.Parent,
		"sort_order":    &a.SortOrder,
		"downloadable":  &a.Downloadable,
		"show_metadata": &a.ShowMetadata,
		"show_location": &a.ShowLocation,
	}
	for name, dst := range fields {
		if raw, ok := body[name]; ok {
			if err := json.Unmarshal(raw, dst); err != nil {
				return errors.New("invalid value for " + name)
			}
		}
	}
	if raw, ok := body["date"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return errors.New("invalid value for date")
		}
		date, err := time.Parse("2006-01-02", text)
		if err != nil {
			return errors.New("invalid value for date")
		}
		a.Date = date
	}
	return nil
}

type albumPage struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  []albumWire `json:"results"`
}

// pageLink returns the absolute URL of page n of the current request.
func pageLink(r *http.Request, n int) *string {
	u := url.URL{Scheme: "http", Host: r.Host, Path: r.URL.Path}
	if r.TLS != nil {
		u.Scheme = "https"
	}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	link := u.String()
	return &link
}

func (s *Server) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	size := s.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	page := 1
	if text := r.URL.Query().Get("page"); text != "" {
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 {
			respondDetail(w, http.StatusNotFound, "Invalid page.")
			return
		}
		page = n
	}

	albums := s.Service.Albums()
	start := (page - 1) * size
	if start > 0 && start >= len(albums) {
		respondDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}
	end := min(start+size, len(albums))

	reply := albumPage{
		Count:   len(albums),
		Results: make([]albumWire, 0, end-start),
	}
	for _, a := range albums[start:end] {
		reply.Results = append(reply.Results, toWire(a))
	}
	if end < len(albums) {
		reply.Next = pageLink(r, page+1)
	}
	if page > 1 {
		reply.Previous = pageLink(r, page-1)
	}
	respondJSON(w, http.StatusOK, reply)
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	a, err := s.Service.Album(id)
	if err != nil {
		respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	respondJSON(w, http.StatusOK, toWire(a))
}

func (s *Server) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a := domain.Album{}
	if err := applyWire(&a, body); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if a.Title == "" {
		respondJSON(w, http.StatusBadRequest, map[string][]string{
			"title": {"This field is required."},
		})
		return
	}
	respondJSON(w, http.StatusCreated, toWire(s.Service.SaveAlbum(a)))
}

func (s *Server) handleUpdateAlbum(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	a, err := s.Service.Album(id)
	if errors.Is(err, shared.ErrNotExist) {
		respondDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := applyWire(&a, body); err != nil {
		respondDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, toWire(s.Service.SaveAlbum(a)))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
