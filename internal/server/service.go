package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charadev96/galleryclient/internal/client/domain"
	shared "github.com/charadev96/galleryclient/internal/shared/domain"
)

var (
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type account struct {
	user     domain.User
	password string
}

// Service keeps accounts, issued tokens and albums in memory.
type Service struct {
	Rand io.Reader

	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]string
	albums   map[int64]domain.Album
	nextID   int64
}

func NewService() *Service {
	return &Service{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		albums:   make(map[int64]domain.Album),
	}
}

func (s *Service) AddUser(u domain.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[u.Username] = &account{user: u, password: password}
}

// Login issues a new token for valid credentials.
func (s *Service) Login(username, password string) (string, error) {
	s.mu.Lock()
	acc, ok := s.accounts[username]
	s.mu.Unlock()
	if !ok || subtle.ConstantTimeCompare([]byte(acc.password), []byte(password)) == 0 {
		return "", ErrInvalidCredentials
	}
	return s.IssueToken(username)
}

func (s *Service) IssueToken(username string) (string, error) {
	rnd := s.Rand
	if rnd == nil {
		rnd = rand.Reader
	}
	tok := make([]byte, 20)
	if _, err := io.ReadFull(rnd, tok); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(tok)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[username]; !ok {
		return "", fmt.Errorf("failed to issue token for '%s': %w", username, shared.ErrNotExist)
	}
	s.tokens[token] = username
	return token, nil
}

// AddToken registers a token chosen by the caller for username.
func (s *Service) AddToken(token, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = username
}

func (s *Service) UserByToken(token string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.tokens[token]
	if !ok {
		return domain.User{}, ErrInvalidToken
	}
	acc, ok := s.accounts[username]
	if !ok {
		return domain.User{}, ErrInvalidToken
	}
	return acc.user, nil
}

func (s *Service) Revoke(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token]; !ok {
		return ErrInvalidToken
	}
	delete(s.tokens, token)
	return nil
}

func (s *Service) Albums() []domain.Album {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]domain.Album, 0, len(s.albums))
	for _, a := range s.albums {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (s *Service) Album(id int64) (domain.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.albums[id]
	if !ok {
		return a, fmt.Errorf("failed to get album %d: %w", id, shared.ErrNotExist)
	}
	return a, nil
}

// SaveAlbum stores a, assigning an ID to new albums.
func (s *Service) SaveAlbum(a domain.Album) domain.Album {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		s.nextID++
		a.ID = s.nextID
	}
	if a.Date.IsZero() {
		a.Date = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if a.SortOrder == "" {
		a.SortOrder = "date"
	}
	s.albums[a.ID] = a
	return a
}
