package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jinzhu/copier"

	"github.com/charadev96/galleryclient/internal/client/domain"
)

const dateLayout = "2006-01-02"

type album struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	DateText     string `json:"date"`
	Description  string `json:"description"`
	Photos       *int   `json:"photo_count"`
	Public       bool   `json:"public"`
	Parent       *int64 `json:"parent"`
	SortOrder    string `json:"sort_order"`
	Downloadable bool   `json:"downloadable"`
	ShowMetadata bool   `json:"show_metadata"`
	ShowLocation bool   `json:"show_location"`
}

func (a *album) toDomain() (domain.Album, error) {
	alb := domain.Album{}
	copier.Copy(&alb, a)
	if a.Photos != nil {
		alb.PhotoCount = *a.Photos
	}
	if a.DateText != "" {
		date, err := time.Parse(dateLayout, a.DateText)
		if err != nil {
			return alb, fmt.Errorf("failed to parse album date '%s': %w", a.DateText, err)
		}
		alb.Date = date
	}
	return alb, nil
}

// AlbumInput is the writable part of an album.
type AlbumInput struct {
	Title        string
	Date         time.Time
	Description  string
	Public       bool
	Parent       *int64
	SortOrder    string
	Downloadable bool
	ShowMetadata bool
	ShowLocation bool
}

type albumWrite struct {
	Title        string  `json:"title"`
	DateText     *string `json:"date,omitempty"`
	Description  string  `json:"description"`
	Public       bool    `json:"public"`
	Parent       *int64  `json:"parent"`
	SortOrder    string  `json:"sort_order,omitempty"`
	Downloadable bool    `json:"downloadable"`
	ShowMetadata bool    `json:"show_metadata"`
	ShowLocation bool    `json:"show_location"`
}

func (in AlbumInput) toWire() albumWrite {
	w := albumWrite{}
	copier.Copy(&w, &in)
	if !in.Date.IsZero() {
		date := in.Date.Format(dateLayout)
		w.DateText = &date
	}
	return w
}

// albumPage is one page of a paginated album list.
type albumPage struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []album `json:"results"`
}

// ListAlbums returns all albums, following the list's pages.
func (c *Client) ListAlbums(ctx context.Context) ([]domain.Album, error) {
	var albums []domain.Album
	path := "albums/"
	seen := make(map[string]bool)
	for path != "" {
		if seen[path] {
			return nil, fmt.Errorf("failed to list albums: page '%s' repeats", path)
		}
		seen[path] = true

		page := albumPage{}
		if err := c.do(ctx, "list albums", http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		if albums == nil {
			albums = make([]domain.Album, 0, page.Count)
		}
		for i := range page.Results {
			alb, err := page.Results[i].toDomain()
			if err != nil {
				return nil, err
			}
			albums = append(albums, alb)
		}

		path = ""
		if page.Next != nil && *page.Next != "" {
			next, err := c.sameOrigin(*page.Next)
			if err != nil {
				return nil, err
			}
			path = next
		}
	}
	return albums, nil
}

// sameOrigin checks that link points at the API host, so the session token
// is never sent elsewhere.
func (c *Client) sameOrigin(link string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse base url '%s': %w", c.BaseURL, err)
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("failed to parse page link '%s': %w", link, err)
	}
	if u.IsAbs() && (u.Scheme != base.Scheme || u.Host != base.Host) {
		return "", fmt.Errorf("refusing page link '%s' outside %s", link, base.Host)
	}
	return base.ResolveReference(u).String(), nil
}

func (c *Client) GetAlbum(ctx context.Context, id int64) (domain.Album, error) {
	a := new(album)
	if err := c.do(ctx, "get album", http.MethodGet, fmt.Sprintf("albums/%d/", id), nil, a); err != nil {
		return domain.Album{}, err
	}
	return a.toDomain()
}

// CreateAlbum requires an authenticated session.
func (c *Client) CreateAlbum(ctx context.Context, in AlbumInput) (domain.Album, error) {
	a := new(album)
	if err := c.do(ctx, "create album", http.MethodPost, "albums/", in.toWire(), a); err != nil {
		return domain.Album{}, err
	}
	return a.toDomain()
}

// UpdateAlbum requires an authenticated session.
func (c *Client) UpdateAlbum(ctx context.Context, id int64, in AlbumInput) (domain.Album, error) {
	a := new(album)
	if err := c.do(ctx, "update album", http.MethodPatch, fmt.Sprintf("albums/%d/", id), in.toWire(), a); err != nil {
		return domain.Album{}, err
	}
	return a.toDomain()
}
