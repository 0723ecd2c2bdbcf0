package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charadev96/galleryclient/internal/client/domain"
)

func newTestServer(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	svc := NewService()
	svc.AddUser(domain.User{ID: 1, Username: "alice", FirstName: "Alice"}, "secret")
	srv := httptest.NewServer((&Server{Service: svc}).Handler())
	t.Cleanup(srv.Close)
	return svc, srv
}

func request(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("NewRequest err: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s err: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLoginMeLogout(t *testing.T) {
	_, srv := newTestServer(t)

	resp := request(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "secret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var login struct {
		AuthToken string `json:"auth_token"`
	}
	json.NewDecoder(resp.Body).Decode(&login)
	if len(login.AuthToken) != 40 {
		t.Fatalf("unexpected token %q", login.AuthToken)
	}

	resp = request(t, http.MethodGet, srv.URL+"/api/auth/users/me/", login.AuthToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var me userReply
	json.NewDecoder(resp.Body).Decode(&me)
	if me.ID != 1 || me.Username != "alice" || me.FirstName != "Alice" {
		t.Fatalf("unexpected profile %+v", me)
	}

	resp = request(t, http.MethodPost, srv.URL+"/api/auth/logout", login.AuthToken, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = request(t, http.MethodGet, srv.URL+"/api/auth/users/me/", login.AuthToken, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestLoginRejected(t *testing.T) {
	_, srv := newTestServer(t)

	resp := request(t, http.MethodPost, srv.URL+"/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body map[string][]string
	json.NewDecoder(resp.Body).Decode(&body)
	if len(body["non_field_errors"]) != 1 {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestAlbumWritesRequireToken(t *testing.T) {
	svc, srv := newTestServer(t)
	svc.AddToken("abc123", "alice")

	resp := request(t, http.MethodPost, srv.URL+"/api/albums/", "", map[string]any{"title": "Alps"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp = request(t, http.MethodPost, srv.URL+"/api/albums/", "abc123", map[string]any{
		"title": "Alps",
		"date":  "2018-02-11",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created albumWire
	json.NewDecoder(resp.Body).Decode(&created)
	if created.ID != 1 || created.Date == nil || *created.Date != "2018-02-11" || created.SortOrder != "date" {
		t.Fatalf("unexpected album %+v", created)
	}

	resp = request(t, http.MethodPatch, srv.URL+"/api/albums/1/", "abc123", map[string]any{"public": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	a, err := svc.Album(1)
	if err != nil {
		t.Fatalf("Album err: %v", err)
	}
	if !a.Public || a.Title != "Alps" {
		t.Fatalf("unexpected stored album %+v", a)
	}

	resp = request(t, http.MethodGet, srv.URL+"/api/albums/7/", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListAlbumsPaginated(t *testing.T) {
	svc := NewService()
	for _, title := range []string{"Alps", "Rome", "Oslo"} {
		svc.SaveAlbum(domain.Album{Title: title, Date: time.Date(2018, 2, 11, 0, 0, 0, 0, time.UTC)})
	}
	srv := httptest.NewServer((&Server{Service: svc, PageSize: 2}).Handler())
	t.Cleanup(srv.Close)

	resp := request(t, http.MethodGet, srv.URL+"/api/albums/", "", nil)
	var page albumPage
	json.NewDecoder(resp.Body).Decode(&page)
	if page.Count != 3 || len(page.Results) != 2 || page.Previous != nil {
		t.Fatalf("unexpected first page %+v", page)
	}
	if page.Next == nil || *page.Next != srv.URL+"/api/albums/?page=2" {
		t.Fatalf("unexpected next link %v", page.Next)
	}

	resp = request(t, http.MethodGet, *page.Next, "", nil)
	page = albumPage{}
	json.NewDecoder(resp.Body).Decode(&page)
	if len(page.Results) != 1 || page.Results[0].Title != "Oslo" || page.Next != nil || page.Previous == nil {
		t.Fatalf("unexpected second page %+v", page)
	}

	resp = request(t, http.MethodGet, srv.URL+"/api/albums/?page=3", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 past the last page, got %d", resp.StatusCode)
	}
}

func TestAlbumWithoutDate(t *testing.T) {
	data, err := json.Marshal(toWire(domain.Album{ID: 4, Title: "Undated"}))
	if err != nil {
		t.Fatalf("Marshal err: %v", err)
	}
	var body map[string]any
	json.Unmarshal(data, &body)
	if v, ok := body["date"]; !ok || v != nil {
		t.Fatalf("expected null date, got %s", data)
	}
}
