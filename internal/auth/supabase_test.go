package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignInAnonymously(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/signup" || r.Header.Get("apikey") != "anon" {
			t.Errorf("unexpected request %s apikey=%q", r.URL.Path, r.Header.Get("apikey"))
		}
		var body struct {
			Data map[string]string `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Data["display_name"] != "Lemon" {
			t.Errorf("display_name = %q", body.Data["display_name"])
		}
		_ = json.NewEncoder(w).Encode(Session{
			AccessToken: "tok",
			User:        SupabaseUser{ID: "u1", IsAnonymous: true},
		})
	}))
	defer srv.Close()

	c := NewSupabaseClient(srv.URL+"/", "anon")
	sess, err := c.SignInAnonymously(context.Background(), "Lemon")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if sess.AccessToken != "tok" || sess.User.ID != "u1" || !sess.User.IsAnonymous {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestVerifyAccessTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer good" {
			_ = json.NewEncoder(w).Encode(SupabaseUser{ID: "u2"})
			return
		}
		http.Error(w, "bad jwt", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewSupabaseClient(srv.URL, "anon")
	if _, err := c.VerifyAccessToken(context.Background(), "bad"); err == nil {
		t.Fatal("expected error for rejected token")
	}
	user, err := c.VerifyAccessToken(context.Background(), "good")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.ID != "u2" {
		t.Fatalf("user id = %q", user.ID)
	}
}
