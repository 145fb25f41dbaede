package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"

	"thde.io/gcontacts"
)

func TestPrintContactsText(t *testing.T) {
	var buf bytes.Buffer
	err := printContactsText(&buf, []gcontacts.Contact{
		{Name: "Ada Lovelace", Email: "ada@example.com"},
		{Name: "Bob", Email: "bob@example.com"},
	})
	if err != nil {
		t.Fatalf("printContactsText() error = %v", err)
	}

	want := "NAME          EMAIL\n" +
		"Ada Lovelace  ada@example.com\n" +
		"Bob           bob@example.com\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("printContactsText() mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintContactsJSON(t *testing.T) {
	tests := []struct {
		name     string
		contacts []gcontacts.Contact
		want     []gcontacts.Contact
	}{
		{
			name:     "contacts",
			contacts: []gcontacts.Contact{{Name: "A", Email: "a@x.com"}},
			want:     []gcontacts.Contact{{Name: "A", Email: "a@x.com"}},
		},
		{
			name:     "nil prints an empty array",
			contacts: nil,
			want:     []gcontacts.Contact{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := printContactsJSON(&buf, tt.contacts); err != nil {
				t.Fatalf("printContactsJSON() error = %v", err)
			}

			var got []gcontacts.Contact
			if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("output is not JSON: %v", err)
			}
			if got == nil {
				t.Fatal("output should be an array, got null")
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("printContactsJSON() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrintToken(t *testing.T) {
	token := &gcontacts.Token{AccessToken: "abc123", TokenType: "Bearer"}

	var buf bytes.Buffer
	if err := printToken(&buf, token, "text"); err != nil {
		t.Fatalf("printToken() error = %v", err)
	}
	if buf.String() != "abc123\n" {
		t.Errorf("printToken(text) = %q, want %q", buf.String(), "abc123\n")
	}

	buf.Reset()
	if err := printToken(&buf, token, "json"); err != nil {
		t.Fatalf("printToken() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"access_token":"abc123"`) {
		t.Errorf("printToken(json) = %q, should contain the access token", buf.String())
	}
}

func TestNewClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer from-config" {
			t.Errorf("Authorization = %q, want Bearer from-config", got)
		}
		_, _ = w.Write([]byte(`{"feed":{"entry":[{"title":{"$t":"A"},"gd$email":[{"address":"a@x.com"}]}]}}`))
	}))
	defer server.Close()

	v := viper.New()
	v.Set("token", "from-config")
	v.Set("base_url", server.URL)

	client, err := newClient(v)
	if err != nil {
		t.Fatalf("newClient() error = %v", err)
	}

	contacts, err := client.Contacts(context.Background(), gcontacts.FeedParams{})
	if err != nil {
		t.Fatalf("Contacts() error = %v", err)
	}
	if len(contacts) != 1 || contacts[0].Email != "a@x.com" {
		t.Errorf("Contacts() = %v", contacts)
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	v := viper.New()
	v.Set("token_url", "://bad")

	if _, err := newClient(v); err == nil {
		t.Error("newClient() should reject an invalid token_url")
	}
}
