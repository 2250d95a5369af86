package models

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestAccountName(t *testing.T) {
	tests := []struct {
		name     string
		account  *Account
		expected string
	}{
		{"first name", &Account{FirstName: "Ana", DisplayName: "ana_d", Email: "a@x.io"}, "Ana"},
		{"display name", &Account{DisplayName: "ana_d", Email: "a@x.io"}, "ana_d"},
		{"email", &Account{FirstName: "  ", Email: "a@x.io"}, "a@x.io"},
		{"nothing", &Account{ID: "u1"}, UnknownName},
		{"nil", nil, UnknownName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.account.Name(); got != tt.expected {
				t.Errorf("Name() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseVisibility(t *testing.T) {
	tests := []struct {
		in       string
		expected Visibility
	}{
		{"public", VisibilityPublic},
		{"Private", VisibilityPrivate},
		{"friends", VisibilityFriends},
		{"", VisibilityPublic},
		{"everyone", VisibilityPublic},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseVisibility(tt.in); got != tt.expected {
				t.Errorf("ParseVisibility(%q) = %q, want %q", tt.in, got, tt.expected)
			}
		})
	}
}

func TestRenderMessage(t *testing.T) {
	if got := RenderMessage(NotifyNewPost, "Bea", "Launch"); got != "Bea published: Launch" {
		t.Errorf("new_post message = %q", got)
	}
	if got := RenderMessage(NotifyLike, "Bea", "Launch"); got != "Bea liked your post: Launch" {
		t.Errorf("like message = %q", got)
	}
}

func TestEdgeListHas(t *testing.T) {
	list := NewEdgeList("u1",
		map[string]time.Time{"u3": {}, "u2": {}},
		map[string]time.Time{"u4": {}})

	if !list.Has(EdgeFollowing, "u2") || !list.Has(EdgeFollowing, "u3") {
		t.Errorf("Following = %v", list.Following)
	}
	if list.Has(EdgeFollowing, "u4") {
		t.Error("sides are mixed up")
	}
	if !list.Has(EdgeFollowers, "u4") {
		t.Errorf("Followers = %v", list.Followers)
	}

	var absent *EdgeList
	if absent.Has(EdgeFollowing, "u2") {
		t.Error("absent record reports a member")
	}
}

func TestEdgeListFollowersAsOf(t *testing.T) {
	published := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	list := NewEdgeList("u1", nil, map[string]time.Time{
		"early":   published.Add(-time.Hour),
		"same":    published,
		"late":    published.Add(time.Minute),
		"untimed": {},
	})

	tests := []struct {
		name string
		at   time.Time
		want []string
	}{
		{"at publish", published, []string{"early", "same", "untimed"}},
		{"before everything", published.Add(-2 * time.Hour), []string{"untimed"}},
		{"after everything", published.Add(time.Hour), []string{"early", "late", "same", "untimed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := list.FollowersAsOf(tt.at); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FollowersAsOf() = %v, want %v", got, tt.want)
			}
		})
	}

	var absent *EdgeList
	if got := absent.FollowersAsOf(published); got != nil {
		t.Errorf("absent record = %v", got)
	}
}

func TestValidatePostText(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		body    string
		wantErr bool
	}{
		{"ok", "Launch", "We shipped.", false},
		{"blank title", "  ", "body", true},
		{"blank body", "title", "", true},
		{"title at limit", strings.Repeat("é", MaxTitleLength), "b", false},
		{"title too long", strings.Repeat("a", MaxTitleLength+1), "b", true},
		{"body too long", "t", strings.Repeat("a", MaxBodyLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePostText(tt.title, tt.body)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidatePostText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error %v does not wrap ErrInvalidInput", err)
			}
		})
	}
}

func TestPostClone(t *testing.T) {
	p := &Post{ID: "p1", Likes: []string{"a"}}
	c := p.Clone()
	c.Likes[0] = "b"
	if p.Likes[0] != "a" {
		t.Error("Clone shares the likes slice")
	}
	if !p.LikedBy("a") || p.DislikedBy("a") {
		t.Error("LikedBy/DislikedBy mismatch")
	}
}
