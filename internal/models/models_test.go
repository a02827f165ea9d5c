package models

import (
	"testing"
	"time"
)

func TestPage(t *testing.T) {
	tc := []struct {
		name     string
		page     Page[Track]
		wantNext bool
		wantOff  int
	}{
		{name: "first of two", page: Page[Track]{Items: make([]Track, 10), Total: 15, Limit: 10}, wantNext: true, wantOff: 10},
		{name: "last page", page: Page[Track]{Items: make([]Track, 5), Total: 15, Limit: 10, Offset: 10}, wantNext: false, wantOff: 15},
		{name: "empty", page: Page[Track]{}, wantNext: false, wantOff: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.HasNext(); got != tt.wantNext {
				t.Errorf("HasNext() = %v, want %v", got, tt.wantNext)
			}
			if got := tt.page.NextOffset(); got != tt.wantOff {
				t.Errorf("NextOffset() = %v, want %v", got, tt.wantOff)
			}
		})
	}
}

func TestSession(t *testing.T) {
	if (Session{}).Authenticated() {
		t.Error("empty session should not be authenticated")
	}
	if (Session{AccessToken: "tok"}).Authenticated() {
		t.Error("session without user should not be authenticated")
	}
	if !(Session{AccessToken: "tok", User: &User{ID: "u1"}}).Authenticated() {
		t.Error("full session should be authenticated")
	}
}

func TestTrack(t *testing.T) {
	tr := Track{Title: "Orbit", ArtistName: "Loma", DurationSeconds: 185}
	if tr.Duration() != 185*time.Second {
		t.Errorf("Duration() = %v", tr.Duration())
	}
	if tr.String() != "Loma - Orbit" {
		t.Errorf("String() = %q", tr.String())
	}
	if (Track{Title: "Solo"}).String() != "Solo" {
		t.Error("String() without artist should be the title")
	}
}
