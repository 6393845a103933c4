package domain

import (
	"strings"
	"time"
)

// Page identifies one of the views a session can be looking at.
type Page string

const (
	PageExtractor Page = "extractor"
	PageAbout     Page = "about"
	PageContact   Page = "contact"
	PageDocs      Page = "docs"
	PageSettings  Page = "settings"
)

// Pages lists the navigable views in menu order.
var Pages = []Page{PageExtractor, PageAbout, PageContact, PageDocs, PageSettings}

// Theme is the presentation theme selected by the user.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme normalises user input, falling back to ThemeLight.
func ParseTheme(s string) Theme {
	if Theme(strings.ToLower(strings.TrimSpace(s))) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// SessionStatus tracks the submission lifecycle: idle -> calling -> idle.
type SessionStatus string

const (
	StatusIdle    SessionStatus = "idle"
	StatusCalling SessionStatus = "calling"
)

// Session is the ambient UI context owned by a single interactive user.
type Session struct {
	ID          string        `json:"id"`
	Page        Page          `json:"page"`
	Theme       Theme         `json:"theme"`
	Credential  Credential    `json:"credential,omitempty"`
	Status      SessionStatus `json:"status"`
	LastOutcome *Outcome      `json:"last_outcome,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewSession creates an idle session on the extractor page.
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Page:      PageExtractor,
		Theme:     ThemeLight,
		Status:    StatusIdle,
		UpdatedAt: time.Now().UTC(),
	}
}

// Snapshot returns a copy that shares no mutable memory with s.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.LastOutcome != nil {
		o := *s.LastOutcome
		o.Steps = append([]Step(nil), s.LastOutcome.Steps...)
		cp.LastOutcome = &o
	}
	return &cp
}

// Touch records a modification.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now().UTC()
}
