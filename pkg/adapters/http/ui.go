package http

import (
	"context"
	"html/template"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aretw0/synthex/internal/pages"
	"github.com/aretw0/synthex/pkg/domain"
	"github.com/aretw0/synthex/pkg/session"
)

// SessionCookie names the cookie carrying the session ID.
const SessionCookie = "synthex_session"

type navItem struct {
	Href   string
	Label  string
	Active bool
}

type pageData struct {
	Title string
	Page  domain.Page
	Theme domain.Theme
	Nav   []navItem

	// Extractor
	Procedure string
	Outcome   *domain.Outcome

	// Settings
	HasCredential bool
	Notice        string

	// Static pages
	Body template.HTML
}

var pageTitles = map[domain.Page]string{
	domain.PageExtractor: "Extractor",
	domain.PageAbout:     "About",
	domain.PageContact:   "Contact",
	domain.PageDocs:      "Docs",
	domain.PageSettings:  "Settings",
}

func navFor(active domain.Page) []navItem {
	items := make([]navItem, 0, len(domain.Pages))
	for _, p := range domain.Pages {
		items = append(items, navItem{
			Href:   "/" + string(p),
			Label:  pageTitles[p],
			Active: p == active,
		})
	}
	return items
}

// sessionID returns the ID from the session cookie, issuing a new one when
// the cookie is missing or malformed.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// visit records page as the current view of the caller's session.
func (s *Server) visit(ctx context.Context, w http.ResponseWriter, r *http.Request, page domain.Page) (*domain.Session, error) {
	id := s.sessionID(w, r)
	return s.Sessions.Update(ctx, id, func(sess *domain.Session) error {
		sess.Page = page
		return nil
	})
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	data.Title = pageTitles[data.Page]
	data.Nav = navFor(data.Page)

	var buf strings.Builder
	if err := layout.Execute(&buf, data); err != nil {
		s.logger.Error("Template render failed", "page", data.Page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func (s *Server) sessionFailed(w http.ResponseWriter, err error) {
	s.logger.Error("Session store failed", "error", err)
	http.Error(w, "Session unavailable", http.StatusServiceUnavailable)
}

// GetExtractor handles GET / and GET /extractor.
func (s *Server) GetExtractor(w http.ResponseWriter, r *http.Request) {
	sess, err := s.visit(r.Context(), w, r, domain.PageExtractor)
	if err != nil {
		s.sessionFailed(w, err)
		return
	}
	s.render(w, http.StatusOK, pageData{Page: domain.PageExtractor, Theme: sess.Theme})
}

// PostExtract handles the extractor form submission.
func (s *Server) PostExtract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	// The text goes to the service exactly as typed.
	text := r.PostForm.Get("procedure")

	sess, err := s.visit(r.Context(), w, r, domain.PageExtractor)
	if err != nil {
		s.sessionFailed(w, err)
		return
	}

	outcome, err := s.submit(r.Context(), sess.ID, text)
	if err != nil {
		s.sessionFailed(w, err)
		return
	}

	s.render(w, http.StatusOK, pageData{
		Page:      domain.PageExtractor,
		Theme:     sess.Theme,
		Procedure: text,
		Outcome:   &outcome,
	})
}

func (s *Server) staticPage(page domain.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := pages.HTML(page)
		if err != nil {
			s.logger.Error("Static page unavailable", "page", page, "error", err)
			http.NotFound(w, r)
			return
		}
		sess, err := s.visit(r.Context(), w, r, page)
		if err != nil {
			s.sessionFailed(w, err)
			return
		}
		s.render(w, http.StatusOK, pageData{Page: page, Theme: sess.Theme, Body: body})
	}
}

// GetSettings handles GET /settings.
func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	sess, err := s.visit(r.Context(), w, r, domain.PageSettings)
	if err != nil {
		s.sessionFailed(w, err)
		return
	}
	s.render(w, http.StatusOK, pageData{
		Page:          domain.PageSettings,
		Theme:         sess.Theme,
		HasCredential: !sess.Credential.IsZero(),
	})
}

// PostSettings updates the theme and the session credential.
// An empty api_key keeps the current credential.
func (s *Server) PostSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	id := s.sessionID(w, r)
	sess, err := s.Sessions.Update(r.Context(), id, func(sess *domain.Session) error {
		sess.Page = domain.PageSettings
		if theme := r.PostForm.Get("theme"); theme != "" {
			sess.Theme = domain.ParseTheme(theme)
		}
		switch {
		case r.PostForm.Get("clear_key") != "":
			sess.Credential = ""
		case strings.TrimSpace(r.PostForm.Get("api_key")) != "":
			sess.Credential = domain.Credential(strings.TrimSpace(r.PostForm.Get("api_key")))
		}
		return nil
	})
	if err != nil {
		s.sessionFailed(w, err)
		return
	}

	s.logger.Info("Settings updated", "session_id", id, "theme", sess.Theme, "has_credential", !sess.Credential.IsZero())
	s.render(w, http.StatusOK, pageData{
		Page:          domain.PageSettings,
		Theme:         sess.Theme,
		HasCredential: !sess.Credential.IsZero(),
		Notice:        "Settings saved.",
	})
}
