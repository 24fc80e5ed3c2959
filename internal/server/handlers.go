package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"newsvault/internal/archive"
	"newsvault/internal/core"
	"newsvault/internal/keys"

	"github.com/go-chi/chi/v5"
)

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Stories int    `json:"stories"`
}

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.archive.Stats()
	if err != nil {
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
		return
	}
	s.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Stories: stats.Stories})
}

// handleList handles the global newest-first list at /.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)

	stories, err := s.archive.ListGlobal(page)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.renderList(w, stories, page, "/")
}

// handlePage handles every remaining path: a story id renders its article
// page, anything else is treated as a tag scope.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	key := strings.Trim(chi.URLParam(r, "*"), "/")
	if key == "" {
		http.NotFound(w, r)
		return
	}

	payload, err := s.archive.GetStory(key)
	if err != nil {
		s.renderError(w, err)
		return
	}
	if payload != nil {
		s.renderArticle(w, core.Story{ID: key, Payload: payload})
		return
	}

	page := parsePage(r)
	stories, err := s.archive.ListByTag(key, page)
	if err != nil {
		if errors.Is(err, keys.ErrInvalidTag) {
			http.NotFound(w, r)
			return
		}
		s.renderError(w, err)
		return
	}
	if len(stories) == 0 && page == 0 {
		s.log.Warn("No such story or tag", "path", key)
		http.NotFound(w, r)
		return
	}
	s.renderList(w, stories, page, "/"+key)
}

func (s *Server) renderList(w http.ResponseWriter, stories []core.Story, page int, urlPath string) {
	view, err := newListView(stories, page, urlPath)
	if err != nil {
		s.renderError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Render(w, "list.html", view); err != nil {
		s.log.Error("Failed to render list", "error", err.Error())
	}
}

func (s *Server) renderArticle(w http.ResponseWriter, story core.Story) {
	view, err := newArticleView(story)
	if err != nil {
		s.renderError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Render(w, "article.html", view); err != nil {
		s.log.Error("Failed to render article", "error", err.Error())
	}
}

// renderError maps archive failures to responses. A consistency violation
// is logged loudly: it means an index entry survived without its story.
func (s *Server) renderError(w http.ResponseWriter, err error) {
	if errors.Is(err, archive.ErrConsistency) {
		s.log.Error("Archive consistency violation", "error", err.Error())
	} else {
		s.log.Error("Request failed", "error", err.Error())
	}
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("Failed to encode response", "error", err.Error())
	}
}

// parsePage reads the page query parameter, clamping to 0 on anything
// invalid or negative.
func parsePage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 0 {
		return 0
	}
	return page
}
