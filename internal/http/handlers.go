package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"budgetboard/internal/core"
	"budgetboard/internal/metrics"
	"budgetboard/internal/plugin"
	"budgetboard/internal/view"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	m := s.store.Snapshot()
	type profilePill struct {
		ID     string
		Name   string
		Active bool
	}
	data := struct {
		DarkMode  bool
		Profiles  []profilePill
		Tabs      []string
		ActiveTab string
	}{
		DarkMode:  m.Settings.DarkMode,
		Tabs:      s.dispatcher.Tabs(),
		ActiveTab: view.TabProfiles,
	}
	for _, p := range m.Profiles {
		data.Profiles = append(data.Profiles, profilePill{
			ID:     string(p.ID),
			Name:   p.Name,
			Active: p.ID == m.CurrentProfile,
		})
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleTab renders one tab partial. This is the endpoint the index page hits
// on load and again on every model:changed event.
func (s *Server) handleTab(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	tab := strings.TrimSpace(r.URL.Query().Get("name"))
	if tab == "" {
		tab = view.TabProfiles
	}

	html, err := s.dispatcher.RenderTab(r.Context(), tab)
	if err != nil {
		if errors.Is(err, view.ErrUnknownTab) {
			NotFoundError("Unbekannter Tab").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Tab render failed", "error", err, "tab", tab)
		InternalServerError("Fehler beim Rendern").Write(w)
		return
	}
	metrics.TabRenders.WithLabelValues(tab).Inc()
	_, _ = w.Write([]byte(html))
}

func (s *Server) handleSwitchProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Ungültige Anfrage").Write(w)
		return
	}
	id := core.ProfileID(strings.TrimSpace(r.Form.Get("id")))

	err := s.store.Update(r.Context(), func(m *core.DataModel) error {
		if m.ProfileByID(id) == nil {
			return core.ErrUnknownProfile
		}
		m.CurrentProfile = id
		return nil
	})
	if err != nil {
		if errors.Is(err, core.ErrUnknownProfile) {
			UnprocessableEntityError("Unbekanntes Profil").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Profile switch failed", "error", err, "profile", string(id))
		InternalServerError("Fehler beim Profilwechsel").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerProfileSwitched(string(id)).
		TriggerModelChanged(s.store.Revision()).
		Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Ungültige Anfrage").Write(w)
		return
	}

	goal, err := s.goals.CreateGoal(r.Context(), plugin.CreateGoalInput{
		Name:        sanitizeInput(r.Form.Get("name")),
		Target:      strings.TrimSpace(r.Form.Get("target")),
		Current:     strings.TrimSpace(r.Form.Get("current")),
		Description: sanitizeInput(r.Form.Get("description")),
		Icon:        sanitizeInput(r.Form.Get("icon")),
	})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAmount):
			UnprocessableEntityError("Ungültiger Betrag").Write(w)
		case errors.Is(err, core.ErrEmptyGoalName), errors.Is(err, core.ErrGoalNameTooLong), errors.Is(err, core.ErrGoalTarget):
			UnprocessableEntityError(err.Error()).Write(w)
		default:
			slog.ErrorContext(r.Context(), "Goal creation failed", "error", err)
			InternalServerError("Fehler beim Anlegen des Sparziels").Write(w)
		}
		return
	}

	NewHTMXResponse().
		TriggerGoalCreated(goal.ID).
		TriggerModelChanged(s.store.Revision()).
		TriggerSuccessNotification("Sparziel angelegt: " + goal.Name).
		Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Ungültige Anfrage").Write(w)
		return
	}
	id := strings.TrimSpace(r.Form.Get("id"))
	confirmed := strings.TrimSpace(r.Form.Get("confirm")) == "true"

	err := s.goals.DeleteGoal(r.Context(), id, confirmed)
	if err != nil {
		switch {
		case errors.Is(err, plugin.ErrDeleteNotConfirmed):
			UnprocessableEntityError("Löschen muss bestätigt werden").Write(w)
		case errors.Is(err, core.ErrGoalNotFound):
			NotFoundError("Sparziel nicht gefunden").Write(w)
		default:
			slog.ErrorContext(r.Context(), "Goal deletion failed", "error", err, "goal_id", id)
			InternalServerError("Fehler beim Löschen").Write(w)
		}
		return
	}

	NewHTMXResponse().
		TriggerGoalDeleted(id).
		TriggerModelChanged(s.store.Revision()).
		TriggerSuccessNotification("Sparziel gelöscht").
		Write(w)
}

// handleRecommendations serves the advisor output for the active profile as
// JSON, for clients that want the data without markup.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	m := s.store.Snapshot()
	recs := s.engine.Get(m, m.CurrentProfile, time.Now())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(recs); err != nil {
		slog.ErrorContext(r.Context(), "Recommendations encode failed", "error", err)
	}
}

// handleChartConfig serves the Chart.js config for a slot. 204 means the slot
// has no live chart, e.g. because the profile has no data for it.
func (s *Server) handleChartConfig(w http.ResponseWriter, r *http.Request) {
	slot := r.PathValue("slot")
	body, ok := s.renderer.Config(slot)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	metrics.ChartRenders.WithLabelValues(slot).Inc()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
