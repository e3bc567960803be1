package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xomify/xomify/store"
	"github.com/xomify/xomify/types"
)

// userView is the public projection of a user. The refresh token never
// leaves the store.
type userView struct {
	Email              string `json:"email"`
	UserID             string `json:"userId"`
	Active             bool   `json:"active"`
	ActiveWrapped      bool   `json:"activeWrapped"`
	ActiveReleaseRadar bool   `json:"activeReleaseRadar"`
	ReleaseRadarID     string `json:"releaseRadarId,omitempty"`
}

func viewOf(u types.User) userView {
	return userView{
		Email:              u.Email,
		UserID:             u.UserID,
		Active:             u.Active,
		ActiveWrapped:      u.ActiveWrapped,
		ActiveReleaseRadar: u.ActiveReleaseRadar,
		ReleaseRadarID:     u.ReleaseRadarID,
	}
}

func emailParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "email"))
}

func (s *Server) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewOf(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": views})
}

func (s *Server) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)
	if email == "" {
		writeError(w, http.StatusBadRequest, errBadRequest, "email is required")
		return
	}
	user, err := s.store.GetUser(r.Context(), email)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(user))
}

// userUpdate is the enrollment write payload. Absent fields keep their
// stored values, so toggles and token rotation are independent calls.
type userUpdate struct {
	UserID             *string `json:"userId"`
	RefreshToken       *string `json:"refreshToken"`
	Active             *bool   `json:"active"`
	ActiveWrapped      *bool   `json:"activeWrapped"`
	ActiveReleaseRadar *bool   `json:"activeReleaseRadar"`
}

// HandlePutUser upserts a user's enrollment record.
func (s *Server) HandlePutUser(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)
	if email == "" {
		writeError(w, http.StatusBadRequest, errBadRequest, "email is required")
		return
	}

	var update userUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, errBadRequest, "invalid JSON body")
		return
	}

	user, err := s.store.GetUser(r.Context(), email)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		user = types.User{Email: email}
	default:
		writeStoreError(w, err)
		return
	}

	if update.UserID != nil {
		user.UserID = *update.UserID
	}
	if update.RefreshToken != nil {
		user.RefreshToken = *update.RefreshToken
	}
	if update.Active != nil {
		user.Active = *update.Active
	}
	if update.ActiveWrapped != nil {
		user.ActiveWrapped = *update.ActiveWrapped
	}
	if update.ActiveReleaseRadar != nil {
		user.ActiveReleaseRadar = *update.ActiveReleaseRadar
	}

	if err := s.store.PutUser(r.Context(), user); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(user))
}

func (s *Server) HandleListWrapped(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)
	if email == "" {
		writeError(w, http.StatusBadRequest, errBadRequest, "email is required")
		return
	}
	records, err := s.store.ListWrapped(r.Context(), email)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	// ?year=YYYY narrows the history to one calendar year.
	if year := r.URL.Query().Get("year"); year != "" {
		filtered := records[:0]
		for _, rec := range records {
			if strings.HasPrefix(rec.MonthKey, year+"-") {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) HandleGetWrapped(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)
	monthKey := chi.URLParam(r, "monthKey")
	if email == "" || monthKey == "" {
		writeError(w, http.StatusBadRequest, errBadRequest, "email and monthKey are required")
		return
	}
	record, err := s.store.GetWrapped(r.Context(), email, monthKey)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) HandleListReleaseWeeks(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)
	if email == "" {
		writeError(w, http.StatusBadRequest, errBadRequest, "email is required")
		return
	}
	records, err := s.store.ListReleaseWeeks(r.Context(), email)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) HandleGetReleaseWeek(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)
	weekKey := chi.URLParam(r, "weekKey")
	if email == "" || weekKey == "" {
		writeError(w, http.StatusBadRequest, errBadRequest, "email and weekKey are required")
		return
	}
	record, err := s.store.GetReleaseWeek(r.Context(), email, weekKey)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// HandleCheckReleaseWeek reports whether a week record exists without
// returning its contents. Schedulers use it to skip redundant runs.
func (s *Server) HandleCheckReleaseWeek(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)
	weekKey := chi.URLParam(r, "weekKey")
	if email == "" || weekKey == "" {
		writeError(w, http.StatusBadRequest, errBadRequest, "email and weekKey are required")
		return
	}
	_, err := s.store.GetReleaseWeek(r.Context(), email, weekKey)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"exists": true})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusOK, map[string]bool{"exists": false})
	default:
		writeStoreError(w, err)
	}
}
