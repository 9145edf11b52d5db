package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"chirper/auth"
	"chirper/domain"
	"chirper/errs"
)

func (s *Server) registerUserRoutes(r *mux.Router) {
	r.HandleFunc("/profile", s.requireAuth(s.handleProfile)).Methods("GET")
	r.HandleFunc("/profile", s.requireAuth(s.handleUpdateProfile)).Methods("PUT")
	r.HandleFunc("/user/{id:[0-9]+}", s.handleGetUser).Methods("GET")
}

// handleProfile returns the authed user together with their profile.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	profile, err := s.us.CachedProfile(r.Context(), user.ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	response := struct {
		User    *domain.User    `json:"user"`
		Profile *domain.Profile `json:"profile"`
	}{User: user, Profile: profile}

	if err := json.NewEncoder(w).Encode(&response); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd domain.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid JSON body."))
		return
	}

	user := auth.GetUser(r.Context())
	updated, err := s.us.Update(r.Context(), user.ID, &upd)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(updated); err != nil {
		errs.LogError(r, err)
	}
}

// handleGetUser returns a user's public data through the object cache,
// annotated with whether the authed user follows them.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	user, err := s.us.CachedUser(r.Context(), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	profile, err := s.us.CachedProfile(r.Context(), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	hasFollowed := false
	if viewer := auth.GetUser(r.Context()); viewer != nil && viewer.ID != id {
		hasFollowed, err = s.fs.HasFollowed(r.Context(), viewer.ID, id)
		if err != nil {
			errs.ReturnError(w, r, err)
			return
		}
	}

	response := struct {
		User        *domain.User    `json:"user"`
		Profile     *domain.Profile `json:"profile"`
		HasFollowed bool            `json:"has_followed"`
	}{User: user, Profile: profile, HasFollowed: hasFollowed}

	if err := json.NewEncoder(w).Encode(&response); err != nil {
		errs.LogError(r, err)
	}
}
