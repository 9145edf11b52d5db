package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"chirper/auth"
	"chirper/domain"
	"chirper/errs"
	"chirper/pagination"
)

func (s *Server) registerFollowRoutes(r *mux.Router) {
	r.HandleFunc("/follow/{followed_id:[0-9]+}", s.requireAuth(s.handleCreateFollow)).Methods("POST")
	r.HandleFunc("/unfollow/{followed_id:[0-9]+}", s.requireAuth(s.handleDeleteFollow)).Methods("DELETE")
	r.HandleFunc("/followers/{user_id:[0-9]+}", s.handleListFollowers).Methods("GET")
	r.HandleFunc("/followings/{user_id:[0-9]+}", s.handleListFollowings).Methods("GET")
}

func (s *Server) handleCreateFollow(w http.ResponseWriter, r *http.Request) {
	followedID, err := parseID(r, "followed_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user := auth.GetUser(r.Context())
	follow := domain.Follow{FollowerID: user.ID, FollowedID: followedID}

	if err := s.fs.Create(r.Context(), &follow); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(&follow); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleDeleteFollow(w http.ResponseWriter, r *http.Request) {
	followedID, err := parseID(r, "followed_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user := auth.GetUser(r.Context())
	follow := domain.Follow{FollowerID: user.ID, FollowedID: followedID}

	if err := s.fs.Delete(r.Context(), &follow); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	response := map[string]string{"message": "unfollowed"}
	if err := json.NewEncoder(w).Encode(&response); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleListFollowers(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	req := pagination.ParsePageRequest(r.URL.Query())
	page, err := s.fs.FollowersPage(r.Context(), userID, req)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(&page); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleListFollowings(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "user_id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	req := pagination.ParsePageRequest(r.URL.Query())
	page, err := s.fs.FollowingsPage(r.Context(), userID, req)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(&page); err != nil {
		errs.LogError(r, err)
	}
}
