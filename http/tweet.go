package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"chirper/auth"
	"chirper/domain"
	"chirper/errs"
	"chirper/pagination"
)

func (s *Server) registerTweetRoutes(r *mux.Router) {
	r.HandleFunc("/tweet", s.requireAuth(s.handleCreateTweet)).Methods("POST")
	r.HandleFunc("/tweet/{id:[0-9]+}", s.handleGetTweet).Methods("GET")
	r.HandleFunc("/tweet/{id:[0-9]+}", s.requireAuth(s.handleDeleteTweet)).Methods("DELETE")
	r.HandleFunc("/tweets", s.handleListTweets).Methods("GET")
}

func (s *Server) handleCreateTweet(w http.ResponseWriter, r *http.Request) {
	var tweet domain.Tweet
	if err := json.NewDecoder(r.Body).Decode(&tweet); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid JSON body."))
		return
	}

	user := auth.GetUser(r.Context())
	tweet.UserID = user.ID

	if err := s.ts.Create(r.Context(), &tweet); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(&tweet); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleGetTweet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	tweet, err := s.ts.ByID(r.Context(), id)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(tweet); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleDeleteTweet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user := auth.GetUser(r.Context())
	tweet := domain.Tweet{ID: id, UserID: user.ID}

	if err := s.ts.Delete(r.Context(), &tweet); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	response := map[string]string{"message": "tweet deleted"}
	if err := json.NewEncoder(w).Encode(&response); err != nil {
		errs.LogError(r, err)
	}
}

// handleListTweets serves a user's own tweets as an endless page.
func (s *Server) handleListTweets(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "A user_id query param is required."))
		return
	}
	cur, err := pagination.ParseCursor(r.URL.Query())
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	page, err := s.ts.ByUserID(r.Context(), userID, cur)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(&page); err != nil {
		errs.LogError(r, err)
	}
}
