package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"chirper/auth"
	"chirper/domain"
	"chirper/errs"
)

func (s *Server) registerCommentRoutes(r *mux.Router) {
	r.HandleFunc("/comment", s.requireAuth(s.handleCreateComment)).Methods("POST")
	r.HandleFunc("/comment/{id:[0-9]+}", s.requireAuth(s.handleUpdateComment)).Methods("PUT")
	r.HandleFunc("/comment/{id:[0-9]+}", s.requireAuth(s.handleDeleteComment)).Methods("DELETE")
	r.HandleFunc("/comments", s.handleListComments).Methods("GET")
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var comment domain.Comment
	if err := json.NewDecoder(r.Body).Decode(&comment); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid JSON body."))
		return
	}

	user := auth.GetUser(r.Context())
	comment.UserID = user.ID

	if err := s.cs.Create(r.Context(), &comment); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(&comment); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid JSON body."))
		return
	}

	user := auth.GetUser(r.Context())
	comment, err := s.cs.Update(r.Context(), id, user.ID, body.Content)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(comment); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user := auth.GetUser(r.Context())
	if err := s.cs.Delete(r.Context(), id, user.ID); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	response := map[string]string{"message": "comment deleted"}
	if err := json.NewEncoder(w).Encode(&response); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	tweetID, err := strconv.Atoi(r.URL.Query().Get("tweet_id"))
	if err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "A tweet_id query param is required."))
		return
	}

	comments, err := s.cs.ByTweetID(r.Context(), tweetID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(&comments); err != nil {
		errs.LogError(r, err)
	}
}
