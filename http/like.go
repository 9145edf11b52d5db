package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"chirper/auth"
	"chirper/domain"
	"chirper/errs"
)

func (s *Server) registerLikeRoutes(r *mux.Router) {
	r.HandleFunc("/like", s.requireAuth(s.handleCreateLike)).Methods("POST")
	r.HandleFunc("/like", s.requireAuth(s.handleDeleteLike)).Methods("DELETE")
}

func (s *Server) handleCreateLike(w http.ResponseWriter, r *http.Request) {
	like, err := s.likeFromRequest(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.ls.Create(r.Context(), like); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(like); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleDeleteLike(w http.ResponseWriter, r *http.Request) {
	like, err := s.likeFromRequest(r)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := s.ls.Delete(r.Context(), like); err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	response := map[string]string{"message": "unliked"}
	if err := json.NewEncoder(w).Encode(&response); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) likeFromRequest(r *http.Request) (*domain.Like, error) {
	var like domain.Like
	if err := json.NewDecoder(r.Body).Decode(&like); err != nil {
		return nil, errs.Errorf(errs.EINVALID, "Invalid JSON body.")
	}
	user := auth.GetUser(r.Context())
	like.UserID = user.ID
	return &like, nil
}
