package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"chirper/auth"
	"chirper/domain"
	"chirper/errs"
)

func (s *Server) registerAuthRoutes(r *mux.Router) {
	r.HandleFunc("/register", s.handleRegister).Methods("POST")
	r.HandleFunc("/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/logout", s.requireAuth(s.handleLogout)).Methods("POST")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var user domain.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid JSON body."))
		return
	}
	if err := s.us.Create(r.Context(), &user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	s.setRememberCookie(w, user.Remember)

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(&user); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid JSON body."))
		return
	}
	user, err := s.us.Authenticate(r.Context(), creds.Email, creds.Password)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	// A fresh token per login keeps stolen cookies short-lived.
	if err := s.us.RotateRemember(r.Context(), user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	s.setRememberCookie(w, user.Remember)

	if err := json.NewEncoder(w).Encode(&user); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	// Rotating the stored hash invalidates the cookie on every device.
	if err := s.us.RotateRemember(r.Context(), user); err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "remember_token",
		Value:    "",
		Expires:  time.Now(),
		HttpOnly: true,
	})

	response := map[string]string{"message": "successfully logged out"}
	if err := json.NewEncoder(w).Encode(&response); err != nil {
		errs.LogError(r, err)
	}
}

// setRememberCookie hands the raw remember token to the client. Only its
// hash ever touches the database.
func (s *Server) setRememberCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "remember_token",
		Value:    token,
		HttpOnly: true,
	})
}
