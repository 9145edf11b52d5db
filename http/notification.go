package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"chirper/auth"
	"chirper/errs"
	"chirper/pagination"
)

func (s *Server) registerNotificationRoutes(r *mux.Router) {
	r.HandleFunc("/notifications", s.requireAuth(s.handleListNotifications)).Methods("GET")
	r.HandleFunc("/notifications/unread-count", s.requireAuth(s.handleUnreadCount)).Methods("GET")
	r.HandleFunc("/notifications/mark-all-read", s.requireAuth(s.handleMarkAllRead)).Methods("POST")
	r.HandleFunc("/notifications/{id:[0-9]+}", s.requireAuth(s.handleMarkNotification)).Methods("PUT")
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	req := pagination.ParsePageRequest(r.URL.Query())

	page, err := s.ns.ByRecipient(r.Context(), user.ID, req)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(&page); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	count, err := s.ns.UnreadCount(r.Context(), user.ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	response := map[string]int64{"unread_count": count}
	if err := json.NewEncoder(w).Encode(&response); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	updated, err := s.ns.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	response := map[string]int64{"marked_as_read": updated}
	if err := json.NewEncoder(w).Encode(&response); err != nil {
		errs.LogError(r, err)
	}
}

func (s *Server) handleMarkNotification(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	var body struct {
		Unread bool `json:"unread"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errs.ReturnError(w, r, errs.Errorf(errs.EINVALID, "Invalid JSON body."))
		return
	}

	user := auth.GetUser(r.Context())
	notification, err := s.ns.MarkRead(r.Context(), user.ID, id, body.Unread)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}
	if err := json.NewEncoder(w).Encode(notification); err != nil {
		errs.LogError(r, err)
	}
}
