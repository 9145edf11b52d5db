package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"chirper/auth"
	"chirper/domain"
	"chirper/errs"
	"chirper/pagination"
)

func (s *Server) registerNewsFeedRoutes(r *mux.Router) {
	r.HandleFunc("/newsfeed", s.requireAuth(s.handleNewsFeed)).Methods("GET")
}

type feedEntry struct {
	ID        int          `json:"id"`
	Tweet     domain.Tweet `json:"tweet"`
	CreatedAt time.Time    `json:"created_at"`
	HasLiked  bool         `json:"has_liked"`
}

type feedResponse struct {
	Results     []feedEntry `json:"results"`
	HasNextPage bool        `json:"has_next_page"`
}

// handleNewsFeed serves the authed user's feed as an endless page. Each
// entry is annotated with whether the user has liked its tweet.
func (s *Server) handleNewsFeed(w http.ResponseWriter, r *http.Request) {
	cur, err := pagination.ParseCursor(r.URL.Query())
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	user := auth.GetUser(r.Context())
	page, err := s.nfs.FeedPage(r.Context(), user.ID, cur)
	if err != nil {
		errs.ReturnError(w, r, err)
		return
	}

	entries := make([]feedEntry, 0, len(page.Items))
	for _, item := range page.Items {
		hasLiked, err := s.ls.HasLiked(r.Context(), user.ID, domain.LikeTargetTweet, item.TweetID)
		if err != nil {
			errs.ReturnError(w, r, err)
			return
		}
		entries = append(entries, feedEntry{
			ID:        item.ID,
			Tweet:     item.Tweet,
			CreatedAt: item.CreatedAt,
			HasLiked:  hasLiked,
		})
	}

	response := feedResponse{Results: entries, HasNextPage: page.HasNextPage}
	if err := json.NewEncoder(w).Encode(&response); err != nil {
		errs.LogError(r, err)
	}
}
