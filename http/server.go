// Package http provides the routing, request handling and middleware of the
// app. Handlers authenticate and authorize requests, then hand things over
// to one of the application services.
package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"chirper/auth"
	"chirper/crud"
	"chirper/domain"
	"chirper/errs"
)

// Server provides most of the http functionality of this app, namely routing,
// request handling, and middleware. It also performs authentication and
// authorization before handing things over to one of the database services.
type Server struct {
	router *mux.Router
	logger *zap.Logger

	us  domain.UserService
	ts  domain.TweetService
	cs  domain.CommentService
	ls  domain.LikeService
	fs  domain.FollowService
	nfs domain.NewsFeedService
	ns  domain.NotificationService
}

// NewServer returns a new instance of the server, registers all necessary
// routes and gives their handlers access to the app services passed in.
func NewServer(services *crud.Services, logger *zap.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
		us:     services.User,
		ts:     services.Tweet,
		cs:     services.Comment,
		ls:     services.Like,
		fs:     services.Follow,
		nfs:    services.NewsFeed,
		ns:     services.Notification,
	}

	// Register routes of the auth system.
	s.registerAuthRoutes(s.router)

	// Register routes of the crud system.
	s.registerUserRoutes(s.router)
	s.registerTweetRoutes(s.router)
	s.registerCommentRoutes(s.router)
	s.registerLikeRoutes(s.router)
	s.registerFollowRoutes(s.router)
	s.registerNewsFeedRoutes(s.router)
	s.registerNotificationRoutes(s.router)

	// Set up middleware that needs to run on every request.
	s.router.Use(setContentTypeJSON, s.authUser)
	return s
}

// The setContentTypeJSON middleware sets the content type to "application/json".
func setContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// The authUser middleware resolves the remember_token cookie to a user and
// puts it into the request context. Requests without a valid session pass
// through anonymously; requireAuth decides per route whether that's allowed.
func (s *Server) authUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("remember_token")
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		user, err := s.us.ByRemember(r.Context(), cookie.Value)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		r = r.WithContext(auth.SetUser(r.Context(), user))
		next.ServeHTTP(w, r)
	})
}

// requireAuth rejects requests that carry no authenticated user.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			errs.ReturnError(w, r, errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in."))
			return
		}
		next.ServeHTTP(w, r)
	}
}

// parseID reads a numeric route variable.
func parseID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		return 0, errs.Errorf(errs.EINVALID, "Invalid Id format.")
	}
	return id, nil
}

// Run starts to listen and serve on the specified port.
func (s *Server) Run(port int) error {
	addr := ":" + strconv.Itoa(port)
	s.logger.Info("http server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.router)
}

// Router exposes the underlying router, mainly so tests can drive the server
// through httptest.
func (s *Server) Router() http.Handler {
	return s.router
}
