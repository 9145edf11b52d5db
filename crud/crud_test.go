package crud

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chirper/cache"
	"chirper/domain"
	"chirper/fanout"
)

// inlineEnqueuer stands in for the asynq client and runs every batch task
// synchronously, so fanout outcomes can be asserted right after publishing.
type inlineEnqueuer struct {
	engine *fanout.Engine
	tasks  int
}

func (e *inlineEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	e.tasks++
	if err := e.engine.HandleBatchTask(ctx, task); err != nil {
		return nil, err
	}
	return &asynq.TaskInfo{}, nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		domain.User{},
		domain.Profile{},
		domain.Tweet{},
		domain.Comment{},
		domain.Like{},
		domain.Follow{},
		domain.NewsFeed{},
		domain.Notification{},
	))
	return db
}

func testServices(t *testing.T) (*Services, *inlineEnqueuer) {
	t.Helper()
	queue := &inlineEnqueuer{}
	services, err := NewServices(
		testDB(t),
		cache.NewMemoryStore(),
		zap.NewNop(),
		WithUser("test-pepper", "test-hmac-key"),
		WithFollow(),
		WithNewsFeed(),
		WithFanout(queue),
		WithTweet(),
		WithNotification(),
		WithComment(),
		WithLike(),
	)
	require.NoError(t, err)
	queue.engine = services.Fanout
	return services, queue
}

func createUser(t *testing.T, s *Services, email string) *domain.User {
	t.Helper()
	user := &domain.User{Name: "Test User", Email: email, Password: "password123"}
	require.NoError(t, s.User.Create(context.Background(), user))
	return user
}

// seedUser inserts a user row directly, skipping the bcrypt work, for tests
// that need many users.
func seedUser(t *testing.T, s *Services, i int) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:         fmt.Sprintf("Seed User %d", i),
		Email:        fmt.Sprintf("seed%d@example.com", i),
		PasswordHash: "not-a-real-hash",
		RememberHash: fmt.Sprintf("seed-remember-%d", i),
	}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

func createTweet(t *testing.T, s *Services, userID int, content string) *domain.Tweet {
	t.Helper()
	tweet := &domain.Tweet{UserID: userID, Content: content}
	require.NoError(t, s.Tweet.Create(context.Background(), tweet))
	return tweet
}
