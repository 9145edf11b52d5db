package main

import (
	"flag"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"chirper/crud"
	"chirper/http"
)

// main is the app's entry point. The same binary runs either the http server
// or, with -worker, the task queue worker processing fanout batches.
func main() {
	productionBool := flag.Bool("prod", false, "Provide this flag in production to ensure that a .config.json file is provided before the application starts.")
	workerBool := flag.Bool("worker", false, "Run the task queue worker instead of the http server.")
	flag.Parse()

	config := LoadConfig(*productionBool)

	logger, err := newLogger(config.IsProd())
	must(err)
	defer logger.Sync()

	// Open a database connection and execute migrations.
	db := NewDB(config.Database.ConnectionInfo())
	must(Open(db, config.IsProd()))
	defer Close(db)
	must(AutoMigrate(db))

	// Both the cache store and the task queue live on the same redis.
	store := NewCacheStore(config.Redis)
	queue := NewQueueClient(config.Redis)
	defer queue.Close()

	// Start the crud services. Configs with dependencies on other services
	// come after the services they need.
	services, err := crud.NewServices(
		db.Gorm,
		store,
		logger,
		crud.WithUser(config.Pepper, config.HMACKey),
		crud.WithFollow(),
		crud.WithNewsFeed(),
		crud.WithFanout(queue),
		crud.WithTweet(),
		crud.WithNotification(),
		crud.WithComment(),
		crud.WithLike(),
	)
	must(err)

	if *workerBool {
		runWorker(config, services, logger)
		return
	}

	// Set up a webserver and serve the app.
	server := http.NewServer(services, logger)
	must(server.Run(config.Port))
}

// runWorker consumes fanout batch tasks until the process is stopped.
func runWorker(config Config, services *crud.Services, logger *zap.Logger) {
	srv := NewQueueServer(config.Redis)
	mux := asynq.NewServeMux()
	services.Fanout.RegisterHandlers(mux)

	logger.Info("task queue worker starting", zap.String("redis", config.Redis.Addr))
	must(srv.Run(mux))
}

func newLogger(isProd bool) (*zap.Logger, error) {
	if isProd {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// must is a little helper for shortening the panic instruction.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
