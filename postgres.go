package main

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chirper/domain"
)

// DB provides the database connection.
type DB struct {
	// Object-relational mapping.
	Gorm *gorm.DB
	// Connection info string containing database name, user, port etc.
	ConnectionInfo string
}

// NewDB returns a new instance of DB.
func NewDB(connectionInfo string) *DB {
	return &DB{
		ConnectionInfo: connectionInfo,
	}
}

// Open opens a new database connection. It also configures logging based on
// whether we're in development or in production. Driver errors are
// translated so that uniqueness violations surface as gorm.ErrDuplicatedKey,
// which the services rely on for idempotent likes, follows and feed entries.
func Open(db *DB, isProd bool) (err error) {
	if db.ConnectionInfo == "" {
		return fmt.Errorf("connectionInfo required")
	}
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
	if !isProd {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db.Gorm, err = gorm.Open(postgres.Open(db.ConnectionInfo), cfg)
	if err != nil {
		return fmt.Errorf("err opening gorm postgres connection: %w", err)
	}
	return nil
}

// AutoMigrate runs database migrations for all tables.
func AutoMigrate(db *DB) error {
	return db.Gorm.AutoMigrate(
		domain.User{},
		domain.Profile{},
		domain.Tweet{},
		domain.Comment{},
		domain.Like{},
		domain.Follow{},
		domain.NewsFeed{},
		domain.Notification{},
	)
}

// DestructiveReset drops all tables and rebuilds them.
func DestructiveReset(db *DB) error {
	err := db.Gorm.Migrator().DropTable(
		domain.User{},
		domain.Profile{},
		domain.Tweet{},
		domain.Comment{},
		domain.Like{},
		domain.Follow{},
		domain.NewsFeed{},
		domain.Notification{},
	)
	if err != nil {
		return err
	}
	return AutoMigrate(db)
}

// Close closes the database connection.
func Close(db *DB) error {
	sqlDb, _ := db.Gorm.DB()
	return sqlDb.Close()
}
