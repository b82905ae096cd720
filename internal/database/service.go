package database

import (
	"context"
	"database/sql"
	"time"

	"mysql-db-export/internal/errors"
	"mysql-db-export/internal/logging"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// Service opens and verifies connections to the source database
type Service struct {
	connectionTimeout time.Duration
	logger            *logging.Logger
	open              func(driverName, dsn string) (*sql.DB, error)
}

// NewService creates a new database service with default settings
func NewService() *Service {
	return NewServiceWithLogger(logging.NewDefaultLogger())
}

// NewServiceWithLogger creates a new database service with a custom logger
func NewServiceWithLogger(logger *logging.Logger) *Service {
	return &Service{
		connectionTimeout: 30 * time.Second,
		logger:            logger,
		open:              sql.Open,
	}
}

// Connect establishes a connection to the MySQL database. There are no
// retries: a failed connection aborts the export.
func (s *Service) Connect(ctx context.Context, config DatabaseConfig) (*sql.DB, error) {
	startTime := time.Now()

	if err := config.Validate(); err != nil {
		return nil, errors.NewConfigurationError("invalid connection settings", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"address":  config.Address(),
		"database": config.Database,
	}).Debug("Attempting database connection")

	db, err := s.open("mysql", config.DSN())
	if err != nil {
		err = errors.WrapError(err, "failed to open database connection")
		s.logger.LogDatabaseConnection(config.Address(), config.Database, false, time.Since(startTime), err)
		return nil, err
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := s.TestConnection(ctx, db); err != nil {
		db.Close()
		s.logger.LogDatabaseConnection(config.Address(), config.Database, false, time.Since(startTime), err)
		return nil, err
	}

	s.logger.LogDatabaseConnection(config.Address(), config.Database, true, time.Since(startTime), nil)
	return db, nil
}

// TestConnection verifies that the database connection is working
func (s *Service) TestConnection(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.NewDatabaseError("database connection is nil", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.connectionTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return errors.WrapError(err, "failed to ping database")
	}

	s.logger.Debug("Database connection test successful")
	return nil
}

// Close gracefully closes the database connection
func (s *Service) Close(db *sql.DB) error {
	if db == nil {
		return nil
	}

	if err := db.Close(); err != nil {
		s.logger.WithField("error", err.Error()).Error("Failed to close database connection")
		return errors.WrapError(err, "failed to close database connection")
	}

	s.logger.Debug("Database connection closed")
	return nil
}

// GetVersion retrieves the MySQL server version
func (s *Service) GetVersion(ctx context.Context, db *sql.DB) (string, error) {
	if db == nil {
		return "", errors.NewDatabaseError("database connection is nil", nil)
	}

	var version string
	query := "SELECT VERSION()"
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.connectionTimeout)
	defer cancel()

	err := db.QueryRowContext(ctx, query).Scan(&version)
	s.logger.LogSQLExecution(query, time.Since(startTime), 1, err)

	if err != nil {
		return "", errors.WrapError(err, "failed to get database version")
	}

	return version, nil
}
