package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	apperrors "mysql-db-export/internal/errors"
	"mysql-db-export/internal/logging"

	"github.com/DATA-DOG/go-sqlmock"
)

func validConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     "localhost",
		Port:     3306,
		Username: "root",
		Password: "secret",
		Database: "shop",
		Timeout:  time.Second,
	}
}

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	service := NewServiceWithLogger(logging.NewNopLogger())
	service.open = func(driverName, dsn string) (*sql.DB, error) {
		return db, nil
	}
	return service, mock
}

func TestNewService(t *testing.T) {
	service := NewService()
	if service == nil {
		t.Fatal("Expected service to be created")
	}
	if service.connectionTimeout != 30*time.Second {
		t.Errorf("Expected default timeout to be 30s, got %v", service.connectionTimeout)
	}
}

func TestConnect_InvalidConfig(t *testing.T) {
	service := NewServiceWithLogger(logging.NewNopLogger())

	_, err := service.Connect(context.Background(), DatabaseConfig{})
	if !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestConnect_PingSucceeds(t *testing.T) {
	service, mock := newMockService(t)
	mock.ExpectPing()

	db, err := service.Connect(context.Background(), validConfig())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if db == nil {
		t.Fatal("Expected a database handle")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestConnect_PingFails(t *testing.T) {
	service, mock := newMockService(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	_, err := service.Connect(context.Background(), validConfig())
	if err == nil {
		t.Fatal("Expected error when ping fails")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeUnknown) {
		t.Errorf("Expected classified error, got %v", err)
	}
}

func TestTestConnection_NilDB(t *testing.T) {
	service := NewServiceWithLogger(logging.NewNopLogger())

	if err := service.TestConnection(context.Background(), nil); err == nil {
		t.Error("Expected error for nil database connection")
	}
}

func TestClose_NilDB(t *testing.T) {
	service := NewServiceWithLogger(logging.NewNopLogger())

	if err := service.Close(nil); err != nil {
		t.Errorf("Expected no error for closing nil connection, got %v", err)
	}
}

func TestGetVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT VERSION\\(\\)").
		WillReturnRows(sqlmock.NewRows([]string{"VERSION()"}).AddRow("8.0.36"))

	service := NewServiceWithLogger(logging.NewNopLogger())
	version, err := service.GetVersion(context.Background(), db)
	if err != nil {
		t.Fatalf("GetVersion() error = %v", err)
	}
	if version != "8.0.36" {
		t.Errorf("Expected version 8.0.36, got %s", version)
	}

	if _, err := service.GetVersion(context.Background(), nil); err == nil {
		t.Error("Expected error for nil database connection")
	}
}
