package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func TestDatabaseConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  DatabaseConfig
		wantErr bool
	}{
		{
			name: "valid config",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				Username: "root",
				Password: "password",
				Database: "shop",
				Timeout:  30 * time.Second,
			},
			wantErr: false,
		},
		{
			name: "socket without host or port",
			config: DatabaseConfig{
				Socket:   "/var/run/mysqld/mysqld.sock",
				Username: "root",
				Database: "shop",
			},
			wantErr: false,
		},
		{
			name: "missing host",
			config: DatabaseConfig{
				Port:     3306,
				Username: "root",
				Database: "shop",
			},
			wantErr: true,
		},
		{
			name: "invalid port",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     70000,
				Username: "root",
				Database: "shop",
			},
			wantErr: true,
		},
		{
			name: "missing username",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				Database: "shop",
			},
			wantErr: true,
		},
		{
			name: "missing database",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				Username: "root",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("DatabaseConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	config := DatabaseConfig{
		Host:     "db.internal",
		Port:     3307,
		Username: "export",
		Password: "p@ss:word",
		Database: "shop",
		Timeout:  10 * time.Second,
	}

	parsed, err := mysql.ParseDSN(config.DSN())
	if err != nil {
		t.Fatalf("ParseDSN() error = %v", err)
	}

	if parsed.Net != "tcp" || parsed.Addr != "db.internal:3307" {
		t.Errorf("Unexpected address %s(%s)", parsed.Net, parsed.Addr)
	}
	if parsed.User != "export" || parsed.Passwd != "p@ss:word" {
		t.Errorf("Unexpected credentials %s/%s", parsed.User, parsed.Passwd)
	}
	if parsed.DBName != "shop" {
		t.Errorf("Expected database shop, got %s", parsed.DBName)
	}
	if parsed.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", parsed.Timeout)
	}
	if parsed.ParseTime {
		t.Error("Expected parseTime to be disabled")
	}
}

func TestDatabaseConfig_SocketDSN(t *testing.T) {
	config := DatabaseConfig{
		Host:     "localhost",
		Socket:   "/tmp/mysql.sock",
		Username: "root",
		Database: "shop",
	}

	parsed, err := mysql.ParseDSN(config.DSN())
	if err != nil {
		t.Fatalf("ParseDSN() error = %v", err)
	}
	if parsed.Net != "unix" || parsed.Addr != "/tmp/mysql.sock" {
		t.Errorf("Expected unix socket address, got %s(%s)", parsed.Net, parsed.Addr)
	}
}

func TestDatabaseConfig_SetDefaults(t *testing.T) {
	config := &DatabaseConfig{}
	config.SetDefaults()

	if config.Port != 3306 {
		t.Errorf("Expected port to be 3306, got %d", config.Port)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Expected timeout to be 30s, got %v", config.Timeout)
	}
	if config.Address() != "localhost:3306" && config.Address() != ":3306" {
		t.Errorf("Unexpected address %s", config.Address())
	}
}
