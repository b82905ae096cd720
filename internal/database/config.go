package database

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DatabaseConfig holds the parameters of one named connection
type DatabaseConfig struct {
	Host     string        `mapstructure:"host" yaml:"host"`
	Port     int           `mapstructure:"port" yaml:"port"`
	Username string        `mapstructure:"username" yaml:"username"`
	Password string        `mapstructure:"password" yaml:"password"`
	Database string        `mapstructure:"database" yaml:"database"`
	Socket   string        `mapstructure:"socket" yaml:"socket,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Validate checks if the database configuration has all required parameters
func (dc *DatabaseConfig) Validate() error {
	var errs []error

	if dc.Host == "" && dc.Socket == "" {
		errs = append(errs, errors.New("host or socket is required"))
	}

	if dc.Socket == "" && (dc.Port <= 0 || dc.Port > 65535) {
		errs = append(errs, errors.New("port must be between 1 and 65535"))
	}

	if dc.Username == "" {
		errs = append(errs, errors.New("username is required"))
	}

	if dc.Database == "" {
		errs = append(errs, errors.New("database name is required"))
	}

	if dc.Timeout <= 0 {
		dc.Timeout = 30 * time.Second
	}

	if len(errs) > 0 {
		return fmt.Errorf("database configuration validation failed: %v", errs)
	}

	return nil
}

// SetDefaults fills in the port and timeout when they are not configured
func (dc *DatabaseConfig) SetDefaults() {
	if dc.Port == 0 {
		dc.Port = 3306
	}
	if dc.Timeout == 0 {
		dc.Timeout = 30 * time.Second
	}
}

// Address returns host:port, or the socket path for unix connections
func (dc *DatabaseConfig) Address() string {
	if dc.Socket != "" {
		return dc.Socket
	}
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

// DSN returns the Data Source Name for MySQL connection.
// Temporal values are read as text so zero dates survive the round trip.
func (dc *DatabaseConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = dc.Username
	cfg.Passwd = dc.Password
	cfg.DBName = dc.Database
	cfg.Timeout = dc.Timeout
	cfg.ParseTime = false
	if dc.Socket != "" {
		cfg.Net = "unix"
	} else {
		cfg.Net = "tcp"
	}
	cfg.Addr = dc.Address()
	return cfg.FormatDSN()
}
