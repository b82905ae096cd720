package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// ErrorTypeConfiguration represents caller mistakes: bad rules, unknown profiles or strategies
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeResource represents filesystem problems tied to a path
	ErrorTypeResource ErrorType = "resource"
	// ErrorTypeInsufficientSpace represents a failed disk space preflight
	ErrorTypeInsufficientSpace ErrorType = "insufficient_space"
	// ErrorTypeStrategy represents anonymization backend failures
	ErrorTypeStrategy ErrorType = "strategy"
	// ErrorTypeDatabase represents database connection and query errors
	ErrorTypeDatabase ErrorType = "database"
	// ErrorTypePermission represents permission/access errors
	ErrorTypePermission ErrorType = "permission"
	// ErrorTypeStorage represents a failed artifact upload
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeExport represents a failed export pipeline
	ErrorTypeExport ErrorType = "export"
	// ErrorTypeUnknown represents unknown errors
	ErrorTypeUnknown ErrorType = "unknown"
)

// AppError represents an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewConfigurationError creates an error for invalid user configuration
func NewConfigurationError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeConfiguration, message, cause)
}

// NewResourceError creates an error for a path that cannot be created, read or written
func NewResourceError(message, path string, cause error) *AppError {
	return NewAppError(ErrorTypeResource, fmt.Sprintf("%s: %s", message, path), cause).
		WithContext("path", path)
}

// NewStrategyError creates an error for a failing anonymization strategy
func NewStrategyError(strategy, message string, cause error) *AppError {
	return NewAppError(ErrorTypeStrategy, message, cause).
		WithContext("strategy", strategy)
}

// NewUnknownStrategyError reports a rule referencing a strategy that is not registered
func NewUnknownStrategyError(strategy string) *AppError {
	return NewConfigurationError(fmt.Sprintf("unknown anonymization strategy %q", strategy), nil).
		WithContext("strategy", strategy)
}

// NewMissingOptionError reports a rule without a required option
func NewMissingOptionError(strategy, option string) *AppError {
	return NewConfigurationError(fmt.Sprintf("strategy %q requires the %q option", strategy, option), nil).
		WithContext("strategy", strategy).
		WithContext("option", option)
}

// NewDatabaseError creates an error for failed catalog or row queries
func NewDatabaseError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeDatabase, message, cause)
}

// NewStorageError creates an error for a failed artifact publish
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeStorage, message, cause)
}

// InsufficientSpaceError is raised by the disk preflight before any file is written
type InsufficientSpaceError struct {
	Path      string
	Available int64
	Required  int64
}

// Shortfall returns the missing number of bytes
func (e *InsufficientSpaceError) Shortfall() int64 {
	if e.Required <= e.Available {
		return 0
	}
	return e.Required - e.Available
}

// Error implements the error interface
func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("%s: insufficient disk space at %s: need %.2f MB but only %.2f MB available (shortfall: %.2f MB)",
		ErrorTypeInsufficientSpace, e.Path, toMB(e.Required), toMB(e.Available), toMB(e.Shortfall()))
}

// NewInsufficientSpaceError creates an InsufficientSpaceError
func NewInsufficientSpaceError(path string, available, required int64) *InsufficientSpaceError {
	return &InsufficientSpaceError{Path: path, Available: available, Required: required}
}

// ExportError wraps any failure of the export pipeline together with the elapsed time
type ExportError struct {
	Stage    string
	Duration time.Duration
	Cause    error
}

// Error implements the error interface
func (e *ExportError) Error() string {
	return fmt.Sprintf("%s: export failed at %s after %s: %v", ErrorTypeExport, e.Stage, e.Duration.Round(time.Millisecond), e.Cause)
}

// Unwrap returns the underlying error
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates an ExportError
func NewExportError(stage string, duration time.Duration, cause error) *ExportError {
	return &ExportError{Stage: stage, Duration: duration, Cause: cause}
}

func toMB(bytes int64) float64 {
	return float64(bytes) / 1024 / 1024
}

// ErrorClassifier maps driver and OS errors onto the application taxonomy
type ErrorClassifier struct{}

// NewErrorClassifier creates a new error classifier
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// ClassifyError analyzes an error and returns an AppError with appropriate classification
func (ec *ErrorClassifier) ClassifyError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if mysqlErr := ec.classifyMySQLError(err); mysqlErr != nil {
		return mysqlErr
	}

	if fsErr := ec.classifyFileSystemError(err); fsErr != nil {
		return fsErr
	}

	return NewAppError(ErrorTypeUnknown, "An unexpected error occurred", err)
}

func (ec *ErrorClassifier) classifyMySQLError(err error) *AppError {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1044, 1045:
			return NewAppError(ErrorTypePermission,
				"Database access denied - check username and password", err).
				WithContext("mysql_error_code", mysqlErr.Number)
		case 1049:
			return NewAppError(ErrorTypeConfiguration,
				"Database does not exist", err).
				WithContext("mysql_error_code", mysqlErr.Number)
		case 1146:
			return NewAppError(ErrorTypeDatabase,
				"Table does not exist", err).
				WithContext("mysql_error_code", mysqlErr.Number)
		case 1142:
			return NewAppError(ErrorTypePermission,
				"Missing privilege on table", err).
				WithContext("mysql_error_code", mysqlErr.Number)
		case 2002, 2003:
			return NewAppError(ErrorTypeDatabase,
				"Cannot connect to MySQL server - server may be down or unreachable", err).
				WithContext("mysql_error_code", mysqlErr.Number)
		default:
			return NewAppError(ErrorTypeDatabase,
				fmt.Sprintf("MySQL error: %s", mysqlErr.Message), err).
				WithContext("mysql_error_code", mysqlErr.Number)
		}
	}

	if errors.Is(err, sql.ErrConnDone) {
		return NewAppError(ErrorTypeDatabase, "Database connection is closed", err)
	}

	return nil
}

func (ec *ErrorClassifier) classifyFileSystemError(err error) *AppError {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		switch pathErr.Err {
		case syscall.ENOENT:
			return NewResourceError("File or directory not found", pathErr.Path, err)
		case syscall.EACCES, syscall.EPERM:
			return NewAppError(ErrorTypePermission,
				fmt.Sprintf("Permission denied: %s", pathErr.Path), err).
				WithContext("path", pathErr.Path)
		case syscall.ENOSPC:
			return NewResourceError("No space left on device", pathErr.Path, err)
		default:
			return NewResourceError("File system error", pathErr.Path, err)
		}
	}

	return nil
}

// GetErrorType returns the error type of an error
func GetErrorType(err error) ErrorType {
	var spaceErr *InsufficientSpaceError
	if errors.As(err, &spaceErr) {
		return ErrorTypeInsufficientSpace
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return ErrorTypeExport
	}
	return ErrorTypeUnknown
}

// IsType reports whether any error in the chain has the given type
func IsType(err error, errorType ErrorType) bool {
	for err != nil {
		switch e := err.(type) {
		case *AppError:
			if e.Type == errorType {
				return true
			}
		case *InsufficientSpaceError:
			if errorType == ErrorTypeInsufficientSpace {
				return true
			}
		case *ExportError:
			if errorType == ErrorTypeExport {
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

// WrapError wraps an existing error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return NewAppError(appErr.Type, message, err)
	}

	classifier := NewErrorClassifier()
	classifiedErr := classifier.ClassifyError(err)
	classifiedErr.Message = message
	return classifiedErr
}
