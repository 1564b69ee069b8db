package errors

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ProductionMode hides driver messages (which can carry SQL and values) from Error()
var ProductionMode = os.Getenv("ENV") == "production" || os.Getenv("ENV") == "prod"

// Kind groups error codes into the categories callers branch on
type Kind string

const (
	KindNotFound       Kind = "NotFoundError"
	KindConstraint     Kind = "ConstraintViolation"
	KindValidation     Kind = "ValidationError"
	KindConnection     Kind = "ConnectionError"
	KindInitialization Kind = "InitializationError"
	KindUnknownRequest Kind = "UnknownRequestError"
)

// ClientError is the error type returned by every data-access operation
type ClientError struct {
	Code    string
	Kind    Kind
	Message string
	// Meta carries details such as the model, the operation or the
	// constraint target
	Meta  map[string]any
	cause error
}

func (e *ClientError) Error() string {
	if e.cause != nil && !ProductionMode {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.cause
}

// Is matches by code, or by kind when the target has no code
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	if t.Code == "" {
		return e.Kind == t.Kind
	}
	return e.Code == t.Code
}

var (
	ErrNotFound             = &ClientError{Code: "P2025", Kind: KindNotFound, Message: "Record not found"}
	ErrUniqueConstraint     = &ClientError{Code: "P2002", Kind: KindConstraint, Message: "Unique constraint violation"}
	ErrForeignKeyConstraint = &ClientError{Code: "P2003", Kind: KindConstraint, Message: "Foreign key constraint violation"}
	ErrNullConstraint       = &ClientError{Code: "P2011", Kind: KindConstraint, Message: "Not null constraint violation"}
	ErrValueTooLong         = &ClientError{Code: "P2000", Kind: KindConstraint, Message: "Value too long for column"}
	ErrValidation           = &ClientError{Code: "P2009", Kind: KindValidation, Message: "Validation error"}
	ErrRawQueryFailed       = &ClientError{Code: "P2010", Kind: KindUnknownRequest, Message: "Raw query failed"}
	ErrUnknownRequest       = &ClientError{Code: "P2026", Kind: KindUnknownRequest, Message: "Unknown request error"}
	ErrTransactionConflict  = &ClientError{Code: "P2034", Kind: KindUnknownRequest, Message: "Transaction write conflict or deadlock"}
	ErrTooManyRows          = &ClientError{Code: "P2033", Kind: KindUnknownRequest, Message: "Result set too large"}

	ErrInitialization   = &ClientError{Code: "P1000", Kind: KindInitialization, Message: "Client initialization failed"}
	ErrConnectionFailed = &ClientError{Code: "P1001", Kind: KindConnection, Message: "Database not reachable"}
	ErrDatabaseNotFound = &ClientError{Code: "P1003", Kind: KindInitialization, Message: "Database does not exist"}
	ErrTimeout          = &ClientError{Code: "P1008", Kind: KindConnection, Message: "Operation timeout"}
	ErrConnectionClosed = &ClientError{Code: "P1017", Kind: KindConnection, Message: "Connection closed"}

	// Kind-level targets for errors.Is
	ErrConstraintViolation = &ClientError{Kind: KindConstraint, Message: "Constraint violation"}
	ErrConnection          = &ClientError{Kind: KindConnection, Message: "Connection error"}
	ErrUnknown             = &ClientError{Kind: KindUnknownRequest, Message: "Unknown request error"}
)

// OperationType names the operation an error came from
type OperationType string

const (
	OpFindMany   OperationType = "FindMany"
	OpFindFirst  OperationType = "FindFirst"
	OpFindUnique OperationType = "FindUnique"
	OpCount      OperationType = "Count"
	OpAggregate  OperationType = "Aggregate"
	OpGroupBy    OperationType = "GroupBy"
	OpQuery      OperationType = "Query"
	OpQueryRow   OperationType = "QueryRow"
	OpExec       OperationType = "Exec"
	OpCreate     OperationType = "Create"
	OpCreateMany OperationType = "CreateMany"
	OpUpdate     OperationType = "Update"
	OpUpdateMany OperationType = "UpdateMany"
	OpUpsert     OperationType = "Upsert"
	OpDelete     OperationType = "Delete"
	OpDeleteMany OperationType = "DeleteMany"
	OpRaw        OperationType = "Raw"
	OpConnect    OperationType = "Connect"
	OpTx         OperationType = "Transaction"
)

// NewClientError creates an error with an explicit code and kind
func NewClientError(code string, kind Kind, message string, cause error) *ClientError {
	return &ClientError{Code: code, Kind: kind, Message: message, cause: cause}
}

// Wrap copies a sentinel and attaches cause
func Wrap(sentinel *ClientError, cause error) *ClientError {
	return &ClientError{Code: sentinel.Code, Kind: sentinel.Kind, Message: sentinel.Message, cause: cause}
}

// WithMeta returns a copy of e carrying an extra detail
func (e *ClientError) WithMeta(key string, value any) *ClientError {
	cp := *e
	cp.Meta = make(map[string]any, len(e.Meta)+1)
	for k, v := range e.Meta {
		cp.Meta[k] = v
	}
	cp.Meta[key] = value
	return &cp
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUniqueConstraint(err error) bool {
	return errors.Is(err, ErrUniqueConstraint)
}

func IsForeignKeyConstraint(err error) bool {
	return errors.Is(err, ErrForeignKeyConstraint)
}

func IsNullConstraint(err error) bool {
	return errors.Is(err, ErrNullConstraint)
}

func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrConstraintViolation)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func IsConnectionFailed(err error) bool {
	return errors.Is(err, ErrConnection)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// KindOf returns the kind of a ClientError in err's chain, "" otherwise
func KindOf(err error) Kind {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

// classifyPg maps PostgreSQL SQLSTATE codes
func classifyPg(pgErr *pgconn.PgError) *ClientError {
	switch pgErr.Code {
	case "23505":
		return Wrap(ErrUniqueConstraint, pgErr).WithMeta("target", pgErr.ConstraintName)
	case "23503":
		return Wrap(ErrForeignKeyConstraint, pgErr).WithMeta("target", pgErr.ConstraintName)
	case "23502":
		return Wrap(ErrNullConstraint, pgErr).WithMeta("target", pgErr.ColumnName)
	case "22001":
		return Wrap(ErrValueTooLong, pgErr)
	case "40001", "40P01":
		return Wrap(ErrTransactionConflict, pgErr)
	case "57014":
		return Wrap(ErrTimeout, pgErr)
	case "3D000":
		return Wrap(ErrDatabaseNotFound, pgErr)
	case "28P01", "28000":
		return Wrap(ErrInitialization, pgErr)
	case "08000", "08003", "08006", "57P01":
		return Wrap(ErrConnectionFailed, pgErr)
	}
	return nil
}

// classifyMySQL maps MySQL server error numbers
func classifyMySQL(myErr *mysql.MySQLError) *ClientError {
	switch myErr.Number {
	case 1062:
		return Wrap(ErrUniqueConstraint, myErr)
	case 1451, 1452:
		return Wrap(ErrForeignKeyConstraint, myErr)
	case 1048, 1364:
		return Wrap(ErrNullConstraint, myErr)
	case 1406:
		return Wrap(ErrValueTooLong, myErr)
	case 1213, 1205:
		return Wrap(ErrTransactionConflict, myErr)
	case 1049:
		return Wrap(ErrDatabaseNotFound, myErr)
	case 1045:
		return Wrap(ErrInitialization, myErr)
	case 1040:
		return Wrap(ErrConnectionFailed, myErr)
	}
	return nil
}

// classifyMessage is the fallback for drivers without typed errors (SQLite)
func classifyMessage(err error) *ClientError {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"),
		strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "duplicate entry"),
		strings.Contains(msg, "primary key must be unique"):
		return Wrap(ErrUniqueConstraint, err)
	case strings.Contains(msg, "foreign key constraint"):
		return Wrap(ErrForeignKeyConstraint, err)
	case strings.Contains(msg, "not null constraint"),
		strings.Contains(msg, "not-null constraint"):
		return Wrap(ErrNullConstraint, err)
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "deadlock"):
		return Wrap(ErrTransactionConflict, err)
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"):
		return Wrap(ErrTimeout, err)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network is unreachable"),
		strings.Contains(msg, "broken pipe"):
		return Wrap(ErrConnectionFailed, err)
	case strings.Contains(msg, "closed pool"),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "conn closed"):
		return Wrap(ErrConnectionClosed, err)
	}
	return nil
}

// MapDriverError converts a driver error into a ClientError. ClientErrors
// pass through, no-rows becomes NotFound except for list operations.
func MapDriverError(err error, op OperationType) error {
	if err == nil {
		return nil
	}

	var ce *ClientError
	if errors.As(err, &ce) {
		return err
	}

	if isNoRows(err) {
		switch op {
		case OpFindMany, OpQuery:
			return nil
		default:
			return Wrap(ErrNotFound, err).WithMeta("operation", string(op))
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Wrap(ErrTimeout, err).WithMeta("operation", string(op))
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return Wrap(ErrConnectionClosed, err).WithMeta("operation", string(op))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if mapped := classifyPg(pgErr); mapped != nil {
			return mapped.WithMeta("operation", string(op))
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if mapped := classifyMySQL(myErr); mapped != nil {
			return mapped.WithMeta("operation", string(op))
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Wrap(ErrTimeout, err).WithMeta("operation", string(op))
		}
		return Wrap(ErrConnectionFailed, err).WithMeta("operation", string(op))
	}

	if mapped := classifyMessage(err); mapped != nil {
		return mapped.WithMeta("operation", string(op))
	}

	if op == OpRaw {
		return Wrap(ErrRawQueryFailed, err)
	}
	return Wrap(ErrUnknownRequest, err).WithMeta("operation", string(op))
}

// MapConnectError classifies a failure to open or ping the database.
// Anything that is not a connectivity problem is an initialization error.
func MapConnectError(err error) error {
	if err == nil {
		return nil
	}
	mapped := MapDriverError(err, OpConnect)
	switch KindOf(mapped) {
	case KindConnection, KindInitialization:
		return mapped
	}
	return Wrap(ErrInitialization, err)
}

// SanitizeError strips database details from err in production mode
func SanitizeError(err error) error {
	if err == nil {
		return nil
	}

	if !ProductionMode {
		return err
	}

	var ce *ClientError
	if errors.As(err, &ce) {
		return fmt.Errorf("%s", ce.Message)
	}
	return fmt.Errorf("database operation failed")
}

// WrapError prefixes err with genericMsg, hiding err in production mode
func WrapError(err error, genericMsg string) error {
	if err == nil {
		return nil
	}
	if ProductionMode {
		return fmt.Errorf("%s", genericMsg)
	}
	return fmt.Errorf("%s: %w", genericMsg, err)
}

// NewValidationError reports invalid query arguments
func NewValidationError(msg string) error {
	return &ClientError{Code: ErrValidation.Code, Kind: KindValidation, Message: "Validation error: " + msg}
}

// NewNotFoundError reports that a required record does not exist
func NewNotFoundError(model string, op OperationType) error {
	e := &ClientError{
		Code:    ErrNotFound.Code,
		Kind:    KindNotFound,
		Message: fmt.Sprintf("No %s record found for %s", model, op),
	}
	return e.WithMeta("model", model).WithMeta("operation", string(op))
}
