package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrKeyExists   = errors.New("db: key already exists")
	ErrTxConflict  = errors.New("db: transaction aborted by a concurrent write")
)

// Op constants map to Valkey/Redis command names for error context.
const (
	OpDel        = "DEL"
	OpHGetAll    = "HGETALL"
	OpHSet       = "HSET"
	OpExists     = "EXISTS"
	OpGet        = "GET"
	OpMGet       = "MGET"
	OpIncrBy     = "INCRBY"
	OpSAdd       = "SADD"
	OpSRem       = "SREM"
	OpSMIsMember = "SMISMEMBER"
	OpZAdd       = "ZADD"
	OpZRem       = "ZREM"
	OpZUnion     = "ZUNION"
	OpWatch      = "WATCH"
	OpExec       = "EXEC"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
