// internal/apperr/error.go

package apperr

import (
	"errors"
	"fmt"
)

// AppError is the single error type returned across package boundaries.
// Op names the step that failed ("dial", "mkdir", "upload", ...).
type AppError struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
}

type ErrorType int

const (
	ConfigError ErrorType = iota
	ConnectError
	CommandError
	TransferError
	MappingError
	DeployError
	SubmitError
	QueryError
	PortExhaustion
	TunnelError
)

var typeNames = map[ErrorType]string{
	ConfigError:    "config error",
	ConnectError:   "connect error",
	CommandError:   "command error",
	TransferError:  "transfer error",
	MappingError:   "mapping error",
	DeployError:    "deploy error",
	SubmitError:    "submit error",
	QueryError:     "query error",
	PortExhaustion: "port exhaustion",
	TunnelError:    "tunnel error",
}

func (t ErrorType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("error type %d", int(t))
}

// Sentinels for errors.Is. They are carried in AppError.Err.
var (
	ErrKeyFileMissing = errors.New("private key file does not exist")
	ErrResolve        = errors.New("could not resolve address")
	ErrDial           = errors.New("could not open TCP connection")
	ErrHandshake      = errors.New("SSH handshake failed")
	ErrAuthRejected   = errors.New("authentication rejected")

	ErrSourceNotFound = errors.New("input directory does not exist")
	ErrSourceNotDir   = errors.New("input path is not a directory")
	ErrNoInputFiles   = errors.New("no input files found")
	ErrNotUnderSource = errors.New("file is not under the input directory")

	ErrPortsExhausted = errors.New("no free local port in range")
)

func (e *AppError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(errType ErrorType, message string, err error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Op is New with the failing step attached.
func Op(errType ErrorType, op, message string, err error) *AppError {
	return &AppError{
		Type:    errType,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// HasType reports whether any AppError in err's chain has the given type.
func HasType(err error, errType ErrorType) bool {
	var appErr *AppError
	for err != nil {
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Err
	}
	return false
}
