package mozjpeg

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes encoder failures
type ErrorCode int

const (
	CodeBadConfig        ErrorCode = 1
	CodeBadQuantTable    ErrorCode = 2
	CodeBadLayout        ErrorCode = 3
	CodeIncompleteGrid   ErrorCode = 4
	CodeDuplicateBlock   ErrorCode = 5
	CodeCoefficientRange ErrorCode = 6
	CodeScanOrder        ErrorCode = 7
	CodeMissingTrial     ErrorCode = 8
	CodeEntropyOverflow  ErrorCode = 9
	CodeUnsupportedScan  ErrorCode = 10
)

func (c ErrorCode) String() string {
	switch c {
	case CodeBadConfig:
		return "BadConfig"
	case CodeBadQuantTable:
		return "BadQuantTable"
	case CodeBadLayout:
		return "BadLayout"
	case CodeIncompleteGrid:
		return "IncompleteGrid"
	case CodeDuplicateBlock:
		return "DuplicateBlock"
	case CodeCoefficientRange:
		return "CoefficientRange"
	case CodeScanOrder:
		return "ScanOrder"
	case CodeMissingTrial:
		return "MissingTrial"
	case CodeEntropyOverflow:
		return "EntropyOverflow"
	case CodeUnsupportedScan:
		return "UnsupportedScan"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// EncodeError is a categorized error from the compression core
type EncodeError struct {
	Code    ErrorCode
	Message string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrCode creates an EncodeError with the given code and message
func ErrCode(code ErrorCode, message string) error {
	return &EncodeError{Code: code, Message: message}
}

// ErrCodef creates an EncodeError with a formatted message
func ErrCodef(code ErrorCode, format string, args ...interface{}) error {
	return &EncodeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsEncodeError checks if an error is an EncodeError and returns it
func IsEncodeError(err error) (*EncodeError, bool) {
	var ee *EncodeError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
