package domain

import "strings"

const UnknownReason = "Unknown"

// Result is the normalized outcome of one account service call.
type Result[T any] struct {
	Success      bool
	Value        *T
	ErrorCode    *int
	ErrorMessage *string
}

func Succeeded[T any](value T) Result[T] {
	return Result[T]{Success: true, Value: &value}
}

func Failed[T any](code *int, message string) Result[T] {
	res := Result[T]{ErrorCode: code}
	if msg := strings.TrimSpace(message); msg != "" {
		res.ErrorMessage = &msg
	}
	return res
}

// OK reports whether the call succeeded and carried a value.
func (r Result[T]) OK() bool {
	return r.Success && r.Value != nil
}

// Reason returns the best human-readable failure reason.
func (r Result[T]) Reason() string {
	if r.ErrorMessage != nil && strings.TrimSpace(*r.ErrorMessage) != "" {
		return *r.ErrorMessage
	}
	return UnknownReason
}

// Code returns the error code, or 0 if the service did not send one.
func (r Result[T]) Code() int {
	if r.ErrorCode == nil {
		return 0
	}
	return *r.ErrorCode
}
