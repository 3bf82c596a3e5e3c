// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package agenterr is the agent's error type, adapted from the teacher's
// pkg/errors: a minimal wrapping interface plus a fixed set of kinds that
// classify an error as fatal at startup or transient. cmd/agent does not
// use this package; it wraps its errors with fmt.Errorf.
package agenterr

import "fmt"

// Kind classifies an error for the purposes of error-handling policy. The
// five kinds mirror the error model: configuration and trust-store errors
// are fatal at startup; transport and protocol/data errors are transient
// and logged in place; session errors are terminal for one connection and
// propagate through the errgroup.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindTrustStore
	KindTransport
	KindProtocol
	KindSession
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTrustStore:
		return "trust-store"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindSession:
		return "session"
	default:
		return "unknown"
	}
}

// Error is the API every agent error fulfills.
type Error interface {
	error
	Msg() string
	Kind() Kind
	Err() Error
}

var _ Error = (*customError)(nil)

type customError struct {
	msg  string
	kind Kind
	err  Error
}

func (ce *customError) Error() string {
	if ce == nil {
		return ""
	}
	if ce.err != nil {
		return fmt.Sprintf("%s: %s", ce.msg, ce.err.Error())
	}
	return ce.msg
}

func (ce *customError) Msg() string { return ce.msg }
func (ce *customError) Kind() Kind  { return ce.kind }
func (ce *customError) Err() Error  { return ce.err }

// New returns a Kind-tagged Error with no wrapped cause.
func New(kind Kind, text string) Error {
	return &customError{msg: text, kind: kind}
}

// Wrap returns an Error that carries wrapper's kind and message, wrapping
// err (which is cast to Error if it isn't already one).
func Wrap(kind Kind, wrapper string, err error) Error {
	if err == nil {
		return nil
	}
	return &customError{msg: wrapper, kind: kind, err: cast(err)}
}

func cast(err error) Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(Error); ok {
		return e
	}
	return &customError{msg: err.Error()}
}

// Contains reports whether ce or any error it wraps has message e.Error().
func Contains(ce Error, e error) bool {
	if ce == nil || e == nil {
		return ce == nil && e == nil
	}
	if ce.Msg() == e.Error() {
		return true
	}
	if ce.Err() == nil {
		return false
	}
	return Contains(ce.Err(), e)
}
