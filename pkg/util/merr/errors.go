// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// IO related
	ErrIoFailed        = newBufferError("IO failed", 1001, false)
	ErrIoUnexpectEOF   = newBufferError("unexpected end of stream", 1002, false)
	ErrEncodingInvalid = newBufferError("invalid UTF-8 encoding", 1003, false)
	ErrLengthOverflow  = newBufferError("length overflows prefix", 1004, false)
	ErrSeekOutOfRange  = newBufferError("seek out of range", 1005, false)
	ErrFormatInvalid   = newBufferError("invalid format", 1006, false)

	// Parameter related
	ErrParameterInvalid = newBufferError("invalid parameter", 1100, false)
	ErrParameterMissing = newBufferError("missing parameter", 1101, false)

	// Config related
	ErrConfigLoadFailed = newBufferError("failed to load config", 1200, false)

	// General
	ErrOperationNotSupported = newBufferError("unsupported operation", 3000, false)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to bufferError
	errUnexpected = newBufferError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*bufferError)

func WithDetail(detail string) errorOption {
	return func(err *bufferError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *bufferError) {
		err.errType = etype
	}
}

type bufferError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newBufferError(msg string, code int32, retriable bool, options ...errorOption) bufferError {
	err := bufferError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e bufferError) code() int32 {
	return e.errCode
}

func (e bufferError) Error() string {
	return e.msg
}

func (e bufferError) Detail() string {
	return e.detail
}

func (e bufferError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(bufferError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// the cause of multi errors is defined as the last error
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
