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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码，nil 返回 0。
// 未知错误统一映射为 errUnexpected 的错误码。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case bufferError:
		return specificErr.code()
	default:
		return errUnexpected.code()
	}
}

func IsRetryableErr(err error) bool {
	if err, ok := err.(bufferError); ok {
		return err.retriable
	}

	return false
}

func GetErrorType(err error) ErrorType {
	if merr, ok := err.(bufferError); ok {
		return merr.errType
	}

	return SystemError
}

func WrapErrAsInputError(err error) error {
	if merr, ok := err.(bufferError); ok {
		WithErrorType(InputError)(&merr)
		return merr
	}
	return err
}

// IO related
func WrapErrIoFailed(op string, err error) error {
	if err == nil {
		return nil
	}
	return wrapFieldsWithDesc(ErrIoFailed, err.Error(), value("op", op))
}

func WrapErrIoFailedReason(reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrIoFailed, reason)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// WrapErrIoUnexpectEOF 表示读取 op 需要 need 字节，但流中仅剩 remaining 字节。
func WrapErrIoUnexpectEOF(op string, need, remaining int64) error {
	return wrapFields(ErrIoUnexpectEOF,
		value("op", op),
		value("need", need),
		value("remaining", remaining),
	)
}

func WrapErrEncodingInvalid(op string, length int, msg ...string) error {
	err := wrapFields(ErrEncodingInvalid, value("op", op), value("length", length))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// WrapErrLengthOverflow 表示 op 的长度 length 超出了长度前缀允许的上限 limit。
func WrapErrLengthOverflow[T any](op string, length, limit T) error {
	return wrapFields(ErrLengthOverflow, value("op", op), bound("length", length, 0, limit))
}

func WrapErrSeekOutOfRange(origin string, offset int64, err ...error) error {
	e := wrapFields(ErrSeekOutOfRange, value("origin", origin), value("offset", offset))
	if len(err) > 0 && err[0] != nil {
		e = errors.Wrap(e, err[0].Error())
	}
	return e
}

func WrapErrFormatInvalid(op string, reason string) error {
	return wrapFieldsWithDesc(ErrFormatInvalid, reason, value("op", op))
}

// Parameter related
func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterInvalidMsg(fmtstr string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmtstr, args...)
}

func WrapErrParameterMissing[T any](param T, msg ...string) error {
	err := wrapFields(ErrParameterMissing,
		value("missing_param", param),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrConfigLoadFailed(path string, err error) error {
	if err == nil {
		return nil
	}
	return wrapFieldsWithDesc(ErrConfigLoadFailed, err.Error(), value("path", path))
}

func WrapErrOperationNotSupported(op string, msg ...string) error {
	err := wrapFields(ErrOperationNotSupported, value("op", op))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func wrapFields(err bufferError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err bufferError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}

type boundField struct {
	name  string
	value any
	lower any
	upper any
}

func bound(name string, value, lower, upper any) boundField {
	return boundField{
		name,
		value,
		lower,
		upper,
	}
}

func (f boundField) String() string {
	return fmt.Sprintf("%v out of range %v <= %s <= %v", f.value, f.lower, f.name, f.upper)
}
