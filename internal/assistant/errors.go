/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package assistant

import (
	"fmt"
)

// ErrConnection represents errors that occur while connecting to the
// database or the model backend.
type ErrConnection struct {
	Msg string
	Err error
}

// ErrSchema represents errors that occur during schema introspection.
type ErrSchema struct {
	Msg string
	Err error
}

// ErrGeneration represents errors from the SQL-generating model.
type ErrGeneration struct {
	Msg string
	Err error
}

// ErrValidationRejected means a generated statement failed the read-only
// safety check. Reason is user-facing.
type ErrValidationRejected struct {
	Reason string
}

// ErrExecution represents errors during query execution.
type ErrExecution struct {
	Msg string
	Err error
}

// ErrTimeout represents a pipeline stage exceeding its wall-clock budget.
type ErrTimeout struct {
	Msg string
	Err error
}

func (e *ErrConnection) Error() string {
	return fmt.Sprintf("connection error: %s: %v", e.Msg, e.Err)
}

func (e *ErrConnection) Unwrap() error {
	return e.Err
}

func (e *ErrSchema) Error() string {
	return fmt.Sprintf("schema introspection error: %s: %v", e.Msg, e.Err)
}

func (e *ErrSchema) Unwrap() error {
	return e.Err
}

func (e *ErrGeneration) Error() string {
	return fmt.Sprintf("query generation error: %s: %v", e.Msg, e.Err)
}

func (e *ErrGeneration) Unwrap() error {
	return e.Err
}

func (e *ErrValidationRejected) Error() string {
	return fmt.Sprintf("query rejected: %s", e.Reason)
}

func (e *ErrExecution) Error() string {
	return fmt.Sprintf("query execution error: %s: %v", e.Msg, e.Err)
}

func (e *ErrExecution) Unwrap() error {
	return e.Err
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("timeout error: %s: %v", e.Msg, e.Err)
}

func (e *ErrTimeout) Unwrap() error {
	return e.Err
}
