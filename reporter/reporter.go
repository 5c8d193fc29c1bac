// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reporter contains the types used for reporting errors from
// parsing and forest construction. Calling code can provide a Reporter to
// customize how diagnostics are surfaced, or to collect all of them instead
// of stopping at the first.
package reporter

import (
	"sync"

	"github.com/bufbuild/parsekit/source"
)

// ErrorReporter is responsible for reporting the given error. If the reporter
// returns a non-nil error, parsing will abort with that error. If the reporter
// returns nil, parsing will continue where possible, allowing the reporter
// to see further errors.
type ErrorReporter func(err ErrorWithPos) error

// WarningReporter is responsible for reporting the given warning. This is used
// for indicating non-error conditions to the calling program, such as an
// ambiguity that was too large to enumerate in full. Though they are just
// warnings, the details are supplied to the reporter via an error type.
type WarningReporter func(ErrorWithPos)

// Reporter is a type that handles reporting both errors and warnings.
type Reporter interface {
	// Error is called when the given error is encountered. If this method
	// returns nil, processing continues where possible.
	Error(ErrorWithPos) error
	// Warning is called when the given warning is encountered.
	Warning(ErrorWithPos)
}

// NewReporter creates a new reporter that invokes the given functions on error
// or warning. A nil errs reports every error back as-is, aborting on the
// first one; a nil warnings ignores warnings.
func NewReporter(errs ErrorReporter, warnings WarningReporter) Reporter {
	return reporterFuncs{errs: errs, warnings: warnings}
}

type reporterFuncs struct {
	errs     ErrorReporter
	warnings WarningReporter
}

func (r reporterFuncs) Error(err ErrorWithPos) error {
	if r.errs == nil {
		return err
	}
	return r.errs(err)
}

func (r reporterFuncs) Warning(err ErrorWithPos) {
	if r.warnings != nil {
		r.warnings(err)
	}
}

// Handler is used by parsing operations for accepting errors and warnings
// and tracking whether any errors were reported. It latches the first
// error returned by the Reporter.
type Handler struct {
	reporter Reporter

	mu           sync.Mutex
	errsReported bool
	err          error
}

// NewHandler creates a new Handler that reports errors and warnings using the
// given reporter. A nil rep behaves like NewReporter(nil, nil).
func NewHandler(rep Reporter) *Handler {
	if rep == nil {
		rep = NewReporter(nil, nil)
	}
	return &Handler{reporter: rep}
}

// HandleErrorf handles an error with the given position, creating the error
// from the given format and arguments.
func (h *Handler) HandleErrorf(pos source.Pos, format string, args ...any) error {
	return h.HandleError(Errorf(pos, format, args...))
}

// HandleError handles the given error. If it is an ErrorWithPos, it is
// passed to the reporter. Otherwise it is latched and returned as-is.
func (h *Handler) HandleError(err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.err != nil {
		return h.err
	}
	if ewp, ok := err.(ErrorWithPos); ok {
		h.errsReported = true
		err = h.reporter.Error(ewp)
	}
	h.err = err
	return err
}

// HandleWarning handles the given warning at the given position.
func (h *Handler) HandleWarning(pos source.Pos, err error) {
	// No need for lock; warnings don't interact with mutable fields.
	h.reporter.Warning(errorWithPos{pos: pos, underlying: err})
}

// Error returns the handler result. If any errors have been reported then
// this returns a non-nil error. If the reporter never returned a non-nil
// error then ErrInvalidSource is returned. Otherwise, this returns the error
// returned by the reporter.
func (h *Handler) Error() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.errsReported && h.err == nil {
		return ErrInvalidSource
	}
	return h.err
}

// Warner adapts a handler into a sink for positioned warnings.
func (h *Handler) Warner() WarningReporter {
	return func(err ErrorWithPos) {
		h.HandleWarning(err.GetPosition(), err.Unwrap())
	}
}
