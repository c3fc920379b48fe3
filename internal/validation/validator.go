// =============================================================================
// Invoice COGS Extractor - Input Validation
// =============================================================================
//
// This module checks the batch of input paths before any PDF is parsed.
//
// VALIDATION LEVELS:
//   1. Batch-level: the input list must not be empty
//   2. File-level:  each path must exist, be a regular file and end in .pdf
//   3. Structure:   optionally, each file is opened with pdfcpu and its pages
//                   counted
//
// ERROR HANDLING:
//   - Errors are collected, not returned one by one
//   - Batch and file-level problems are fatal: the batch is rejected
//   - Structure problems are warnings: the file still enters the batch and
//     its extraction failure is recorded in the Log table instead
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Sentinel errors wrapped by fatal validation errors.
var (
	ErrNoInputFiles = errors.New("no PDF files selected")
	ErrNotPDF       = errors.New("not a PDF file")
	ErrMissingFile  = errors.New("file not found")
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation problem.
type ValidationError struct {
	// Severity is SeverityError (fatal) or SeverityWarning.
	Severity string

	// File is the offending path. Empty for batch-level problems.
	File string

	// Rule names the check that failed.
	Rule string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, usually a sentinel.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("[%s] %s", strings.ToUpper(e.Severity), e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(e.Severity), e.File, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all validation errors (including warnings).
	Errors []*ValidationError

	// ErrorCount is the number of fatal errors.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int

	// FilesValidated is the number of paths checked.
	FilesValidated int

	// Pages holds the page count of every file whose structure was checked.
	Pages map[string]int
}

// Err returns the first fatal error, or nil.
func (r *ValidationResult) Err() error {
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			return e
		}
	}
	return nil
}

func (r *ValidationResult) add(e *ValidationError) {
	r.Errors = append(r.Errors, e)
	if e.Severity == SeverityError {
		r.ErrorCount++
		r.IsValid = false
	} else {
		r.WarningCount++
	}
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Options controls which checks run.
type Options struct {
	// CheckStructure opens every file with pdfcpu and counts its pages.
	CheckStructure bool

	// PageCount overrides the structural check. Nil uses pdfcpu.
	PageCount func(path string) (int, error)
}

// DefaultOptions returns options with the structural check enabled.
func DefaultOptions() Options {
	return Options{CheckStructure: true}
}

var disableConfigDir sync.Once

// pdfcpuPageCount counts pages without touching the user's config directory.
func pdfcpuPageCount(path string) (int, error) {
	disableConfigDir.Do(api.DisableConfigDir)
	return api.PageCountFile(path)
}

// ValidateInputs checks the batch of input paths.
//
// PARAMETERS:
//   - paths: The input PDF paths in processing order.
//   - opts: Which checks to run.
//
// RETURNS:
//   - A ValidationResult. Use Err to get the first fatal problem.
func ValidateInputs(paths []string, opts Options) *ValidationResult {
	result := &ValidationResult{IsValid: true, Pages: make(map[string]int)}

	if len(paths) == 0 {
		result.add(&ValidationError{
			Severity: SeverityError,
			Rule:     "non_empty",
			Message:  ErrNoInputFiles.Error(),
			Err:      ErrNoInputFiles,
		})
		return result
	}

	pageCount := opts.PageCount
	if pageCount == nil {
		pageCount = pdfcpuPageCount
	}

	for _, path := range paths {
		result.FilesValidated++

		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			result.add(&ValidationError{
				Severity: SeverityError,
				File:     path,
				Rule:     "extension",
				Message:  ErrNotPDF.Error(),
				Err:      ErrNotPDF,
			})
			continue
		}

		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			result.add(&ValidationError{
				Severity: SeverityError,
				File:     path,
				Rule:     "exists",
				Message:  ErrMissingFile.Error(),
				Err:      ErrMissingFile,
			})
			continue
		}

		if !opts.CheckStructure {
			continue
		}

		n, err := pageCount(path)
		if err != nil {
			result.add(&ValidationError{
				Severity: SeverityWarning,
				File:     path,
				Rule:     "structure",
				Message:  fmt.Sprintf("unreadable PDF structure: %v", err),
				Err:      err,
			})
			continue
		}
		result.Pages[path] = n
		if n == 0 {
			result.add(&ValidationError{
				Severity: SeverityWarning,
				File:     path,
				Rule:     "structure",
				Message:  "PDF has no pages",
			})
		}
	}

	return result
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d problem(s):\n\n", len(errs)))
	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}
