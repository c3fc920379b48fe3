// =============================================================================
// Invoice COGS Extractor - Upload Web Server
// =============================================================================
//
// This module serves a single upload page. A POST with one or more PDFs in
// the multipart field "pdfs" runs one conversion and answers with the
// workbook as an attachment.
//
// REQUEST FLOW (POST /):
//   1. Parse the multipart form
//   2. Reject the request when no file was selected
//   3. Stage the uploads in a per-request directory
//   4. Validate the staged paths
//   5. Run the conversion and build the workbook in memory
//   6. Remove the staged uploads
//   7. Send the workbook
//
// RESPONSES:
//   - 400 "No PDF files selected!" when the field is missing or empty
//   - 500 "Failed to process PDF files" when the conversion fails or
//     extracts nothing
//
// =============================================================================

package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/ginjaninja78/invoice-cogs-extractor/internal/ledger"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/types"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/validation"
	"github.com/ginjaninja78/invoice-cogs-extractor/internal/xlsxwriter"
	"github.com/ginjaninja78/invoice-cogs-extractor/pkg/utils"
	"github.com/gorilla/mux"
)

// User-facing error texts.
const (
	MsgNoFiles       = "No PDF files selected!"
	MsgProcessFailed = "Failed to process PDF files"
)

// FormField is the multipart field carrying the PDFs.
const FormField = "pdfs"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Runner converts a batch of PDFs into a ledger.
// *ledger.Assembler satisfies it.
type Runner interface {
	Run(ctx context.Context, paths []string) (*types.Ledger, error)
}

// Options configures the server.
type Options struct {
	// Addr is the listen address.
	Addr string

	// MaxUploadBytes caps one multipart request.
	MaxUploadBytes int64

	// OutputNameFormat names the downloaded workbook.
	OutputNameFormat string

	// Workbook controls formulas and tolerance in the workbook.
	Workbook xlsxwriter.Options

	// Validation controls the checks run on staged uploads.
	Validation validation.Options
}

// Server is the upload web server.
type Server struct {
	runner Runner
	files  *utils.FileManager
	opts   Options
	logger ledger.Logger
	router *mux.Router
}

// New creates a Server and registers its routes.
func New(runner Runner, files *utils.FileManager, opts Options, logger ledger.Logger) *Server {
	if logger == nil {
		logger = ledger.NopLogger()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 64 << 20
	}

	s := &Server{
		runner: runner,
		files:  files,
		opts:   opts,
		logger: logger,
		router: mux.NewRouter(),
	}

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/", s.handleUpload).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Use(s.logRequests)

	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening on %s", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Invoice COGS Extractor</title></head>
<body>
  <h1>Invoice COGS Extractor</h1>
  <form method="post" action="/" enctype="multipart/form-data">
    <input type="file" name="{{.Field}}" accept="application/pdf,.pdf" multiple>
    <button type="submit">Convert</button>
  </form>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, struct{ Field string }{FormField}); err != nil {
		s.logger.Error("Failed to render index: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// =========================================================================
	// STEP 1-2: PARSE FORM, REQUIRE FILES
	// =========================================================================

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.logger.Debug("Rejected upload: %v", err)
		http.Error(w, MsgNoFiles, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[FormField]
	if len(headers) == 0 || headers[0].Filename == "" {
		http.Error(w, MsgNoFiles, http.StatusBadRequest)
		return
	}

	// =========================================================================
	// STEP 3: STAGE UPLOADS
	// =========================================================================

	batch, err := s.files.NewUploadBatch()
	if err != nil {
		s.logger.Error("Failed to stage uploads: %v", err)
		http.Error(w, MsgProcessFailed, http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := batch.Cleanup(); err != nil {
			s.logger.Warn("%v", err)
		} else {
			s.logger.Debug("Cleaned uploaded PDFs in %s", batch.Dir)
		}
	}()

	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			s.logger.Error("Failed to open upload %s: %v", h.Filename, err)
			http.Error(w, MsgProcessFailed, http.StatusInternalServerError)
			return
		}
		_, err = batch.Save(h.Filename, f)
		f.Close()
		if err != nil {
			s.logger.Error("%v", err)
			http.Error(w, MsgProcessFailed, http.StatusInternalServerError)
			return
		}
	}
	s.logger.Debug("Saved %d PDFs", len(batch.Paths))

	// =========================================================================
	// STEP 4: VALIDATE
	// =========================================================================

	check := validation.ValidateInputs(batch.Paths, s.opts.Validation)
	for _, ve := range check.Errors {
		s.logger.Warn("%s", ve.Error())
	}
	if check.Err() != nil {
		http.Error(w, MsgNoFiles, http.StatusBadRequest)
		return
	}

	// =========================================================================
	// STEP 5: CONVERT
	// =========================================================================

	l, err := s.runner.Run(r.Context(), batch.Paths)
	if err != nil {
		s.logger.Error("PDF to workbook conversion failed: %v", err)
		http.Error(w, MsgProcessFailed, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := xlsxwriter.Write(l, &buf, s.opts.Workbook); err != nil {
		s.logger.Error("%v", err)
		http.Error(w, MsgProcessFailed, http.StatusInternalServerError)
		return
	}

	// =========================================================================
	// STEP 6-7: SEND (the deferred cleanup removes the uploads)
	// =========================================================================

	name := utils.GenerateOutputFileName(s.opts.OutputNameFormat, ".xlsx")
	s.logger.Info("Sending workbook %s (%d line items, %d failed files)", name, len(l.LineItems), l.Failures())

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("Failed to send workbook: %v", err)
	}
}

// logRequests logs every request with its duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("%s %s in %v", r.Method, r.URL.Path, time.Since(start))
	})
}
