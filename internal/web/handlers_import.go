package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/JonMunkholm/leadbook/internal/logging"
)

// handleImport runs a bulk import of the multipart "file" field.
//
// The body is always an ImportResult except when the service refuses the
// import before parsing (busy limiter, missing user), which answers with an
// ErrorResponse.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	user, ok := core.UserFromContext(r.Context())
	if !ok {
		s.respondError(w, r, core.ErrUnauthorized, http.StatusUnauthorized)
		return
	}

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, errors.New("no file provided: invalid multipart form"), http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errors.New("no file provided"), http.StatusBadRequest)
		return
	}
	defer file.Close()

	ctx := r.Context()
	if s.cfg.Import.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Import.Timeout)
		defer cancel()
	}

	result, err := s.service.ImportLeads(ctx, user, core.ImportRequest{
		FileName: header.Filename,
		Body:     file,
		Size:     header.Size,
	})

	var hard *core.HardInputError
	var commitErr *core.CommitError
	switch {
	case err == nil:
		writeJSON(w, result)
	case errors.As(err, &hard):
		s.logImportError(r, err, http.StatusBadRequest)
		writeJSONStatus(w, http.StatusBadRequest, result)
	case errors.As(err, &commitErr):
		s.logImportError(r, err, http.StatusInternalServerError)
		writeJSONStatus(w, http.StatusInternalServerError, result)
	default:
		s.respondError(w, r, err, statusFor(err))
	}
}

func (s *Server) logImportError(r *http.Request, err error, status int) {
	msg := core.MapError(err)
	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("import failed", "status", status, "code", msg.Code, "error", err)
		return
	}
	logger.Warn("import rejected", "status", status, "code", msg.Code, "error", err)
}
