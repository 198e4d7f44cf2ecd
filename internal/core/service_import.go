package core

// service_import.go runs the bulk import pipeline.
//
// The flow is strictly forward:
//
//  1. Parse the upload into rows (hard failures abort everything)
//  2. Per row, in file order: normalize, reject in-file duplicate emails,
//     validate
//  3. One store lookup rejects emails the owner already has
//  4. One transaction creates every surviving lead with its audit entry
//  5. Errors and the commit outcome are merged into an ImportResult

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/leadbook/internal/logging"
	"github.com/JonMunkholm/leadbook/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ImportRequest is one uploaded file.
type ImportRequest struct {
	FileName string
	Body     io.Reader
	// Size is the upload size in bytes when known. It is only logged.
	Size int64
}

// ImportLeads imports the rows of req for user.
//
// The returned ImportResult is always usable as a response body. The error is
// non-nil when the import as a whole failed:
//   - *HardInputError: the file could not be accepted (nothing processed)
//   - *CommitError: every surviving row was rolled back
//   - ErrTooManyImports, ErrUnauthorized, or a store lookup failure
//
// Per-row problems are not errors; they are listed in ImportResult.Errors.
func (s *Service) ImportLeads(ctx context.Context, user CurrentUser, req ImportRequest) (ImportResult, error) {
	start := s.now()
	logger := logging.WithFields(ctx,
		"user_id", user.ID,
		"file", req.FileName,
		"ip", GetIPAddressFromContext(ctx),
		"user_agent", GetUserAgentFromContext(ctx),
	)

	if err := requireUser(user); err != nil {
		return abortResult(err), err
	}

	ctx, span := s.tracer.Start(ctx, "core.ImportLeads")
	defer span.End()

	if err := s.limiter.Acquire(ctx); err != nil {
		logger.Warn("import rejected", "error", err)
		return abortResult(err), err
	}
	defer s.limiter.Release()

	format, err := FormatFromName(req.FileName)
	if err != nil {
		return s.reject(ctx, start, err), err
	}

	rows, err := Parse(format, req.Body)
	if err != nil {
		return s.reject(ctx, start, err), err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)), attribute.String("format", string(format)))

	result, err := s.importRows(ctx, user.ID, format, rows)

	rejected := result.ErroredRows()
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "import failed")
		s.metrics.ObserveImport(start, metrics.OutcomeFailed, 0, len(rows))
		logger.Error("import failed", "rows", len(rows), "error", err)
	case result.Imported == 0:
		s.metrics.ObserveImport(start, metrics.OutcomeNoRows, 0, rejected)
	default:
		s.metrics.ObserveImport(start, metrics.OutcomeImported, result.Imported, rejected)
		s.metrics.IncrementMutation(string(ActionImported), result.Imported)
	}

	if err == nil {
		logger.Info("import finished",
			"format", format,
			"rows", len(rows),
			"bytes", req.Size,
			"imported", result.Imported,
			"rejected_rows", rejected,
			"errors", len(result.Errors),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return result, err
}

// reject builds the result for an import that never reached row processing.
func (s *Service) reject(ctx context.Context, start time.Time, err error) ImportResult {
	s.metrics.ObserveImport(start, metrics.OutcomeRejected, 0, 0)

	var hard *HardInputError
	if errors.As(err, &hard) && hard.Cause != nil {
		logging.FromContext(ctx).Info("import rejected", "reason", hard.Kind, "cause", hard.Cause)
	} else {
		logging.FromContext(ctx).Info("import rejected", "reason", err)
	}
	return abortResult(err)
}

// importRows runs stages 2 to 5 over parsed rows.
func (s *Service) importRows(ctx context.Context, ownerID string, format ImportFormat, rows []ImportRow) (ImportResult, error) {
	var rowErrs []ValidationError
	cands := make([]candidate, 0, len(rows))
	seen := make(batchEmails, len(rows))

	for _, row := range rows {
		rec := Normalize(row)

		if dup := seen.claim(row, rec); dup != nil {
			rowErrs = append(rowErrs, *dup)
			continue
		}
		if errs := ValidateRow(row, rec); len(errs) > 0 {
			rowErrs = append(rowErrs, errs...)
			continue
		}
		cands = append(cands, candidate{row: row, record: rec})
	}

	cands, dupErrs, err := s.resolveExisting(ctx, ownerID, cands)
	if err != nil {
		return aggregate(rowErrs, 0, err), err
	}
	rowErrs = append(rowErrs, dupErrs...)

	if len(cands) == 0 {
		return aggregate(rowErrs, 0, nil), nil
	}

	if err := s.commitBatch(ctx, ownerID, format, cands); err != nil {
		commitErr := &CommitError{Rows: len(cands), Err: err}
		return aggregate(rowErrs, 0, commitErr), commitErr
	}
	return aggregate(rowErrs, len(cands), nil), nil
}

// commitBatch creates every candidate and its imported audit entry in one
// transaction. Any failure rolls back the whole batch.
func (s *Service) commitBatch(ctx context.Context, ownerID string, format ImportFormat, cands []candidate) error {
	ctx, span := s.tracer.Start(ctx, "core.commitBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("leads", len(cands)))

	now := s.timestamp()
	return s.store.WithTx(ctx, func(tx Tx) error {
		for _, c := range cands {
			lead := Lead{
				ID:        s.newID(),
				OwnerID:   ownerID,
				Record:    c.record,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.CreateLead(ctx, lead); err != nil {
				return fmt.Errorf("row %d: create lead: %w", c.row.Row, err)
			}

			entry := NewAuditEntry(lead.ID, ownerID, now, ImportedPayload{
				Source:   format,
				Snapshot: c.record.Clone(),
			})
			if err := tx.AppendAudit(ctx, entry); err != nil {
				return fmt.Errorf("row %d: append audit: %w", c.row.Row, err)
			}
		}
		return nil
	})
}
