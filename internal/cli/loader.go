package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/jwpure/internal/engine"
	"github.com/roach88/jwpure/internal/plan"
	"github.com/roach88/jwpure/internal/slotdata"
	"github.com/roach88/jwpure/internal/store"
)

// LoadError represents an error that occurred while loading command inputs.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found
	ErrCodeReadSlots   = "E003" // Slot CSV unreadable
	ErrCodeLoadSlots   = "E004" // Slot table rejected by the engine
	ErrCodeOpenDB      = "E005" // Database open failed
	ErrCodeWriteFailed = "E006" // File write error
	ErrCodeQueryFailed = "E007" // Query or summary failed

	// Plan errors
	ErrCodePlanSchema   = "E101" // CUE syntax or #Plan schema violation
	ErrCodePlanEmpty    = "E102" // No passes
	ErrCodePlanNode     = "E103" // Malformed constraint node
	ErrCodePlanColumn   = "E104" // Constraint references an unknown column
	ErrCodePassFailed   = "E110" // Allocation pass failed and was rolled back
	ErrCodeInvalidLimit = "E111" // Cap below 1
)

// MapFieldToErrorCode maps a plan compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodePlanSchema
	case field == "passes":
		return ErrCodePlanEmpty
	case field == "where" || strings.HasPrefix(field, "where."):
		return ErrCodePlanNode
	default:
		return ErrCodeGeneric
	}
}

// loadPlan reads and compiles a plan file. Failures are *LoadError.
func loadPlan(path string) (*plan.Plan, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("plan file not found: %s", path)}
	}

	p, err := plan.LoadFile(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return p, nil
}

// convertCompileError converts a plan error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *plan.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// readSlots parses a slot CSV file. Failures are *LoadError.
func readSlots(path string) (*store.Table, error) {
	t, err := slotdata.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("slots file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadSlots, Message: err.Error()}
	}
	return t, nil
}

// session is an open store with an engine on top.
type session struct {
	store  *store.Store
	engine *engine.Engine
}

// openSession opens the database at dbPath (in-memory when empty). With
// slotsPath set the slots are loaded into a fresh slot table; without it the
// engine resumes the slot table already in dbPath. Failures are *LoadError.
func openSession(ctx context.Context, dbPath, slotsPath string, logger *slog.Logger, opts ...engine.Option) (*session, error) {
	var slots *store.Table
	if slotsPath != "" {
		var err error
		if slots, err = readSlots(slotsPath); err != nil {
			return nil, err
		}
	}

	logger.Info("opening database", "path", displayPath(dbPath))
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeOpenDB, Message: err.Error()}
	}

	eng := engine.New(st, append([]engine.Option{engine.WithLogger(logger)}, opts...)...)
	switch {
	case slots != nil:
		if err := eng.Load(ctx, slots); err != nil {
			st.Close()
			msg := err.Error()
			if errors.Is(err, engine.ErrAlreadyLoaded) {
				msg += " (omit --slots to continue allocating from it)"
			}
			return nil, &LoadError{Code: ErrCodeLoadSlots, Message: msg}
		}
	case dbPath != "":
		if err := eng.Resume(ctx); err != nil {
			st.Close()
			msg := err.Error()
			if errors.Is(err, engine.ErrNotLoaded) {
				msg += " (pass --slots to load one)"
			}
			return nil, &LoadError{Code: ErrCodeLoadSlots, Message: msg}
		}
	}

	return &session{store: st, engine: eng}, nil
}

// Close closes the session's database.
func (s *session) Close(logger *slog.Logger) {
	if err := s.store.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}

func displayPath(dbPath string) string {
	if dbPath == "" {
		return store.MemoryPath
	}
	return dbPath
}

// outputLoadError reports err and returns the matching exit error.
// Load problems are command-level errors (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}

	var details interface{}
	if loadErr.Pos.IsValid() {
		details = fmt.Sprintf("%s:%d:%d", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
	}
	_ = formatter.Error(loadErr.Code, loadErr.Message, details)
	return WrapExitError(ExitCommandError, loadErr.Code, errors.New(loadErr.Message))
}
