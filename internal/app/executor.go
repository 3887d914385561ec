package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quotekeeper/internal/platform/logging"
)

// Collection mutations run as: validate → perform → verify → archive → respond.
// The in-memory change made by perform is only kept once archive has
// persisted it; if archive fails, rollback undoes perform.

// ExecutionStep names a step of an Operation.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError records the step that failed. Unwrap exposes the cause, so
// domain.IsValidation and friends see through it.
type ExecutionError struct {
	Step    ExecutionStep
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Step, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s failed: %s", e.Step, e.Message)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Executor runs Operations with per-step logging.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor. A nil logger means slog.Default.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation is one transactional use case. I is the input, R what perform
// produced, O what the caller receives. Nil steps are skipped.
type Operation[I, R, O any] struct {
	Name string

	// Validate rejects bad input before any state changes.
	Validate func(ctx context.Context, input I) error

	// Perform applies the change in memory.
	Perform func(ctx context.Context, input I) (R, error)

	// Verify checks the change independently of Perform's return value.
	Verify func(ctx context.Context, input I, performed R) error

	// Archive persists the verified state.
	Archive func(ctx context.Context, input I, performed R) error

	// Rollback undoes Perform after a verify or archive failure.
	Rollback func(ctx context.Context, input I, performed R)

	// Respond shapes the result.
	Respond func(ctx context.Context, input I, performed R) (O, error)
}

// Execute runs op for input.
func Execute[I, R, O any](ctx context.Context, exec *Executor, op Operation[I, R, O], input I) (O, error) {
	var zero O

	logger := exec.loggerFor(ctx).With(slog.String("operation", op.Name))
	start := time.Now()

	if op.Validate != nil {
		if err := op.Validate(ctx, input); err != nil {
			logger.DebugContext(ctx, "validation failed", slog.Any("error", err))

			return zero, &ExecutionError{Step: StepValidate, Message: "input validation failed", Cause: err}
		}
	}

	var performed R

	if op.Perform != nil {
		var err error

		performed, err = op.Perform(ctx, input)
		if err != nil {
			logger.ErrorContext(ctx, "perform failed", slog.Any("error", err))

			return zero, &ExecutionError{Step: StepPerform, Message: "operation failed", Cause: err}
		}
	}

	if op.Verify != nil {
		if err := op.Verify(ctx, input, performed); err != nil {
			logger.ErrorContext(ctx, "verification failed", slog.Any("error", err))
			rollback(ctx, logger, op, input, performed)

			return zero, &ExecutionError{Step: StepVerify, Message: "verification failed", Cause: err}
		}
	}

	if op.Archive != nil {
		if err := op.Archive(ctx, input, performed); err != nil {
			logger.ErrorContext(ctx, "archive failed", slog.Any("error", err))
			rollback(ctx, logger, op, input, performed)

			return zero, &ExecutionError{Step: StepArchive, Message: "state persistence failed", Cause: err}
		}
	}

	var (
		result O
		err    error
	)

	if op.Respond != nil {
		result, err = op.Respond(ctx, input, performed)
		if err != nil {
			logger.WarnContext(ctx, "respond failed", slog.Any("error", err))

			return zero, &ExecutionError{Step: StepRespond, Message: "response failed", Cause: err}
		}
	}

	logger.DebugContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return result, nil
}

func rollback[I, R, O any](ctx context.Context, logger *slog.Logger, op Operation[I, R, O], input I, performed R) {
	if op.Rollback == nil {
		return
	}

	op.Rollback(ctx, input, performed)
	logger.WarnContext(ctx, "operation rolled back")
}

// loggerFor prefers a request-scoped logger over the executor's own.
func (e *Executor) loggerFor(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, e.logger)
}

// GetExecutionStep reports the step at which err occurred.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}
