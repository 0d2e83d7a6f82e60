// Package migrate evolves the directory schema across deployments.
//
// The engine is deliberately not a generic migration tool: it re-runs on every
// boot, gates each step on the count of recorded schema-version markers, and
// attempts the operations inside a step independently so that re-application
// against an already-partially-migrated database is safe.
package migrate

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/seedslabs/gratibot-backend/pkg/db"
	"github.com/seedslabs/gratibot-backend/pkg/db/models"
	pkgerrors "github.com/seedslabs/gratibot-backend/pkg/errors"
	"github.com/seedslabs/gratibot-backend/pkg/logger"
)

// Operation is one independent schema alteration inside a step.
type Operation struct {
	Name string
	Run  func(ctx context.Context, conn *gorm.DB) error
}

// Step is a named migration unit. Steps apply strictly in slice order; the
// ordinal of a step is its 1-based position.
type Step struct {
	Name string
	Ops  []Operation
}

// OpResult is the recorded outcome of a single attempted operation.
type OpResult struct {
	Name string
	Err  error
}

// StepResult is the structured outcome of one step.
type StepResult struct {
	Step      string
	Ordinal   int
	Skipped   bool
	Ops       []OpResult
	MarkerErr error
}

// Err folds the per-operation failures into one error, nil when every
// operation succeeded. Operation failures are expected against databases that
// already carry the change; callers alert on patterns, not single errors.
func (r StepResult) Err() error {
	var combined error
	for _, op := range r.Ops {
		if op.Err != nil {
			combined = multierr.Append(combined, fmt.Errorf("%s: %w", op.Name, op.Err))
		}
	}
	return combined
}

// Engine applies the configured steps against the directory store.
type Engine struct {
	client *db.Client
	logg   *logger.Logger
	steps  []Step
}

// NewEngine builds an engine over the shared DB client. When no steps are
// supplied the built-in directory steps apply.
func NewEngine(client *db.Client, logg *logger.Logger, steps ...Step) *Engine {
	if len(steps) == 0 {
		steps = Steps()
	}
	return &Engine{client: client, logg: logg, steps: steps}
}

// Run ensures the base tables exist, then applies every step whose ordinal
// exceeds the current marker count. It returns per-step structured outcomes;
// the error return is reserved for the store itself being unreachable.
// Individual operation failures never abort siblings and never block startup.
func (e *Engine) Run(ctx context.Context) ([]StepResult, error) {
	conn := e.client.DB().WithContext(ctx)

	if err := conn.AutoMigrate(&models.User{}, &models.SchemaVersion{}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "ensuring base tables")
	}

	var count int64
	if err := conn.Model(&models.SchemaVersion{}).Count(&count).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "counting schema version markers")
	}

	if e.logg != nil {
		e.logg.Info(e.logg.WithField(ctx, "schema_version", count), "migration engine starting")
	}

	results := make([]StepResult, 0, len(e.steps))
	for i, step := range e.steps {
		ordinal := i + 1
		result := StepResult{Step: step.Name, Ordinal: ordinal}

		if int64(ordinal) <= count {
			result.Skipped = true
			results = append(results, result)
			continue
		}

		for _, op := range step.Ops {
			err := op.Run(ctx, conn)
			result.Ops = append(result.Ops, OpResult{Name: op.Name, Err: err})
			if err != nil && e.logg != nil {
				opCtx := e.logg.WithFields(ctx, map[string]any{"step": step.Name, "op": op.Name})
				e.logg.Warn(opCtx, pkgerrors.Wrap(pkgerrors.CodeMigrationStep, err, "operation failed, likely already applied").Error())
			}
		}

		// The marker is appended only after every operation was attempted.
		// If the insert fails the step retries verbatim on next boot.
		if err := conn.Create(&models.SchemaVersion{}).Error; err != nil {
			result.MarkerErr = pkgerrors.Wrap(pkgerrors.CodeStoreUnavailable, err, "recording schema version marker")
			if e.logg != nil {
				e.logg.Error(e.logg.WithField(ctx, "step", step.Name), "failed to record schema version marker", err)
			}
		}

		results = append(results, result)
	}

	return results, nil
}
