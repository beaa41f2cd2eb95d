package membership

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-stamp-market/internal/domain"
	"github.com/feral-file/ff-stamp-market/internal/logger"
	"github.com/feral-file/ff-stamp-market/internal/store"
)

// Cascade steps, in execution order
const (
	StepRemoveMembership = "remove collection membership"
	StepDeleteOwnerships = "delete ownership log"
	StepDeletePricings   = "delete pricing log"
	StepDeleteInsight    = "delete insight"
	StepDeleteStamp      = "delete stamp"
)

// CascadeError reports the step at which a cascading stamp deletion stopped.
// Steps before it remain applied.
type CascadeError struct {
	StampID string
	Step    string
	Err     error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("delete stamp %s failed at step %q: %v", e.StampID, e.Step, e.Err)
}

// Unwrap exposes both domain.ErrInternal and the underlying failure
func (e *CascadeError) Unwrap() []error {
	return []error{domain.ErrInternal, e.Err}
}

// Cascade deletes a stamp together with everything that refers to it.
//
// Steps run in a fixed order with no rollback: membership, ownership log, pricing
// log, insight, then the stamp. Every step is idempotent and the stamp record is
// removed last, so rerunning after a failure finishes the job.
type Cascade struct {
	store store.Store
	index *Index
}

// NewCascade creates a cascade over st
func NewCascade(st store.Store, index *Index) *Cascade {
	return &Cascade{store: st, index: index}
}

// DeleteStamp runs the cascade for stampID
func (c *Cascade) DeleteStamp(ctx context.Context, stampID string) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{StepRemoveMembership, func() error {
			_, err := c.index.RemoveStamp(ctx, stampID)
			return err
		}},
		{StepDeleteOwnerships, func() error { return c.store.DeleteOwnerships(ctx, stampID) }},
		{StepDeletePricings, func() error { return c.store.DeletePricings(ctx, stampID) }},
		{StepDeleteInsight, func() error { return c.store.DeleteInsight(ctx, stampID) }},
		{StepDeleteStamp, func() error { return c.store.DeleteStamp(ctx, stampID) }},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("stampID", stampID), zap.String("step", step.name))
			return &CascadeError{StampID: stampID, Step: step.name, Err: err}
		}
	}

	logger.InfoCtx(ctx, "Stamp deleted", zap.String("stampID", stampID))
	return nil
}
