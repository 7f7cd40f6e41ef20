// Package tally turns a user's vote click into a ledger mutation and reports
// the post's recomputed score.
package tally

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/qna-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qna-forum/backend/internal/authz"
	"github.com/emilythestrangee/qna-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qna-forum/backend/internal/models"
)

// Ledger is the subset of the vote store the engine drives. Reads and
// writes for one submission run inside a single Atomic call.
type Ledger interface {
	Atomic(ctx context.Context, fn func(ledger.Tx) error) error
	CountByDirection(ctx context.Context, ref models.PostRef) (ledger.Tally, error)
}

// Op is the ledger write a transition requires.
type Op int

const (
	OpNone Op = iota
	OpCreate
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "none"
}

// Transition computes the next vote state for a voter currently holding
// state who asks for requested. Retraction must be explicit: repeating the
// held direction without it is a no-op. A retraction removes whatever vote is
// held. Delta is the expected score change and is only a prediction; the
// stored score is always recounted.
func Transition(state, requested models.Direction, retract bool) (next models.Direction, delta int, op Op) {
	if retract {
		if state == models.None {
			return models.None, 0, OpNone
		}
		return models.None, -state.Sign(), OpDelete
	}
	switch state {
	case models.None:
		return requested, requested.Sign(), OpCreate
	case requested:
		return state, 0, OpNone
	default:
		return requested, 2 * requested.Sign(), OpUpdate
	}
}

// Result is what a vote submission reports back.
type Result struct {
	Score int              `json:"score"`
	Vote  models.Direction `json:"vote"`
	Delta int              `json:"delta"`
}

type Engine struct {
	ledger Ledger
	log    logrus.FieldLogger
}

func NewEngine(l Ledger, log logrus.FieldLogger) *Engine {
	return &Engine{ledger: l, log: log}
}

// SubmitVote applies a vote, flip or retraction by caller on ref. Anonymous
// callers are rejected before the ledger is touched. The post is share-locked
// while the vote is written, so a concurrent delete of the post cannot leave
// the vote behind. A first vote that loses an insert race to a concurrent
// request from the same voter is re-evaluated against the winning row.
func (e *Engine) SubmitVote(ctx context.Context, caller authz.Caller, ref models.PostRef, requested models.Direction, retract bool) (Result, error) {
	voterID, err := authz.RequireUser(caller)
	if err != nil {
		return Result{}, err
	}
	if !requested.Valid() {
		return Result{}, apperr.Validation("vote direction %q", requested)
	}
	if !ref.Kind.Valid() {
		return Result{}, apperr.Validation("post kind %q", ref.Kind)
	}

	var (
		next  models.Direction
		delta int
		op    Op
	)
	err = e.ledger.Atomic(ctx, func(tx ledger.Tx) error {
		exists, err := tx.PostExists(ctx, ref)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("%s %s", ref.Kind, ref.ID)
		}

		state, err := heldDirection(ctx, tx, ref, voterID)
		if err != nil {
			return err
		}
		next, delta, op = Transition(state, requested, retract)
		err = apply(ctx, tx, ref, voterID, next, op)
		if op != OpCreate || !errors.Is(err, apperr.ErrConflict) {
			return err
		}

		e.log.WithFields(logrus.Fields{"post": ref.String(), "voter": voterID}).
			Info("concurrent first vote, retrying as update")
		if state, err = heldDirection(ctx, tx, ref, voterID); err != nil {
			return err
		}
		next, delta, op = Transition(state, requested, retract)
		if op == OpCreate {
			// The winning row vanished again; write ours over whatever is there.
			op = OpUpdate
		}
		if err := apply(ctx, tx, ref, voterID, next, op); err != nil {
			return apperr.Internal(err, "vote retry after conflict")
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	t, err := e.ledger.CountByDirection(ctx, ref)
	if err != nil {
		return Result{}, err
	}

	e.log.WithFields(logrus.Fields{
		"post":  ref.String(),
		"voter": voterID,
		"op":    op.String(),
		"vote":  next,
		"score": t.Score(),
	}).Debug("vote applied")

	return Result{Score: t.Score(), Vote: next, Delta: delta}, nil
}

func heldDirection(ctx context.Context, tx ledger.Tx, ref models.PostRef, voterID string) (models.Direction, error) {
	held, err := tx.FindVote(ctx, ref, voterID)
	if err != nil || held == nil {
		return models.None, err
	}
	return held.Direction, nil
}

func apply(ctx context.Context, tx ledger.Tx, ref models.PostRef, voterID string, next models.Direction, op Op) error {
	switch op {
	case OpCreate:
		return tx.CreateVote(ctx, ref, voterID, next)
	case OpUpdate:
		return tx.UpdateVoteDirection(ctx, ref, voterID, next)
	case OpDelete:
		return tx.DeleteVote(ctx, ref, voterID)
	}
	return nil
}
