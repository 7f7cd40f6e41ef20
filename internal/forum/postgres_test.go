package forum_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/qna-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qna-forum/backend/internal/authz"
	"github.com/emilythestrangee/qna-forum/backend/internal/database/dbtest"
	"github.com/emilythestrangee/qna-forum/backend/internal/forum"
	"github.com/emilythestrangee/qna-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qna-forum/backend/internal/models"
	"github.com/emilythestrangee/qna-forum/backend/internal/tally"
)

func TestPostgresDeleteWaitsForInFlightVote(t *testing.T) {
	db := dbtest.Postgres(t)
	fx := dbtest.NewFixture(t, db)
	log, _ := test.NewNullLogger()
	votes := ledger.New(db)
	service := forum.NewService(db, votes, log)
	ctx := context.Background()

	alice := fx.User("alice")
	bob := fx.User("bob")
	q := fx.Question(alice, "physics", "Why is the sky blue?")
	a := fx.Answer(bob, q, "Rayleigh scattering")

	deleted := make(chan error, 1)
	err := votes.Atomic(ctx, func(tx ledger.Tx) error {
		ok, err := tx.PostExists(ctx, a.Ref())
		require.NoError(t, err)
		require.True(t, ok)

		go func() { deleted <- service.DeleteQuestion(ctx, authz.User(alice.ID), q.ID) }()

		select {
		case err := <-deleted:
			t.Fatalf("delete finished while the answer was locked: %v", err)
		case <-time.After(300 * time.Millisecond):
		}
		return tx.CreateVote(ctx, a.Ref(), alice.ID, models.Up)
	})
	require.NoError(t, err)
	require.NoError(t, <-deleted)

	var n int64
	require.NoError(t, db.Model(&models.Vote{}).Count(&n).Error)
	assert.Zero(t, n, "the vote written under the lock was purged with its thread")
}

func TestPostgresVoteAfterDeleteIsNotFound(t *testing.T) {
	db := dbtest.Postgres(t)
	fx := dbtest.NewFixture(t, db)
	log, _ := test.NewNullLogger()
	votes := ledger.New(db)
	service := forum.NewService(db, votes, log)
	engine := tally.NewEngine(votes, log)
	ctx := context.Background()

	alice := fx.User("alice")
	q := fx.Question(alice, "physics", "What is entropy?")
	require.NoError(t, service.DeleteQuestion(ctx, authz.User(alice.ID), q.ID))

	_, err := engine.SubmitVote(ctx, authz.User(alice.ID), q.Ref(), models.Up, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = service.CreateComment(ctx, authz.User(alice.ID), q.Ref(), models.CreateCommentRequest{Content: "late"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&models.Vote{}).Count(&n).Error)
	assert.Zero(t, n)
}
