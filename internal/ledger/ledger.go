// Package ledger stores individual votes, one row per (post, voter).
//
// The store never caches counts: every tally is a query-time reduction over
// vote rows, and uniqueness of a (post, voter) pair is enforced by the
// database index rather than by any in-process lock.
package ledger

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/qna-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qna-forum/backend/internal/models"
)

// Tally is the number of up and down votes a post holds.
type Tally struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// Score is the displayed vote count.
func (t Tally) Score() int {
	return t.Up - t.Down
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store whose writes join tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

func (s *Store) pair(ctx context.Context, ref models.PostRef, voterID string) *gorm.DB {
	return s.db.WithContext(ctx).
		Where("post_kind = ? AND post_id = ? AND user_id = ?", ref.Kind, ref.ID, voterID)
}

// FindVote returns the voter's vote on ref, or nil when none is recorded.
func (s *Store) FindVote(ctx context.Context, ref models.PostRef, voterID string) (*models.Vote, error) {
	var vote models.Vote
	err := s.pair(ctx, ref, voterID).Take(&vote).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage(err, "find vote")
	}
	return &vote, nil
}

// CreateVote inserts a new vote. It fails with apperr.ErrConflict when the
// voter already holds a vote on ref, including when a concurrent insert won.
func (s *Store) CreateVote(ctx context.Context, ref models.PostRef, voterID string, dir models.Direction) error {
	if !dir.Valid() {
		return apperr.Validation("vote direction %q", dir)
	}

	vote := models.Vote{PostKind: ref.Kind, PostID: ref.ID, UserID: voterID, Direction: dir}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&vote)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return errors.Wrapf(apperr.ErrConflict, "vote on %s by %s", ref, voterID)
		}
		return apperr.Storage(res.Error, "create vote")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(apperr.ErrConflict, "vote on %s by %s", ref, voterID)
	}
	return nil
}

// UpdateVoteDirection sets the voter's direction on ref. Exactly one row
// exists for the pair afterwards, whether or not one existed before.
func (s *Store) UpdateVoteDirection(ctx context.Context, ref models.PostRef, voterID string, dir models.Direction) error {
	if !dir.Valid() {
		return apperr.Validation("vote direction %q", dir)
	}

	vote := models.Vote{PostKind: ref.Kind, PostID: ref.ID, UserID: voterID, Direction: dir}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_kind"}, {Name: "post_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
		}).
		Create(&vote).Error
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(apperr.ErrConflict, "vote on %s by %s", ref, voterID)
		}
		return apperr.Storage(err, "update vote")
	}
	return nil
}

// DeleteVote removes the voter's vote on ref. Deleting an absent vote is not an error.
func (s *Store) DeleteVote(ctx context.Context, ref models.PostRef, voterID string) error {
	if err := s.pair(ctx, ref, voterID).Delete(&models.Vote{}).Error; err != nil {
		return apperr.Storage(err, "delete vote")
	}
	return nil
}

type directionCount struct {
	PostID    string
	Direction models.Direction
	N         int
}

// CountByDirection tallies the committed votes on ref.
func (s *Store) CountByDirection(ctx context.Context, ref models.PostRef) (Tally, error) {
	tallies, err := s.CountMany(ctx, ref.Kind, []string{ref.ID})
	if err != nil {
		return Tally{}, err
	}
	return tallies[ref.ID], nil
}

// CountMany tallies several posts of one kind in a single query. Posts with
// no votes are absent from the map; their zero Tally is the right answer.
func (s *Store) CountMany(ctx context.Context, kind models.PostKind, ids []string) (map[string]Tally, error) {
	tallies := make(map[string]Tally, len(ids))
	if len(ids) == 0 {
		return tallies, nil
	}

	var rows []directionCount
	err := s.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("post_id, direction, COUNT(*) AS n").
		Where("post_kind = ? AND post_id IN ?", kind, ids).
		Group("post_id, direction").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage(err, "count votes")
	}

	for _, row := range rows {
		t := tallies[row.PostID]
		switch row.Direction {
		case models.Up:
			t.Up += row.N
		case models.Down:
			t.Down += row.N
		}
		tallies[row.PostID] = t
	}
	return tallies, nil
}

// VotesBy returns the voter's direction on each of ids that they voted on.
func (s *Store) VotesBy(ctx context.Context, kind models.PostKind, ids []string, voterID string) (map[string]models.Direction, error) {
	out := make(map[string]models.Direction)
	if len(ids) == 0 || voterID == "" {
		return out, nil
	}

	var votes []models.Vote
	err := s.db.WithContext(ctx).
		Where("post_kind = ? AND user_id = ? AND post_id IN ?", kind, voterID, ids).
		Find(&votes).Error
	if err != nil {
		return nil, apperr.Storage(err, "load viewer votes")
	}
	for _, v := range votes {
		out[v.PostID] = v.Direction
	}
	return out, nil
}

// PostExists reports whether ref resolves to a stored question or answer.
// Inside a transaction the post row stays share-locked until commit, so a
// concurrent delete of the post waits for the caller's writes.
func (s *Store) PostExists(ctx context.Context, ref models.PostRef) (bool, error) {
	var model interface{}
	switch ref.Kind {
	case models.KindQuestion:
		model = &models.Question{}
	case models.KindAnswer:
		model = &models.Answer{}
	default:
		return false, apperr.Validation("post kind %q", ref.Kind)
	}

	var found []string
	err := s.db.WithContext(ctx).
		Model(model).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("id = ?", ref.ID).
		Limit(1).
		Pluck("id", &found).Error
	if err != nil {
		return false, apperr.Storage(err, "look up post")
	}
	return len(found) > 0, nil
}

// Tx is the part of the store a vote transaction works against.
type Tx interface {
	PostExists(ctx context.Context, ref models.PostRef) (bool, error)
	FindVote(ctx context.Context, ref models.PostRef, voterID string) (*models.Vote, error)
	CreateVote(ctx context.Context, ref models.PostRef, voterID string, dir models.Direction) error
	UpdateVoteDirection(ctx context.Context, ref models.PostRef, voterID string, dir models.Direction) error
	DeleteVote(ctx context.Context, ref models.PostRef, voterID string) error
}

// Atomic runs fn in one transaction. An error from fn is returned as is and
// rolls the transaction back.
func (s *Store) Atomic(ctx context.Context, fn func(Tx) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(s.WithTx(tx))
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return apperr.Storage(err, "vote transaction")
}

// Purge drops every vote on the given posts. Used when posts are deleted.
func (s *Store) Purge(ctx context.Context, kind models.PostKind, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("post_kind = ? AND post_id IN ?", kind, ids).
		Delete(&models.Vote{}).Error
	return apperr.Storage(err, "purge votes")
}

func isUniqueViolation(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == "23505"
}
