package forum_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qna-forum/backend/internal/authz"
	"github.com/emilythestrangee/qna-forum/backend/internal/database/dbtest"
	"github.com/emilythestrangee/qna-forum/backend/internal/forum"
	"github.com/emilythestrangee/qna-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qna-forum/backend/internal/tally"
)

type harness struct {
	db      *gorm.DB
	fx      *dbtest.Fixture
	votes   *ledger.Store
	engine  *tally.Engine
	reader  *forum.Reader
	service *forum.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.SQLite(t)
	log, _ := test.NewNullLogger()
	votes := ledger.New(db)
	return &harness{
		db:      db,
		fx:      dbtest.NewFixture(t, db),
		votes:   votes,
		engine:  tally.NewEngine(votes, log),
		reader:  forum.NewReader(db, votes),
		service: forum.NewService(db, votes, log),
	}
}

var ctx = context.Background()

func as(id string) authz.Caller { return authz.User(id) }
