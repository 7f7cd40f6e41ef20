// Package dbtest opens throwaway databases for package tests.
package dbtest

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qna-forum/backend/internal/config"
	"github.com/emilythestrangee/qna-forum/backend/internal/database"
	"github.com/emilythestrangee/qna-forum/backend/internal/models"
)

// QuietLogger discards output so test logs stay readable.
func QuietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// SQLite returns a migrated database backed by a file in t.TempDir.
func SQLite(t testing.TB) *gorm.DB {
	t.Helper()

	svc, err := database.New(config.DB{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "forum.db"),
	}, QuietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return svc.GetDB()
}

// Fixture inserts rows the tests build on.
type Fixture struct {
	t  testing.TB
	db *gorm.DB
}

func NewFixture(t testing.TB, db *gorm.DB) *Fixture {
	return &Fixture{t: t, db: db}
}

func (f *Fixture) User(name string) models.User {
	f.t.Helper()
	u := models.User{Username: name, Email: name + "@example.com", Password: "x"}
	require.NoError(f.t, f.db.Create(&u).Error)
	return u
}

func (f *Fixture) Question(author models.User, subject models.Subject, title string) models.Question {
	f.t.Helper()
	q := models.Question{
		Title:   title,
		Content: "<p>" + title + "</p>",
		Subject: subject,
		Form:    "four",
		UserID:  author.ID,
	}
	require.NoError(f.t, f.db.Omit("User", "Tags").Create(&q).Error)
	return q
}

func (f *Fixture) Answer(author models.User, q models.Question, content string) models.Answer {
	f.t.Helper()
	a := models.Answer{Content: content, QuestionID: q.ID, UserID: author.ID}
	require.NoError(f.t, f.db.Omit("User").Create(&a).Error)
	return a
}

func (f *Fixture) Comment(author models.User, ref models.PostRef, content string) models.Comment {
	f.t.Helper()
	c := models.Comment{Content: content, PostKind: ref.Kind, PostID: ref.ID, UserID: author.ID}
	require.NoError(f.t, f.db.Omit("User").Create(&c).Error)
	return c
}
