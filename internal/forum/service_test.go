package forum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/qna-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qna-forum/backend/internal/authz"
	"github.com/emilythestrangee/qna-forum/backend/internal/forum"
	"github.com/emilythestrangee/qna-forum/backend/internal/models"
)

func newQuestion(tags ...string) models.CreateQuestionRequest {
	return models.CreateQuestionRequest{
		Title:   "How do I factor quadratics?",
		Content: "<p>x^2 + 5x + 6</p>",
		Subject: "mathematics",
		Form:    "three",
		Tags:    tags,
	}
}

func TestCreateQuestion(t *testing.T) {
	h := newHarness(t)
	alice := h.fx.User("alice")

	q, err := h.service.CreateQuestion(ctx, as(alice.ID), newQuestion(" Algebra", "algebra", "", "Factoring "))
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, alice.ID, q.UserID)
	assert.Equal(t, "alice", q.User.Username)

	var names []string
	for _, tag := range q.Tags {
		names = append(names, tag.Name)
	}
	assert.Equal(t, []string{"algebra", "factoring"}, names)

	// a second question reuses the existing tag row
	_, err = h.service.CreateQuestion(ctx, as(alice.ID), newQuestion("algebra"))
	require.NoError(t, err)
	var n int64
	require.NoError(t, h.db.Model(&models.Tag{}).Where("name = ?", "algebra").Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestCreateQuestionRejects(t *testing.T) {
	h := newHarness(t)
	alice := h.fx.User("alice")

	_, err := h.service.CreateQuestion(ctx, authz.Anonymous, newQuestion())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	req := newQuestion()
	req.Subject = "astrology"
	_, err = h.service.CreateQuestion(ctx, as(alice.ID), req)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	req = newQuestion()
	req.Form = "six"
	_, err = h.service.CreateQuestion(ctx, as(alice.ID), req)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	req = newQuestion()
	req.Title = "   "
	_, err = h.service.CreateQuestion(ctx, as(alice.ID), req)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.service.CreateQuestion(ctx, as(alice.ID), newQuestion("a", "b", "c", "d", "e", "f"))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	var n int64
	require.NoError(t, h.db.Model(&models.Question{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUpdateQuestion(t *testing.T) {
	h := newHarness(t)
	alice := h.fx.User("alice")
	bob := h.fx.User("bob")

	q, err := h.service.CreateQuestion(ctx, as(alice.ID), newQuestion("algebra"))
	require.NoError(t, err)

	_, err = h.service.UpdateQuestion(ctx, as(bob.ID), q.ID, models.UpdateQuestionRequest{Title: "hijacked"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = h.service.UpdateQuestion(ctx, authz.Anonymous, q.ID, models.UpdateQuestionRequest{Title: "hijacked"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = h.service.UpdateQuestion(ctx, as(alice.ID), "missing", models.UpdateQuestionRequest{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	updated, err := h.service.UpdateQuestion(ctx, as(alice.ID), q.ID, models.UpdateQuestionRequest{
		Title: "Factoring by grouping",
		Tags:  []string{"grouping"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Factoring by grouping", updated.Title)
	assert.Equal(t, q.Content, updated.Content)
	assert.Equal(t, models.Subject("mathematics"), updated.Subject)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "grouping", updated.Tags[0].Name)

	cleared, err := h.service.UpdateQuestion(ctx, as(alice.ID), q.ID, models.UpdateQuestionRequest{Tags: []string{}})
	require.NoError(t, err)
	assert.Empty(t, cleared.Tags)
	assert.Equal(t, "Factoring by grouping", cleared.Title)
}

func TestDeleteQuestionCascades(t *testing.T) {
	h := newHarness(t)
	alice := h.fx.User("alice")
	bob := h.fx.User("bob")
	carol := h.fx.User("carol")

	q := h.fx.Question(alice, "history", "When was Malacca founded?")
	other := h.fx.Question(carol, "history", "Unrelated")
	a1 := h.fx.Answer(bob, q, "Around 1400")
	a2 := h.fx.Answer(carol, q, "Early 15th century")
	h.fx.Comment(bob, q.Ref(), "nice")
	h.fx.Comment(alice, a1.Ref(), "thanks")
	h.fx.Comment(alice, other.Ref(), "survives")
	require.NoError(t, h.service.RecordView(ctx, authz.Anonymous, q.ID))

	for _, ref := range []models.PostRef{q.Ref(), a1.Ref(), a2.Ref(), other.Ref()} {
		_, err := h.engine.SubmitVote(ctx, as(bob.ID), ref, models.Up, false)
		require.NoError(t, err)
	}

	assert.ErrorIs(t, h.service.DeleteQuestion(ctx, as(bob.ID), q.ID), apperr.ErrForbidden)
	require.NoError(t, h.service.DeleteQuestion(ctx, as(alice.ID), q.ID))

	_, err := h.reader.GetByID(ctx, authz.Anonymous, q.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	count := func(model interface{}) int64 {
		var n int64
		require.NoError(t, h.db.Model(model).Count(&n).Error)
		return n
	}
	assert.EqualValues(t, 0, count(&models.Answer{}))
	assert.EqualValues(t, 1, count(&models.Vote{}), "only the vote on the other question remains")
	assert.EqualValues(t, 1, count(&models.Comment{}))
	assert.EqualValues(t, 0, count(&models.View{}))

	detail, err := h.reader.GetByID(ctx, authz.Anonymous, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Score)

	assert.ErrorIs(t, h.service.DeleteQuestion(ctx, as(alice.ID), q.ID), apperr.ErrNotFound)
}

func TestAnswerLifecycle(t *testing.T) {
	h := newHarness(t)
	alice := h.fx.User("alice")
	bob := h.fx.User("bob")
	q := h.fx.Question(alice, "biology", "What is a cell?")

	_, err := h.service.CreateAnswer(ctx, as(bob.ID), "missing", models.CreateAnswerRequest{Content: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = h.service.CreateAnswer(ctx, as(bob.ID), q.ID, models.CreateAnswerRequest{Content: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	a, err := h.service.CreateAnswer(ctx, as(bob.ID), q.ID, models.CreateAnswerRequest{Content: "The unit of life"})
	require.NoError(t, err)
	assert.Equal(t, "bob", a.User.Username)

	_, err = h.service.UpdateAnswer(ctx, as(alice.ID), a.ID, models.UpdateAnswerRequest{Content: "mine now"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	a, err = h.service.UpdateAnswer(ctx, as(bob.ID), a.ID, models.UpdateAnswerRequest{Content: "The basic unit of life"})
	require.NoError(t, err)
	assert.Equal(t, "The basic unit of life", a.Content)

	_, err = h.engine.SubmitVote(ctx, as(alice.ID), a.Ref(), models.Down, false)
	require.NoError(t, err)
	_, err = h.service.CreateComment(ctx, as(alice.ID), a.Ref(), models.CreateCommentRequest{Content: "cite a source"})
	require.NoError(t, err)

	assert.ErrorIs(t, h.service.DeleteAnswer(ctx, as(alice.ID), a.ID), apperr.ErrForbidden)
	require.NoError(t, h.service.DeleteAnswer(ctx, as(bob.ID), a.ID))

	detail, err := h.reader.GetByID(ctx, authz.Anonymous, q.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Answers)
	assert.Zero(t, detail.AnswersCount)

	var votes, comments int64
	require.NoError(t, h.db.Model(&models.Vote{}).Count(&votes).Error)
	require.NoError(t, h.db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Zero(t, votes)
	assert.Zero(t, comments)
}

func TestComments(t *testing.T) {
	h := newHarness(t)
	alice := h.fx.User("alice")
	bob := h.fx.User("bob")
	q := h.fx.Question(alice, "chinese", "Stroke order")

	_, err := h.service.CreateComment(ctx, authz.Anonymous, q.Ref(), models.CreateCommentRequest{Content: "hi"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = h.service.CreateComment(ctx, as(bob.ID), models.AnswerRef(q.ID), models.CreateCommentRequest{Content: "hi"})
	assert.ErrorIs(t, err, apperr.ErrNotFound, "a question id is not an answer id")

	_, err = h.service.CreateComment(ctx, as(bob.ID), models.PostRef{Kind: "poll", ID: q.ID}, models.CreateCommentRequest{Content: "hi"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	c, err := h.service.CreateComment(ctx, as(bob.ID), q.Ref(), models.CreateCommentRequest{Content: "Top to bottom"})
	require.NoError(t, err)
	assert.Equal(t, "bob", c.User.Username)
	assert.Equal(t, q.Ref(), c.Post())

	assert.ErrorIs(t, h.service.DeleteComment(ctx, as(alice.ID), c.ID), apperr.ErrForbidden)
	require.NoError(t, h.service.DeleteComment(ctx, as(bob.ID), c.ID))
	assert.ErrorIs(t, h.service.DeleteComment(ctx, as(bob.ID), c.ID), apperr.ErrNotFound)
}

func TestRecordView(t *testing.T) {
	h := newHarness(t)
	alice := h.fx.User("alice")
	q := h.fx.Question(alice, "english", "Tenses")

	assert.ErrorIs(t, h.service.RecordView(ctx, authz.Anonymous, "missing"), apperr.ErrNotFound)
	require.NoError(t, h.service.RecordView(ctx, authz.Anonymous, q.ID))
	require.NoError(t, h.service.RecordView(ctx, as(alice.ID), q.ID))

	var views []models.View
	require.NoError(t, h.db.Order("created_at").Find(&views).Error)
	require.Len(t, views, 2)

	var withViewer int
	for _, v := range views {
		if v.UserID != nil {
			withViewer++
			assert.Equal(t, alice.ID, *v.UserID)
		}
	}
	assert.Equal(t, 1, withViewer)

	list, err := h.reader.GetAll(ctx, authz.Anonymous, forum.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, list[0].ViewsCount)
}
