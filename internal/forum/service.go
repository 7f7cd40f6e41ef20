package forum

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/qna-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qna-forum/backend/internal/authz"
	"github.com/emilythestrangee/qna-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qna-forum/backend/internal/models"
)

// Service performs the writes around the voting core: posts, comments,
// views and tags. Every method takes the caller explicitly and runs it
// through the authorization gate before touching storage.
type Service struct {
	db    *gorm.DB
	votes *ledger.Store
	log   logrus.FieldLogger
}

func NewService(db *gorm.DB, votes *ledger.Store, log logrus.FieldLogger) *Service {
	return &Service{db: db, votes: votes, log: log}
}

// CreateQuestion posts a new question, creating any tags seen for the first time.
func (s *Service) CreateQuestion(ctx context.Context, caller authz.Caller, req models.CreateQuestionRequest) (*models.Question, error) {
	userID, err := authz.RequireUser(caller)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(req.Content)
	if title == "" || content == "" {
		return nil, apperr.Validation("title and content are required")
	}
	if !req.Subject.Valid() {
		return nil, apperr.Validation("unknown subject %q", req.Subject)
	}
	if !req.Form.Valid() {
		return nil, apperr.Validation("unknown form %q", req.Form)
	}
	tags, err := validTags(req.Tags)
	if err != nil {
		return nil, err
	}

	q := models.Question{
		Title:   title,
		Content: content,
		Subject: req.Subject,
		Form:    req.Form,
		UserID:  userID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&q).Error; err != nil {
			return err
		}
		return replaceTags(tx, &q, tags)
	})
	if err != nil {
		return nil, apperr.Storage(err, "create question")
	}

	s.log.WithFields(logrus.Fields{"question": q.ID, "user": userID, "subject": q.Subject}).Info("question created")
	return s.reloadQuestion(ctx, q.ID)
}

// UpdateQuestion edits a question owned by the caller. Empty fields are kept;
// a non-nil Tags replaces the tag set.
func (s *Service) UpdateQuestion(ctx context.Context, caller authz.Caller, id string, req models.UpdateQuestionRequest) (*models.Question, error) {
	if _, err := authz.RequireUser(caller); err != nil {
		return nil, err
	}
	q, err := s.findQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(caller, q); err != nil {
		return nil, err
	}

	if t := strings.TrimSpace(req.Title); t != "" {
		q.Title = t
	}
	if c := strings.TrimSpace(req.Content); c != "" {
		q.Content = c
	}
	if req.Subject != "" {
		if !req.Subject.Valid() {
			return nil, apperr.Validation("unknown subject %q", req.Subject)
		}
		q.Subject = req.Subject
	}
	if req.Form != "" {
		if !req.Form.Valid() {
			return nil, apperr.Validation("unknown form %q", req.Form)
		}
		q.Form = req.Form
	}
	var tags []string
	if req.Tags != nil {
		if tags, err = validTags(req.Tags); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(q).Select("title", "content", "subject", "form", "updated_at").Updates(q).Error
		if err != nil {
			return err
		}
		if req.Tags == nil {
			return nil
		}
		return replaceTags(tx, q, tags)
	})
	if err != nil {
		return nil, apperr.Storage(err, "update question")
	}
	return s.reloadQuestion(ctx, q.ID)
}

// DeleteQuestion removes a question owned by the caller together with its
// answers and every vote, comment and view hanging off either.
func (s *Service) DeleteQuestion(ctx context.Context, caller authz.Caller, id string) error {
	if _, err := authz.RequireUser(caller); err != nil {
		return err
	}
	q, err := s.findQuestion(ctx, id)
	if err != nil {
		return err
	}
	if err := ownedBy(caller, q); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the thread first: writers hold a share lock on the post they
		// attach to, so nothing new lands under it once these are held.
		if err := lockForDelete(tx, &models.Question{}, q.Ref()); err != nil {
			return err
		}
		var answerIDs []string
		err := tx.Model(&models.Answer{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("question_id = ?", q.ID).
			Pluck("id", &answerIDs).Error
		if err != nil {
			return err
		}
		if err := purgePosts(ctx, tx, s.votes.WithTx(tx), models.KindAnswer, answerIDs); err != nil {
			return err
		}
		if err := purgePosts(ctx, tx, s.votes.WithTx(tx), models.KindQuestion, []string{q.ID}); err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", q.ID).Delete(&models.View{}).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", q.ID).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Model(q).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(q).Error
	})
	if err != nil {
		return apperr.Storage(err, "delete question")
	}

	s.log.WithFields(logrus.Fields{"question": q.ID, "user": caller.UserID}).Info("question deleted")
	return nil
}

// CreateAnswer posts an answer to an existing question.
func (s *Service) CreateAnswer(ctx context.Context, caller authz.Caller, questionID string, req models.CreateAnswerRequest) (*models.Answer, error) {
	userID, err := authz.RequireUser(caller)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperr.Validation("content is required")
	}
	a := models.Answer{Content: content, QuestionID: questionID, UserID: userID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockPost(ctx, tx, models.QuestionRef(questionID)); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&a).Error
	})
	if err != nil {
		return nil, apperr.Storage(err, "create answer")
	}
	return s.reloadAnswer(ctx, a.ID)
}

// UpdateAnswer replaces the content of an answer owned by the caller.
func (s *Service) UpdateAnswer(ctx context.Context, caller authz.Caller, id string, req models.UpdateAnswerRequest) (*models.Answer, error) {
	if _, err := authz.RequireUser(caller); err != nil {
		return nil, err
	}
	a, err := s.findAnswer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(caller, a); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperr.Validation("content is required")
	}

	if err := s.db.WithContext(ctx).Model(a).Update("content", content).Error; err != nil {
		return nil, apperr.Storage(err, "update answer")
	}
	return s.reloadAnswer(ctx, a.ID)
}

// DeleteAnswer removes an answer owned by the caller with its votes and comments.
func (s *Service) DeleteAnswer(ctx context.Context, caller authz.Caller, id string) error {
	if _, err := authz.RequireUser(caller); err != nil {
		return err
	}
	a, err := s.findAnswer(ctx, id)
	if err != nil {
		return err
	}
	if err := ownedBy(caller, a); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForDelete(tx, &models.Answer{}, a.Ref()); err != nil {
			return err
		}
		if err := purgePosts(ctx, tx, s.votes.WithTx(tx), models.KindAnswer, []string{a.ID}); err != nil {
			return err
		}
		return tx.Delete(a).Error
	})
	return apperr.Storage(err, "delete answer")
}

// CreateComment attaches a comment to a question or answer.
func (s *Service) CreateComment(ctx context.Context, caller authz.Caller, ref models.PostRef, req models.CreateCommentRequest) (*models.Comment, error) {
	userID, err := authz.RequireUser(caller)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperr.Validation("content is required")
	}
	if !ref.Kind.Valid() {
		return nil, apperr.Validation("post kind %q", ref.Kind)
	}

	c := models.Comment{Content: content, PostKind: ref.Kind, PostID: ref.ID, UserID: userID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockPost(ctx, tx, ref); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&c).Error
	})
	if err != nil {
		return nil, apperr.Storage(err, "create comment")
	}
	if err := s.db.WithContext(ctx).Preload("User").Where("id = ?", c.ID).Take(&c).Error; err != nil {
		return nil, apperr.Storage(err, "reload comment")
	}
	return &c, nil
}

// DeleteComment removes a comment written by the caller.
func (s *Service) DeleteComment(ctx context.Context, caller authz.Caller, id string) error {
	if _, err := authz.RequireUser(caller); err != nil {
		return err
	}
	var c models.Comment
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("comment %s", id)
	}
	if err != nil {
		return apperr.Storage(err, "load comment")
	}
	if err := authz.RequireOwner(caller, c.UserID); err != nil {
		return err
	}
	return apperr.Storage(s.db.WithContext(ctx).Delete(&c).Error, "delete comment")
}

// RecordView appends a view of a question. Views are never de-duplicated;
// the viewer is stored when known.
func (s *Service) RecordView(ctx context.Context, caller authz.Caller, questionID string) error {
	if _, err := s.findQuestion(ctx, questionID); err != nil {
		return err
	}
	v := models.View{QuestionID: questionID}
	if caller.Authenticated() {
		id := caller.UserID
		v.UserID = &id
	}
	return apperr.Storage(s.db.WithContext(ctx).Create(&v).Error, "record view")
}

func (s *Service) findQuestion(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&q).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("question %s", id)
	}
	if err != nil {
		return nil, apperr.Storage(err, "load question")
	}
	return &q, nil
}

func (s *Service) findAnswer(ctx context.Context, id string) (*models.Answer, error) {
	var a models.Answer
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&a).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("answer %s", id)
	}
	if err != nil {
		return nil, apperr.Storage(err, "load answer")
	}
	return &a, nil
}

func (s *Service) reloadQuestion(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	if err := withAuthorAndTags(s.db.WithContext(ctx)).Where("id = ?", id).Take(&q).Error; err != nil {
		return nil, apperr.Storage(err, "reload question")
	}
	return &q, nil
}

func (s *Service) reloadAnswer(ctx context.Context, id string) (*models.Answer, error) {
	var a models.Answer
	if err := s.db.WithContext(ctx).Preload("User").Where("id = ?", id).Take(&a).Error; err != nil {
		return nil, apperr.Storage(err, "reload answer")
	}
	return &a, nil
}

// lockPost share-locks the post ref inside tx, failing with ErrNotFound when
// it is gone.
func (s *Service) lockPost(ctx context.Context, tx *gorm.DB, ref models.PostRef) error {
	exists, err := s.votes.WithTx(tx).PostExists(ctx, ref)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("%s %s", ref.Kind, ref.ID)
	}
	return nil
}

// lockForDelete takes the row lock a delete needs before anything under the
// row is purged. A row deleted concurrently reports ErrNotFound.
func lockForDelete(tx *gorm.DB, model interface{}, ref models.PostRef) error {
	var found []string
	err := tx.Model(model).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", ref.ID).
		Pluck("id", &found).Error
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return apperr.NotFound("%s %s", ref.Kind, ref.ID)
	}
	return nil
}

// purgePosts drops the votes and comments owned by the given posts.
func purgePosts(ctx context.Context, tx *gorm.DB, votes *ledger.Store, kind models.PostKind, postIDs []string) error {
	if len(postIDs) == 0 {
		return nil
	}
	if err := votes.Purge(ctx, kind, postIDs); err != nil {
		return err
	}
	return tx.Where("post_kind = ? AND post_id IN ?", kind, postIDs).Delete(&models.Comment{}).Error
}

func validTags(raw []string) ([]string, error) {
	tags := models.NormalizeTags(raw)
	if len(tags) > models.MaxTags {
		return nil, apperr.Validation("at most %d tags allowed", models.MaxTags)
	}
	for _, t := range tags {
		if len(t) > 64 {
			return nil, apperr.Validation("tag %q is too long", t)
		}
	}
	return tags, nil
}

// replaceTags connects q to the named tags, creating the ones not seen before.
func replaceTags(tx *gorm.DB, q *models.Question, names []string) error {
	if len(names) == 0 {
		return tx.Model(q).Association("Tags").Clear()
	}

	fresh := make([]models.Tag, len(names))
	for i, n := range names {
		fresh[i] = models.Tag{Name: n}
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&fresh).Error
	if err != nil {
		return err
	}

	var tags []models.Tag
	if err := tx.Where("name IN ?", names).Find(&tags).Error; err != nil {
		return err
	}
	return tx.Model(q).Association("Tags").Replace(tags)
}

// ownedBy gates edits to a question or answer on authorship.
func ownedBy(caller authz.Caller, p models.Post) error {
	return authz.RequireOwner(caller, p.OwnerID())
}
