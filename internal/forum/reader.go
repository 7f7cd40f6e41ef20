package forum

import (
	"context"
	stderrors "errors"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qna-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qna-forum/backend/internal/authz"
	"github.com/emilythestrangee/qna-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qna-forum/backend/internal/models"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ListOptions bounds and orders a question list. The zero value lists the
// newest DefaultListLimit questions.
type ListOptions struct {
	Limit  int
	Oldest bool
}

func (o ListOptions) limit() int {
	switch {
	case o.Limit > MaxListLimit:
		return MaxListLimit
	case o.Limit <= 0:
		return DefaultListLimit
	}
	return o.Limit
}

func (o ListOptions) order() string {
	if o.Oldest {
		return "created_at asc, id asc"
	}
	return "created_at desc, id desc"
}

// Reader builds read models. Vote scores are always recounted from the
// ledger, never read from a stored counter.
type Reader struct {
	db    *gorm.DB
	votes *ledger.Store
}

func NewReader(db *gorm.DB, votes *ledger.Store) *Reader {
	return &Reader{db: db, votes: votes}
}

func withAuthorAndTags(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("name")
	})
}

// GetAll lists questions across every subject.
func (r *Reader) GetAll(ctx context.Context, viewer authz.Caller, opts ListOptions) ([]QuestionSummary, error) {
	var questions []models.Question
	err := withAuthorAndTags(r.db.WithContext(ctx)).
		Order(opts.order()).
		Limit(opts.limit()).
		Find(&questions).Error
	if err != nil {
		return nil, apperr.Storage(err, "list questions")
	}
	return r.summarize(ctx, viewer, questions)
}

// GetBySubject lists the questions filed under subject.
func (r *Reader) GetBySubject(ctx context.Context, viewer authz.Caller, subject models.Subject, opts ListOptions) ([]QuestionSummary, error) {
	if !subject.Valid() {
		return nil, apperr.Validation("unknown subject %q", subject)
	}

	var questions []models.Question
	err := withAuthorAndTags(r.db.WithContext(ctx)).
		Where("subject = ?", subject).
		Order(opts.order()).
		Limit(opts.limit()).
		Find(&questions).Error
	if err != nil {
		return nil, apperr.Storage(err, "list questions by subject")
	}
	return r.summarize(ctx, viewer, questions)
}

// CountBySubject reports how many questions each subject holds, including
// subjects with none.
func (r *Reader) CountBySubject(ctx context.Context) (map[models.Subject]int, error) {
	var rows []groupCount
	err := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Select("subject AS id, COUNT(*) AS n").
		Group("subject").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage(err, "count questions by subject")
	}

	counts := make(map[models.Subject]int)
	for _, s := range models.Subjects() {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[models.Subject(row.ID)] = row.N
	}
	return counts, nil
}

// GetByID returns a question with its comments and every answer, each
// answer carrying its own tally and comments.
func (r *Reader) GetByID(ctx context.Context, viewer authz.Caller, id string) (*QuestionDetail, error) {
	var q models.Question
	err := withAuthorAndTags(r.db.WithContext(ctx)).Where("id = ?", id).Take(&q).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("question %s", id)
	}
	if err != nil {
		return nil, apperr.Storage(err, "load question")
	}

	summaries, err := r.summarize(ctx, viewer, []models.Question{q})
	if err != nil {
		return nil, err
	}

	var answers []models.Answer
	err = r.db.WithContext(ctx).
		Preload("User").
		Where("question_id = ?", q.ID).
		Order("created_at asc, id asc").
		Find(&answers).Error
	if err != nil {
		return nil, apperr.Storage(err, "load answers")
	}

	answerViews, err := r.answerViews(ctx, viewer, answers)
	if err != nil {
		return nil, err
	}

	comments, err := r.commentsOn(ctx, models.KindQuestion, []string{q.ID})
	if err != nil {
		return nil, err
	}
	byAnswer, err := r.commentsOn(ctx, models.KindAnswer, ids(answers, func(a models.Answer) string { return a.ID }))
	if err != nil {
		return nil, err
	}
	for i := range answerViews {
		answerViews[i].Comments = byAnswer[answerViews[i].ID]
	}

	detail := &QuestionDetail{
		QuestionSummary: summaries[0],
		Comments:        comments[q.ID],
		Answers:         answerViews,
	}
	if detail.Comments == nil {
		detail.Comments = []CommentView{}
	}
	return detail, nil
}

// Profile returns a user's public page. Like the rest of the user surface it
// is only served to signed-in callers.
func (r *Reader) Profile(ctx context.Context, viewer authz.Caller, username string) (*Profile, error) {
	if _, err := authz.RequireUser(viewer); err != nil {
		return nil, err
	}

	var u models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).Take(&u).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user %s", username)
	}
	if err != nil {
		return nil, apperr.Storage(err, "load user")
	}

	var questions []models.Question
	err = withAuthorAndTags(r.db.WithContext(ctx)).
		Where("user_id = ?", u.ID).
		Order("created_at desc, id desc").
		Find(&questions).Error
	if err != nil {
		return nil, apperr.Storage(err, "load user questions")
	}
	qs, err := r.summarize(ctx, viewer, questions)
	if err != nil {
		return nil, err
	}

	var answers []models.Answer
	err = r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", u.ID).
		Order("created_at desc, id desc").
		Find(&answers).Error
	if err != nil {
		return nil, apperr.Storage(err, "load user answers")
	}
	views, err := r.answerViews(ctx, viewer, answers)
	if err != nil {
		return nil, err
	}

	var parents []models.Question
	parentIDs := ids(answers, func(a models.Answer) string { return a.QuestionID })
	if len(parentIDs) > 0 {
		err = withAuthorAndTags(r.db.WithContext(ctx)).Where("id IN ?", parentIDs).Find(&parents).Error
		if err != nil {
			return nil, apperr.Storage(err, "load answered questions")
		}
	}
	parentByID := make(map[string]models.Question, len(parents))
	for _, p := range parents {
		parentByID[p.ID] = p
	}

	profileAnswers := make([]ProfileAnswer, len(views))
	for i, v := range views {
		p := parentByID[v.QuestionID]
		profileAnswers[i] = ProfileAnswer{
			AnswerView: v,
			Question: QuestionRef{
				ID:      p.ID,
				Title:   p.Title,
				Subject: p.Subject,
				Form:    p.Form,
				Tags:    tagNames(p.Tags),
			},
		}
	}

	return &Profile{
		ID:        u.ID,
		Username:  u.Username,
		Bio:       u.Bio,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		Questions: qs,
		Answers:   profileAnswers,
	}, nil
}

// Me returns the signed-in caller's own account.
func (r *Reader) Me(ctx context.Context, viewer authz.Caller) (*models.User, error) {
	id, err := authz.RequireUser(viewer)
	if err != nil {
		return nil, err
	}
	var u models.User
	err = r.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user %s", id)
	}
	if err != nil {
		return nil, apperr.Storage(err, "load user")
	}
	return &u, nil
}

// summarize attaches tallies and counts to questions, preserving order.
func (r *Reader) summarize(ctx context.Context, viewer authz.Caller, questions []models.Question) ([]QuestionSummary, error) {
	out := make([]QuestionSummary, len(questions))
	if len(questions) == 0 {
		return out, nil
	}
	qids := ids(questions, func(q models.Question) string { return q.ID })

	var (
		tallies                  map[string]ledger.Tally
		mine                     map[string]models.Direction
		answers, comments, views map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tallies, err = r.votes.CountMany(gctx, models.KindQuestion, qids)
		return err
	})
	g.Go(func() (err error) {
		mine, err = r.votes.VotesBy(gctx, models.KindQuestion, qids, viewer.UserID)
		return err
	})
	g.Go(func() (err error) {
		answers, err = r.countGrouped(gctx, &models.Answer{}, "question_id", qids, nil)
		return err
	})
	g.Go(func() (err error) {
		comments, err = r.countGrouped(gctx, &models.Comment{}, "post_id", qids, kindFilter(models.KindQuestion))
		return err
	})
	g.Go(func() (err error) {
		views, err = r.countGrouped(gctx, &models.View{}, "question_id", qids, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, q := range questions {
		out[i] = QuestionSummary{
			ID:            q.ID,
			Title:         q.Title,
			Content:       q.Content,
			Subject:       q.Subject,
			Form:          q.Form,
			Tags:          tagNames(q.Tags),
			Author:        authorOf(q.User),
			Score:         tallies[q.ID].Score(),
			Vote:          directionOrNone(mine[q.ID]),
			AnswersCount:  answers[q.ID],
			CommentsCount: comments[q.ID],
			ViewsCount:    views[q.ID],
			CreatedAt:     q.CreatedAt,
			UpdatedAt:     q.UpdatedAt,
		}
	}
	return out, nil
}

func (r *Reader) answerViews(ctx context.Context, viewer authz.Caller, answers []models.Answer) ([]AnswerView, error) {
	out := make([]AnswerView, len(answers))
	if len(answers) == 0 {
		return out, nil
	}
	aids := ids(answers, func(a models.Answer) string { return a.ID })

	var (
		tallies  map[string]ledger.Tally
		mine     map[string]models.Direction
		comments map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tallies, err = r.votes.CountMany(gctx, models.KindAnswer, aids)
		return err
	})
	g.Go(func() (err error) {
		mine, err = r.votes.VotesBy(gctx, models.KindAnswer, aids, viewer.UserID)
		return err
	})
	g.Go(func() (err error) {
		comments, err = r.countGrouped(gctx, &models.Comment{}, "post_id", aids, kindFilter(models.KindAnswer))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, a := range answers {
		out[i] = AnswerView{
			ID:            a.ID,
			QuestionID:    a.QuestionID,
			Content:       a.Content,
			Author:        authorOf(a.User),
			Score:         tallies[a.ID].Score(),
			Vote:          directionOrNone(mine[a.ID]),
			CommentsCount: comments[a.ID],
			CreatedAt:     a.CreatedAt,
			UpdatedAt:     a.UpdatedAt,
		}
	}
	return out, nil
}

// commentsOn loads comments on posts of one kind, oldest first, keyed by post id.
func (r *Reader) commentsOn(ctx context.Context, kind models.PostKind, postIDs []string) (map[string][]CommentView, error) {
	out := make(map[string][]CommentView)
	if len(postIDs) == 0 {
		return out, nil
	}
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_kind = ? AND post_id IN ?", kind, postIDs).
		Order("created_at asc, id asc").
		Find(&comments).Error
	if err != nil {
		return nil, apperr.Storage(err, "load comments")
	}
	for _, c := range comments {
		out[c.PostID] = append(out[c.PostID], commentView(c))
	}
	return out, nil
}

type groupCount struct {
	ID string
	N  int
}

func kindFilter(kind models.PostKind) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("post_kind = ?", kind)
	}
}

// countGrouped counts rows of model per value of col for the given ids.
func (r *Reader) countGrouped(ctx context.Context, model interface{}, col string, keys []string, scope func(*gorm.DB) *gorm.DB) (map[string]int, error) {
	q := r.db.WithContext(ctx).Model(model)
	if scope != nil {
		q = q.Scopes(scope)
	}
	var rows []groupCount
	err := q.Select(col+" AS id, COUNT(*) AS n").
		Where(col+" IN ?", keys).
		Group(col).
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage(err, "count "+col)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ID] = row.N
	}
	return counts, nil
}

func directionOrNone(d models.Direction) models.Direction {
	if d == "" {
		return models.None
	}
	return d
}

func ids[T any](items []T, key func(T) string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		k := key(it)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
