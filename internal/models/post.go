package models

import "fmt"

// PostKind tags the two votable, commentable content types.
type PostKind string

const (
	KindQuestion PostKind = "question"
	KindAnswer   PostKind = "answer"
)

func (k PostKind) Valid() bool {
	return k == KindQuestion || k == KindAnswer
}

// PostRef addresses a single post of either kind.
type PostRef struct {
	Kind PostKind `json:"kind"`
	ID   string   `json:"id"`
}

func QuestionRef(id string) PostRef { return PostRef{Kind: KindQuestion, ID: id} }
func AnswerRef(id string) PostRef { return PostRef{Kind: KindAnswer, ID: id} }

func (r PostRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// Post is the capability set shared by questions and answers.
type Post interface {
	Ref() PostRef
	OwnerID() string
}
