package models

import "time"

// Direction is the polarity of a single vote.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	// None is never stored; it reports the absence of a vote row.
	None Direction = "none"
)

// Valid reports whether d can be stored in a vote row.
func (d Direction) Valid() bool {
	return d == Up || d == Down
}

// Sign is +1 for up, -1 for down and 0 otherwise.
func (d Direction) Sign() int {
	switch d {
	case Up:
		return 1
	case Down:
		return -1
	}
	return 0
}

// Vote model - one row per (post, voter). The composite unique index is what
// serialises concurrent first votes from the same user.
type Vote struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostKind  PostKind  `gorm:"uniqueIndex:idx_vote_post_user,priority:1;index:idx_vote_post,priority:1;size:16;not null" json:"post_kind"`
	PostID    string    `gorm:"uniqueIndex:idx_vote_post_user,priority:2;index:idx_vote_post,priority:2;size:36;not null" json:"post_id"`
	UserID    string    `gorm:"uniqueIndex:idx_vote_post_user,priority:3;size:36;not null" json:"user_id"`
	Direction Direction `gorm:"size:8;not null" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (v Vote) Post() PostRef { return PostRef{Kind: v.PostKind, ID: v.PostID} }

type VoteRequest struct {
	VoteType Direction `json:"vote_type" binding:"required"`
	Remove   bool      `json:"remove"`
}
