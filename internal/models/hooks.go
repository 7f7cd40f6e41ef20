package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (u *User) BeforeCreate(tx *gorm.DB) error { newID(&u.ID); return nil }
func (q *Question) BeforeCreate(tx *gorm.DB) error { newID(&q.ID); return nil }
func (a *Answer) BeforeCreate(tx *gorm.DB) error { newID(&a.ID); return nil }
func (c *Comment) BeforeCreate(tx *gorm.DB) error { newID(&c.ID); return nil }
func (v *Vote) BeforeCreate(tx *gorm.DB) error { newID(&v.ID); return nil }
func (t *Tag) BeforeCreate(tx *gorm.DB) error { newID(&t.ID); return nil }
func (v *View) BeforeCreate(tx *gorm.DB) error { newID(&v.ID); return nil }
