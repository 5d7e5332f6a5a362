package entities

import "time"

// CommonAttributes are embedded into every persisted record.
// CreatedAt, UpdatedAt and IsActive are filled in by the store on insert.
type CommonAttributes struct {
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	IsDeleted bool       `gorm:"not null;default:false" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
