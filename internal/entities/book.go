package entities

type Book struct {
	ID      uint    `gorm:"primaryKey" json:"id" mapstructure:"-"`
	Name    string  `gorm:"uniqueIndex;size:100;not null" json:"name" mapstructure:"name"`
	Price   float64 `json:"price" mapstructure:"price"`
	Author  string  `gorm:"size:100" json:"author" mapstructure:"author"`
	AddedBy uint    `gorm:"index;not null" json:"added_by" mapstructure:"-"`
	User    *User   `gorm:"foreignKey:AddedBy;constraint:OnDelete:RESTRICT" json:"-" mapstructure:"-"`
	CommonAttributes `mapstructure:"-"`
}

// All returns every persisted entity type, in dependency order.
func All() []any {
	return []any{&User{}, &Book{}}
}
