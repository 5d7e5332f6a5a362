package entities

type User struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	FirstName    string  `gorm:"size:100" json:"first_name"`
	LastName     string  `gorm:"size:100" json:"last_name"`
	Email        string  `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Phone        *string `gorm:"size:16" json:"phone,omitempty"`
	PasswordHash []byte  `gorm:"not null" json:"-"`
	CommonAttributes
}

// PublicUser is the user view returned from the API.
type PublicUser struct {
	ID        uint    `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
	}
}
