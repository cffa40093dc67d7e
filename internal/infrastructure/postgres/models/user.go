package models

// UserModel maps the users table owned by the identity service. The engine only reads it.
type UserModel struct {
	ID             string  `gorm:"primaryKey;size:64"`
	SponsorID      *string `gorm:"size:64;index"`
	IsIntermediary bool    `gorm:"not null"`
}

func (UserModel) TableName() string {
	return "users"
}
