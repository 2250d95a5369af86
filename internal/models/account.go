package models

import "strings"

// UnknownName is shown wherever an account's name cannot be resolved.
const UnknownName = "Unknown"

// Account is the read-only profile owned by the authentication collaborator.
type Account struct {
	ID          string `gorm:"primaryKey;type:varchar(128);column:id" json:"id"`
	FirstName   string `gorm:"type:varchar(80);not null;default:'';column:first_name" json:"first_name"`
	DisplayName string `gorm:"type:varchar(80);not null;default:'';column:display_name" json:"display_name"`
	Email       string `gorm:"type:varchar(255);not null;default:'';column:email" json:"email"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// Name resolves the display name once, in a fixed order: first name, display
// name, email, then UnknownName. A nil account resolves to UnknownName.
func (a *Account) Name() string {
	if a == nil {
		return UnknownName
	}
	for _, candidate := range []string{a.FirstName, a.DisplayName, a.Email} {
		if name := strings.TrimSpace(candidate); name != "" {
			return name
		}
	}
	return UnknownName
}
