package mbcontacts

import (
	"errors"
	"time"
)

// Cycle de vie d'une demande de contact. Seul le statut est mutable,
// et uniquement par un admin.
const (
	StatusPending       = "pending"
	StatusContacted     = "contacted"
	StatusInProgress    = "in-progress"
	StatusCompleted     = "completed"
	StatusNotInterested = "not-interested"
)

var (
	ErrInvalidStatus = errors.New("statut de contact invalide")
	ErrNotFound      = errors.New("contact introuvable")
	ErrMissingField  = errors.New("champ obligatoire manquant")
)

// Contact représente une demande envoyée depuis le formulaire du site
type Contact struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null;index" json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Service   string    `gorm:"index;not null" json:"service"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Language  string    `json:"language"`
	Status    string    `gorm:"index;default:pending" json:"status"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// ValidStatus indique si status fait partie des 5 valeurs autorisées
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusContacted, StatusInProgress, StatusCompleted, StatusNotInterested:
		return true
	}
	return false
}
