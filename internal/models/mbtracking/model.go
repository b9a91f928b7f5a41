package mbtracking

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONMap est un sac clé/valeur libre sérialisé en JSON dans la base
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("type non supporté pour JSONMap")
	}
}

// PageView représente une vue de page. Écrite une seule fois, jamais modifiée.
type PageView struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Page      string    `gorm:"index;not null" json:"page"`
	Language  string    `gorm:"index" json:"language"`
	Referrer  string    `json:"referrer,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Browser   string    `gorm:"index" json:"browser,omitempty"`
	Country   string    `json:"country,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// UserInteraction représente un événement UI notable (clic navigation,
// ouverture du formulaire de contact, tentative d'envoi...). Immutable.
type UserInteraction struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	InteractionType string    `gorm:"index;not null" json:"interaction_type"`
	Page            string    `json:"page"`
	Language        string    `gorm:"index" json:"language"`
	Metadata        JSONMap   `gorm:"type:text" json:"metadata"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

// DailyStat est le pré-agrégat journalier maintenu à l'écriture
type DailyStat struct {
	ID                    uint64 `gorm:"primaryKey" json:"-"`
	Date                  string `gorm:"uniqueIndex;size:10" json:"date"`
	PageViews             int64  `json:"page_views"`
	ContactSubmissions    int64  `json:"contact_submissions"`
	SuccessfulSubmissions int64  `json:"successful_submissions"`
}

func (PageView) TableName() string {
	return "page_views"
}

func (UserInteraction) TableName() string {
	return "user_interactions"
}

func (DailyStat) TableName() string {
	return "daily_stats"
}
