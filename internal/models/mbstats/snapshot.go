package mbstats

import (
	"time"

	"mbskills/internal/models/mbcontacts"
	"mbskills/internal/models/mbtracking"
)

// LanguageStat : vues de page par langue (agrégat backend)
type LanguageStat struct {
	Language  string `json:"language"`
	PageViews int64  `gorm:"column:page_views" json:"pageViews"`
}

// ServiceStat : demandes de contact par service demandé
type ServiceStat struct {
	Service string `json:"service"`
	Count   int64  `json:"count"`
}

// BrowserStat : répartition par navigateur (agrégat backend)
type BrowserStat struct {
	Browser    string `json:"browser"`
	TotalCount int64  `gorm:"column:total_count" json:"total_count"`
	DaysActive int64  `gorm:"column:days_active" json:"days_active"`
}

// BrowserCount : forme affichée sur le dashboard (compte seul)
type BrowserCount struct {
	Browser string `json:"browser"`
	Count   int64  `json:"count"`
}

// Stats regroupe tous les totaux et fenêtres calculés pour un cycle
// d'affichage du dashboard
type Stats struct {
	TotalPageViews          int64 `json:"totalPageViews"`
	TotalContactSubmissions int64 `json:"totalContactSubmissions"`
	SuccessfulSubmissions   int64 `json:"successfulSubmissions"`

	PageViewsToday     int64 `json:"pageViewsToday"`
	PageViewsThisWeek  int64 `json:"pageViewsThisWeek"`
	PageViewsThisMonth int64 `json:"pageViewsThisMonth"`

	SubmissionsToday     int64 `json:"submissionsToday"`
	SubmissionsThisWeek  int64 `json:"submissionsThisWeek"`
	SubmissionsThisMonth int64 `json:"submissionsThisMonth"`

	// Pourcentage de demandes arrivées au statut "completed"
	SuccessRate float64 `json:"successRate"`

	LanguageStats []LanguageStat `json:"languageStats"`
	ServiceStats  []ServiceStat  `json:"serviceStats"`
	BrowserStats  []BrowserCount `json:"browserStats"`

	RecentPageViews   []mbtracking.PageView `json:"recentPageViews"`
	RecentSubmissions []mbcontacts.Contact  `json:"recentSubmissions"`
}

// Snapshot est le résultat immuable d'un cycle d'agrégation complet.
// Une fois publié, il n'est jamais modifié : le suivant le remplace en bloc.
type Snapshot struct {
	Statistics       Stats                        `json:"statistics"`
	Contacts         []mbcontacts.Contact         `json:"contacts"`
	DailyStats       []mbtracking.DailyStat       `json:"dailyStats"`
	BrowserStats     []BrowserStat                `json:"browserStats"`
	UserInteractions []mbtracking.UserInteraction `json:"userInteractions"`
	GeneratedAt      time.Time                    `json:"generatedAt"`
}

// ExportDocument est le document JSON téléchargeable depuis le dashboard
type ExportDocument struct {
	Statistics       Stats                        `json:"statistics"`
	Contacts         []mbcontacts.Contact         `json:"contacts"`
	DailyStats       []mbtracking.DailyStat       `json:"dailyStats"`
	BrowserStats     []BrowserStat                `json:"browserStats"`
	UserInteractions []mbtracking.UserInteraction `json:"userInteractions"`
	ExportDate       time.Time                    `json:"exportDate"`
}

// Export sérialise le snapshot courant en document téléchargeable.
// Purement local, aucun appel réseau.
func (s *Snapshot) Export(now time.Time) ExportDocument {
	return ExportDocument{
		Statistics:       s.Statistics,
		Contacts:         s.Contacts,
		DailyStats:       s.DailyStats,
		BrowserStats:     s.BrowserStats,
		UserInteractions: s.UserInteractions,
		ExportDate:       now,
	}
}
