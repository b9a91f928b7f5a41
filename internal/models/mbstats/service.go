package mbstats

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mbskills/internal/mbredis"
	"mbskills/internal/models/mbcontacts"
	"mbskills/internal/models/mbtracking"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Échantillon de lignes brutes ramené par cycle (le total exact vient d'un COUNT séparé)
const recentSampleSize = 100

// Taille des listes "récents" affichées sur le dashboard
const recentDisplaySize = 10

// Service produit le snapshot de statistiques du dashboard admin.
// Le snapshot courant est remplacé en bloc à la fin de chaque cycle réussi,
// jamais muté en place. Un seul cycle à la fois : un déclenchement pendant
// qu'un cycle tourne est ignoré (single-flight).
type Service struct {
	Db       *gorm.DB
	Counters *mbredis.Counters

	cron *cron.Cron

	mu         sync.Mutex
	snapshot   *Snapshot
	refreshing bool
	closed     bool
}

func NewService(db *gorm.DB, counters *mbredis.Counters) *Service {
	if counters == nil {
		counters = mbredis.New("", 0)
	}
	return &Service{Db: db, Counters: counters}
}

// Start lance un premier cycle puis le rafraîchissement périodique
func (s *Service) Start(refreshSeconds int) {
	go s.Refresh()

	s.cron = cron.New()
	s.cron.AddFunc(fmt.Sprintf("@every %ds", refreshSeconds), func() {
		s.Refresh()
	})
	s.cron.Start()
}

// Close arrête le rafraîchissement. Un cycle encore en vol verra son
// résultat jeté : rien ne survit au teardown.
func (s *Service) Close() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Current retourne le snapshot courant (nil tant que le premier cycle
// n'a pas abouti)
func (s *Service) Current() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Refresh exécute un cycle d'agrégation complet. Retourne false si un cycle
// était déjà en cours (l'appel est alors ignoré).
func (s *Service) Refresh() bool {
	s.mu.Lock()
	if s.refreshing || s.closed {
		s.mu.Unlock()
		return false
	}
	s.refreshing = true
	s.mu.Unlock()

	snapshot := s.loadStatistics(time.Now())

	s.mu.Lock()
	s.refreshing = false
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.snapshot = snapshot
	s.mu.Unlock()
	return true
}

// RefreshAsync déclenche un cycle en arrière-plan (après une mutation admin,
// pour que les compteurs dérivés recollent à la source de vérité)
func (s *Service) RefreshAsync() {
	go s.Refresh()
}

// RealtimeToday retourne les compteurs du jour tenus dans Redis
func (s *Service) RealtimeToday(ctx context.Context) (pageViews, submissions int64) {
	return s.Counters.Today(ctx)
}

// loadStatistics exécute les six lectures en parallèle puis dérive les
// statistiques. Chaque lecture avale sa propre erreur et dégrade sa tranche
// en liste vide : un snapshot partiel vaut toujours mieux que pas de snapshot.
func (s *Service) loadStatistics(now time.Time) *Snapshot {
	var (
		contacts     []mbcontacts.Contact
		views        []mbtracking.PageView
		totalViews   int64
		dailyStats   []mbtracking.DailyStat
		browserStats []BrowserStat
		interactions []mbtracking.UserInteraction
		languages    []LanguageStat
	)

	var wg sync.WaitGroup
	wg.Add(6)
	go func() { defer wg.Done(); contacts = s.fetchContacts() }()
	go func() { defer wg.Done(); views, totalViews = s.fetchPageViews() }()
	go func() { defer wg.Done(); dailyStats = s.fetchDailyStats() }()
	go func() { defer wg.Done(); browserStats = s.fetchBrowserStats() }()
	go func() { defer wg.Done(); interactions = s.fetchInteractions() }()
	go func() { defer wg.Done(); languages = s.fetchLanguageDistribution() }()
	wg.Wait()

	return &Snapshot{
		Statistics:       computeStats(now, contacts, views, totalViews, languages, browserStats),
		Contacts:         contacts,
		DailyStats:       dailyStats,
		BrowserStats:     browserStats,
		UserInteractions: interactions,
		GeneratedAt:      now,
	}
}

func (s *Service) fetchContacts() []mbcontacts.Contact {
	contacts := []mbcontacts.Contact{}
	if err := s.Db.Order("created_at desc").Find(&contacts).Error; err != nil {
		log.Error().Err(err).Msg("lecture contacts échouée")
		return []mbcontacts.Contact{}
	}
	return contacts
}

// fetchPageViews ramène le total exact et un échantillon des vues récentes
func (s *Service) fetchPageViews() ([]mbtracking.PageView, int64) {
	var total int64
	if err := s.Db.Model(&mbtracking.PageView{}).Count(&total).Error; err != nil {
		log.Error().Err(err).Msg("comptage vues de page échoué")
		return []mbtracking.PageView{}, 0
	}

	views := []mbtracking.PageView{}
	err := s.Db.Order("created_at desc").Limit(recentSampleSize).Find(&views).Error
	if err != nil {
		log.Error().Err(err).Msg("lecture vues de page échouée")
		return []mbtracking.PageView{}, total
	}
	return views, total
}

func (s *Service) fetchDailyStats() []mbtracking.DailyStat {
	stats := []mbtracking.DailyStat{}
	err := s.Db.Order("date desc").Limit(30).Find(&stats).Error
	if err != nil {
		log.Error().Err(err).Msg("lecture daily_stats échouée")
		return []mbtracking.DailyStat{}
	}
	return stats
}

func (s *Service) fetchBrowserStats() []BrowserStat {
	stats := []BrowserStat{}
	err := s.Db.Model(&mbtracking.PageView{}).
		Select("browser, COUNT(*) as total_count, COUNT(DISTINCT DATE(created_at)) as days_active").
		Where("browser <> ''").
		Group("browser").
		Order("total_count DESC").
		Scan(&stats).Error
	if err != nil {
		log.Error().Err(err).Msg("lecture stats navigateurs échouée")
		return []BrowserStat{}
	}
	return stats
}

func (s *Service) fetchInteractions() []mbtracking.UserInteraction {
	interactions := []mbtracking.UserInteraction{}
	err := s.Db.Order("created_at desc").Limit(recentSampleSize).Find(&interactions).Error
	if err != nil {
		log.Error().Err(err).Msg("lecture interactions échouée")
		return []mbtracking.UserInteraction{}
	}
	return interactions
}

func (s *Service) fetchLanguageDistribution() []LanguageStat {
	stats := []LanguageStat{}
	err := s.Db.Model(&mbtracking.PageView{}).
		Select("language, COUNT(*) as page_views").
		Group("language").
		Order("page_views DESC").
		Scan(&stats).Error
	if err != nil {
		log.Error().Err(err).Msg("lecture répartition langues échouée")
		return []LanguageStat{}
	}
	return stats
}

// computeStats dérive les totaux, fenêtres et répartitions depuis les
// tranches ramenées et l'horloge. Fenêtres : aujourd'hui = minuit local,
// semaine = dimanche minuit le plus récent, mois = le 1er du mois.
// Borne basse incluse, borne haute exclue ("now").
func computeStats(now time.Time, contacts []mbcontacts.Contact, views []mbtracking.PageView,
	totalViews int64, languages []LanguageStat, browsers []BrowserStat) Stats {

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := today.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	inWindow := func(t, lower time.Time) bool {
		return !t.Before(lower) && t.Before(now)
	}

	stats := Stats{
		TotalPageViews:          totalViews,
		TotalContactSubmissions: int64(len(contacts)),
		LanguageStats:           languages,
	}

	for _, view := range views {
		if inWindow(view.CreatedAt, today) {
			stats.PageViewsToday++
		}
		if inWindow(view.CreatedAt, weekStart) {
			stats.PageViewsThisWeek++
		}
		if inWindow(view.CreatedAt, monthStart) {
			stats.PageViewsThisMonth++
		}
	}

	serviceCounts := map[string]int64{}
	for _, contact := range contacts {
		if contact.Status == mbcontacts.StatusCompleted {
			stats.SuccessfulSubmissions++
		}
		if inWindow(contact.CreatedAt, today) {
			stats.SubmissionsToday++
		}
		if inWindow(contact.CreatedAt, weekStart) {
			stats.SubmissionsThisWeek++
		}
		if inWindow(contact.CreatedAt, monthStart) {
			stats.SubmissionsThisMonth++
		}
		// Les services inconnus comptent sous leur clé littérale
		serviceCounts[contact.Service]++
	}

	// Dénominateur plancher à 1 : 0 contact donne 0%, jamais NaN
	denominator := stats.TotalContactSubmissions
	if denominator < 1 {
		denominator = 1
	}
	stats.SuccessRate = float64(stats.SuccessfulSubmissions) / float64(denominator) * 100

	stats.ServiceStats = make([]ServiceStat, 0, len(serviceCounts))
	for service, count := range serviceCounts {
		stats.ServiceStats = append(stats.ServiceStats, ServiceStat{Service: service, Count: count})
	}
	sort.Slice(stats.ServiceStats, func(i, j int) bool {
		if stats.ServiceStats[i].Count != stats.ServiceStats[j].Count {
			return stats.ServiceStats[i].Count > stats.ServiceStats[j].Count
		}
		return stats.ServiceStats[i].Service < stats.ServiceStats[j].Service
	})

	stats.BrowserStats = make([]BrowserCount, 0, len(browsers))
	for _, browser := range browsers {
		stats.BrowserStats = append(stats.BrowserStats, BrowserCount{
			Browser: browser.Browser,
			Count:   browser.TotalCount,
		})
	}

	stats.RecentPageViews = views
	if len(stats.RecentPageViews) > recentDisplaySize {
		stats.RecentPageViews = stats.RecentPageViews[:recentDisplaySize]
	}
	stats.RecentSubmissions = contacts
	if len(stats.RecentSubmissions) > recentDisplaySize {
		stats.RecentSubmissions = stats.RecentSubmissions[:recentDisplaySize]
	}

	return stats
}
