package mbstats

import (
	"fmt"
	"testing"
	"time"

	"mbskills/internal/models/mbcontacts"
	"mbskills/internal/models/mbtracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ============= Setup et Teardown =============

// Base en mémoire partagée entre connexions : les six lectures du cycle
// partent en parallèle et doivent voir les mêmes données
func setupStatsTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = testDB.AutoMigrate(
		&mbtracking.PageView{},
		&mbtracking.UserInteraction{},
		&mbtracking.DailyStat{},
		&mbcontacts.Contact{},
	)
	require.NoError(t, err)

	return testDB
}

func seedContact(t *testing.T, db *gorm.DB, service, status string, createdAt time.Time) {
	contact := &mbcontacts.Contact{
		Name:      "Test",
		Email:     "test@example.com",
		Service:   service,
		Message:   "Bonjour",
		Language:  "fr",
		Status:    status,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(contact).Error)
}

func seedPageView(t *testing.T, db *gorm.DB, page, language, browser string, createdAt time.Time) {
	view := &mbtracking.PageView{
		Page:      page,
		Language:  language,
		Browser:   browser,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(view).Error)
}

// ============= computeStats =============

func TestComputeStatsSuccessRateZeroContacts(t *testing.T) {
	stats := computeStats(time.Now(), nil, nil, 0, nil, nil)

	assert.Equal(t, int64(0), stats.TotalContactSubmissions)
	assert.Equal(t, 0.0, stats.SuccessRate)
}

func TestComputeStatsSuccessRateQuarter(t *testing.T) {
	now := time.Now()
	contacts := []mbcontacts.Contact{
		{Service: "website", Status: mbcontacts.StatusCompleted, CreatedAt: now.Add(-time.Hour)},
		{Service: "website", Status: mbcontacts.StatusPending, CreatedAt: now.Add(-time.Hour)},
		{Service: "mobile", Status: mbcontacts.StatusPending, CreatedAt: now.Add(-time.Hour)},
		{Service: "custom", Status: mbcontacts.StatusContacted, CreatedAt: now.Add(-time.Hour)},
	}

	stats := computeStats(now, contacts, nil, 0, nil, nil)

	assert.Equal(t, int64(4), stats.TotalContactSubmissions)
	assert.Equal(t, int64(1), stats.SuccessfulSubmissions)
	assert.Equal(t, 25.0, stats.SuccessRate)
}

func TestComputeStatsServiceCountsAndRate(t *testing.T) {
	now := time.Now()
	contacts := []mbcontacts.Contact{
		{Service: "website", Status: mbcontacts.StatusCompleted, CreatedAt: now.Add(-time.Hour)},
		{Service: "website", Status: mbcontacts.StatusPending, CreatedAt: now.Add(-time.Hour)},
		{Service: "mobile", Status: mbcontacts.StatusCompleted, CreatedAt: now.Add(-time.Hour)},
	}

	stats := computeStats(now, contacts, nil, 0, nil, nil)

	require.Len(t, stats.ServiceStats, 2)
	assert.Equal(t, ServiceStat{Service: "website", Count: 2}, stats.ServiceStats[0])
	assert.Equal(t, ServiceStat{Service: "mobile", Count: 1}, stats.ServiceStats[1])
	assert.InDelta(t, 200.0/3.0, stats.SuccessRate, 0.01)
}

func TestComputeStatsUnknownServiceCountedLiterally(t *testing.T) {
	now := time.Now()
	contacts := []mbcontacts.Contact{
		{Service: "consulting", Status: mbcontacts.StatusPending, CreatedAt: now.Add(-time.Hour)},
	}

	stats := computeStats(now, contacts, nil, 0, nil, nil)

	require.Len(t, stats.ServiceStats, 1)
	assert.Equal(t, "consulting", stats.ServiceStats[0].Service)
}

func TestComputeStatsWindowsMonotone(t *testing.T) {
	// Mercredi 15h : aujourd'hui, cette semaine et ce mois sont des
	// fenêtres emboîtées
	now := time.Date(2026, 8, 19, 15, 0, 0, 0, time.Local)

	views := []mbtracking.PageView{
		{CreatedAt: now.Add(-2 * time.Hour)},                 // aujourd'hui
		{CreatedAt: now.AddDate(0, 0, -2)},                   // cette semaine (lundi)
		{CreatedAt: time.Date(2026, 8, 3, 10, 0, 0, 0, time.Local)}, // ce mois
		{CreatedAt: time.Date(2026, 7, 20, 10, 0, 0, 0, time.Local)}, // hors fenêtres
	}
	contacts := []mbcontacts.Contact{
		{Service: "website", Status: mbcontacts.StatusPending, CreatedAt: now.Add(-time.Hour)},
		{Service: "website", Status: mbcontacts.StatusPending, CreatedAt: time.Date(2026, 8, 5, 9, 0, 0, 0, time.Local)},
	}

	stats := computeStats(now, contacts, views, int64(len(views)), nil, nil)

	assert.Equal(t, int64(1), stats.PageViewsToday)
	assert.Equal(t, int64(2), stats.PageViewsThisWeek)
	assert.Equal(t, int64(3), stats.PageViewsThisMonth)

	assert.LessOrEqual(t, stats.SubmissionsToday, stats.SubmissionsThisWeek)
	assert.LessOrEqual(t, stats.SubmissionsThisWeek, stats.SubmissionsThisMonth)
	assert.Equal(t, int64(1), stats.SubmissionsToday)
	assert.Equal(t, int64(2), stats.SubmissionsThisMonth)
}

func TestComputeStatsFutureEventExcluded(t *testing.T) {
	// Borne haute exclue : un événement daté après "now" ne compte pas
	now := time.Date(2026, 8, 19, 15, 0, 0, 0, time.Local)
	views := []mbtracking.PageView{
		{CreatedAt: now.Add(time.Hour)},
	}

	stats := computeStats(now, nil, views, 1, nil, nil)

	assert.Equal(t, int64(0), stats.PageViewsToday)
	assert.Equal(t, int64(0), stats.PageViewsThisMonth)
}

func TestComputeStatsRecentListsTruncated(t *testing.T) {
	now := time.Now()
	views := make([]mbtracking.PageView, 30)
	for i := range views {
		views[i] = mbtracking.PageView{Page: "/", CreatedAt: now.Add(-time.Hour)}
	}

	stats := computeStats(now, nil, views, 30, nil, nil)

	assert.Len(t, stats.RecentPageViews, 10)
	assert.Equal(t, int64(30), stats.TotalPageViews)
}

// ============= Cycle complet =============

func TestLoadStatisticsFullCycle(t *testing.T) {
	testDB := setupStatsTestDB(t)
	now := time.Now()

	seedPageView(t, testDB, "/", "fr", "Firefox", now.Add(-time.Hour))
	seedPageView(t, testDB, "/", "fr", "Chrome", now.Add(-2*time.Hour))
	seedPageView(t, testDB, "/pricing", "en", "Chrome", now.Add(-3*time.Hour))
	seedContact(t, testDB, "website", mbcontacts.StatusCompleted, now.Add(-time.Hour))
	seedContact(t, testDB, "mobile", mbcontacts.StatusPending, now.Add(-time.Hour))

	service := NewService(testDB, nil)
	require.True(t, service.Refresh())

	snapshot := service.Current()
	require.NotNil(t, snapshot)

	assert.Equal(t, int64(3), snapshot.Statistics.TotalPageViews)
	assert.Equal(t, int64(2), snapshot.Statistics.TotalContactSubmissions)
	assert.Equal(t, 50.0, snapshot.Statistics.SuccessRate)
	assert.Len(t, snapshot.Contacts, 2)

	// Répartition par langue depuis l'agrégat
	require.Len(t, snapshot.Statistics.LanguageStats, 2)
	assert.Equal(t, "fr", snapshot.Statistics.LanguageStats[0].Language)
	assert.Equal(t, int64(2), snapshot.Statistics.LanguageStats[0].PageViews)

	// Répartition par navigateur
	require.Len(t, snapshot.BrowserStats, 2)
	assert.Equal(t, "Chrome", snapshot.BrowserStats[0].Browser)
	assert.Equal(t, int64(2), snapshot.BrowserStats[0].TotalCount)
}

func TestLoadStatisticsSliceDegradesAlone(t *testing.T) {
	testDB := setupStatsTestDB(t)
	now := time.Now()

	seedContact(t, testDB, "website", mbcontacts.StatusPending, now.Add(-time.Hour))

	// Casser la tranche page_views : les autres tranches doivent survivre
	require.NoError(t, testDB.Migrator().DropTable(&mbtracking.PageView{}))

	service := NewService(testDB, nil)
	snapshot := service.loadStatistics(now)

	assert.Equal(t, int64(0), snapshot.Statistics.TotalPageViews)
	assert.Empty(t, snapshot.Statistics.RecentPageViews)
	assert.Empty(t, snapshot.BrowserStats)

	// La tranche contacts est intacte
	assert.Equal(t, int64(1), snapshot.Statistics.TotalContactSubmissions)
	assert.Len(t, snapshot.Contacts, 1)
}

func TestRefreshIgnoredAfterClose(t *testing.T) {
	testDB := setupStatsTestDB(t)

	service := NewService(testDB, nil)
	require.True(t, service.Refresh())
	require.NotNil(t, service.Current())

	service.Close()

	// Après teardown, plus aucun snapshot ne doit être publié
	assert.False(t, service.Refresh())
}

func TestCurrentNilBeforeFirstCycle(t *testing.T) {
	testDB := setupStatsTestDB(t)

	service := NewService(testDB, nil)
	assert.Nil(t, service.Current())
}
