package mbstats

import (
	"sort"
	"time"

	"mbskills/internal/models/mbtracking"
)

// Formes {labels, datasets} consommées telles quelles par Chart.js côté
// dashboard. Fonctions pures : snapshot en entrée, structure d'affichage
// en sortie, aucun effet de bord.

type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type ChartDataset struct {
	Label           string  `json:"label"`
	Data            []int64 `json:"data"`
	BackgroundColor any     `json:"backgroundColor,omitempty"`
	BorderColor     any     `json:"borderColor,omitempty"`
	BorderWidth     int     `json:"borderWidth,omitempty"`
	Tension         float64 `json:"tension,omitempty"`
	Fill            bool    `json:"fill,omitempty"`
}

// LanguageChartData construit le camembert de répartition par langue
func LanguageChartData(stats Stats) ChartData {
	labels := make([]string, 0, len(stats.LanguageStats))
	data := make([]int64, 0, len(stats.LanguageStats))
	for _, lang := range stats.LanguageStats {
		labels = append(labels, languageLabel(lang.Language))
		data = append(data, lang.PageViews)
	}

	return ChartData{
		Labels: labels,
		Datasets: []ChartDataset{
			{
				Label: "Page Views",
				Data:  data,
				BackgroundColor: []string{
					"rgba(139, 92, 246, 0.7)",
					"rgba(59, 130, 246, 0.7)",
					"rgba(16, 185, 129, 0.7)",
				},
				BorderColor: []string{
					"rgba(139, 92, 246, 1)",
					"rgba(59, 130, 246, 1)",
					"rgba(16, 185, 129, 1)",
				},
				BorderWidth: 1,
			},
		},
	}
}

// DailyChartData construit la série temporelle vues/demandes. Le snapshot
// stocke les jours du plus récent au plus ancien, le graphe les veut en
// ordre chronologique.
func DailyChartData(dailyStats []mbtracking.DailyStat) ChartData {
	if len(dailyStats) == 0 {
		return ChartData{Labels: []string{}, Datasets: []ChartDataset{}}
	}

	sorted := make([]mbtracking.DailyStat, len(dailyStats))
	copy(sorted, dailyStats)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	labels := make([]string, 0, len(sorted))
	views := make([]int64, 0, len(sorted))
	submissions := make([]int64, 0, len(sorted))
	for _, stat := range sorted {
		labels = append(labels, dayLabel(stat.Date))
		views = append(views, stat.PageViews)
		submissions = append(submissions, stat.ContactSubmissions)
	}

	return ChartData{
		Labels: labels,
		Datasets: []ChartDataset{
			{
				Label:           "Page Views",
				Data:            views,
				BorderColor:     "rgba(139, 92, 246, 1)",
				BackgroundColor: "rgba(139, 92, 246, 0.2)",
				Tension:         0.3,
				Fill:            true,
			},
			{
				Label:           "Contact Submissions",
				Data:            submissions,
				BorderColor:     "rgba(16, 185, 129, 1)",
				BackgroundColor: "rgba(16, 185, 129, 0.2)",
				Tension:         0.3,
				Fill:            true,
			},
		},
	}
}

// ServiceChartData construit l'histogramme des demandes par service
func ServiceChartData(stats Stats) ChartData {
	labels := make([]string, 0, len(stats.ServiceStats))
	data := make([]int64, 0, len(stats.ServiceStats))
	for _, service := range stats.ServiceStats {
		labels = append(labels, serviceLabel(service.Service))
		data = append(data, service.Count)
	}

	return ChartData{
		Labels: labels,
		Datasets: []ChartDataset{
			{
				Label: "Requests",
				Data:  data,
				BackgroundColor: []string{
					"rgba(239, 68, 68, 0.7)",
					"rgba(245, 158, 11, 0.7)",
					"rgba(16, 185, 129, 0.7)",
				},
				BorderColor: []string{
					"rgba(239, 68, 68, 1)",
					"rgba(245, 158, 11, 1)",
					"rgba(16, 185, 129, 1)",
				},
				BorderWidth: 1,
			},
		},
	}
}

// languageLabel convertit un code langue en nom affichable
func languageLabel(code string) string {
	switch code {
	case "ar":
		return "Arabic"
	case "fr":
		return "French"
	case "en":
		return "English"
	default:
		return code
	}
}

func serviceLabel(service string) string {
	switch service {
	case "website":
		return "Websites"
	case "mobile":
		return "Mobile Apps"
	case "custom":
		return "Custom Solutions"
	default:
		return service
	}
}

func dayLabel(date string) string {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return parsed.Format("Jan 2")
}
