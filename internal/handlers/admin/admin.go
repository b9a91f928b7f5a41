package handlers_admin

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mbskills/internal/models/mbcontacts"
	"mbskills/internal/models/mbstats"

	"github.com/gin-gonic/gin"
)

// AdminHandler expose l'API du dashboard : snapshot de statistiques,
// compteurs temps réel, gestion des demandes de contact et export JSON.
type AdminHandler struct {
	Stats    *mbstats.Service
	Contacts *mbcontacts.Service
	SiteName string
}

func NewAdminHandler(stats *mbstats.Service, contacts *mbcontacts.Service, siteName string) *AdminHandler {
	return &AdminHandler{
		Stats:    stats,
		Contacts: contacts,
		SiteName: siteName,
	}
}

// GetStats retourne le snapshot courant et les structures prêtes pour
// Chart.js. 503 tant que le premier cycle d'agrégation n'a pas abouti.
func (ah *AdminHandler) GetStats(c *gin.Context) {
	snapshot := ah.Stats.Current()
	if snapshot == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snapshot": snapshot,
		"charts": gin.H{
			"languages": mbstats.LanguageChartData(snapshot.Statistics),
			"daily":     mbstats.DailyChartData(snapshot.DailyStats),
			"services":  mbstats.ServiceChartData(snapshot.Statistics),
		},
	})
}

// GetRealtime retourne les compteurs du jour tenus dans Redis
func (ah *AdminHandler) GetRealtime(c *gin.Context) {
	pageViews, submissions := ah.Stats.RealtimeToday(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"today_page_views":          pageViews,
		"today_contact_submissions": submissions,
	})
}

// Refresh force un cycle d'agrégation. Si un cycle tourne déjà, la demande
// est ignorée (single-flight) et on le dit à l'appelant.
func (ah *AdminHandler) Refresh(c *gin.Context) {
	if !ah.Stats.Refresh() {
		c.JSON(http.StatusAccepted, gin.H{"message": "Rafraîchissement déjà en cours"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Statistiques rafraîchies"})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateContactStatus change le statut d'une demande puis relance
// l'agrégation pour que les compteurs dérivés restent cohérents
func (ah *AdminHandler) UpdateContactStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant invalide"})
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	if err := ah.Contacts.UpdateStatus(id, req.Status); err != nil {
		switch {
		case errors.Is(err, mbcontacts.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Statut invalide"})
		case errors.Is(err, mbcontacts.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact introuvable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Mise à jour échouée"})
		}
		return
	}

	ah.Stats.RefreshAsync()
	c.JSON(http.StatusOK, gin.H{"message": "Statut mis à jour", "status": req.Status})
}

// DeleteContact supprime définitivement une demande
func (ah *AdminHandler) DeleteContact(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant invalide"})
		return
	}

	if err := ah.Contacts.Delete(id); err != nil {
		if errors.Is(err, mbcontacts.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Suppression échouée"})
		return
	}

	ah.Stats.RefreshAsync()
	c.JSON(http.StatusOK, gin.H{"message": "Contact supprimé"})
}

// Export sert le snapshot complet en document JSON téléchargeable.
// Purement local : aucun appel réseau.
func (ah *AdminHandler) Export(c *gin.Context) {
	snapshot := ah.Stats.Current()
	if snapshot == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}

	now := time.Now()
	filename := fmt.Sprintf("%s-analytics-%s.json", strings.ToLower(ah.SiteName), now.Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.IndentedJSON(http.StatusOK, snapshot.Export(now))
}
