package handlers_tracking

import (
	"net/http"

	"mbskills/internal/mbconfig"
	"mbskills/internal/mbmiddleware"
	"mbskills/internal/models/mbcontacts"
	"mbskills/internal/models/mbtracking"

	"github.com/gin-gonic/gin"
)

// TrackingHandler expose l'API publique appelée par le site : enregistrement
// des vues de page, des interactions et envoi du formulaire de contact.
type TrackingHandler struct {
	Recorder *mbtracking.Recorder
	Contacts *mbcontacts.Service
	Conf     *mbconfig.Config
	Geo      *mbmiddleware.GeoResolver
}

func NewTrackingHandler(recorder *mbtracking.Recorder, contacts *mbcontacts.Service,
	conf *mbconfig.Config, geo *mbmiddleware.GeoResolver) *TrackingHandler {
	return &TrackingHandler{
		Recorder: recorder,
		Contacts: contacts,
		Conf:     conf,
		Geo:      geo,
	}
}

type pageViewRequest struct {
	Page     string `json:"page" binding:"required"`
	Language string `json:"language"`
}

type interactionRequest struct {
	InteractionType string                 `json:"interaction_type" binding:"required"`
	Page            string                 `json:"page"`
	Language        string                 `json:"language"`
	Metadata        map[string]interface{} `json:"metadata"`
}

type contactRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Service  string `json:"service" binding:"required"`
	Message  string `json:"message" binding:"required"`
	Language string `json:"language"`
}

// TrackPageView enregistre une vue de page. Toujours 204 côté visiteur :
// un échec d'enregistrement est logué, jamais montré, jamais retenté.
func (th *TrackingHandler) TrackPageView(c *gin.Context) {
	var req pageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	view := &mbtracking.PageView{
		Page:      req.Page,
		Language:  th.resolveLanguage(c, req.Language),
		Referrer:  c.Request.Referer(),
		UserAgent: c.Request.UserAgent(),
		Browser:   mbmiddleware.DetectBrowser(c.Request.UserAgent()),
		Country:   th.Geo.Country(mbmiddleware.GetClientIP(c)),
	}

	_ = th.Recorder.RecordPageView(view)
	c.Status(http.StatusNoContent)
}

// TrackInteraction enregistre une interaction UI avec son metadata libre
func (th *TrackingHandler) TrackInteraction(c *gin.Context) {
	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	language := th.resolveLanguage(c, req.Language)
	_ = th.Recorder.RecordInteraction(req.InteractionType, req.Page, language, req.Metadata)
	c.Status(http.StatusNoContent)
}

// SubmitContact sauvegarde la demande (statut "pending"), trace la tentative
// dans les interactions avec son issue, puis laisse partir la notification
// WhatsApp en arrière-plan.
func (th *TrackingHandler) SubmitContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	language := th.resolveLanguage(c, req.Language)
	formSnapshot := mbtracking.JSONMap{
		"name":    req.Name,
		"email":   req.Email,
		"phone":   req.Phone,
		"service": req.Service,
		"message": req.Message,
	}

	contact := &mbcontacts.Contact{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Service:  req.Service,
		Message:  req.Message,
		Language: language,
	}

	if err := th.Contacts.Create(contact); err != nil {
		_ = th.Recorder.RecordContactSubmission(formSnapshot, mbtracking.OutcomeError, language)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to send message. Please check your Network connection",
		})
		return
	}

	_ = th.Recorder.RecordContactSubmission(formSnapshot, mbtracking.OutcomeSuccess, language)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Message envoyé",
		"id":      contact.ID,
		"status":  contact.Status,
	})
}

// resolveLanguage valide la langue annoncée par le client, sinon retombe
// sur Accept-Language puis sur la langue par défaut du site
func (th *TrackingHandler) resolveLanguage(c *gin.Context, requested string) string {
	if th.Conf.IsLanguage(requested) {
		return requested
	}
	detected := mbmiddleware.ExtractLanguage(c)
	if th.Conf.IsLanguage(detected) {
		return detected
	}
	return th.Conf.DefaultLanguage
}
