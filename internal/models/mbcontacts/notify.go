package mbcontacts

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// Notifier envoie une notification WhatsApp via la passerelle CallMeBot
// (simple GET avec message pré-formaté). Best-effort : toute erreur est
// loguée puis avalée.
type Notifier struct {
	Endpoint string
	Phone    string
	ApiKey   string
	SiteName string
	Client   *http.Client
}

func NewNotifier(endpoint, phone, apiKey, siteName string) *Notifier {
	return &Notifier{
		Endpoint: endpoint,
		Phone:    phone,
		ApiKey:   apiKey,
		SiteName: siteName,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NotifyNewContact prévient le propriétaire du site d'une nouvelle demande
func (n *Notifier) NotifyNewContact(contact *Contact) {
	if n.Phone == "" || n.ApiKey == "" {
		return
	}

	phone := contact.Phone
	if phone == "" {
		phone = "Not provided"
	}
	message := fmt.Sprintf(
		"New contact request from %s website:\n\nName: %s\nEmail: %s\nPhone: %s\nService: %s\nMessage: %s",
		n.SiteName, contact.Name, contact.Email, phone, contact.Service, contact.Message)

	params := url.Values{}
	params.Set("phone", n.Phone)
	params.Set("text", message)
	params.Set("apikey", n.ApiKey)

	resp, err := n.Client.Get(n.Endpoint + "?" + params.Encode())
	if err != nil {
		log.Warn().Err(err).Msg("notification WhatsApp échouée")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Msg("notification WhatsApp refusée par la passerelle")
		return
	}

	log.Info().Uint64("contact_id", contact.ID).Msg("notification WhatsApp envoyée")
}
