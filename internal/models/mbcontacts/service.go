package mbcontacts

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Service gère la persistance des demandes de contact. La notification
// WhatsApp part en arrière-plan après l'insertion : elle ne bloque jamais
// et ne fait jamais échouer la sauvegarde.
type Service struct {
	Db       *gorm.DB
	Notifier *Notifier
}

func NewService(db *gorm.DB, notifier *Notifier) *Service {
	return &Service{Db: db, Notifier: notifier}
}

// Create insère une nouvelle demande avec le statut "pending"
func (s *Service) Create(contact *Contact) error {
	contact.Name = strings.TrimSpace(contact.Name)
	contact.Email = strings.TrimSpace(contact.Email)
	contact.Message = strings.TrimSpace(contact.Message)

	if contact.Name == "" || contact.Email == "" || contact.Service == "" || contact.Message == "" {
		return ErrMissingField
	}

	contact.Status = StatusPending
	contact.CreatedAt = time.Now()

	if err := s.Db.Create(contact).Error; err != nil {
		return err
	}

	// Notification best-effort, jamais sur le chemin de sauvegarde
	if s.Notifier != nil {
		go s.Notifier.NotifyNewContact(contact)
	}

	return nil
}

// UpdateStatus change le statut d'une demande. Toute valeur hors énumération
// est rejetée plutôt que stockée.
func (s *Service) UpdateStatus(id uint64, status string) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}

	result := s.Db.Model(&Contact{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete supprime définitivement une demande
func (s *Service) Delete(id uint64) error {
	result := s.Db.Delete(&Contact{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List retourne toutes les demandes, les plus récentes d'abord
func (s *Service) List() ([]Contact, error) {
	var contacts []Contact
	err := s.Db.Order("created_at desc").Find(&contacts).Error
	return contacts, err
}
