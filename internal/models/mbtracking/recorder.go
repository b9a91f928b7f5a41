package mbtracking

import (
	"context"
	"time"

	"mbskills/internal/mbredis"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// Tag d'interaction émis à chaque tentative d'envoi du formulaire de contact
	InteractionContactSubmission = "contact_submission"

	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder transforme un événement UI en ligne persistée. Chaque appel fait
// exactement une écriture réseau : pas de batch, pas de file, pas de retry.
// Les compteurs Redis et le pré-agrégat journalier sont best-effort.
type Recorder struct {
	Db       *gorm.DB
	Counters *mbredis.Counters
}

func NewRecorder(db *gorm.DB, counters *mbredis.Counters) *Recorder {
	if counters == nil {
		counters = mbredis.New("", 0)
	}
	return &Recorder{Db: db, Counters: counters}
}

// RecordPageView enregistre une vue de page et met à jour les compteurs.
// L'appelant décide quoi faire de l'erreur (loguer, jamais la montrer au visiteur).
func (r *Recorder) RecordPageView(view *PageView) error {
	if view.CreatedAt.IsZero() {
		view.CreatedAt = time.Now()
	}

	if err := r.Db.Create(view).Error; err != nil {
		log.Error().Err(err).Str("page", view.Page).Msg("enregistrement vue de page échoué")
		return err
	}

	r.bumpDailyStat("page_views")
	r.Counters.IncrPageView(context.Background())
	return nil
}

// RecordInteraction enregistre une interaction utilisateur avec son metadata libre
func (r *Recorder) RecordInteraction(interactionType, page, language string, metadata JSONMap) error {
	if metadata == nil {
		metadata = JSONMap{}
	}

	interaction := &UserInteraction{
		InteractionType: interactionType,
		Page:            page,
		Language:        language,
		Metadata:        metadata,
		CreatedAt:       time.Now(),
	}

	if err := r.Db.Create(interaction).Error; err != nil {
		log.Error().Err(err).Str("type", interactionType).Msg("enregistrement interaction échoué")
		return err
	}
	return nil
}

// RecordContactSubmission enregistre une tentative d'envoi du formulaire de
// contact : le formulaire soumis et l'issue (success/error) sont embarqués
// dans le metadata. C'est de là que sont dérivées les stats de soumission.
func (r *Recorder) RecordContactSubmission(form JSONMap, outcome, language string) error {
	err := r.RecordInteraction(InteractionContactSubmission, "contact", language, JSONMap{
		"form_data": form,
		"status":    outcome,
	})
	if err != nil {
		return err
	}

	r.bumpDailyStat("contact_submissions")
	if outcome == OutcomeSuccess {
		r.bumpDailyStat("successful_submissions")
		r.Counters.IncrSubmission(context.Background())
	}
	return nil
}

// bumpDailyStat incrémente une colonne du pré-agrégat journalier (upsert sur la date)
func (r *Recorder) bumpDailyStat(column string) {
	today := time.Now().Format("2006-01-02")

	seed := DailyStat{Date: today}
	switch column {
	case "page_views":
		seed.PageViews = 1
	case "contact_submissions":
		seed.ContactSubmissions = 1
	case "successful_submissions":
		seed.SuccessfulSubmissions = 1
	}

	err := r.Db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column: gorm.Expr(column+" + ?", 1),
		}),
	}).Create(&seed).Error
	if err != nil {
		log.Warn().Err(err).Str("column", column).Msg("mise à jour daily_stats échouée")
	}
}

// PurgeOld supprime les vues de page et interactions plus vieilles que
// retentionDays. Lancé par le cron de rétention.
func (r *Recorder) PurgeOld(retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result := r.Db.Where("created_at < ?", cutoff).Delete(&PageView{})
	if result.Error != nil {
		return result.Error
	}
	log.Info().Int64("rows", result.RowsAffected).Msg("vues de page purgées")

	result = r.Db.Where("created_at < ?", cutoff).Delete(&UserInteraction{})
	if result.Error != nil {
		return result.Error
	}
	log.Info().Int64("rows", result.RowsAffected).Msg("interactions purgées")

	return nil
}
