package mbredis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Counters maintient dans Redis les compteurs "temps réel" du jour
// (vues de page, demandes de contact). Tout est best-effort : une panne
// Redis ne doit jamais faire échouer un enregistrement.
type Counters struct {
	client *redis.Client
}

func New(addr string, db int) *Counters {
	if addr == "" {
		return &Counters{}
	}
	return &Counters{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
	}
}

// NewWithClient permet d'injecter un client existant (tests)
func NewWithClient(client *redis.Client) *Counters {
	return &Counters{client: client}
}

func (rc *Counters) Enabled() bool {
	return rc.client != nil
}

func dailyKey(day time.Time) string {
	return fmt.Sprintf("analytics:daily:%s", day.Format("2006-01-02"))
}

// IncrPageView incrémente le compteur de vues du jour (expiration 31 jours)
func (rc *Counters) IncrPageView(ctx context.Context) {
	rc.incrField(ctx, "page_views")
}

// IncrSubmission incrémente le compteur de demandes de contact du jour
func (rc *Counters) IncrSubmission(ctx context.Context) {
	rc.incrField(ctx, "contact_submissions")
}

func (rc *Counters) incrField(ctx context.Context, field string) {
	if rc.client == nil {
		return
	}
	key := dailyKey(time.Now())
	if err := rc.client.HIncrBy(ctx, key, field, 1).Err(); err != nil {
		log.Warn().Err(err).Str("field", field).Msg("redis: incrément compteur échoué")
		return
	}
	rc.client.Expire(ctx, key, 31*24*time.Hour)
}

// Today retourne les compteurs du jour (0 si absents ou Redis indisponible)
func (rc *Counters) Today(ctx context.Context) (pageViews int64, submissions int64) {
	if rc.client == nil {
		return 0, 0
	}
	key := dailyKey(time.Now())

	pageViews, err := rc.client.HGet(ctx, key, "page_views").Int64()
	if err != nil && err != redis.Nil {
		log.Warn().Err(err).Msg("redis: lecture page_views échouée")
	}
	submissions, err = rc.client.HGet(ctx, key, "contact_submissions").Int64()
	if err != nil && err != redis.Nil {
		log.Warn().Err(err).Msg("redis: lecture contact_submissions échouée")
	}
	return pageViews, submissions
}

// Close ferme la connexion Redis
func (rc *Counters) Close() {
	if rc.client != nil {
		_ = rc.client.Close()
	}
}
