package mbmiddleware

import (
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oschwald/geoip2-golang/v2"
	"github.com/rs/zerolog/log"
)

// GetClientIP récupère l'IP réelle du client (derrière proxy éventuel)
func GetClientIP(c *gin.Context) string {
	ip := c.GetHeader("X-Real-IP")
	if ip == "" {
		ip = c.GetHeader("X-Forwarded-For")
		if ip != "" {
			// Prendre la première IP si plusieurs
			ips := strings.Split(ip, ",")
			ip = strings.TrimSpace(ips[0])
		}
	}
	if ip == "" {
		ip = c.ClientIP()
	}
	return ip
}

// ExtractLanguage extrait la langue préférée du visiteur depuis
// Accept-Language (ex: "fr-FR,fr;q=0.9,en-US;q=0.8" -> "fr")
func ExtractLanguage(c *gin.Context) string {
	acceptLang := c.GetHeader("Accept-Language")
	if acceptLang == "" {
		return "unknown"
	}

	parts := strings.Split(acceptLang, ",")
	if len(parts) > 0 {
		lang := strings.Split(parts[0], ";")[0]
		lang = strings.Split(lang, "-")[0]
		return strings.ToLower(strings.TrimSpace(lang))
	}

	return "unknown"
}

// DetectBrowser identifie la famille de navigateur depuis le User-Agent.
// L'ordre des tests compte : Edge et Opera se présentent aussi comme Chrome,
// Chrome se présente aussi comme Safari.
func DetectBrowser(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return "unknown"
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge"):
		return "Edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "safari"):
		return "Safari"
	default:
		return "Other"
	}
}

// GeoResolver résout le pays d'une IP via une base MaxMind locale.
// Optionnel : sans base configurée, le pays reste vide.
type GeoResolver struct {
	reader *geoip2.Reader
}

func NewGeoResolver(path string) *GeoResolver {
	if path == "" {
		return &GeoResolver{}
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("base GeoIP indisponible, pays désactivé")
		return &GeoResolver{}
	}
	return &GeoResolver{reader: reader}
}

// Country retourne le code ISO du pays de l'IP, ou "" si inconnu
func (g *GeoResolver) Country(ip string) string {
	if g.reader == nil {
		return ""
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	record, err := g.reader.Country(addr)
	if err != nil || record == nil {
		return ""
	}
	return record.Country.ISOCode
}

func (g *GeoResolver) Close() {
	if g.reader != nil {
		_ = g.reader.Close()
	}
}
