package mbmiddleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestDetectBrowser(t *testing.T) {
	cases := []struct {
		name      string
		userAgent string
		expected  string
	}{
		{"vide", "", "unknown"},
		{"edge chromium", "Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 Edg/120.0", "Edge"},
		{"opera", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 OPR/106.0", "Opera"},
		{"firefox", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", "Firefox"},
		{"chrome", "Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 Chrome/120.0 Safari/537.36", "Chrome"},
		{"safari", "Mozilla/5.0 (Macintosh) AppleWebKit/605.1.15 Version/17.0 Safari/605.1.15", "Safari"},
		{"bot", "curl/8.4.0", "Other"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetectBrowser(tc.userAgent))
		})
	}
}

func TestExtractLanguage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		header   string
		expected string
	}{
		{"fr-FR,fr;q=0.9,en-US;q=0.8", "fr"},
		{"ar", "ar"},
		{"EN-GB", "en"},
		{"", "unknown"},
	}

	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/", nil)
		if tc.header != "" {
			c.Request.Header.Set("Accept-Language", tc.header)
		}
		assert.Equal(t, tc.expected, ExtractLanguage(c))
	}
}

func TestGetClientIPHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("X-Real-IP", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", GetClientIP(c))

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	assert.Equal(t, "198.51.100.4", GetClientIP(c))
}

func TestGeoResolverWithoutDatabase(t *testing.T) {
	resolver := NewGeoResolver("")
	defer resolver.Close()

	assert.Equal(t, "", resolver.Country("203.0.113.7"))
	assert.Equal(t, "", resolver.Country("pas-une-ip"))
}
