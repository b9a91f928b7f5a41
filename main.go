package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"mbskills/internal/gormzerologger"
	handlers_admin "mbskills/internal/handlers/admin"
	handlers_tracking "mbskills/internal/handlers/tracking"
	"mbskills/internal/mbconfig"
	"mbskills/internal/mbmiddleware"
	"mbskills/internal/mbredis"
	"mbskills/internal/models/mbcontacts"
	"mbskills/internal/models/mblog"
	"mbskills/internal/models/mbstats"
	"mbskills/internal/models/mbtracking"

	"github.com/andskur/argon2-hashing"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const VERSION string = "1.0.0"

// global instance
var (
	db            *gorm.DB
	configuration *mbconfig.Config
	BuildID       string
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func parseCommandLineArgs() (configFile string, shouldCreateExample bool, versionDisplay bool, err error) {
	var config = flag.String("config", "", "Fichier de configuration YAML")
	var example = flag.Bool("example", false, "Créer un fichier de configuration exemple")
	var version = flag.Bool("version", false, "version du produit")
	flag.Parse()

	if *version {
		return "", false, true, nil
	}

	if *example {
		return "", true, false, nil
	}

	if *config == "" {
		return "", false, false, fmt.Errorf("fichier de configuration requis")
	}

	return *config, false, false, nil
}

func handleExampleCreation(filename string) error {
	if filename == "" {
		filename = "mbskills.yaml"
	}
	if err := mbconfig.CreateExampleConfig(filename); err != nil {
		return fmt.Errorf("erreur création exemple: %v", err)
	}

	fmt.Printf("✅ Fichier exemple créé: %s\n", filename)
	fmt.Println("⚠️  user.pass sera automatiquement hashé en argon2 dans user.hash au premier lancement")
	return nil
}

func initConfiguration() {
	configFile, shouldCreateExample, versionDisplay, err := parseCommandLineArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	if versionDisplay {
		fmt.Printf("mbskills version %s (build %s)\n", VERSION, BuildID)
		os.Exit(0)
	}

	if shouldCreateExample {
		if err := handleExampleCreation(""); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	configuration, err = mbconfig.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Erreur: %v\n", err)
		os.Exit(1)
	}
}

func initDatabase() {
	var err error
	gormConfig := &gorm.Config{
		Logger: gormzerologger.New(configuration.Logger.Level),
	}

	switch configuration.Database.Db {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(configuration.Database.Path), gormConfig)
	case "mysql":
		db, err = gorm.Open(mysql.Open(configuration.Database.Dsn), gormConfig)
	default:
		err = fmt.Errorf("le type de database doit etre sqlite ou mysql")
	}
	if err != nil {
		mblog.LogFatal(err, "Erreur connexion base de données")
	}

	err = db.AutoMigrate(
		&mbtracking.PageView{},
		&mbtracking.UserInteraction{},
		&mbtracking.DailyStat{},
		&mbcontacts.Contact{},
	)
	if err != nil {
		mblog.LogFatal(err, "Erreur migration")
	}

	mblog.LogInfo("Base de données initialisée avec succès")
}

func newServer() *gin.Engine {
	if configuration.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	if configuration.TrustedProxies != nil {
		r.SetTrustedProxies(configuration.TrustedProxies)
	}
	if configuration.TrustedPlatform != "" {
		switch configuration.TrustedPlatform {
		case "cloudflare":
			r.TrustedPlatform = gin.PlatformCloudflare
		case "google":
			r.TrustedPlatform = gin.PlatformGoogleAppEngine
		case "flyio":
			r.TrustedPlatform = gin.PlatformFlyIO
		default:
			r.TrustedPlatform = configuration.TrustedPlatform
		}
	}

	return r
}

// Middleware d'authentification
func authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")
		if userID == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentification requise"})
			c.Abort()
			return
		}
		c.Set("authenticated", true)
		c.Next()
	}
}

func loginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	// Vérification login / pass
	err := argon2.CompareHashAndPassword([]byte(configuration.User.Hash), []byte(req.Password))
	if err != nil || req.Username != configuration.User.Login {
		mblog.LogPrintf("Tentative de connexion échouée - User: %s, IP: %s", req.Username, c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Identifiants incorrects"})
		return
	}
	mblog.LogPrintf("Connexion réussie - User: %s, IP: %s", req.Username, c.ClientIP())

	// Créer la session
	session := sessions.Default(c)
	session.Set("user_id", "admin")
	session.Set("username", req.Username)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Connexion réussie",
		"redirect": "/admin",
	})
}

func logoutHandler(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.JSON(http.StatusOK, gin.H{"message": "Déconnexion réussie"})
}

// ServeMinifiedStatic sert les assets du site avec minification css/js
// et en-têtes de cache
func ServeMinifiedStatic(m *minify.M) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := filepath.Clean(strings.TrimPrefix(c.Request.URL.Path, "/assets/"))
		if strings.HasPrefix(path, "..") {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		content, err := os.ReadFile(filepath.Join(configuration.StaticPath, path))
		if err != nil {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		ext := filepath.Ext(path)
		var contentType string
		var minified []byte

		switch ext {
		case ".css":
			contentType = "text/css"
			minified, err = m.Bytes("text/css", content)
		case ".js":
			contentType = "application/javascript"
			minified, err = m.Bytes("application/javascript", content)
		case ".svg":
			c.Header("Cache-Control", "public, max-age=31536000, immutable")
			c.Header("ETag", generateETag(content))
			c.Data(http.StatusOK, "image/svg+xml", content)
			return
		default:
			c.Data(http.StatusOK, "application/octet-stream", content)
			return
		}

		if err != nil {
			minified = content
		}

		// En-têtes de cache pour CSS et JS
		c.Header("Cache-Control", "public, max-age=31536000, immutable")
		c.Header("ETag", generateETag(minified))

		c.Data(http.StatusOK, contentType, minified)
	}
}

// Fonction helper pour générer un ETag
func generateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return `"` + hex.EncodeToString(hash[:8]) + `"`
}

func setRoutes(r *gin.Engine, trackingHandler *handlers_tracking.TrackingHandler,
	adminHandler *handlers_admin.AdminHandler) {

	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)

	// middleware rate limiter
	middlewareLimiter := mbmiddleware.NewLimiter(5, 1*time.Minute)

	// Assets du site (SPA buildée)
	r.GET("/assets/*filepath", ServeMinifiedStatic(m))

	// Le reste des routes GET sert la SPA
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.File(filepath.Join(configuration.StaticPath, "index.html"))
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Page non trouvée"})
	})

	// API publiques appelées par le site
	api := r.Group("/api")
	{
		api.POST("/track/pageview", trackingHandler.TrackPageView)
		api.POST("/track/interaction", trackingHandler.TrackInteraction)
		api.POST("/contact", middlewareLimiter, trackingHandler.SubmitContact)
	}

	// Routes d'authentification
	r.POST("/admin/login", middlewareLimiter, loginHandler)
	r.POST("/admin/logout", logoutHandler)

	// Routes d'administration protégées
	admin := r.Group("/admin/api")
	admin.Use(authRequired())
	{
		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/realtime", adminHandler.GetRealtime)
		admin.POST("/refresh", adminHandler.Refresh)
		admin.GET("/export", adminHandler.Export)
		admin.PUT("/contacts/:id/status", adminHandler.UpdateContactStatus)
		admin.DELETE("/contacts/:id", adminHandler.DeleteContact)
	}
}

func main() {
	if BuildID == "" {
		BuildID = VERSION
	}

	initConfiguration()
	mblog.InitLogger(configuration.Logger, configuration.Production)
	initDatabase()

	counters := mbredis.New(configuration.Database.Redis.Addr, configuration.Database.Redis.Db)
	geo := mbmiddleware.NewGeoResolver(configuration.GeoIP.Path)

	var notifier *mbcontacts.Notifier
	if configuration.Notify.Enable {
		notifier = mbcontacts.NewNotifier(
			configuration.Notify.Endpoint,
			configuration.Notify.Phone,
			configuration.Notify.ApiKey,
			configuration.SiteName,
		)
	}

	recorder := mbtracking.NewRecorder(db, counters)
	contactService := mbcontacts.NewService(db, notifier)
	statsService := mbstats.NewService(db, counters)
	statsService.Start(configuration.Stats.RefreshSeconds)

	// Cron de rétention : purge des événements trop vieux, tous les jours à 2h
	retentionCron := cron.New()
	retentionCron.AddFunc("0 2 * * *", func() {
		if err := recorder.PurgeOld(configuration.Stats.RetentionDays); err != nil {
			mblog.LogError(err, "Purge de rétention échouée")
		}
	})
	retentionCron.Start()

	trackingHandler := handlers_tracking.NewTrackingHandler(recorder, contactService, configuration, geo)
	adminHandler := handlers_admin.NewAdminHandler(statsService, contactService, configuration.SiteName)

	r := newServer()
	mbmiddleware.InitMiddleware(r, configuration.Production)
	setRoutes(r, trackingHandler, adminHandler)

	server := &http.Server{
		Addr:    configuration.Listen.Website,
		Handler: r,
	}

	go func() {
		mblog.LogPrintf("Website démarré sur http://%s", configuration.Listen.Website)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mblog.LogFatal(err, "Erreur serveur")
		}
	}()

	// Arrêt propre : rien ne survit au teardown (cron, agrégation, redis)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)

	retentionCron.Stop()
	statsService.Close()
	counters.Close()
	geo.Close()
	mblog.LogInfo("Arrêt terminé")
}
