package mbconfig

import (
	"fmt"
	"log/syslog"
	"os"
	"strings"

	"github.com/andskur/argon2-hashing"
	"gopkg.in/yaml.v3"
)

type Config struct {
	SiteName        string         `yaml:"sitename"`
	Languages       []string       `yaml:"languages"`
	DefaultLanguage string         `yaml:"defaultlanguage"`
	TrustedProxies  []string       `yaml:"trustedproxies"`
	TrustedPlatform string         `yaml:"trustedplatform"`
	Database        DatabaseConfig `yaml:"database"`
	StaticPath      string         `yaml:"staticpath"`
	User            UserConfig     `yaml:"user"`
	Production      bool           `yaml:"production"`
	Listen          ListenConfig   `yaml:"listen"`
	Logger          LoggerConfig   `yaml:"logger"`
	Notify          NotifyConfig   `yaml:"notify"`
	GeoIP           GeoIPConfig    `yaml:"geoip"`
	Stats           StatsConfig    `yaml:"stats"`
}

type LoggerConfig struct {
	Level  string             `yaml:"level"`
	File   LoggerFileConfig   `yaml:"file"`
	Syslog LoggerSyslogConfig `yaml:"syslog"`
}

type LoggerFileConfig struct {
	Enable     bool   `yaml:"enable"`
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxsize"`
	MaxBackups int    `yaml:"maxbackups"`
	MaxAge     int    `yaml:"maxage"`
	Compress   bool   `yaml:"compress"`
}

type LoggerSyslogConfig struct {
	Enable   bool            `yaml:"enable"`
	Protocol string          `yaml:"protocol"`
	Address  string          `yaml:"address"`
	Tag      string          `yaml:"tag"`
	Priority syslog.Priority `yaml:"priority"`
}

type ListenConfig struct {
	Website string `yaml:"website"`
}

type UserConfig struct {
	Login string `yaml:"login"`
	Pass  string `yaml:"pass"`
	Hash  string `yaml:"hash"`
}

type DatabaseConfig struct {
	Redis RedisConfig `yaml:"redis"`
	Db    string      `yaml:"db"`
	Path  string      `yaml:"path"`
	Dsn   string      `yaml:"dsn"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	Db   int    `yaml:"db"`
}

// NotifyConfig configure la notification WhatsApp sortante (CallMeBot).
type NotifyConfig struct {
	Enable   bool   `yaml:"enable"`
	Endpoint string `yaml:"endpoint"`
	Phone    string `yaml:"phone"`
	ApiKey   string `yaml:"apikey"`
}

type GeoIPConfig struct {
	Path string `yaml:"path"`
}

type StatsConfig struct {
	RefreshSeconds int `yaml:"refreshseconds"`
	RetentionDays  int `yaml:"retentiondays"`
}

// Load charge la configuration YAML, la valide et hash le mot de passe
// admin si nécessaire (pass en clair -> hash argon2 réécrit dans le fichier)
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("erreur chargement config: %w", err)
	}

	conf := &Config{}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("erreur parsing config: %w", err)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	// Hasher le mot de passe en clair au premier lancement
	if conf.User.Pass != "" {
		if len(conf.User.Pass) < 8 {
			return nil, fmt.Errorf("le mot de passe doit contenir au moins 8 caractères")
		}
		hash, err := argon2.GenerateFromPassword([]byte(conf.User.Pass), argon2.DefaultParams)
		if err != nil {
			return nil, err
		}
		conf.User.Hash = string(hash)
		conf.User.Pass = ""
		if err := WriteConfigYaml(filename, conf); err != nil {
			return nil, err
		}
	}

	return conf, nil
}

func (conf *Config) validate() error {
	if conf.Database.Db == "" {
		return fmt.Errorf("database.db ne peut pas être vide")
	}
	if conf.Database.Db == "sqlite" && conf.Database.Path == "" {
		return fmt.Errorf("database.path ne peut pas être vide")
	}
	if conf.Database.Db == "mysql" && conf.Database.Dsn == "" {
		return fmt.Errorf("database.dsn ne peut pas être vide")
	}

	if conf.Listen.Website == "" {
		conf.Listen.Website = "localhost:8080"
	}
	if strings.HasPrefix(conf.Listen.Website, ":") {
		conf.Listen.Website = "localhost" + conf.Listen.Website
	}

	if len(conf.Languages) == 0 {
		conf.Languages = []string{"fr", "en", "ar"}
	}
	if conf.DefaultLanguage == "" {
		conf.DefaultLanguage = conf.Languages[0]
	}

	if conf.Notify.Endpoint == "" {
		conf.Notify.Endpoint = "https://api.callmebot.com/whatsapp.php"
	}
	if conf.Notify.Enable && (conf.Notify.Phone == "" || conf.Notify.ApiKey == "") {
		return fmt.Errorf("notify.phone et notify.apikey sont requis si notify.enable")
	}

	if conf.Stats.RefreshSeconds <= 0 {
		conf.Stats.RefreshSeconds = 30
	}
	if conf.Stats.RetentionDays <= 0 {
		conf.Stats.RetentionDays = 90
	}

	return nil
}

// IsLanguage indique si lang fait partie des langues du site
func (conf *Config) IsLanguage(lang string) bool {
	for _, l := range conf.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

func WriteConfigYaml(filename string, conf *Config) error {
	data, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}

// CreateExampleConfig écrit un fichier de configuration exemple
func CreateExampleConfig(filename string) error {
	example := &Config{
		SiteName:        "MBSkills",
		Languages:       []string{"fr", "en", "ar"},
		DefaultLanguage: "fr",
		Database: DatabaseConfig{
			Db:   "sqlite",
			Path: "./mbskills.db",
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Db:   0,
			},
		},
		User: UserConfig{
			Login: "admin",
			Pass:  "admin1234",
		},
		StaticPath: "./static",
		Production: false,
		Logger: LoggerConfig{
			Level: "info",
			File: LoggerFileConfig{
				Enable: false,
			},
			Syslog: LoggerSyslogConfig{
				Enable: false,
			},
		},
		Listen: ListenConfig{
			Website: "0.0.0.0:8080",
		},
		Notify: NotifyConfig{
			Enable: false,
			Phone:  "21600000000",
			ApiKey: "change-me",
		},
		Stats: StatsConfig{
			RefreshSeconds: 30,
			RetentionDays:  90,
		},
	}
	return WriteConfigYaml(filename, example)
}
