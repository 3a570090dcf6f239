package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/noticias/core/internal/models"
	"github.com/noticias/core/internal/pkg/cron"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort            = 3000
	defaultEnv             = "development"
	defaultTimezone        = "America/Mexico_City"
	defaultDriver          = DriverMongo
	defaultMongoURI        = "mongodb://localhost:27017"
	defaultMongoName       = "noticias"
	defaultDBHost          = "127.0.0.1"
	defaultDBPort          = 3306
	defaultDBUser          = "root"
	defaultDBName          = "noticias"
	defaultDBCharset       = "utf8mb4"
	defaultRedisURL        = "redis://localhost:6379/0"
	defaultEventsDriver    = EventsLocal
	defaultEventsPrefix    = "noticias"
	defaultSite            = "default"
	defaultConfirmTTL      = 24 * time.Hour
	defaultBulkConcurrency = 8
	defaultSpamThreshold   = 5
	defaultRateLimitMax    = 60
	defaultRateLimitWindow = time.Minute
	defaultTokenTTL        = 12 * time.Hour
	defaultArchivePrefix   = "boletines"
)

// Database drivers.
const (
	DriverMongo  = "mongo"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Event bus drivers.
const (
	EventsLocal = "local"
	EventsRedis = "redis"
	EventsNATS  = "nats"
)

// AppConfig holds runtime configuration loaded from YAML and the environment.
type AppConfig struct {
	Port           int
	Env            string
	Timezone       string
	Location       *time.Location
	AllowedOrigins []string
	Log            LogConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Events         EventsConfig
	Sites          SitesConfig
	Newsletter     NewsletterConfig
	Mail           MailConfig
	Contact        ContactConfig
	Archive        ArchiveConfig
	Admin          AdminConfig
	RateLimit      RateLimitConfig
}

type LogConfig struct {
	Dir    string
	Level  string
	Format string
}

type DatabaseConfig struct {
	Driver string
	Mongo  MongoConfig
	MySQL  MySQLConfig
}

type MongoConfig struct {
	URI  string
	Name string
}

type MySQLConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Charset  string
	Params   map[string]string
}

type RedisConfig struct {
	Enable bool
	URL    string
}

type EventsConfig struct {
	Driver  string
	NATSURL string
	Prefix  string
}

// SitesConfig maps request domains to site keys and site keys to their
// public presentation.
type SitesConfig struct {
	Default string
	Domains map[string]string
	URLs    map[string]string
	Names   map[string]string
}

// URL returns the public base URL of site without trailing slash.
func (s SitesConfig) URL(site string) string {
	if u, ok := s.URLs[site]; ok {
		return strings.TrimRight(u, "/")
	}
	return strings.TrimRight(s.URLs[s.Default], "/")
}

// Keys lists every configured site key, default first, the rest sorted.
func (s SitesConfig) Keys() []string {
	seen := map[string]bool{s.Default: true}
	var rest []string
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			rest = append(rest, k)
		}
	}
	for _, k := range s.Domains {
		add(k)
	}
	for k := range s.URLs {
		add(k)
	}
	for k := range s.Names {
		add(k)
	}
	sort.Strings(rest)
	return append([]string{s.Default}, rest...)
}

// Name returns the display name of site, falling back to the key.
func (s SitesConfig) Name(site string) string {
	if n, ok := s.Names[site]; ok && n != "" {
		return n
	}
	return site
}

type NewsletterConfig struct {
	ConfirmTTL time.Duration
	// PublicURL is the base of links served by this API (confirm,
	// unsubscribe, tracking).
	PublicURL string
	Scheduler bool
	Schedules map[string]string
}

type MailConfig struct {
	Enable          bool
	Host            string
	Port            int
	User            string
	Pass            string
	SSL             bool
	From            string
	FromName        string
	ReplyTo         string
	ResendKey       string
	BulkConcurrency int
}

type ContactConfig struct {
	AdminEmail    string
	SpamThreshold int
	SpamKeywords  []string
	BlockedIPs    []string
}

type ArchiveConfig struct {
	Enable    bool
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
	PublicURL string
	PathStyle bool
}

type AdminConfig struct {
	Username     string
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

type rawAppConfig struct {
	Port           int                 `yaml:"port"`
	Env            string              `yaml:"env"`
	Timezone       string              `yaml:"timezone"`
	TimeZone       string              `yaml:"time_zone"`
	AllowedOrigins []string            `yaml:"allowed_origins"`
	Log            rawLogConfig        `yaml:"log"`
	Database       rawDatabaseConfig   `yaml:"database"`
	Redis          rawRedisConfig      `yaml:"redis"`
	RedisURL       string              `yaml:"redis_url"`
	Events         rawEventsConfig     `yaml:"events"`
	Sites          rawSitesConfig      `yaml:"sites"`
	Newsletter     rawNewsletterConfig `yaml:"newsletter"`
	Mail           rawMailConfig       `yaml:"mail"`
	Contact        rawContactConfig    `yaml:"contact"`
	Archive        rawArchiveConfig    `yaml:"archive"`
	Admin          rawAdminConfig      `yaml:"admin"`
	JWTSecret      string              `yaml:"jwt_secret"`
	RateLimit      rawRateLimitConfig  `yaml:"rate_limit"`
}

type rawLogConfig struct {
	Dir    string `yaml:"dir"`
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type rawDatabaseConfig struct {
	Driver string         `yaml:"driver"`
	Mongo  rawMongoConfig `yaml:"mongo"`
	MySQL  rawMySQLConfig `yaml:"mysql"`
}

type rawMongoConfig struct {
	URI  string `yaml:"uri"`
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type rawMySQLConfig struct {
	DSN      string            `yaml:"dsn"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	User     string            `yaml:"user"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Name     string            `yaml:"name"`
	DBName   string            `yaml:"db_name"`
	Charset  string            `yaml:"charset"`
	Params   map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	Enable *bool  `yaml:"enable"`
	URL    string `yaml:"url"`
}

type rawEventsConfig struct {
	Driver  string `yaml:"driver"`
	NATSURL string `yaml:"nats_url"`
	Prefix  string `yaml:"prefix"`
}

type rawSitesConfig struct {
	Default string            `yaml:"default"`
	Domains map[string]string `yaml:"domains"`
	URLs    map[string]string `yaml:"urls"`
	Names   map[string]string `yaml:"names"`
}

type rawNewsletterConfig struct {
	ConfirmTTL time.Duration     `yaml:"confirm_ttl"`
	PublicURL  string            `yaml:"public_url"`
	Scheduler  *bool             `yaml:"scheduler"`
	Schedules  map[string]string `yaml:"schedules"`
}

type rawMailConfig struct {
	Enable          bool   `yaml:"enable"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Pass            string `yaml:"pass"`
	Password        string `yaml:"password"`
	SSL             bool   `yaml:"ssl"`
	From            string `yaml:"from"`
	FromName        string `yaml:"from_name"`
	ReplyTo         string `yaml:"reply_to"`
	ResendKey       string `yaml:"resend_key"`
	BulkConcurrency int    `yaml:"bulk_concurrency"`
}

type rawContactConfig struct {
	AdminEmail    string   `yaml:"admin_email"`
	SpamThreshold int      `yaml:"spam_threshold"`
	SpamKeywords  []string `yaml:"spam_keywords"`
	BlockedIPs    []string `yaml:"blocked_ips"`
}

type rawArchiveConfig struct {
	Enable    bool   `yaml:"enable"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
	PublicURL string `yaml:"public_url"`
	PathStyle bool   `yaml:"path_style"`
}

type rawAdminConfig struct {
	Username     string        `yaml:"username"`
	PasswordHash string        `yaml:"password_hash"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

type rawRateLimitConfig struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

// Load reads configPath, applies environment overrides and validates the
// result. A missing file is an error; use LoadBytes for embedded configs.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg, err := LoadBytes(content, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// LoadBytes parses YAML content. lookup resolves environment overrides and
// may be nil.
func LoadBytes(content []byte, lookup func(string) (string, bool)) (*AppConfig, error) {
	cfg := defaultAppConfig()
	raw := rawAppConfig{}
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyRawAppConfig(&cfg, raw)
	if lookup != nil {
		applyEnv(&cfg, lookup)
	}
	normalize(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:     defaultPort,
		Env:      defaultEnv,
		Timezone: defaultTimezone,
		Log:      LogConfig{Level: "info", Format: "console"},
		Database: DatabaseConfig{
			Driver: defaultDriver,
			Mongo:  MongoConfig{URI: defaultMongoURI, Name: defaultMongoName},
			MySQL: MySQLConfig{
				Host:    defaultDBHost,
				Port:    defaultDBPort,
				User:    defaultDBUser,
				Name:    defaultDBName,
				Charset: defaultDBCharset,
			},
		},
		Redis:  RedisConfig{URL: defaultRedisURL},
		Events: EventsConfig{Driver: defaultEventsDriver, Prefix: defaultEventsPrefix},
		Sites:  SitesConfig{Default: defaultSite},
		Newsletter: NewsletterConfig{
			ConfirmTTL: defaultConfirmTTL,
			Scheduler:  true,
			Schedules: map[string]string{
				"morning": "07:00",
				"evening": "19:00",
				"weekly":  "sun 09:00",
				"sports":  "08:00",
			},
		},
		Mail:      MailConfig{Port: 587, BulkConcurrency: defaultBulkConcurrency},
		Contact:   ContactConfig{SpamThreshold: defaultSpamThreshold},
		Archive:   ArchiveConfig{Region: "us-east-1", Prefix: defaultArchivePrefix},
		Admin:     AdminConfig{Username: "admin", TokenTTL: defaultTokenTTL},
		RateLimit: RateLimitConfig{Max: defaultRateLimitMax, Window: defaultRateLimitWindow},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TimeZone); v != "" {
		cfg.Timezone = v
	}
	if len(raw.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = raw.AllowedOrigins
	}

	if v := strings.TrimSpace(raw.Log.Dir); v != "" {
		cfg.Log.Dir = v
	}
	if v := strings.TrimSpace(raw.Log.Level); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(raw.Log.Format); v != "" {
		cfg.Log.Format = v
	}

	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw.Database)

	if raw.Redis.Enable != nil {
		cfg.Redis.Enable = *raw.Redis.Enable
	}
	if v := strings.TrimSpace(raw.Redis.URL); v != "" {
		cfg.Redis.URL = v
		if raw.Redis.Enable == nil {
			cfg.Redis.Enable = true
		}
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" && raw.Redis.URL == "" {
		cfg.Redis.URL = v
		if raw.Redis.Enable == nil {
			cfg.Redis.Enable = true
		}
	}

	if v := strings.TrimSpace(raw.Events.Driver); v != "" {
		cfg.Events.Driver = v
	}
	if v := strings.TrimSpace(raw.Events.NATSURL); v != "" {
		cfg.Events.NATSURL = v
	}
	if v := strings.TrimSpace(raw.Events.Prefix); v != "" {
		cfg.Events.Prefix = v
	}

	if v := strings.TrimSpace(raw.Sites.Default); v != "" {
		cfg.Sites.Default = v
	}
	if raw.Sites.Domains != nil {
		cfg.Sites.Domains = copyStringMap(raw.Sites.Domains)
	}
	if raw.Sites.URLs != nil {
		cfg.Sites.URLs = copyStringMap(raw.Sites.URLs)
	}
	if raw.Sites.Names != nil {
		cfg.Sites.Names = copyStringMap(raw.Sites.Names)
	}

	if raw.Newsletter.ConfirmTTL > 0 {
		cfg.Newsletter.ConfirmTTL = raw.Newsletter.ConfirmTTL
	}
	if v := strings.TrimSpace(raw.Newsletter.PublicURL); v != "" {
		cfg.Newsletter.PublicURL = v
	}
	if raw.Newsletter.Scheduler != nil {
		cfg.Newsletter.Scheduler = *raw.Newsletter.Scheduler
	}
	for k, v := range raw.Newsletter.Schedules {
		cfg.Newsletter.Schedules[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}

	cfg.Mail = applyRawMailConfig(cfg.Mail, raw.Mail)

	if v := strings.TrimSpace(raw.Contact.AdminEmail); v != "" {
		cfg.Contact.AdminEmail = v
	}
	if raw.Contact.SpamThreshold > 0 {
		cfg.Contact.SpamThreshold = raw.Contact.SpamThreshold
	}
	if len(raw.Contact.SpamKeywords) > 0 {
		cfg.Contact.SpamKeywords = raw.Contact.SpamKeywords
	}
	if len(raw.Contact.BlockedIPs) > 0 {
		cfg.Contact.BlockedIPs = raw.Contact.BlockedIPs
	}

	cfg.Archive = applyRawArchiveConfig(cfg.Archive, raw.Archive)

	if v := strings.TrimSpace(raw.Admin.Username); v != "" {
		cfg.Admin.Username = v
	}
	if v := strings.TrimSpace(raw.Admin.PasswordHash); v != "" {
		cfg.Admin.PasswordHash = v
	}
	if v := strings.TrimSpace(raw.Admin.JWTSecret); v != "" {
		cfg.Admin.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.JWTSecret); v != "" && cfg.Admin.JWTSecret == "" {
		cfg.Admin.JWTSecret = v
	}
	if raw.Admin.TokenTTL > 0 {
		cfg.Admin.TokenTTL = raw.Admin.TokenTTL
	}

	if raw.RateLimit.Max > 0 {
		cfg.RateLimit.Max = raw.RateLimit.Max
	}
	if raw.RateLimit.Window > 0 {
		cfg.RateLimit.Window = raw.RateLimit.Window
	}
}

func applyRawDatabaseConfig(current DatabaseConfig, raw rawDatabaseConfig) DatabaseConfig {
	if v := strings.TrimSpace(raw.Driver); v != "" {
		current.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.Mongo.URI); v != "" {
		current.Mongo.URI = v
	} else if v := strings.TrimSpace(raw.Mongo.URL); v != "" {
		current.Mongo.URI = v
	}
	if v := strings.TrimSpace(raw.Mongo.Name); v != "" {
		current.Mongo.Name = v
	}

	m := raw.MySQL
	if v := strings.TrimSpace(m.DSN); v != "" {
		current.MySQL.DSN = v
	}
	if v := strings.TrimSpace(m.Host); v != "" {
		current.MySQL.Host = v
	}
	if m.Port != 0 {
		current.MySQL.Port = m.Port
	}
	if v := strings.TrimSpace(m.User); v != "" {
		current.MySQL.User = v
	} else if v := strings.TrimSpace(m.Username); v != "" {
		current.MySQL.User = v
	}
	if m.Password != "" {
		current.MySQL.Password = m.Password
	}
	if v := strings.TrimSpace(m.Name); v != "" {
		current.MySQL.Name = v
	} else if v := strings.TrimSpace(m.DBName); v != "" {
		current.MySQL.Name = v
	}
	if v := strings.TrimSpace(m.Charset); v != "" {
		current.MySQL.Charset = v
	}
	if m.Params != nil {
		current.MySQL.Params = copyStringMap(m.Params)
	}
	return current
}

func applyRawMailConfig(current MailConfig, raw rawMailConfig) MailConfig {
	current.Enable = current.Enable || raw.Enable
	if v := strings.TrimSpace(raw.Host); v != "" {
		current.Host = v
	}
	if raw.Port != 0 {
		current.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.User); v != "" {
		current.User = v
	}
	if raw.Pass != "" {
		current.Pass = raw.Pass
	} else if raw.Password != "" {
		current.Pass = raw.Password
	}
	current.SSL = current.SSL || raw.SSL
	if v := strings.TrimSpace(raw.From); v != "" {
		current.From = v
	}
	if v := strings.TrimSpace(raw.FromName); v != "" {
		current.FromName = v
	}
	if v := strings.TrimSpace(raw.ReplyTo); v != "" {
		current.ReplyTo = v
	}
	if v := strings.TrimSpace(raw.ResendKey); v != "" {
		current.ResendKey = v
	}
	if raw.BulkConcurrency > 0 {
		current.BulkConcurrency = raw.BulkConcurrency
	}
	return current
}

func applyRawArchiveConfig(current ArchiveConfig, raw rawArchiveConfig) ArchiveConfig {
	current.Enable = current.Enable || raw.Enable
	if v := strings.TrimSpace(raw.Bucket); v != "" {
		current.Bucket = v
	}
	if v := strings.TrimSpace(raw.Region); v != "" {
		current.Region = v
	}
	if v := strings.TrimSpace(raw.Endpoint); v != "" {
		current.Endpoint = v
	}
	if v := strings.TrimSpace(raw.AccessKey); v != "" {
		current.AccessKey = v
	}
	if raw.SecretKey != "" {
		current.SecretKey = raw.SecretKey
	}
	if v := strings.Trim(strings.TrimSpace(raw.Prefix), "/"); v != "" {
		current.Prefix = v
	}
	if v := strings.TrimSpace(raw.PublicURL); v != "" {
		current.PublicURL = strings.TrimRight(v, "/")
	}
	current.PathStyle = current.PathStyle || raw.PathStyle
	return current
}

func normalize(cfg *AppConfig) {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Events.Driver = strings.ToLower(strings.TrimSpace(cfg.Events.Driver))
	cfg.Newsletter.PublicURL = strings.TrimRight(cfg.Newsletter.PublicURL, "/")
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	if cfg.Sites.URLs == nil {
		cfg.Sites.URLs = map[string]string{}
	}
	if cfg.Sites.Domains == nil {
		cfg.Sites.Domains = map[string]string{}
	}
	if cfg.Sites.Names == nil {
		cfg.Sites.Names = map[string]string{}
	}
	if cfg.Mail.BulkConcurrency < 1 {
		cfg.Mail.BulkConcurrency = defaultBulkConcurrency
	}
}

func validate(cfg *AppConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", cfg.Port)
	}
	if cfg.Database.MySQL.Port < 1 || cfg.Database.MySQL.Port > 65535 {
		return fmt.Errorf("invalid database.mysql.port %d, expected 1-65535", cfg.Database.MySQL.Port)
	}
	switch cfg.Database.Driver {
	case DriverMongo, DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("unknown database.driver %q", cfg.Database.Driver)
	}
	switch cfg.Events.Driver {
	case EventsLocal:
	case EventsRedis:
		if !cfg.Redis.Enable {
			return fmt.Errorf("events.driver redis requires redis to be enabled")
		}
	case EventsNATS:
		if cfg.Events.NATSURL == "" {
			return fmt.Errorf("events.driver nats requires events.nats_url")
		}
	default:
		return fmt.Errorf("unknown events.driver %q", cfg.Events.Driver)
	}
	if cfg.Archive.Enable && cfg.Archive.Bucket == "" {
		return fmt.Errorf("archive.enable requires archive.bucket")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	for name, spec := range cfg.Newsletter.Schedules {
		if _, err := models.ParseBulletinType(name); err != nil {
			return fmt.Errorf("newsletter.schedules: %w", err)
		}
		if _, err := cron.Parse(spec, loc); err != nil {
			return fmt.Errorf("newsletter.schedules.%s: %w", name, err)
		}
	}
	return nil
}

func copyStringMap(input map[string]string) map[string]string {
	out := make(map[string]string, len(input))
	for k, v := range input {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		return "production"
	case "test":
		return "test"
	default:
		return "development"
	}
}

// IsDev reports whether the service runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env == "development" }
