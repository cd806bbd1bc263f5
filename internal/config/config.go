package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "DOG_DIGEST_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	clientIDEnv       = "PETFINDER_CLIENT_ID"
	clientSecretEnv   = "PETFINDER_CLIENT_SECRET"
	zipCodesEnv       = "ZIP_CODES"
	distanceEnv       = "DISTANCE_MILES"
	excludedBreedsEnv = "EXCLUDED_BREEDS"
	preferencesEnv    = "PREFERENCES"
	maxPicksEnv       = "MAX_PICKS"
	rankingEnv        = "RANKING_PROVIDER"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	geminiAPIKeyEnv   = "GEMINI_API_KEY"
	geminiModelEnv    = "GEMINI_MODEL"
	smtpHostEnv       = "SMTP_HOST"
	smtpPortEnv       = "SMTP_PORT"
	smtpUserEnv       = "SMTP_USER"
	smtpPassEnv       = "SMTP_PASS"
	senderEmailEnv    = "SENDER_EMAIL"
	senderNameEnv     = "SENDER_NAME"
	recipientsEnv     = "RECIPIENTS"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	archiveDriverEnv  = "ARCHIVE_DRIVER"
	archiveDSNEnv     = "ARCHIVE_DSN"
)

// Ranking providers understood by the application.
const (
	ProviderNone    = ""
	ProviderChatGPT = "chatgpt"
	ProviderGemini  = "gemini"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Petfinder     PetfinderConfig    `yaml:"petfinder"`
	Search        SearchConfig       `yaml:"search"`
	Preferences   PreferencesConfig  `yaml:"preferences"`
	Ranking       RankingConfig      `yaml:"ranking"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Gemini        GeminiConfig       `yaml:"gemini"`
	SMTP          SMTPConfig         `yaml:"smtp"`
	Notifications NotificationConfig `yaml:"notifications"`
	Archive       ArchiveConfig      `yaml:"archive"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PetfinderConfig describes the pet-search API and its paging limits.
type PetfinderConfig struct {
	ClientID      string        `yaml:"clientId"`
	ClientSecret  string        `yaml:"clientSecret"`
	TokenURL      string        `yaml:"tokenUrl"`
	AnimalsURL    string        `yaml:"animalsUrl"`
	Timeout       time.Duration `yaml:"timeout"`
	PageSize      int           `yaml:"pageSize"`
	MaxPages      int           `yaml:"maxPages"`
	PageDelay     time.Duration `yaml:"pageDelay"`
	RetryAttempts int           `yaml:"retryAttempts"`
	RetryBackoff  time.Duration `yaml:"retryBackoff"`
}

// SearchConfig defines the geographic queries of a run.
type SearchConfig struct {
	ZipCodes      []string      `yaml:"zipCodes"`
	DistanceMiles int           `yaml:"distanceMiles"`
	Species       string        `yaml:"species"`
	Ages          []string      `yaml:"ages"`
	MaxAge        time.Duration `yaml:"maxAge"`
	Concurrency   int           `yaml:"concurrency"`
}

// PreferencesConfig is the user's wish list.
type PreferencesConfig struct {
	Description    string   `yaml:"description"`
	ExcludedBreeds []string `yaml:"excludedBreeds"`
}

// RankingConfig bounds the ranking request.
type RankingConfig struct {
	Provider         string        `yaml:"provider"`
	MaxPicks         int           `yaml:"maxPicks"`
	Timeout          time.Duration `yaml:"timeout"`
	DescriptionChars int           `yaml:"descriptionChars"`
}

// ChatGPTConfig defines how to contact an OpenAI-compatible chat API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// GeminiConfig defines how to contact the Gemini API.
type GeminiConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"apiKey"`
}

// SMTPConfig carries delivery settings.
type SMTPConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	SenderEmail string        `yaml:"senderEmail"`
	SenderName  string        `yaml:"senderName"`
	Recipients  []string      `yaml:"recipients"`
	Timeout     time.Duration `yaml:"timeout"`
}

// NotificationConfig encapsulates outbound notice channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// ArchiveConfig enables the optional listing archive. Driver is "postgres" or "sqlite".
type ArchiveConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Load reads .env, the YAML configuration (if present) and applies environment overrides.
// An explicit path wins over DOG_DIGEST_CONFIG.
func Load(path string) Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	return cfg
}

// Validate reports every missing required setting at once. Delivery settings
// are only required when the digest will actually be sent.
func (c Config) Validate(dryRun bool) error {
	var missing []string
	check := func(key string, ok bool) {
		if !ok {
			missing = append(missing, key)
		}
	}

	check(clientIDEnv, c.Petfinder.ClientID != "")
	check(clientSecretEnv, c.Petfinder.ClientSecret != "")
	check(zipCodesEnv, len(c.Search.ZipCodes) > 0)

	if !dryRun {
		check(smtpHostEnv, c.SMTP.Host != "")
		check(smtpPortEnv, c.SMTP.Port > 0)
		check(smtpUserEnv, c.SMTP.Username != "")
		check(smtpPassEnv, c.SMTP.Password != "")
		check(senderEmailEnv, c.SMTP.SenderEmail != "")
		check(recipientsEnv, len(c.SMTP.Recipients) > 0)
	}

	switch c.Ranking.Provider {
	case ProviderNone:
	case ProviderChatGPT:
		check(chatGPTAPIKeyEnv, c.ChatGPT.APIKey != "")
	case ProviderGemini:
		check(geminiAPIKeyEnv, c.Gemini.APIKey != "")
	default:
		return fmt.Errorf("unknown ranking provider %q", c.Ranking.Provider)
	}

	switch c.Archive.Driver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown archive driver %q", c.Archive.Driver)
	}
	if c.Archive.Driver != "" {
		check(archiveDSNEnv, c.Archive.DSN != "")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(clientIDEnv); v != "" {
		c.Petfinder.ClientID = strings.TrimSpace(v)
	}
	if v := os.Getenv(clientSecretEnv); v != "" {
		c.Petfinder.ClientSecret = strings.TrimSpace(v)
	}

	if v := splitList(os.Getenv(zipCodesEnv)); len(v) > 0 {
		c.Search.ZipCodes = v
	}
	if v, ok := envInt(distanceEnv); ok {
		c.Search.DistanceMiles = v
	}

	if v := splitList(os.Getenv(excludedBreedsEnv)); len(v) > 0 {
		c.Preferences.ExcludedBreeds = v
	}
	if v := os.Getenv(preferencesEnv); v != "" {
		c.Preferences.Description = v
	}

	if v, ok := envInt(maxPicksEnv); ok {
		c.Ranking.MaxPicks = v
	}
	if v := os.Getenv(rankingEnv); v != "" {
		c.Ranking.Provider = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Gemini.Model = v
	}

	if v := os.Getenv(smtpHostEnv); v != "" {
		c.SMTP.Host = strings.TrimSpace(v)
	}
	if v, ok := envInt(smtpPortEnv); ok {
		c.SMTP.Port = v
	}
	if v := os.Getenv(smtpUserEnv); v != "" {
		c.SMTP.Username = strings.TrimSpace(v)
	}
	if v := os.Getenv(smtpPassEnv); v != "" {
		c.SMTP.Password = strings.TrimSpace(v)
	}
	if v := os.Getenv(senderEmailEnv); v != "" {
		c.SMTP.SenderEmail = strings.TrimSpace(v)
	}
	if v := os.Getenv(senderNameEnv); v != "" {
		c.SMTP.SenderName = strings.TrimSpace(v)
	}
	if v := splitList(os.Getenv(recipientsEnv)); len(v) > 0 {
		c.SMTP.Recipients = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(archiveDriverEnv); v != "" {
		c.Archive.Driver = v
	}
	if v := os.Getenv(archiveDSNEnv); v != "" {
		c.Archive.DSN = v
	}
}

// normalize fills derived defaults that depend on other settings.
func (c *Config) normalize() {
	if c.SMTP.SenderEmail == "" {
		c.SMTP.SenderEmail = c.SMTP.Username
	}
	c.Ranking.Provider = strings.ToLower(strings.TrimSpace(c.Ranking.Provider))
	c.Archive.Driver = strings.ToLower(strings.TrimSpace(c.Archive.Driver))
	if c.Search.Concurrency < 1 {
		c.Search.Concurrency = 1
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Petfinder.ClientID != "" {
		base.Petfinder.ClientID = override.Petfinder.ClientID
	}
	if override.Petfinder.ClientSecret != "" {
		base.Petfinder.ClientSecret = override.Petfinder.ClientSecret
	}
	if override.Petfinder.TokenURL != "" {
		base.Petfinder.TokenURL = override.Petfinder.TokenURL
	}
	if override.Petfinder.AnimalsURL != "" {
		base.Petfinder.AnimalsURL = override.Petfinder.AnimalsURL
	}
	if override.Petfinder.Timeout > 0 {
		base.Petfinder.Timeout = override.Petfinder.Timeout
	}
	if override.Petfinder.PageSize > 0 {
		base.Petfinder.PageSize = override.Petfinder.PageSize
	}
	if override.Petfinder.MaxPages > 0 {
		base.Petfinder.MaxPages = override.Petfinder.MaxPages
	}
	if override.Petfinder.PageDelay > 0 {
		base.Petfinder.PageDelay = override.Petfinder.PageDelay
	}
	if override.Petfinder.RetryAttempts > 0 {
		base.Petfinder.RetryAttempts = override.Petfinder.RetryAttempts
	}
	if override.Petfinder.RetryBackoff > 0 {
		base.Petfinder.RetryBackoff = override.Petfinder.RetryBackoff
	}

	if len(override.Search.ZipCodes) > 0 {
		base.Search.ZipCodes = override.Search.ZipCodes
	}
	if override.Search.DistanceMiles > 0 {
		base.Search.DistanceMiles = override.Search.DistanceMiles
	}
	if override.Search.Species != "" {
		base.Search.Species = override.Search.Species
	}
	if len(override.Search.Ages) > 0 {
		base.Search.Ages = override.Search.Ages
	}
	if override.Search.MaxAge > 0 {
		base.Search.MaxAge = override.Search.MaxAge
	}
	if override.Search.Concurrency > 0 {
		base.Search.Concurrency = override.Search.Concurrency
	}

	if override.Preferences.Description != "" {
		base.Preferences.Description = override.Preferences.Description
	}
	if override.Preferences.ExcludedBreeds != nil {
		base.Preferences.ExcludedBreeds = override.Preferences.ExcludedBreeds
	}

	if override.Ranking.Provider != "" {
		base.Ranking.Provider = override.Ranking.Provider
	}
	if override.Ranking.MaxPicks > 0 {
		base.Ranking.MaxPicks = override.Ranking.MaxPicks
	}
	if override.Ranking.Timeout > 0 {
		base.Ranking.Timeout = override.Ranking.Timeout
	}
	if override.Ranking.DescriptionChars > 0 {
		base.Ranking.DescriptionChars = override.Ranking.DescriptionChars
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	if override.Gemini.Model != "" {
		base.Gemini.Model = override.Gemini.Model
	}
	if override.Gemini.APIKey != "" {
		base.Gemini.APIKey = override.Gemini.APIKey
	}

	if override.SMTP.Host != "" {
		base.SMTP.Host = override.SMTP.Host
	}
	if override.SMTP.Port > 0 {
		base.SMTP.Port = override.SMTP.Port
	}
	if override.SMTP.Username != "" {
		base.SMTP.Username = override.SMTP.Username
	}
	if override.SMTP.Password != "" {
		base.SMTP.Password = override.SMTP.Password
	}
	if override.SMTP.SenderEmail != "" {
		base.SMTP.SenderEmail = override.SMTP.SenderEmail
	}
	if override.SMTP.SenderName != "" {
		base.SMTP.SenderName = override.SMTP.SenderName
	}
	if len(override.SMTP.Recipients) > 0 {
		base.SMTP.Recipients = override.SMTP.Recipients
	}
	if override.SMTP.Timeout > 0 {
		base.SMTP.Timeout = override.SMTP.Timeout
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Archive.Driver != "" {
		base.Archive = override.Archive
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Petfinder: PetfinderConfig{
			TokenURL:      "https://api.petfinder.com/v2/oauth2/token",
			AnimalsURL:    "https://api.petfinder.com/v2/animals",
			Timeout:       30 * time.Second,
			PageSize:      100,
			MaxPages:      10,
			PageDelay:     300 * time.Millisecond,
			RetryAttempts: 2,
			RetryBackoff:  time.Second,
		},
		Search: SearchConfig{
			ZipCodes:      []string{"08401", "11211", "19003"},
			DistanceMiles: 100,
			Species:       "dog",
			Ages:          []string{"young", "puppy"},
			MaxAge:        24 * time.Hour,
			Concurrency:   3,
		},
		Preferences: PreferencesConfig{
			ExcludedBreeds: []string{
				"Husky",
				"Coonhound",
				"Pit Bull",
				"Jack Russell Terrier",
				"German Shepherd",
				"Carolina Dog Mix",
				"Bull Terrier",
				"Chihuahua",
				"Rhodesian Ridgeback",
				"Rottweiler",
				"English Bulldog",
				"American Staffordshire Terrier",
			},
		},
		Ranking: RankingConfig{
			Provider:         ProviderNone,
			MaxPicks:         5,
			Timeout:          60 * time.Second,
			DescriptionChars: 280,
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You help a family pick adoptable dogs. Answer with JSON only.",
		},
		Gemini: GeminiConfig{Model: "gemini-2.5-flash"},
		SMTP: SMTPConfig{
			Port:       587,
			SenderName: "Dog Digest",
			Timeout:    30 * time.Second,
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s=%q is not a number, ignoring", key, raw)
		return 0, false
	}
	return n, true
}
