package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// HTTP ops API
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Ops API auth
	JWTSecret     string
	JWTExpiresIn  string // minutes
	AdminEmail    string
	AdminPassword string
	AdminFullName string

	// Discord
	DiscordToken     string
	WelcomeChannelID string

	// Grading provider
	OpenAIKey      string
	OpenAIModel    string
	GradingTimeout time.Duration
	RubricMapFile  string // assignment title -> rubric pair mapping (JSON)
	RubricDir      string // base dir for rubric documents

	// Artifact storage
	UploadsDir  string
	ReportsDir  string
	OSSEndpoint string
	OSSKeyID    string
	OSSSecret   string
	OSSBucket   string
	OSSPrefix   string // key prefix inside the bucket, e.g. "homework/"
}

func Load() *Config {
	return &Config{
		Port:       getenv("PORT", "8080"),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     getenv("DB_USER", "postgres"),
		DBPassword: getenv("DB_PASSWORD", "postgres"),
		DBName:     getenv("DB_NAME", "gradebot_db"),
		DBSSLMode:  getenv("DB_SSLMODE", "disable"),

		JWTSecret:     getenv("JWT_SECRET", "supersecret_change_me"),
		JWTExpiresIn:  getenv("JWT_EXPIRES_IN", "60"),
		AdminEmail:    getenv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: getenv("ADMIN_PASSWORD", "admin123"),
		AdminFullName: getenv("ADMIN_FULL_NAME", "Administrator"),

		DiscordToken:     getenv("DISCORD_TOKEN", ""),
		WelcomeChannelID: getenv("WELCOME_CHANNEL_ID", ""),

		OpenAIKey:      getenv("OPENAI_API_KEY", ""),
		OpenAIModel:    getenv("OPENAI_MODEL", "gpt-4o-mini"),
		GradingTimeout: getenvSeconds("GRADING_TIMEOUT_SECONDS", 90*time.Second),
		RubricMapFile:  getenv("RUBRIC_MAP_FILE", "rubrics.json"),
		RubricDir:      getenv("RUBRIC_DIR", "rubrics"),

		UploadsDir:  getenv("UPLOADS_DIR", "uploads"),
		ReportsDir:  getenv("REPORTS_DIR", "reports"),
		OSSEndpoint: getenv("OSS_ENDPOINT", ""),
		OSSKeyID:    getenv("OSS_ACCESS_KEY_ID", ""),
		OSSSecret:   getenv("OSS_ACCESS_KEY_SECRET", ""),
		OSSBucket:   getenv("OSS_BUCKET", ""),
		OSSPrefix:   getenv("OSS_PREFIX", "homework/"),
	}
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getenvSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
