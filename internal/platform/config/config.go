package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	APIPort        string
	RequestTimeout time.Duration
	CORSOrigins    []string
	JWTKey         []byte
	JWTExp         time.Duration
	LogLevel       string
	LogFormat      string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string
	DBMigrate  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Judge JudgeConfig

	// Calendar days for streaks are computed in this location, never the host's.
	StreakTimezone string
	StreakLockTTL  time.Duration

	SubmissionQueueName string
	WorkerConcurrency   int
	// EmbeddedWorker runs the queue consumer inside the API process.
	EmbeddedWorker      bool
	ContestRanking      string
	LeaderboardCacheTTL time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration
}

type JudgeConfig struct {
	BaseURL          string
	APIKey           string
	APIHost          string
	Wait             bool
	RequestTimeout   time.Duration
	MaxRetries       int
	PollInterval     time.Duration
	MaxPollInterval  time.Duration
	MaxPollAttempts  int
	Deadline         time.Duration
	TestcaseTimeout  time.Duration
	Parallelism      int
	MaxTimeouts      int
	AllowedLanguages []int
	LanguageCacheTTL time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		APIPort:        getEnv("API_PORT", "8080"),
		RequestTimeout: getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 2*time.Minute),
		CORSOrigins:    strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ","),
		JWTKey:         []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:         time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "user"),
		DBPassword:     getEnv("DB_PASSWORD", "password"),
		DBName:         getEnv("DB_NAME", "codeduel"),
		DBSslMode:      getEnv("DB_SSLMODE", "disable"),
		DBMigrate:      getEnvAsBool("DB_AUTO_MIGRATE", true),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		Judge: JudgeConfig{
			BaseURL:          getEnv("JUDGE_BASE_URL", "https://judge0-ce.p.rapidapi.com"),
			APIKey:           getEnv("JUDGE_API_KEY", ""),
			APIHost:          getEnv("JUDGE_API_HOST", "judge0-ce.p.rapidapi.com"),
			Wait:             getEnvAsBool("JUDGE_WAIT", false),
			RequestTimeout:   getEnvAsDuration("JUDGE_REQUEST_TIMEOUT", 10*time.Second),
			MaxRetries:       getEnvAsInt("JUDGE_MAX_RETRIES", 3),
			PollInterval:     getEnvAsDuration("JUDGE_POLL_INTERVAL", 500*time.Millisecond),
			MaxPollInterval:  getEnvAsDuration("JUDGE_MAX_POLL_INTERVAL", 3*time.Second),
			MaxPollAttempts:  getEnvAsInt("JUDGE_MAX_POLL_ATTEMPTS", 20),
			Deadline:         getEnvAsDuration("JUDGE_DEADLINE", 15*time.Second),
			TestcaseTimeout:  getEnvAsDuration("JUDGE_TESTCASE_TIMEOUT", 20*time.Second),
			Parallelism:      getEnvAsInt("JUDGE_PARALLELISM", 1),
			MaxTimeouts:      getEnvAsInt("JUDGE_MAX_TIMEOUTS", 0),
			AllowedLanguages: getEnvAsIntSlice("JUDGE_ALLOWED_LANGUAGES", []int{71, 54, 62}),
			LanguageCacheTTL: getEnvAsDuration("JUDGE_LANGUAGE_CACHE_TTL", time.Hour),
		},

		StreakTimezone: getEnv("STREAK_TIMEZONE", "UTC"),
		StreakLockTTL:  getEnvAsDuration("STREAK_LOCK_TTL", 5*time.Second),

		SubmissionQueueName: getEnv("SUBMISSION_QUEUE_NAME", "submission_judge_queue"),
		WorkerConcurrency:   getEnvAsInt("WORKER_CONCURRENCY", 2),
		EmbeddedWorker:      getEnvAsBool("WORKER_EMBEDDED", true),
		ContestRanking:      getEnv("CONTEST_RANKING", "solved"),
		LeaderboardCacheTTL: getEnvAsDuration("LEADERBOARD_CACHE_TTL", 10*time.Second),

		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	return cfg
}

// StreakLocation resolves StreakTimezone, falling back to UTC on an unknown name.
func (c *Config) StreakLocation() *time.Location {
	loc, err := time.LoadLocation(c.StreakTimezone)
	if err != nil {
		log.WithError(err).Warnf("unknown STREAK_TIMEZONE %q, using UTC", c.StreakTimezone)
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("750ms", "20s").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsIntSlice(key string, fallback []int) []int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []int
	for _, part := range strings.Split(valueStr, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			log.Warnf("ignoring invalid %s entry %q", key, part)
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
