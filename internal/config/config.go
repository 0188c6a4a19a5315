package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string
	DatabaseURL   string
	DataDir       string

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string

	LLMProvider     string
	GeminiAPIKey    string
	DefaultLLMModel string

	TaskMaxRetries int

	NotifyWebhookURL string
	SystemAuthSecret string

	PolicyFile        string
	BrowserStrategy   string
	WorkerConcurrency int

	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	JobSettleDelay    time.Duration
	CompanyBudget     time.Duration
	CourtesyDelay     time.Duration
	RunTimeout        time.Duration

	CompanyCap   int
	CandidateCap int
	MatchCap     int
}

// Limits is the subset of configuration that bounds one pipeline run.
type Limits struct {
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	JobSettleDelay    time.Duration
	CompanyBudget     time.Duration
	CourtesyDelay     time.Duration
	RunTimeout        time.Duration
	CompanyCap        int
	CandidateCap      int
	MatchCap          int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getenvDuration accepts Go duration strings ("15s") or bare milliseconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func Load() Config {
	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8081"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DataDir:       getenv("DATA_DIR", "./data"),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:     getenv("SUPABASE_STORAGE_BUCKET", "templates"),

		LLMProvider:     getenv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		DefaultLLMModel: getenv("DEFAULT_LLM_MODEL", "gemini-1.5-flash"),

		TaskMaxRetries: getenvInt("TASK_MAX_RETRIES", 1),

		NotifyWebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		SystemAuthSecret: os.Getenv("SYSTEM_AUTH_SECRET"),

		PolicyFile:        os.Getenv("MATCH_POLICY_FILE"),
		BrowserStrategy:   getenv("BROWSER_STRATEGY", "desktop"),
		WorkerConcurrency: getenvInt("WORKER_CONCURRENCY", 2),

		NavigationTimeout: getenvDuration("NAVIGATION_TIMEOUT", 15*time.Second),
		SettleDelay:       getenvDuration("SETTLE_DELAY", 2*time.Second),
		JobSettleDelay:    getenvDuration("JOB_SETTLE_DELAY", time.Second),
		CompanyBudget:     getenvDuration("COMPANY_BUDGET", 60*time.Second),
		CourtesyDelay:     getenvDuration("COURTESY_DELAY", 1500*time.Millisecond),
		RunTimeout:        getenvDuration("RUN_TIMEOUT", 5*time.Minute),

		CompanyCap:   getenvInt("COMPANY_CAP", 15),
		CandidateCap: getenvInt("CANDIDATE_CAP", 5),
		MatchCap:     getenvInt("MATCH_CAP", 2),
	}
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	return cfg
}

// Limits projects the pipeline bounds out of the full configuration.
func (c Config) Limits() Limits {
	return Limits{
		NavigationTimeout: c.NavigationTimeout,
		SettleDelay:       c.SettleDelay,
		JobSettleDelay:    c.JobSettleDelay,
		CompanyBudget:     c.CompanyBudget,
		CourtesyDelay:     c.CourtesyDelay,
		RunTimeout:        c.RunTimeout,
		CompanyCap:        c.CompanyCap,
		CandidateCap:      c.CandidateCap,
		MatchCap:          c.MatchCap,
	}
}

func (c Config) IsProduction() bool { return c.AppEnv == "production" }
