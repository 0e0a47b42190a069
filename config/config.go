package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	AppName    = "Jansarthi API"
	AppVersion = "0.1.0"
)

// Settings is everything the server reads from the environment.
type Settings struct {
	Port  string
	Debug bool

	StoreDriver   string // "mongo" or "memory"
	MongoURI      string
	MongoDatabase string

	RedisAddress  string
	RedisPassword string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	OTPExpiry      time.Duration
	OTPLength      int
	OTPMaxAttempts int
	OTPCooldown    time.Duration

	SMSDriver        string // "twilio" or "log"
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	StorageDriver   string // "minio" or "local"
	LocalStorageDir string
	PublicBaseURL   string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSecure    bool
	PhotoURLExpiry time.Duration

	MaxFileSize        int64
	MaxPhotosPerIssue  int
	MaxProofPhotos     int
	AllowedImageTypes  []string
	ReportsPerDay      int
	AutoAssign         bool
	AutoAssignRadiusM  float64
	NominatimBaseURL   string
	CORSAllowedOrigins []string
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

type parser struct {
	errs []error
}

func (p *parser) intVar(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) floatVar(key string, fallback float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) boolVar(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) minutes(key string, fallback int) time.Duration {
	return time.Duration(p.intVar(key, fallback)) * time.Minute
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Load reads Settings from the process environment. Call godotenv.Load
// first to pick up a local .env file.
func Load() (Settings, error) {
	var p parser
	s := Settings{
		Port:  getEnv("PORT", "8080"),
		Debug: p.boolVar("DEBUG", false),

		StoreDriver:   getEnv("STORE_DRIVER", "mongo"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "jansarthi"),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  p.minutes("ACCESS_TOKEN_EXPIRE_MINUTES", 60),
		RefreshTokenTTL: time.Duration(p.intVar("REFRESH_TOKEN_EXPIRE_DAYS", 30)) * 24 * time.Hour,

		OTPExpiry:      p.minutes("OTP_EXPIRE_MINUTES", 10),
		OTPLength:      p.intVar("OTP_LENGTH", 6),
		OTPMaxAttempts: p.intVar("OTP_MAX_ATTEMPTS", 3),
		OTPCooldown:    time.Duration(p.intVar("OTP_COOLDOWN_SECONDS", 60)) * time.Second,

		SMSDriver:        getEnv("SMS_DRIVER", "twilio"),
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", "+17248043746"),

		StorageDriver:   getEnv("STORAGE_DRIVER", "minio"),
		LocalStorageDir: getEnv("LOCAL_STORAGE_DIR", "uploads"),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", ""),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET_NAME", "jansarthi-images"),
		MinioSecure:    p.boolVar("MINIO_SECURE", false),
		PhotoURLExpiry: time.Duration(p.intVar("PHOTO_URL_EXPIRE_DAYS", 7)) * 24 * time.Hour,

		MaxFileSize:        int64(p.intVar("MAX_FILE_SIZE_MB", 10)) << 20,
		MaxPhotosPerIssue:  p.intVar("MAX_PHOTOS_PER_ISSUE", 3),
		MaxProofPhotos:     p.intVar("MAX_PROOF_PHOTOS", 5),
		AllowedImageTypes:  splitList(getEnv("ALLOWED_IMAGE_TYPES", "image/jpeg,image/png,image/jpg,image/webp")),
		ReportsPerDay:      p.intVar("REPORTS_PER_DAY", 20),
		AutoAssign:         p.boolVar("AUTO_ASSIGN", false),
		AutoAssignRadiusM:  p.floatVar("AUTO_ASSIGN_RADIUS_METERS", 5000),
		NominatimBaseURL:   getEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	if s.JWTSecret == "" {
		if !s.Debug {
			p.errs = append(p.errs, errors.New("JWT_SECRET must be set"))
		}
		s.JWTSecret = "dev-secret-change-me"
	}
	if s.StoreDriver != "mongo" && s.StoreDriver != "memory" {
		p.errs = append(p.errs, fmt.Errorf("STORE_DRIVER: unknown driver %q", s.StoreDriver))
	}
	if s.SMSDriver != "twilio" && s.SMSDriver != "log" {
		p.errs = append(p.errs, fmt.Errorf("SMS_DRIVER: unknown driver %q", s.SMSDriver))
	}
	if s.StorageDriver != "minio" && s.StorageDriver != "local" {
		p.errs = append(p.errs, fmt.Errorf("STORAGE_DRIVER: unknown driver %q", s.StorageDriver))
	}
	if s.PublicBaseURL == "" {
		s.PublicBaseURL = "http://localhost:" + s.Port
	}
	if s.OTPLength < 4 || s.OTPLength > 10 {
		p.errs = append(p.errs, fmt.Errorf("OTP_LENGTH: must be between 4 and 10, got %d", s.OTPLength))
	}

	return s, errors.Join(p.errs...)
}
