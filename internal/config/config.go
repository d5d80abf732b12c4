package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `env:"ENV" env-required:"true"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info" env-description:"logging level, debug, info, etc."`
	HttpServer HttpServer
	Database   Database
	Limiter    Limiter
	Auth       AuthConfig
	SMTP       SMTPConfig
	Email      EmailConfig
	Captcha    CaptchaConfig
	OAuth      OAuthConfig
	Cache      Cache
}

type HttpServer struct {
	Port        string        `env:"HTTP_PORT" env-default:"8080"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"4s"`
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	CORSOrigins []string      `env:"HTTP_CORS_ORIGINS" env-default:"http://localhost:3000"`
}

type Database struct {
	Net                string        `env:"DB_NET" env-default:"tcp"`
	Server             string        `env:"DB_SERVER" env-required:"true"`
	DBName             string        `env:"DB_NAME" env-required:"true"`
	User               string        `env:"DB_USER" env-required:"true"`
	Password           string        `env:"DB_PASSWORD" env-required:"true"`
	TimeZone           string        `env:"DB_TIMEZONE"`
	Timeout            time.Duration `env:"DB_TIMEOUT" env-default:"2s"`
	MaxIdleConnections int           `env:"DB_MAX_IDLE_CONNECTIONS" env-default:"40"`
	MaxOpenConnections int           `env:"DB_MAX_OPEN_CONNECTIONS" env-default:"40"`
}

type Limiter struct {
	RPS   int           `env:"LIMITER_RPS" env-default:"10"`
	Burst int           `env:"LIMITER_BURST" env-default:"20"`
	TTL   time.Duration `env:"LIMITER_TTL" env-default:"10m"`
}

type AuthConfig struct {
	JWT JWTConfig

	BcryptCost int `env:"AUTH_BCRYPT_COST" env-default:"11"`

	VerificationTokenTTL   time.Duration `env:"AUTH_VERIFICATION_TOKEN_TTL" env-default:"1h"`
	VerificationCodeLength int           `env:"AUTH_VERIFICATION_CODE_LENGTH" env-default:"6"`
	PasswordResetTokenTTL  time.Duration `env:"AUTH_PASSWORD_RESET_TOKEN_TTL" env-default:"1h"`

	ResendInitialWindow time.Duration `env:"AUTH_RESEND_INITIAL_WINDOW" env-default:"2m"`
	ResendMaxWindow     time.Duration `env:"AUTH_RESEND_MAX_WINDOW" env-default:"32m"`

	LockoutThreshold  int           `env:"AUTH_LOCKOUT_THRESHOLD" env-default:"5"`
	LockoutDuration   time.Duration `env:"AUTH_LOCKOUT_DURATION" env-default:"15m"`
	FailureCounterTTL time.Duration `env:"AUTH_FAILURE_COUNTER_TTL" env-default:"15m"`
	MinFailureDelay   time.Duration `env:"AUTH_MIN_FAILURE_DELAY" env-default:"300ms"`

	TwoFactorCodeTTL time.Duration `env:"AUTH_TWO_FACTOR_CODE_TTL" env-default:"5m"`
}

type JWTConfig struct {
	AccessTokenTTL  time.Duration `env:"JWT_ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `env:"JWT_REFRESH_TOKEN_TTL" env-default:"240h"`
	SigningKey      string        `env:"JWT_SIGNING_KEY" env-required:"true"`
}

type SMTPConfig struct {
	Host string `env:"SMTP_HOST" env-required:"true"`
	Port int    `env:"SMTP_PORT" env-required:"true"`
	From string `env:"SMTP_FROM" env-required:"true"`
	Pass string `env:"SMTP_PASS" env-required:"true"`
}

type EmailConfig struct {
	Enabled             bool   `env:"EMAIL_ENABLED" env-default:"false"`
	VerificationBaseURL string `env:"EMAIL_VERIFICATION_BASE_URL" env-default:"http://localhost:3000/auth/verification"`
	PasswordResetURL    string `env:"EMAIL_PASSWORD_RESET_BASE_URL" env-default:"http://localhost:3000/auth/reset"`
	Templates           EmailTemplates
}

type EmailTemplates struct {
	Verification  string `env:"EMAIL_TEMPLATE_VERIFICATION" env-default:"verification_email.html"`
	TwoFactor     string `env:"EMAIL_TEMPLATE_TWO_FACTOR" env-default:"two_factor_email.html"`
	LockoutAlert  string `env:"EMAIL_TEMPLATE_LOCKOUT_ALERT" env-default:"lockout_alert_email.html"`
	PasswordReset string `env:"EMAIL_TEMPLATE_PASSWORD_RESET" env-default:"password_reset_email.html"`
}

type CaptchaConfig struct {
	Enabled   bool          `env:"CAPTCHA_ENABLED" env-default:"false"`
	Secret    string        `env:"CAPTCHA_SECRET" env-default:""`
	VerifyURL string        `env:"CAPTCHA_VERIFY_URL" env-default:"https://www.google.com/recaptcha/api/siteverify"`
	Timeout   time.Duration `env:"CAPTCHA_TIMEOUT" env-default:"10s"`
}

type OAuthConfig struct {
	RedirectBase string        `env:"OAUTH_REDIRECT_BASE" env-default:"http://localhost:8080/api/v1/auth/oauth"`
	Google       OAuthProvider `env-prefix:"AUTH_GOOGLE_"`
	Facebook     OAuthProvider `env-prefix:"AUTH_FACEBOOK_"`
}

type OAuthProvider struct {
	ClientID     string `env:"ID" env-default:""`
	ClientSecret string `env:"SECRET" env-default:""`
}

type Cache struct {
	Type  string `env:"REDIS_TYPE" env-required:"true" env-description:"specifies provider, one of redis/redisCluster"`
	Redis struct {
		Address  string `env:"REDIS_ADDR" env-default:"" env-description:"redis host:port single instance"`
		Password string `env:"REDIS_PASSWORD" env-default:"" env-description:"redis password if exists"`
		PoolSize int    `env:"REDIS_POOL_SIZE" env-default:"70" env-description:"max tcp connections pool size"`
	}
	RedisCluster struct {
		Addresses []string `env:"REDIS_CLUSTER_ADDRS" env-default:"" env-description:"redis cluster nodes"`
		Password  string   `env:"REDIS_PASSWORD" env-default:"" env-description:"redis password if exists"`
		PoolSize  int      `env:"REDIS_POOL_SIZE" env-default:"70" env-description:"max tcp connections pool size"`
	}
}

func MustLoad() *Config {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("cannot read config from environment: %s", err)
	}

	return &cfg
}
