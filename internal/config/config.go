package config // package config loads application configuration from environment variables

import (
    "fmt"
    "os"
    "strings"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env           string   // application environment (e.g. "dev", "prod")
    Port          string   // HTTP port to listen on
    LogLevel      string   // logrus level name
    DBUser        string   // database username
    DBPass        string   // database password (optional)
    DBHost        string   // database host address
    DBPort        string   // database port number
    DBName        string   // database name
    JWTSecret     string   // secret used to sign JWTs
    AccessTTLMin  int      // access token time-to-live in minutes
    BcryptCost    int      // bcrypt cost for password hashing
    CSRFSecret    string   // key for the HMAC behind CSRF tokens
    PublicBaseURL string   // absolute URL prefix used in outgoing emails
    AdminEmails   []string // addresses that register with the ADMIN role
    Mail          MailConfig
}

// MailConfig describes the SMTP relay and the addresses used for the
// "new program" notification.
type MailConfig struct {
    Host     string
    Port     int
    User     string
    Password string
    From     string // sender of notifications
    Admin    string // administrative recipient
}

// Load reads configuration values from environment variables.  Missing
// required variables are reported together in a single error.
func Load() (Config, error) {
    var missing []string
    must := func(key string) string {
        v, ok := os.LookupEnv(key)
        if !ok || v == "" {
            missing = append(missing, key)
        }
        return v
    }

    cfg := Config{
        Env:           must("APP_ENV"),
        Port:          envStr("APP_PORT", "8000"),
        LogLevel:      envStr("LOG_LEVEL", "info"),
        DBUser:        must("DB_USER"),
        DBPass:        os.Getenv("DB_PASS"),
        DBHost:        must("DB_HOST"),
        DBPort:        envStr("DB_PORT", "3306"),
        DBName:        must("DB_NAME"),
        JWTSecret:     must("JWT_SECRET"),
        AccessTTLMin:  envInt("ACCESS_TOKEN_TTL_MIN", 60),
        BcryptCost:    envInt("BCRYPT_COST", 12),
        CSRFSecret:    must("CSRF_SECRET"),
        PublicBaseURL: envStr("PUBLIC_BASE_URL", "http://localhost:8000"),
        AdminEmails:   parseList(os.Getenv("ADMIN_EMAILS")),
        Mail: MailConfig{
            Host:     envStr("SMTP_HOST", "localhost"),
            Port:     envInt("SMTP_PORT", 25),
            User:     os.Getenv("SMTP_USER"),
            Password: os.Getenv("SMTP_PASS"),
            From:     envStr("MAILER_FROM", "no-reply@wildseries.com"),
            Admin:    must("MAILER_ADMIN"),
        },
    }
    if len(missing) > 0 {
        return Config{}, fmt.Errorf("missing required env vars: %v", missing)
    }
    return cfg, nil
}

// parseList splits a comma separated list, lower-casing and dropping blanks.
func parseList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
            out = append(out, p)
        }
    }
    return out
}
