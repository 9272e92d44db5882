package config

import (
	"strconv"
	"strings"
	"time"
)

type JWTConfig interface {
	GetJWTKey() string
	GetIssuer() string
	GetAudience() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

// JWT holds the signing settings. Lifetimes are kept as raw strings so that a
// value which fails to parse is reported instead of silently defaulted.
type JWT struct {
	Key                           string `env:"JWT_KEY"`
	Issuer                        string `env:"JWT_ISSUER"`
	Audience                      string `env:"JWT_AUDIENCE"`
	AccessTokenExpirationMinutes  string `env:"JWT_ACCESS_TOKEN_EXPIRATION_MINUTES"`
	RefreshTokenExpirationMinutes string `env:"JWT_REFRESH_TOKEN_EXPIRATION_MINUTES"`
	RefreshTokenExpirationDays    string `env:"JWT_REFRESH_TOKEN_EXPIRATION_DAYS"`

	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

var _ JWTConfig = JWT{}

func (j JWT) GetJWTKey() string {
	return j.Key
}

func (j JWT) GetIssuer() string {
	return j.Issuer
}

func (j JWT) GetAudience() string {
	return j.Audience
}

func (j JWT) GetAccessTokenExpiry() time.Duration {
	return j.accessExpiry
}

func (j JWT) GetRefreshTokenExpiry() time.Duration {
	return j.refreshExpiry
}

func (j *JWT) validate() error {
	if strings.TrimSpace(j.Key) == "" {
		return invalid("JWT_KEY is required")
	}
	if strings.TrimSpace(j.Issuer) == "" {
		return invalid("JWT_ISSUER is required")
	}
	if strings.TrimSpace(j.Audience) == "" {
		return invalid("JWT_AUDIENCE is required")
	}

	access, err := parsePositive("JWT_ACCESS_TOKEN_EXPIRATION_MINUTES", j.AccessTokenExpirationMinutes, time.Minute)
	if err != nil {
		return err
	}
	j.accessExpiry = access

	// Minutes win over days when both are configured
	switch {
	case strings.TrimSpace(j.RefreshTokenExpirationMinutes) != "":
		j.refreshExpiry, err = parsePositive("JWT_REFRESH_TOKEN_EXPIRATION_MINUTES", j.RefreshTokenExpirationMinutes, time.Minute)
	case strings.TrimSpace(j.RefreshTokenExpirationDays) != "":
		j.refreshExpiry, err = parsePositive("JWT_REFRESH_TOKEN_EXPIRATION_DAYS", j.RefreshTokenExpirationDays, 24*time.Hour)
	default:
		err = invalid("one of JWT_REFRESH_TOKEN_EXPIRATION_MINUTES or JWT_REFRESH_TOKEN_EXPIRATION_DAYS is required")
	}
	return err
}

func parsePositive(name, raw string, unit time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, invalid("%s %q is not a number", name, raw)
	}
	if v <= 0 {
		return 0, invalid("%s must be greater than zero", name)
	}
	return time.Duration(v * float64(unit)), nil
}
