package config

import (
	"time"

	"github.com/ghxstship/atlvs/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Redis     Redis
	Log       logger.Log
	OIDC      OIDC
	Title     string
	Webserver Webserver
}

// Webserver implement webserver settings.
type Webserver struct {
	Domain         string // domain name for the webserver
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver
	DisableRecover bool   // disable recover middleware
}

// Redis holds the change-feed broker settings.
type Redis struct {
	Addr     string // host:port of the redis server
	Password string
	DB       int
}

// OIDC holds the OpenID Connect identity-resolver settings.
type OIDC struct {
	Enabled     bool
	ProviderURL string
	ClientID    string
	// TokenCacheTTL bounds how long a verified bearer token is reused
	// before it is verified against the provider again.
	TokenCacheTTL time.Duration
}
