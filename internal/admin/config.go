package admin

import "time"

// Config is the admin plane's environment surface. The token lifetime is a
// plain minute count on the wire, matching its name.
type Config struct {
	Username        string   `env:"ADMIN_USERNAME" envDefault:"admin"`
	Password        string   `env:"ADMIN_PASSWORD,required"`
	JWTSecret       string   `env:"JWT_SECRET_KEY,required"`
	JWTAlgorithm    string   `env:"JWT_ALGORITHM" envDefault:"HS256"`
	TokenTTLMinutes int      `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"60"`
	CORSOrigins     []string `env:"CORS_ORIGINS" envDefault:"*"`
}

// TokenTTL returns the access token lifetime as a duration.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}
