package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// requirements lists the keys that must be non-empty per environment.
var requirements = map[Environment][]string{
	Development: {"server.port", "jwt.secret"},
	Test:        {"server.port", "jwt.secret"},
	CI:          {"server.port", "jwt.secret", "database.password"},
	Production:  {"server.port", "jwt.secret", "database.password", "redis.password"},
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	var errs []ValidationError

	values := map[string]string{
		"server.port":       cfg.Server.Port,
		"jwt.secret":        cfg.JWT.Secret,
		"database.password": cfg.Database.Password,
		"redis.password":    cfg.Redis.Password,
	}
	for _, key := range requirements[cfg.Env] {
		if values[key] == "" {
			errs = append(errs, ValidationError{Field: key, Message: "is required in " + cfg.Env.String()})
		}
	}

	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			errs = append(errs, ValidationError{Field: "database", Message: "host and name are required for postgres"})
		}
	case "sqlite":
		if cfg.Database.SQLitePath == "" {
			errs = append(errs, ValidationError{Field: "database.sqlite_path", Message: "is required for sqlite"})
		}
	default:
		errs = append(errs, ValidationError{Field: "database.driver", Message: fmt.Sprintf("unsupported driver %q", cfg.Database.Driver)})
	}

	switch cfg.Session.Store {
	case "database":
	case "redis":
		if cfg.Redis.URL == "" && cfg.Redis.Host == "" {
			errs = append(errs, ValidationError{Field: "redis", Message: "url or host is required for the redis session store"})
		}
	default:
		errs = append(errs, ValidationError{Field: "session.store", Message: fmt.Sprintf("unsupported store %q", cfg.Session.Store)})
	}
	if cfg.Session.LockTTL <= 0 {
		errs = append(errs, ValidationError{Field: "session.lock_ttl", Message: "must be positive"})
	}

	if cfg.RateLimit.Enabled && (cfg.RateLimit.Requests <= 0 || cfg.RateLimit.Window <= 0) {
		errs = append(errs, ValidationError{Field: "rate_limit", Message: "requests and window must be positive"})
	}

	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("configuration validation failed:\n%s", strings.Join(msgs, "\n"))
}
