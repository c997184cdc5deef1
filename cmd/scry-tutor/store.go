package main

import (
	"context"
	"fmt"
	"regexp"

	"github.com/phrazzld/scry-tutor/internal/config"
	"github.com/phrazzld/scry-tutor/internal/platform/memstore"
	"github.com/phrazzld/scry-tutor/internal/platform/redisstore"
	"github.com/phrazzld/scry-tutor/internal/platform/sqlitestore"
	"github.com/phrazzld/scry-tutor/internal/storage"
)

// sessionPrefix prefixes every cache namespace.
const sessionPrefix = "scry:session:"

// sessionName excludes ':' so that no session's namespace is a prefix of
// another's.
var sessionName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// validateSession checks a --session value. Empty means an anonymous
// session.
func validateSession(session string) error {
	if session == "" || sessionName.MatchString(session) {
		return nil
	}
	return fmt.Errorf("%w: session name %q may only contain letters, digits, '.', '_' and '-'",
		config.ErrInvalidConfig, session)
}

func sessionNamespace(session string) string {
	return sessionPrefix + session + ":"
}

// openStore opens the storage backend selected by cfg.Driver.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return memstore.New(memstore.Options{
			MaxBytes: int(cfg.MaxBytes),
			TTL:      cfg.TTL,
		}), nil
	case "sqlite":
		s, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := redisstore.Open(ctx, redisstore.Options{URL: cfg.RedisURL, TTL: cfg.TTL})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", config.ErrInvalidConfig, cfg.Driver)
	}
}
