package cache

import (
	"github.com/flexprice/staffdesk/internal/config"
	"github.com/flexprice/staffdesk/internal/logger"
)

// Initialize builds the process wide cache used for tokens and sessions
func Initialize(cfg *config.Configuration, log *logger.Logger) *InMemoryCache {
	log.Infow("initializing cache system", "session_ttl", cfg.Session.TTL)
	return NewInMemoryCache(cfg.Session.TTL)
}
