package handler

import (
	"strings"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
)

// StatsCache keeps aggregate counts per provider view until a mutation or a
// provider change invalidates them
type StatsCache struct {
	cache cache.Cache[string, domain.Stats]
}

func NewStatsCache(ttl time.Duration) *StatsCache {
	return &StatsCache{
		cache: cache.NewCache[string, domain.Stats]().WithTTL(ttl).WithMaxKeys(1000),
	}
}

// statsKey separates hosted owners; shared providers have one view
func statsKey(name storage.Name, ownerID string) string {
	if name == storage.NameHosted {
		return string(name) + "|" + ownerID
	}
	return string(name)
}

func (s *StatsCache) Get(name storage.Name, ownerID string) (domain.Stats, bool) {
	return s.cache.Get(statsKey(name, ownerID))
}

func (s *StatsCache) Set(name storage.Name, ownerID string, stats domain.Stats) {
	s.cache.Add(statsKey(name, ownerID), stats)
}

func (s *StatsCache) Invalidate(name storage.Name, ownerID string) {
	s.cache.Invalidate(statsKey(name, ownerID))
}

// InvalidateProvider drops every cached view of a provider
func (s *StatsCache) InvalidateProvider(name storage.Name) {
	prefix := string(name)
	s.cache.InvalidateFn(func(key string) bool {
		return key == prefix || strings.HasPrefix(key, prefix+"|")
	})
}

func (s *StatsCache) Purge() {
	s.cache.Purge()
}
