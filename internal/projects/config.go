// Package projects holds per-project (tenant) booking configuration: the
// specialist roster and the service-to-duration table. Working hours live in
// the external availability ledger and are not managed here.
package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSlotUnitMinutes is the schedule granularity used when a project does
// not override it.
const DefaultSlotUnitMinutes = 30

// configTTL bounds how stale a cached project config can get before the
// admin tooling has to re-publish it.
const configTTL = 24 * time.Hour

// Config holds project-specific booking configuration.
type Config struct {
	ProjectID string `json:"project_id"`
	// Specialists is the configured roster. A booking request naming anyone
	// else is a validation failure, not a slot conflict.
	Specialists []string `json:"specialists"`
	// Services maps a canonical service name to its duration in slot units.
	Services map[string]int `json:"services"`
	// SlotUnitMinutes quantizes all durations and availability.
	SlotUnitMinutes int `json:"slot_unit_minutes"`
}

// HasSpecialist reports whether name is on the roster. Matching is
// case-insensitive because specialist names arrive from free-form chat.
func (c *Config) HasSpecialist(name string) bool {
	for _, s := range c.Specialists {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// CanonicalSpecialist returns the roster spelling for name.
func (c *Config) CanonicalSpecialist(name string) (string, bool) {
	for _, s := range c.Specialists {
		if strings.EqualFold(s, name) {
			return s, true
		}
	}
	return "", false
}

// ServiceSlots returns the configured duration for a service in slot units.
func (c *Config) ServiceSlots(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	if slots, ok := c.Services[name]; ok {
		return slots, true
	}
	for svc, slots := range c.Services {
		if strings.EqualFold(svc, name) {
			return slots, true
		}
	}
	return 0, false
}

// SlotUnit returns the project's slot unit, falling back to the default.
func (c *Config) SlotUnit() int {
	if c.SlotUnitMinutes > 0 {
		return c.SlotUnitMinutes
	}
	return DefaultSlotUnitMinutes
}

// DefaultConfig returns an empty roster configuration for a project that has
// not been set up yet.
func DefaultConfig(projectID string) *Config {
	return &Config{
		ProjectID:       projectID,
		Specialists:     []string{},
		Services:        map[string]int{},
		SlotUnitMinutes: DefaultSlotUnitMinutes,
	}
}

// Store provides persistence for project configurations.
type Store struct {
	redis *redis.Client
}

// NewStore creates a new project config store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) key(projectID string) string {
	return fmt.Sprintf("project:config:%s", projectID)
}

// Get retrieves project config, returning an empty default if not found.
func (s *Store) Get(ctx context.Context, projectID string) (*Config, error) {
	data, err := s.redis.Get(ctx, s.key(projectID)).Bytes()
	if err == redis.Nil {
		return DefaultConfig(projectID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("projects: get config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("projects: unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Set saves project config.
func (s *Store) Set(ctx context.Context, cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("projects: marshal config: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(cfg.ProjectID), data, configTTL).Err(); err != nil {
		return fmt.Errorf("projects: set config: %w", err)
	}
	return nil
}
