// Package prefs stores per-user app preferences: theme, language and whether
// the first-run walkthrough has been completed.
package prefs

import (
	"context"
	"strings"
	"sync"

	"staytrack/pkg/domain"
)

// Theme selects the colour scheme.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// DefaultLanguage applies until the user picks one.
const DefaultLanguage = "en"

// Preferences is one user's settings.
type Preferences struct {
	Theme    Theme  `json:"theme"`
	Language string `json:"language"`
	FirstRun bool   `json:"first_run"`
}

// Defaults returns the preferences of a user who never saved any.
func Defaults() Preferences {
	return Preferences{Theme: ThemeSystem, Language: DefaultLanguage, FirstRun: true}
}

// Normalize fills empty fields with defaults and validates the rest.
func (p Preferences) Normalize() (Preferences, error) {
	p.Language = strings.ToLower(strings.TrimSpace(p.Language))
	if p.Theme == "" {
		p.Theme = ThemeSystem
	}
	if p.Language == "" {
		p.Language = DefaultLanguage
	}
	switch p.Theme {
	case ThemeSystem, ThemeLight, ThemeDark:
	default:
		return p, domain.Invalid("theme", "unknown theme %q", p.Theme)
	}
	if len(p.Language) > 8 {
		return p, domain.Invalid("language", "language tag %q too long", p.Language)
	}
	return p, nil
}

// Store persists preferences keyed by user id.
type Store interface {
	Get(ctx context.Context, userID string) (Preferences, error)
	Set(ctx context.Context, userID string, p Preferences) (Preferences, error)
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.RWMutex
	items map[string]Preferences
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]Preferences)}
}

// Get returns the stored preferences or Defaults.
func (m *Memory) Get(ctx context.Context, userID string) (Preferences, error) {
	if err := ctx.Err(); err != nil {
		return Preferences{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.items[userID]; ok {
		return p, nil
	}
	return Defaults(), nil
}

// Set validates and stores p.
func (m *Memory) Set(ctx context.Context, userID string, p Preferences) (Preferences, error) {
	if err := ctx.Err(); err != nil {
		return Preferences{}, err
	}
	p, err := p.Normalize()
	if err != nil {
		return Preferences{}, err
	}
	m.mu.Lock()
	m.items[userID] = p
	m.mu.Unlock()
	return p, nil
}
