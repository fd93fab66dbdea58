// Package repos stores connected repository records.
package repos

import (
	"context"
	"errors"
	"time"

	"github.com/stackseek/stackseek/pkg/scm"
)

// ErrRepoNotFound is returned when no repository exists for an ID.
var ErrRepoNotFound = errors.New("repository not found")

// Repository represents a connected repository
type Repository struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	URL       string       `json:"url"`
	Provider  scm.Provider `json:"provider"`
	IsPrivate bool         `json:"is_private"`
	CreatedAt time.Time    `json:"created_at"`
}

// Store defines repository persistence
type Store interface {
	Create(ctx context.Context, repo *Repository) error
	GetByID(ctx context.Context, id string) (*Repository, error)
	// FindByUserAndURL returns nil without error when no match exists.
	FindByUserAndURL(ctx context.Context, userID, url string) (*Repository, error)
	ListByUser(ctx context.Context, userID string) ([]*Repository, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
