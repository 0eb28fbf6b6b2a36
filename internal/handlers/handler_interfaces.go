package handlers

import (
	"context"

	"github.com/ternarybob/larder/internal/models"
	"github.com/ternarybob/larder/internal/services/status"
)

// ItemService is the list surface the item handlers drive.
type ItemService interface {
	GetItems(ctx context.Context, listID string) ([]models.ListItem, error)
	GetIncomplete(ctx context.Context) ([]models.ListItem, error)
	GetCompleted(ctx context.Context) ([]models.ListItem, error)
	ListAllLists(ctx context.Context) ([]models.ListSummary, error)
	AddByName(ctx context.Context, name string) error
	DeleteByName(ctx context.Context, name string) (*models.ListItem, error)
	MarkCompletedByName(ctx context.Context, name string) (*models.ListItem, error)
	MarkIncompleteByName(ctx context.Context, name string) (*models.ListItem, error)
}

// StatusProvider reports the derived session state.
type StatusProvider interface {
	GetStatus(ctx context.Context) *status.Status
}

// CheckRunner runs a liveness probe on demand.
type CheckRunner interface {
	RunNow(ctx context.Context) *models.SessionCheck
}
