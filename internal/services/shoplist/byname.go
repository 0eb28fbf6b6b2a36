package shoplist

import (
	"context"
	"fmt"

	"github.com/ternarybob/larder/internal/models"
)

// AddByName adds an item to the default list
func (s *Service) AddByName(ctx context.Context, name string) error {
	return s.AddItem(ctx, "", name)
}

// DeleteByName deletes the first item matching name, completed or not
func (s *Service) DeleteByName(ctx context.Context, name string) (*models.ListItem, error) {
	items, err := s.GetItems(ctx, "")
	if err != nil {
		return nil, err
	}
	item := FindByName(items, name)
	if item == nil {
		return nil, fmt.Errorf("%w: '%s'", models.ErrItemNotFound, name)
	}
	if err := s.DeleteItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// MarkCompletedByName completes the first incomplete item matching name
func (s *Service) MarkCompletedByName(ctx context.Context, name string) (*models.ListItem, error) {
	items, err := s.GetIncomplete(ctx)
	if err != nil {
		return nil, err
	}
	item := FindByName(items, name)
	if item == nil {
		return nil, fmt.Errorf("%w: incomplete item '%s'", models.ErrItemNotFound, name)
	}
	if err := s.SetCompletion(ctx, item, true); err != nil {
		return nil, err
	}
	return item, nil
}

// MarkIncompleteByName reopens the first completed item matching name
func (s *Service) MarkIncompleteByName(ctx context.Context, name string) (*models.ListItem, error) {
	items, err := s.GetCompleted(ctx)
	if err != nil {
		return nil, err
	}
	item := FindByName(items, name)
	if item == nil {
		return nil, fmt.Errorf("%w: completed item '%s'", models.ErrItemNotFound, name)
	}
	if err := s.SetCompletion(ctx, item, false); err != nil {
		return nil, err
	}
	return item, nil
}
