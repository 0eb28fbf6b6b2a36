package shoplist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/httpclient"
	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/models"
)

const (
	apiPrefix        = "/alexashoppinglists/api"
	defaultListName  = "Shopping List"
	itemTypeTask     = "TASK"
	clearReasonProbe = "auth_invalid"
)

// Service performs shopping list operations with the stored session.
// Any request that proves the session dead clears it so the next caller
// sees ErrUnauthenticated instead of repeating a doomed call.
type Service struct {
	executor *httpclient.Executor
	store    interfaces.SessionStorage
	events   interfaces.EventService
	metrics  interfaces.MetricsRecorder
	logger   arbor.ILogger
}

// NewService creates a new shopping list service. events and metrics may be nil.
func NewService(
	executor *httpclient.Executor,
	store interfaces.SessionStorage,
	events interfaces.EventService,
	metrics interfaces.MetricsRecorder,
	logger arbor.ILogger,
) *Service {
	return &Service{
		executor: executor,
		store:    store,
		events:   events,
		metrics:  metrics,
		logger:   logger,
	}
}

// GetItems returns every item on a list. An empty listID means the account default.
func (s *Service) GetItems(ctx context.Context, listID string) ([]models.ListItem, error) {
	resp, err := s.fetch(ctx, listID)
	if err != nil {
		return nil, s.handleFailure(ctx, "get_items", err)
	}
	return resp.Items, nil
}

// GetIncomplete returns items not yet marked completed
func (s *Service) GetIncomplete(ctx context.Context) ([]models.ListItem, error) {
	items, err := s.GetItems(ctx, "")
	if err != nil {
		return nil, err
	}
	return FilterItems(items, false), nil
}

// GetCompleted returns items marked completed
func (s *Service) GetCompleted(ctx context.Context) ([]models.ListItem, error) {
	items, err := s.GetItems(ctx, "")
	if err != nil {
		return nil, err
	}
	return FilterItems(items, true), nil
}

// CheckSession performs the same fetch as GetItems but leaves the session in place on failure.
// The caller decides what a failed probe means.
func (s *Service) CheckSession(ctx context.Context) ([]models.ListItem, error) {
	resp, err := s.fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ListAllLists derives the account's lists by grouping items on listId
func (s *Service) ListAllLists(ctx context.Context) ([]models.ListSummary, error) {
	resp, err := s.fetch(ctx, "")
	if err != nil {
		return nil, s.handleFailure(ctx, "list_all_lists", err)
	}

	summaries := SummariseLists(resp.Items, resp.Metadata)
	s.logger.Info().Int("lists", len(summaries)).Msg("Derived shopping lists from items")
	return summaries, nil
}

// AddItem appends value to a list. An empty listID resolves to the list of the first existing item.
func (s *Service) AddItem(ctx context.Context, listID, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%w: item value is empty", models.ErrInvalidInput)
	}

	if listID == "" {
		items, err := s.GetItems(ctx, "")
		if err != nil {
			return err
		}
		listID = resolveListID(items)
		if listID == "" {
			return models.ErrNoListID
		}
	}

	resp, err := s.executor.Do(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    s.endpoint("addlistitem/" + url.PathEscape(listID)),
		Body:   map[string]string{"value": value, "type": itemTypeTask},
	})
	if err != nil {
		return s.handleFailure(ctx, "add_item", err)
	}
	if err := expectStatus(resp, http.MethodPost, http.StatusOK); err != nil {
		return err
	}

	s.logger.Info().Str("item", value).Str("list_id", listID).Msg("Added list item")
	return nil
}

// DeleteItem removes an item. The upstream identifies it by the echoed record.
func (s *Service) DeleteItem(ctx context.Context, item *models.ListItem) error {
	if item == nil || item.ID == "" {
		return models.ErrMissingID
	}

	resp, err := s.executor.Do(ctx, &httpclient.Request{
		Method: http.MethodDelete,
		URL:    s.endpoint("deletelistitem"),
		Body:   item.UpstreamPayload(item.Completed),
	})
	if err != nil {
		return s.handleFailure(ctx, "delete_item", err)
	}
	if err := expectStatus(resp, http.MethodDelete, http.StatusOK, http.StatusNoContent); err != nil {
		return err
	}

	s.logger.Info().Str("item", item.Value).Str("item_id", item.ID).Msg("Deleted list item")
	return nil
}

// SetCompletion sends the item back with only its completed flag changed
func (s *Service) SetCompletion(ctx context.Context, item *models.ListItem, completed bool) error {
	if item == nil || item.ID == "" {
		return models.ErrMissingID
	}

	resp, err := s.executor.Do(ctx, &httpclient.Request{
		Method: http.MethodPut,
		URL:    s.endpoint("updatelistitem"),
		Body:   item.UpstreamPayload(completed),
	})
	if err != nil {
		return s.handleFailure(ctx, "set_completion", err)
	}
	if err := expectStatus(resp, http.MethodPut, http.StatusOK); err != nil {
		return err
	}

	s.logger.Info().
		Str("item", item.Value).
		Str("item_id", item.ID).
		Bool("completed", completed).
		Msg("Updated list item")
	return nil
}

func (s *Service) fetch(ctx context.Context, listID string) (*listResponse, error) {
	endpoint := s.endpoint("getlistitems")
	if listID != "" {
		endpoint += "?listId=" + url.QueryEscape(listID)
	}

	resp, err := s.executor.Do(ctx, &httpclient.Request{Method: http.MethodGet, URL: endpoint})
	if err != nil {
		return nil, err
	}

	parsed, err := parseListResponse(resp.Body)
	if err != nil {
		s.logger.Warn().Err(err).Int("bytes", len(resp.Body)).Msg("Unrecognised list response")
		return nil, err
	}

	s.logger.Debug().Int("items", len(parsed.Items)).Str("list_id", listID).Msg("Fetched list items")
	return parsed, nil
}

// handleFailure clears the session when the upstream has rejected it
func (s *Service) handleFailure(ctx context.Context, operation string, err error) error {
	if !errors.Is(err, models.ErrAuthInvalid) {
		return err
	}

	if clearErr := s.store.Clear(ctx); clearErr != nil {
		s.logger.Error().Err(clearErr).Str("operation", operation).Msg("Failed to clear rejected session")
		return err
	}

	s.logger.Warn().Str("operation", operation).Msg("Session rejected by upstream - cleared, login required")
	if s.metrics != nil {
		s.metrics.RecordSessionCleared(clearReasonProbe)
	}
	if s.events != nil {
		_ = s.events.Publish(ctx, interfaces.Event{
			Type: interfaces.EventSessionInvalidated,
			Payload: map[string]interface{}{
				"operation": operation,
				"error":     err.Error(),
			},
		})
	}
	return err
}

func (s *Service) endpoint(path string) string {
	return s.executor.BaseURL() + apiPrefix + "/" + path
}

func expectStatus(resp *httpclient.Response, method string, allowed ...int) error {
	for _, code := range allowed {
		if resp.StatusCode == code {
			return nil
		}
	}
	return &models.UpstreamError{
		Class:      models.ErrRequestRejected,
		Method:     method,
		URL:        resp.FinalURL,
		StatusCode: resp.StatusCode,
		Detail:     "unexpected success status",
	}
}

func resolveListID(items []models.ListItem) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].ListID
}

// FilterItems keeps the items whose completed flag equals completed
func FilterItems(items []models.ListItem, completed bool) []models.ListItem {
	out := make([]models.ListItem, 0, len(items))
	for _, item := range items {
		if item.Completed == completed {
			out = append(out, item)
		}
	}
	return out
}

// FindByName returns the first item whose value matches name, ignoring case
func FindByName(items []models.ListItem, name string) *models.ListItem {
	name = strings.TrimSpace(name)
	for i := range items {
		if strings.EqualFold(items[i].Value, name) {
			return &items[i]
		}
	}
	return nil
}

// SummariseLists groups items by listId in first-seen order.
// Primary lists sort first, then by name.
func SummariseLists(items []models.ListItem, meta *listMetadata) []models.ListSummary {
	index := make(map[string]int)
	var lists []models.ListSummary

	for i := range items {
		item := &items[i]
		if item.ListID == "" {
			continue
		}
		pos, ok := index[item.ListID]
		if !ok {
			summary := models.ListSummary{
				ListID:     item.ListID,
				CustomerID: item.RawString("customerId"),
			}
			if meta != nil && meta.ListID == item.ListID {
				summary.Name = meta.Name
				if summary.Name == "" {
					summary.Name = defaultListName
				}
				summary.IsPrimary = true
			}
			pos = len(lists)
			index[item.ListID] = pos
			lists = append(lists, summary)
		}

		lists[pos].ItemCount++
		if item.Completed {
			lists[pos].CompletedCount++
		} else {
			lists[pos].IncompleteCount++
		}
	}

	if len(lists) == 1 && lists[0].Name == "" {
		lists[0].Name = defaultListName
		lists[0].IsPrimary = true
	}
	unnamed := 0
	for i := range lists {
		if lists[i].Name == "" {
			unnamed++
			lists[i].Name = fmt.Sprintf("List %d", unnamed)
		}
	}

	sort.SliceStable(lists, func(a, b int) bool {
		if lists[a].IsPrimary != lists[b].IsPrimary {
			return lists[a].IsPrimary
		}
		return lists[a].Name < lists[b].Name
	})

	if lists == nil {
		lists = []models.ListSummary{}
	}
	return lists
}
