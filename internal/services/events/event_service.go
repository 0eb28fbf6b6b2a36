package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/common"
	"github.com/ternarybob/larder/internal/interfaces"
)

// ErrClosed is returned by Subscribe after Close
var ErrClosed = errors.New("event service closed")

// Service is an in-process event bus. Handlers for one event run concurrently;
// a failing or panicking handler never affects the publisher or its siblings.
type Service struct {
	mu       sync.RWMutex
	handlers map[interfaces.EventType][]interfaces.EventHandler
	closed   bool
	logger   arbor.ILogger
}

// NewService creates an empty event bus
func NewService(logger arbor.ILogger) interfaces.EventService {
	return &Service{
		handlers: make(map[interfaces.EventType][]interfaces.EventHandler),
		logger:   logger,
	}
}

// Subscribe adds handler for eventType
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("subscribe %s: nil handler", eventType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.handlers[eventType] = append(s.handlers[eventType], handler)

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("handlers", len(s.handlers[eventType])).
		Msg("Event handler subscribed")
	return nil
}

// Publish runs the handlers in the background and returns at once.
// They are detached from ctx because a request that publishes usually ends first.
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	detached := context.WithoutCancel(ctx)
	for _, h := range s.snapshot(event.Type) {
		h := h
		common.SafeGo(s.logger, "event:"+string(event.Type), func() {
			s.invoke(detached, h, event)
		})
	}
	return nil
}

// PublishSync runs the handlers and waits; every handler error is joined into the result
func (s *Service) PublishSync(ctx context.Context, event interfaces.Event) error {
	handlers := s.snapshot(event.Type)
	errs := make([]error, len(handlers))

	var wg sync.WaitGroup
	for i, h := range handlers {
		wg.Add(1)
		go func(i int, h interfaces.EventHandler) {
			defer wg.Done()
			defer common.RecoverGoroutine(s.logger, "event:"+string(event.Type))
			errs[i] = s.invoke(ctx, h, event)
		}(i, h)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s handlers failed: %w", event.Type, err)
	}
	return nil
}

// Close drops every subscription; later publishes reach nobody
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.handlers = make(map[interfaces.EventType][]interfaces.EventHandler)
	return nil
}

func (s *Service) invoke(ctx context.Context, h interfaces.EventHandler, event interfaces.Event) error {
	err := h(ctx, event)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("event_type", string(event.Type)).
			Msg("Event handler failed")
	}
	return err
}

func (s *Service) snapshot(eventType interfaces.EventType) []interfaces.EventHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]interfaces.EventHandler(nil), s.handlers[eventType]...)
}
