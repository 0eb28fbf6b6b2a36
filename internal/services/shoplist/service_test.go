package shoplist

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/httpclient"
	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/models"
	"github.com/ternarybob/larder/internal/storage/filestore"
)

// fakeUpstream serves the list API from an in-memory item set
type fakeUpstream struct {
	mu         sync.Mutex
	items      []map[string]interface{}
	listStatus int
	addStatus  int
	calls      map[string]int
	lastBody   map[string]interface{}
	lastPath   string
}

func newFakeUpstream(items ...map[string]interface{}) *fakeUpstream {
	return &fakeUpstream{
		items:      items,
		listStatus: http.StatusOK,
		addStatus:  http.StatusOK,
		calls:      make(map[string]int),
	}
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[r.Method]++
	f.lastPath = r.URL.Path
	f.lastBody = nil
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &f.lastBody)
	}

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/getlistitems"):
		if f.listStatus != http.StatusOK {
			w.WriteHeader(f.listStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"requestId": map[string]interface{}{"trace": "x"},
			"list": map[string]interface{}{
				"listId":    "L1",
				"name":      "Groceries",
				"listItems": f.items,
			},
		})
	case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/addlistitem/"):
		w.WriteHeader(f.addStatus)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPut:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeUpstream) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// recordingEvents captures published events
type recordingEvents struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (r *recordingEvents) Subscribe(interfaces.EventType, interfaces.EventHandler) error { return nil }
func (r *recordingEvents) Publish(_ context.Context, event interfaces.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}
func (r *recordingEvents) PublishSync(ctx context.Context, event interfaces.Event) error {
	return r.Publish(ctx, event)
}
func (r *recordingEvents) Close() error { return nil }

func (r *recordingEvents) types() []interfaces.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]interfaces.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func item(id, value, listID string, completed bool) map[string]interface{} {
	return map[string]interface{}{
		"id":              id,
		"value":           value,
		"listId":          listID,
		"completed":       completed,
		"version":         3,
		"createdDateTime": 1700000000000,
		"customerId":      "CUST1",
	}
}

type fixture struct {
	service  *Service
	store    *filestore.SessionStorage
	upstream *fakeUpstream
	events   *recordingEvents
}

func newFixture(t *testing.T, upstream *fakeUpstream) *fixture {
	t.Helper()
	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	logger := arbor.NewLogger()
	store := filestore.NewSessionStorage(filepath.Join(t.TempDir(), "cookies.json"), logger)
	require.NoError(t, store.Save(context.Background(), []models.Cookie{{Name: "session-id", Value: "v", Path: "/"}}))

	executor, err := httpclient.NewExecutor(store, server.URL, logger)
	require.NoError(t, err)

	events := &recordingEvents{}
	return &fixture{
		service:  NewService(executor, store, events, nil, logger),
		store:    store,
		upstream: upstream,
		events:   events,
	}
}

func TestService_GetItemsKeepsUpstreamFields(t *testing.T) {
	f := newFixture(t, newFakeUpstream(item("1", "Milk", "L1", false), item("2", "Eggs", "L1", true)))

	items, err := f.service.GetItems(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Milk", items[0].Value)
	assert.Equal(t, "L1", items[0].ListID)

	version, ok := items[0].Raw("version")
	require.True(t, ok)
	assert.JSONEq(t, "3", string(version))
}

func TestService_IncompleteAndCompleted(t *testing.T) {
	f := newFixture(t, newFakeUpstream(
		item("1", "Milk", "L1", false),
		item("2", "Eggs", "L1", true),
		item("3", "Bread", "L1", false),
	))

	incomplete, err := f.service.GetIncomplete(context.Background())
	require.NoError(t, err)
	assert.Len(t, incomplete, 2)

	completed, err := f.service.GetCompleted(context.Background())
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "Eggs", completed[0].Value)
}

func TestService_AddItemResolvesListID(t *testing.T) {
	f := newFixture(t, newFakeUpstream(item("1", "Milk", "L1", false)))

	require.NoError(t, f.service.AddItem(context.Background(), "", "Butter"))

	assert.Equal(t, 1, f.upstream.callCount(http.MethodPost))
	assert.Equal(t, "/alexashoppinglists/api/addlistitem/L1", f.upstream.lastPath)
	assert.Equal(t, "Butter", f.upstream.lastBody["value"])
	assert.Equal(t, "TASK", f.upstream.lastBody["type"])
}

func TestService_AddItemEmptyListMakesNoMutation(t *testing.T) {
	f := newFixture(t, newFakeUpstream())

	err := f.service.AddItem(context.Background(), "", "Butter")
	assert.ErrorIs(t, err, models.ErrNoListID)
	assert.Equal(t, 0, f.upstream.callCount(http.MethodPost))
}

func TestService_AddItemRequiresExactly200(t *testing.T) {
	upstream := newFakeUpstream(item("1", "Milk", "L1", false))
	upstream.addStatus = http.StatusCreated
	f := newFixture(t, upstream)

	err := f.service.AddItem(context.Background(), "L1", "Butter")
	assert.ErrorIs(t, err, models.ErrRequestRejected)
}

func TestService_AddItemRejectsBlankValue(t *testing.T) {
	f := newFixture(t, newFakeUpstream(item("1", "Milk", "L1", false)))

	err := f.service.AddItem(context.Background(), "L1", "   ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, 0, f.upstream.callCount(http.MethodPost))
}

func TestService_SetCompletionChangesOnlyCompleted(t *testing.T) {
	f := newFixture(t, newFakeUpstream(item("1", "Milk", "L1", false)))

	items, err := f.service.GetItems(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, f.service.SetCompletion(context.Background(), &items[0], true))

	body := f.upstream.lastBody
	assert.Equal(t, true, body["completed"])
	assert.Equal(t, "1", body["id"])
	assert.Equal(t, "Milk", body["value"])
	assert.Equal(t, "L1", body["listId"])
	assert.EqualValues(t, 3, body["version"])
	assert.EqualValues(t, 1700000000000, body["createdDateTime"])
	assert.Equal(t, "CUST1", body["customerId"])
}

func TestService_DeleteItem(t *testing.T) {
	f := newFixture(t, newFakeUpstream(item("1", "Milk", "L1", false)))

	err := f.service.DeleteItem(context.Background(), &models.ListItem{Value: "ghost"})
	assert.ErrorIs(t, err, models.ErrMissingID)
	assert.Equal(t, 0, f.upstream.callCount(http.MethodDelete))

	items, err := f.service.GetItems(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, f.service.DeleteItem(context.Background(), &items[0]))
	assert.Equal(t, 1, f.upstream.callCount(http.MethodDelete))
	assert.Equal(t, "1", f.upstream.lastBody["id"])
}

func TestService_AuthInvalidClearsSession(t *testing.T) {
	upstream := newFakeUpstream(item("1", "Milk", "L1", false))
	upstream.listStatus = http.StatusUnauthorized
	f := newFixture(t, upstream)

	_, err := f.service.GetItems(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrAuthInvalid)
	assert.False(t, f.store.Exists(context.Background()))
	assert.Contains(t, f.events.types(), interfaces.EventSessionInvalidated)

	// Next call short-circuits without touching the upstream
	before := upstream.callCount(http.MethodGet)
	_, err = f.service.GetItems(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	assert.Equal(t, before, upstream.callCount(http.MethodGet))
}

func TestService_CheckSessionNeverClears(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.listStatus = http.StatusForbidden
	f := newFixture(t, upstream)

	_, err := f.service.CheckSession(context.Background())
	assert.ErrorIs(t, err, models.ErrAuthInvalid)
	assert.True(t, f.store.Exists(context.Background()))
	assert.Empty(t, f.events.types())
}

func TestService_TransientKeepsSession(t *testing.T) {
	upstream := newFakeUpstream()
	upstream.listStatus = http.StatusServiceUnavailable
	f := newFixture(t, upstream)

	_, err := f.service.GetItems(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrTransient)
	assert.True(t, f.store.Exists(context.Background()))
}

func TestService_ByName(t *testing.T) {
	f := newFixture(t, newFakeUpstream(
		item("1", "Milk", "L1", false),
		item("2", "Eggs", "L1", true),
	))
	ctx := context.Background()

	marked, err := f.service.MarkCompletedByName(ctx, "milk")
	require.NoError(t, err)
	assert.Equal(t, "1", marked.ID)
	assert.Equal(t, true, f.upstream.lastBody["completed"])

	_, err = f.service.MarkCompletedByName(ctx, "eggs")
	assert.ErrorIs(t, err, models.ErrItemNotFound)

	reopened, err := f.service.MarkIncompleteByName(ctx, "EGGS")
	require.NoError(t, err)
	assert.Equal(t, "2", reopened.ID)
	assert.Equal(t, false, f.upstream.lastBody["completed"])

	_, err = f.service.DeleteByName(ctx, "cheese")
	assert.ErrorIs(t, err, models.ErrItemNotFound)
}

func TestService_ListAllLists(t *testing.T) {
	f := newFixture(t, newFakeUpstream(
		item("1", "Milk", "L2", false),
		item("2", "Eggs", "L1", true),
		item("3", "Bread", "L1", false),
	))

	lists, err := f.service.ListAllLists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 2)

	assert.Equal(t, "L1", lists[0].ListID)
	assert.Equal(t, "Groceries", lists[0].Name)
	assert.True(t, lists[0].IsPrimary)
	assert.Equal(t, 2, lists[0].ItemCount)
	assert.Equal(t, 1, lists[0].CompletedCount)
	assert.Equal(t, 1, lists[0].IncompleteCount)
	assert.Equal(t, "CUST1", lists[0].CustomerID)

	assert.Equal(t, "L2", lists[1].ListID)
	assert.Equal(t, "List 1", lists[1].Name)
	assert.False(t, lists[1].IsPrimary)
}

func TestSummariseLists_SingleUnnamedList(t *testing.T) {
	items := decodeItems(t, `[{"id":"1","value":"a","listId":"X","completed":false}]`)

	lists := SummariseLists(items, nil)
	require.Len(t, lists, 1)
	assert.Equal(t, "Shopping List", lists[0].Name)
	assert.True(t, lists[0].IsPrimary)
	assert.Equal(t, 1, lists[0].IncompleteCount)
}

func TestSummariseLists_Empty(t *testing.T) {
	lists := SummariseLists(nil, nil)
	assert.NotNil(t, lists)
	assert.Empty(t, lists)
}

func TestFindByName(t *testing.T) {
	items := decodeItems(t, `[{"id":"1","value":"Milk"},{"id":"2","value":"milk"}]`)

	found := FindByName(items, " MILK ")
	require.NotNil(t, found)
	assert.Equal(t, "1", found.ID)
	assert.Nil(t, FindByName(items, "mil"))
}

func decodeItems(t *testing.T, data string) []models.ListItem {
	t.Helper()
	var items []models.ListItem
	require.NoError(t, json.Unmarshal([]byte(data), &items))
	return items
}
