// Package demo is a small inventory service assembled entirely from
// descriptors. It exercises every default marker and the routing processor,
// and is what the serve and inspect commands run.
package demo

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-assemble/framework/assembly"
	"github.com/km-arc/go-assemble/framework/events"
	gohttp "github.com/km-arc/go-assemble/framework/http"
)

// Item is one stock entry.
type Item struct {
	ID    int    `json:"id"`
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Count int    `json:"count" validate:"gte=0"`
}

// ItemAdded is posted on the event dispatcher when an item is created.
type ItemAdded struct {
	Item Item
	By   string
	At   time.Time
}

// ── Store ────────────────────────────────────────────────────────────────────

// ItemStore holds items.
type ItemStore interface {
	List() []Item
	Get(id int) (Item, bool)
	Add(item Item) Item
}

var errStoreClosed = errors.New("demo: store closed")

// MemoryStore is an in-memory ItemStore.
type MemoryStore struct {
	mu     sync.RWMutex
	items  []Item
	nextID int
	closed bool
	logger *zap.Logger
}

func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{nextID: 1, logger: logger}
}

// Seed loads the starter stock.
func (s *MemoryStore) Seed() {
	for _, name := range []string{"bolt", "nut", "washer"} {
		s.Add(Item{Name: name, Count: 100})
	}
	s.logger.Info("store seeded", zap.Int("items", len(s.List())))
}

func (s *MemoryStore) List() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *MemoryStore) Get(id int) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

func (s *MemoryStore) Add(item Item) Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.nextID
	s.nextID++
	s.items = append(s.items, item)
	return item
}

// Reset drops every item.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.nextID = 1
}

// Close releases the store. A second Close fails.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStoreClosed
	}
	s.closed = true
	s.logger.Info("store closed")
	return nil
}

// Closed reports whether Close has run.
func (s *MemoryStore) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// ── Clock ────────────────────────────────────────────────────────────────────

// Clock tells the time. It is supplied by ClockProvider.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ClockProvider provides the system Clock.
type ClockProvider struct{}

func (*ClockProvider) Provides() reflect.Type { return reflect.TypeFor[Clock]() }

func (*ClockProvider) Provide(*assembly.Context) (any, error) { return systemClock{}, nil }

// ── Audit log ────────────────────────────────────────────────────────────────

// AuditLog records inventory events.
type AuditLog struct {
	clock Clock

	mu      sync.Mutex
	entries []string
	flushed bool
}

func NewAuditLog(clock Clock) *AuditLog {
	return &AuditLog{clock: clock}
}

// Record is attached to ItemAdded events.
func (a *AuditLog) Record(e ItemAdded) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, fmt.Sprintf("%s added %s by %s", a.clock.Now().Format(time.RFC3339), e.Item.Name, e.By))
}

// Entries returns the recorded lines.
func (a *AuditLog) Entries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.entries)
}

// Flush writes the audit trail at shutdown.
func (a *AuditLog) Flush(logger *zap.Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	logger.Info("audit trail", zap.Strings("entries", a.entries))
	a.flushed = true
}

// Flushed reports whether Flush has run.
func (a *AuditLog) Flushed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushed
}

// ── Controller ───────────────────────────────────────────────────────────────

// ItemController serves the item API.
type ItemController struct {
	Audit *AuditLog `assemble:"inject"`

	store  ItemStore
	events *events.EventDispatcher
	clock  Clock
}

func NewItemController(store ItemStore, dispatcher *events.EventDispatcher, clock Clock) *ItemController {
	return &ItemController{store: store, events: dispatcher, clock: clock}
}

// List handles GET /items, paged by the optional offset and limit query
// parameters.
func (c *ItemController) List(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
	offset, err := strconv.Atoi(req.Query("offset", "0"))
	if err != nil || offset < 0 {
		res.Error(http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := strconv.Atoi(req.Query("limit", "0"))
	if err != nil || limit < 0 {
		res.Error(http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	items := c.store.List()
	items = items[min(offset, len(items)):]
	if limit > 0 {
		items = items[:min(limit, len(items))]
	}
	res.Success(items)
}

// Show handles GET /items/{id}.
func (c *ItemController) Show(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	id, err := strconv.Atoi(gohttp.NewRequest(r).RouteParam("id"))
	if err != nil {
		res.NotFound()
		return
	}
	item, ok := c.store.Get(id)
	if !ok {
		res.NotFound()
		return
	}
	res.Success(item)
}

// Create handles POST /items. The bearer token, when present, names the
// actor in the audit trail.
func (c *ItemController) Create(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
	var item Item
	if err := req.Bind(&item); err != nil {
		res.ValidationError(err)
		return
	}
	by := req.BearerToken()
	if by == "" {
		by = "anonymous"
	}
	item = c.store.Add(item)
	if err := c.events.Post(ItemAdded{Item: item, By: by, At: c.clock.Now()}); err != nil {
		res.Error(http.StatusInternalServerError, err.Error())
		return
	}
	res.Created(item)
}

// ── Health ───────────────────────────────────────────────────────────────────

// Health is mounted as a whole handler.
type Health struct{}

func (Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gohttp.NewResponse(w).Success(map[string]string{"status": "ok"})
}

// ── Reloader ─────────────────────────────────────────────────────────────────

// Reloader resets and reseeds the store on the "reload" message.
type Reloader struct {
	Store *MemoryStore `assemble:"inject"`

	reloads int
}

// Reload handles the "reload" message.
func (r *Reloader) Reload() error {
	if r.Store.Closed() {
		return errStoreClosed
	}
	r.Store.Reset()
	r.Store.Seed()
	r.reloads++
	return nil
}

// Reloads returns how many reloads ran.
func (r *Reloader) Reloads() int { return r.reloads }
