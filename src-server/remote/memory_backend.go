package remote

import (
	"context"
	"invitation/src-server/model"
	"sort"
	"sync"
	"time"
)

type memoryEvent struct {
	rsvps     map[string]model.AttendeeRecord
	guestbook map[string]model.GuestbookMessage
	content   *model.ContentOverrides
	qr        map[string]model.QRRecord
	entries   map[string]model.ScannedEntryRecord
}

// MemoryBackend keeps the remote collections in process memory. It serves
// REMOTE_DSN=memory:// deployments and tests. Setting Err makes every call
// fail with it.
type MemoryBackend struct {
	mu     sync.RWMutex
	events []model.EventInfo
	data   map[string]*memoryEvent

	Err error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]*memoryEvent)}
}

func (m *MemoryBackend) SetErr(err error) {
	m.mu.Lock()
	m.Err = err
	m.mu.Unlock()
}

func (m *MemoryBackend) fail() error {
	return m.Err
}

func (m *MemoryBackend) event(eventID string) *memoryEvent {
	e, ok := m.data[eventID]
	if !ok {
		e = &memoryEvent{
			rsvps:     make(map[string]model.AttendeeRecord),
			guestbook: make(map[string]model.GuestbookMessage),
			qr:        make(map[string]model.QRRecord),
			entries:   make(map[string]model.ScannedEntryRecord),
		}
		m.data[eventID] = e
	}
	return e
}

func (m *MemoryBackend) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fail()
}

func (m *MemoryBackend) Close() error { return nil }

func (m *MemoryBackend) ActiveEvent(context.Context) (*model.EventInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].IsActive {
			event := m.events[i]
			return &event, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryBackend) CreateEvent(_ context.Context, event model.EventInfo) (*model.EventInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.events = append(m.events, event)
	return &event, nil
}

func (m *MemoryBackend) InsertRSVP(_ context.Context, eventID string, rec model.AttendeeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.event(eventID).rsvps[rec.ID] = rec
	return nil
}

func (m *MemoryBackend) ListRSVPs(_ context.Context, eventID string) ([]model.AttendeeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := make([]model.AttendeeRecord, 0)
	for _, r := range m.event(eventID).rsvps {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryBackend) DeleteRSVP(_ context.Context, eventID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	e := m.event(eventID)
	if _, ok := e.rsvps[id]; !ok {
		return ErrNotFound
	}
	delete(e.rsvps, id)
	return nil
}

func (m *MemoryBackend) InsertGuestbook(_ context.Context, eventID string, msg model.GuestbookMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.event(eventID).guestbook[msg.ID] = msg
	return nil
}

func (m *MemoryBackend) ListGuestbook(_ context.Context, eventID string, approvedOnly bool, limit int) ([]model.GuestbookMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := make([]model.GuestbookMessage, 0)
	for _, msg := range m.event(eventID).guestbook {
		if approvedOnly && !msg.Approved {
			continue
		}
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryBackend) SetGuestbookApproval(_ context.Context, eventID, id string, approved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	e := m.event(eventID)
	msg, ok := e.guestbook[id]
	if !ok {
		return ErrNotFound
	}
	msg.Approved = approved
	e.guestbook[id] = msg
	return nil
}

func (m *MemoryBackend) DeleteGuestbook(_ context.Context, eventID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	e := m.event(eventID)
	if _, ok := e.guestbook[id]; !ok {
		return ErrNotFound
	}
	delete(e.guestbook, id)
	return nil
}

func (m *MemoryBackend) GetContent(_ context.Context, eventID string) (model.ContentOverrides, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return model.ContentOverrides{}, err
	}
	c := m.event(eventID).content
	if c == nil {
		return model.ContentOverrides{}, ErrNotFound
	}
	return *c, nil
}

func (m *MemoryBackend) UpsertContent(_ context.Context, eventID string, content model.ContentOverrides) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.event(eventID).content = &content
	return nil
}

func (m *MemoryBackend) DeleteContent(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.event(eventID).content = nil
	return nil
}

func (m *MemoryBackend) InsertQR(_ context.Context, eventID string, rec model.QRRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.event(eventID).qr[rec.ID] = rec
	return nil
}

func (m *MemoryBackend) GetQR(_ context.Context, eventID, id string) (*model.QRRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	rec, ok := m.event(eventID).qr[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryBackend) ListQR(_ context.Context, eventID string) ([]model.QRRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := make([]model.QRRecord, 0)
	for _, rec := range m.event(eventID).qr {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func (m *MemoryBackend) MarkQRUsed(_ context.Context, eventID, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	e := m.event(eventID)
	rec, ok := e.qr[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Status == model.QRStatusUsed {
		return nil
	}
	rec.MarkUsed()
	rec.UsedAt = &at
	e.qr[id] = rec
	return nil
}

func (m *MemoryBackend) DeleteQR(_ context.Context, eventID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	e := m.event(eventID)
	if _, ok := e.qr[id]; !ok {
		return ErrNotFound
	}
	delete(e.qr, id)
	return nil
}

func (m *MemoryBackend) InsertEntry(_ context.Context, eventID string, entry model.ScannedEntryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	e := m.event(eventID)
	if _, ok := e.entries[entry.ID]; ok {
		return nil
	}
	e.entries[entry.ID] = entry
	return nil
}

func (m *MemoryBackend) ListEntries(_ context.Context, eventID string) ([]model.ScannedEntryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	out := make([]model.ScannedEntryRecord, 0)
	for _, entry := range m.event(eventID).entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryTime.After(out[j].EntryTime) })
	return out, nil
}

func (m *MemoryBackend) DeleteEntry(_ context.Context, eventID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	e := m.event(eventID)
	if _, ok := e.entries[id]; !ok {
		return ErrNotFound
	}
	delete(e.entries, id)
	return nil
}

func (m *MemoryBackend) Statistics(_ context.Context, eventID string) (model.Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return model.Statistics{}, err
	}
	e := m.event(eventID)
	stats := model.Statistics{
		TotalRSVP:   len(e.rsvps),
		Guestbook:   len(e.guestbook),
		QRGenerated: len(e.qr),
	}
	for _, r := range e.rsvps {
		switch r.Response {
		case model.ResponseYes:
			stats.Yes++
		case model.ResponseNo:
			stats.No++
		case model.ResponseMaybe:
			stats.Maybe++
		}
	}
	for _, rec := range e.qr {
		if rec.Status == model.QRStatusUsed {
			stats.QRUsed++
		}
	}
	return stats, nil
}
