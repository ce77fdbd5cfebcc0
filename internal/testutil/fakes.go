// Package testutil holds in-memory implementations of the repository and
// collaborator interfaces for use case and handler tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/filmila/adapters/event"
	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/internal/domain/film"
	"github.com/khoahotran/filmila/internal/domain/purchase"
	"github.com/khoahotran/filmila/internal/domain/user"
	"github.com/khoahotran/filmila/pkg/apperror"
)

type UserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[uuid.UUID]*user.User)}
}

func (r *UserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return apperror.NewConflict("user", "email", u.Email).WithCode(apperror.CodeUserExists)
		}
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("user", email)
}

func (r *UserRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NewNotFound("user", id.String())
	}
	cp := *u
	return &cp, nil
}

type FilmRepo struct {
	mu      sync.Mutex
	films   map[uuid.UUID]*film.Film
	SaveErr error
}

func NewFilmRepo() *FilmRepo {
	return &FilmRepo{films: make(map[uuid.UUID]*film.Film)}
}

func (r *FilmRepo) Save(_ context.Context, f *film.Film) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	cp := *f
	r.films[f.ID] = &cp
	return nil
}

func (r *FilmRepo) Update(_ context.Context, f *film.Film) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.films[f.ID]; !ok {
		return apperror.NewNotFound("film", f.ID.String())
	}
	cp := *f
	r.films[f.ID] = &cp
	return nil
}

func (r *FilmRepo) FindByID(_ context.Context, id uuid.UUID) (*film.Film, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.films[id]
	if !ok {
		return nil, apperror.NewNotFound("film", id.String())
	}
	cp := *f
	return &cp, nil
}

func (r *FilmRepo) ListPublished(_ context.Context, limit, offset int) ([]*film.Film, error) {
	return r.list(func(f *film.Film) bool { return f.IsPublished() }, limit, offset), nil
}

func (r *FilmRepo) ListByOwner(_ context.Context, ownerID uuid.UUID, limit, offset int) ([]*film.Film, error) {
	return r.list(func(f *film.Film) bool { return f.OwnerID == ownerID }, limit, offset), nil
}

func (r *FilmRepo) list(keep func(*film.Film) bool, limit, offset int) []*film.Film {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*film.Film, 0)
	for _, f := range r.films {
		if keep(f) {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset)
}

// PurchaseRepo mirrors the partial unique index: one pending or settled row
// per (viewer, film).
type PurchaseRepo struct {
	mu        sync.Mutex
	purchases map[uuid.UUID]*purchase.Purchase
}

func NewPurchaseRepo() *PurchaseRepo {
	return &PurchaseRepo{purchases: make(map[uuid.UUID]*purchase.Purchase)}
}

func (r *PurchaseRepo) CreatePending(_ context.Context, p *purchase.Purchase) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeLocked(p.ViewerID, p.FilmID) != nil {
		return false, nil
	}
	cp := *p
	cp.Status = purchase.StatusPending
	r.purchases[p.ID] = &cp
	return true, nil
}

func (r *PurchaseRepo) activeLocked(viewerID, filmID uuid.UUID) *purchase.Purchase {
	for _, p := range r.purchases {
		if p.ViewerID == viewerID && p.FilmID == filmID && p.Status != purchase.StatusFailed {
			return p
		}
	}
	return nil
}

func (r *PurchaseRepo) FindByID(_ context.Context, id uuid.UUID) (*purchase.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[id]
	if !ok {
		return nil, apperror.NewNotFound("purchase", id.String())
	}
	cp := *p
	return &cp, nil
}

func (r *PurchaseRepo) FindActive(_ context.Context, viewerID, filmID uuid.UUID) (*purchase.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.activeLocked(viewerID, filmID)
	if p == nil {
		return nil, apperror.NewNotFound("purchase", "")
	}
	cp := *p
	return &cp, nil
}

func (r *PurchaseRepo) HasSettled(_ context.Context, viewerID, filmID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.activeLocked(viewerID, filmID)
	return p != nil && p.IsSettled(), nil
}

func (r *PurchaseRepo) AttachProcessorRef(_ context.Context, id uuid.UUID, processorRef string) error {
	return r.mutate(id, func(p *purchase.Purchase) error {
		if p.Status != purchase.StatusPending {
			return purchase.ErrNotPending
		}
		p.ProcessorRef = &processorRef
		return nil
	})
}

func (r *PurchaseRepo) MarkSettled(_ context.Context, id uuid.UUID, processorRef string, at time.Time) error {
	return r.mutate(id, func(p *purchase.Purchase) error {
		return p.Settle(processorRef, at)
	})
}

func (r *PurchaseRepo) MarkFailed(_ context.Context, id uuid.UUID, processorRef, reason string, at time.Time) error {
	return r.mutate(id, func(p *purchase.Purchase) error {
		return p.Fail(processorRef, reason, at)
	})
}

func (r *PurchaseRepo) mutate(id uuid.UUID, fn func(*purchase.Purchase) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[id]
	if !ok {
		return apperror.NewNotFound("purchase", id.String())
	}
	return fn(p)
}

func (r *PurchaseRepo) ListPendingBefore(_ context.Context, before time.Time, limit int) ([]*purchase.Purchase, error) {
	return r.list(func(p *purchase.Purchase) bool {
		return p.Status == purchase.StatusPending && p.CreatedAt.Before(before)
	}, limit, 0), nil
}

func (r *PurchaseRepo) ListByViewer(_ context.Context, viewerID uuid.UUID, limit, offset int) ([]*purchase.Purchase, error) {
	return r.list(func(p *purchase.Purchase) bool { return p.ViewerID == viewerID }, limit, offset), nil
}

func (r *PurchaseRepo) list(keep func(*purchase.Purchase) bool, limit, offset int) []*purchase.Purchase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*purchase.Purchase, 0)
	for _, p := range r.purchases {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, limit, offset)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Processor is a scriptable payment processor. Results are keyed by
// idempotency key so replays return the first answer, like Stripe does.
type Processor struct {
	mu       sync.Mutex
	Outcome  service.ChargeOutcome
	Reason   string
	Err      error
	Delay    time.Duration
	LookupFn func(ref string) (*service.ChargeResult, error)

	charges  atomic.Int32
	lookups  atomic.Int32
	searches atomic.Int32
	cancels  atomic.Int32
	byKey    map[string]*service.ChargeResult
	requests []service.ChargeRequest
}

func NewProcessor(outcome service.ChargeOutcome) *Processor {
	return &Processor{Outcome: outcome, byKey: make(map[string]*service.ChargeResult)}
}

func (p *Processor) Charge(ctx context.Context, req service.ChargeRequest) (*service.ChargeResult, error) {
	p.charges.Add(1)
	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, service.ErrPaymentIndeterminate
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.Err != nil {
		return nil, p.Err
	}
	if res, ok := p.byKey[req.IdempotencyKey]; ok {
		cp := *res
		return &cp, nil
	}
	res := &service.ChargeResult{
		ProcessorRef:  "pi_" + req.IdempotencyKey,
		Outcome:       p.Outcome,
		DeclineReason: p.Reason,
	}
	p.byKey[req.IdempotencyKey] = res
	cp := *res
	return &cp, nil
}

func (p *Processor) Lookup(_ context.Context, processorRef string) (*service.ChargeResult, error) {
	p.lookups.Add(1)
	if p.LookupFn != nil {
		return p.LookupFn(processorRef)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, res := range p.byKey {
		if res.ProcessorRef == processorRef {
			cp := *res
			return &cp, nil
		}
	}
	return nil, service.ErrPaymentIndeterminate
}

// FindByPurchase relies on purchase ids being used as idempotency keys.
func (p *Processor) FindByPurchase(_ context.Context, purchaseID string) (*service.ChargeResult, error) {
	p.searches.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	res, ok := p.byKey[purchaseID]
	if !ok {
		return nil, service.ErrChargeNotFound
	}
	cp := *res
	return &cp, nil
}

func (p *Processor) Cancel(_ context.Context, processorRef string) (*service.ChargeResult, error) {
	p.cancels.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, res := range p.byKey {
		if res.ProcessorRef != processorRef {
			continue
		}
		if res.Outcome == service.ChargePending {
			res.Outcome = service.ChargeDeclined
			res.DeclineReason = "abandoned"
		}
		cp := *res
		return &cp, nil
	}
	return nil, service.ErrPaymentIndeterminate
}

func (p *Processor) Charges() int  { return int(p.charges.Load()) }
func (p *Processor) Lookups() int  { return int(p.lookups.Load()) }
func (p *Processor) Searches() int { return int(p.searches.Load()) }
func (p *Processor) Cancels() int  { return int(p.cancels.Load()) }

func (p *Processor) Requests() []service.ChargeRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]service.ChargeRequest(nil), p.requests...)
}

type ContentStore struct {
	mu      sync.Mutex
	TTL     time.Duration
	Err     error
	objects map[string][]byte
	locates atomic.Int32
}

func NewContentStore() *ContentStore {
	return &ContentStore{TTL: time.Hour, objects: make(map[string][]byte)}
}

func (s *ContentStore) Put(_ context.Context, key string, body io.Reader, _ string) error {
	if s.Err != nil {
		return s.Err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *ContentStore) Locate(_ context.Context, key string) (*service.ContentLocator, error) {
	s.locates.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	return &service.ContentLocator{
		URL:       "https://content.test/" + key + "?sig=abc",
		ExpiresAt: time.Now().Add(s.TTL).UTC(),
	}, nil
}

func (s *ContentStore) Locates() int { return int(s.locates.Load()) }

func (s *ContentStore) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return bytes.Clone(b), ok
}

type Uploader struct {
	mu        sync.Mutex
	Uploaded  map[string]string
	Deleted   []string
	Err       error
	DeleteErr error
}

func NewUploader() *Uploader {
	return &Uploader{Uploaded: make(map[string]string)}
}

func (u *Uploader) Upload(_ context.Context, file io.Reader, folder string, publicID string) (string, error) {
	if u.Err != nil {
		return "", u.Err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	id := folder + "/" + publicID
	u.Uploaded[id] = string(data)
	return id, nil
}

func (u *Uploader) Delete(_ context.Context, publicID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Deleted = append(u.Deleted, publicID)
	return u.DeleteErr
}

func (u *Uploader) DeletedIDs() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.Deleted...)
}

func (u *Uploader) TransformURL(publicID string, transformation string) (string, error) {
	return "https://images.test/" + transformation + "/" + publicID, nil
}

type Publisher struct {
	mu             sync.Mutex
	FilmEvents     []event.FilmEventPayload
	PurchaseEvents []event.PurchaseEventPayload
}

func (p *Publisher) PublishFilmEvent(_ context.Context, payload event.FilmEventPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FilmEvents = append(p.FilmEvents, payload)
	return nil
}

func (p *Publisher) PublishPurchaseEvent(_ context.Context, payload event.PurchaseEventPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PurchaseEvents = append(p.PurchaseEvents, payload)
	return nil
}

func (p *Publisher) FilmEventTypes() []event.FilmEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.FilmEventType, 0, len(p.FilmEvents))
	for _, e := range p.FilmEvents {
		out = append(out, e.EventType)
	}
	return out
}

func (p *Publisher) PurchaseEventTypes() []event.PurchaseEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.PurchaseEventType, 0, len(p.PurchaseEvents))
	for _, e := range p.PurchaseEvents {
		out = append(out, e.EventType)
	}
	return out
}

type RevocationStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	epochs map[uuid.UUID]time.Time
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{tokens: make(map[string]time.Time), epochs: make(map[uuid.UUID]time.Time)}
}

func (s *RevocationStore) RevokeToken(_ context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenID] = time.Now().Add(ttl)
	return nil
}

func (s *RevocationStore) RevokeAllBefore(_ context.Context, viewerID uuid.UUID, before time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epochs[viewerID] = before
	return nil
}

func (s *RevocationStore) IsRevoked(_ context.Context, tokenID string, viewerID uuid.UUID, issuedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[tokenID]; ok {
		return true, nil
	}
	epoch, ok := s.epochs[viewerID]
	return ok && issuedAt.UnixMilli() < epoch.UnixMilli(), nil
}
