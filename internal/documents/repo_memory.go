package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores documents in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Document
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[string]Document),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[doc.ID]; exists {
		return ErrInvalidInput
	}
	r.byID[doc.ID] = doc.Clone()
	return nil
}

// Get returns a document by its ID.
func (r *MemoryRepo) Get(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc.Clone(), nil
}

// GetByProviderDocumentID finds the document dispatched under a provider id.
func (r *MemoryRepo) GetByProviderDocumentID(ctx context.Context, providerDocumentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if providerDocumentID == "" {
		return Document{}, ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.byID {
		if doc.SigningRecord != nil && doc.SigningRecord.ProviderDocumentID == providerDocumentID {
			return doc.Clone(), nil
		}
	}
	return Document{}, ErrNotFound
}

// List returns documents newest first, honoring limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	docs := make([]Document, 0, len(r.byID))
	for _, doc := range r.byID {
		summary := doc.Clone()
		summary.AuditTrail = AuditTrail{}
		docs = append(docs, summary)
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	if offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

// Update applies fn under the repository lock.
func (r *MemoryRepo) Update(ctx context.Context, documentID string, fn UpdateFunc) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byID[documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return Document{}, err
	}
	if err := checkUpdate(current, next); err != nil {
		return Document{}, err
	}
	next.UpdatedAt = r.now()
	r.byID[documentID] = next.Clone()
	return next, nil
}

// AppendAuditEntry adds entry to the end of the document's trail.
func (r *MemoryRepo) AppendAuditEntry(ctx context.Context, documentID string, entry TrackingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.byID[documentID]
	if !ok {
		return ErrNotFound
	}
	doc.AuditTrail.Append(entry)
	r.byID[documentID] = doc
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
