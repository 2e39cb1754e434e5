package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"signflow-backend/internal/placeholders"
)

// PGRepo implements Repo using Postgres. Audit entries live in the
// append-only document_events table ordered by its serial seq column.
type PGRepo struct {
	DB *sql.DB
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const documentColumns = `id, title, header, body, placeholders, status, signing_record, created_at, updated_at`

// Create inserts a new document and any audit entries it already carries.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
	id, title, header, body, placeholders, status, signing_record, provider_document_id, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	placeholdersJSON, signingJSON, providerID, err := encodeColumns(doc)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query,
		doc.ID,
		doc.Title,
		doc.Header,
		doc.Body,
		placeholdersJSON,
		string(doc.Status),
		signingJSON,
		providerID,
		doc.CreatedAt,
		doc.UpdatedAt,
	); err != nil {
		return err
	}
	for _, entry := range doc.AuditTrail.Entries() {
		if err := insertEvent(ctx, tx, doc.ID, entry); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Get returns a document with its full audit trail.
func (r *PGRepo) Get(ctx context.Context, documentID string) (Document, error) {
	doc, err := scanDocument(r.DB.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, documentID))
	if err != nil {
		return Document{}, err
	}
	trail, err := loadEvents(ctx, r.DB, doc.ID)
	if err != nil {
		return Document{}, err
	}
	doc.AuditTrail = trail
	return doc, nil
}

// GetByProviderDocumentID finds the document dispatched under a provider id.
func (r *PGRepo) GetByProviderDocumentID(ctx context.Context, providerDocumentID string) (Document, error) {
	if providerDocumentID == "" {
		return Document{}, ErrNotFound
	}
	doc, err := scanDocument(r.DB.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE provider_document_id = $1`, providerDocumentID))
	if err != nil {
		return Document{}, err
	}
	trail, err := loadEvents(ctx, r.DB, doc.ID)
	if err != nil {
		return Document{}, err
	}
	doc.AuditTrail = trail
	return doc, nil
}

// List lists documents ordered newest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Update locks the document row, applies fn and writes the result in one transaction.
func (r *PGRepo) Update(ctx context.Context, documentID string, fn UpdateFunc) (Document, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, err
	}
	defer tx.Rollback()

	current, err := scanDocument(tx.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, documentID))
	if err != nil {
		return Document{}, err
	}
	trail, err := loadEvents(ctx, tx, documentID)
	if err != nil {
		return Document{}, err
	}
	current.AuditTrail = trail

	next := current.Clone()
	if err := fn(&next); err != nil {
		return Document{}, err
	}
	if err := checkUpdate(current, next); err != nil {
		return Document{}, err
	}
	next.UpdatedAt = time.Now().UTC()

	placeholdersJSON, signingJSON, providerID, err := encodeColumns(next)
	if err != nil {
		return Document{}, err
	}
	const query = `
UPDATE documents
SET title = $1, header = $2, body = $3, placeholders = $4, status = $5,
    signing_record = $6, provider_document_id = $7, updated_at = $8
WHERE id = $9`
	if _, err := tx.ExecContext(ctx, query,
		next.Title,
		next.Header,
		next.Body,
		placeholdersJSON,
		string(next.Status),
		signingJSON,
		providerID,
		next.UpdatedAt,
		documentID,
	); err != nil {
		return Document{}, err
	}
	for _, entry := range next.AuditTrail.Since(current.AuditTrail.Len()) {
		if err := insertEvent(ctx, tx, documentID, entry); err != nil {
			return Document{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Document{}, err
	}
	return next, nil
}

// AppendAuditEntry inserts a single audit row.
func (r *PGRepo) AppendAuditEntry(ctx context.Context, documentID string, entry TrackingEvent) error {
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, documentID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return insertEvent(ctx, r.DB, documentID, entry)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var status string
	var placeholdersJSON sql.NullString
	var signingJSON sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Header,
		&doc.Body,
		&placeholdersJSON,
		&status,
		&signingJSON,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.Status = Status(status)
	if placeholdersJSON.Valid && placeholdersJSON.String != "" {
		var ps []placeholders.Placeholder
		if err := json.Unmarshal([]byte(placeholdersJSON.String), &ps); err != nil {
			return Document{}, fmt.Errorf("decode placeholders for %s: %w", doc.ID, err)
		}
		doc.Placeholders = ps
	}
	if signingJSON.Valid && signingJSON.String != "" && signingJSON.String != "null" {
		var rec SigningRecord
		if err := json.Unmarshal([]byte(signingJSON.String), &rec); err != nil {
			return Document{}, fmt.Errorf("decode signing record for %s: %w", doc.ID, err)
		}
		doc.SigningRecord = &rec
	}
	return doc, nil
}

func loadEvents(ctx context.Context, q queryer, documentID string) (AuditTrail, error) {
	const query = `
SELECT event_type, event_time, received_at, signer_email, raw_payload
FROM document_events
WHERE document_id = $1
ORDER BY seq ASC`
	rows, err := q.QueryContext(ctx, query, documentID)
	if err != nil {
		return AuditTrail{}, err
	}
	defer rows.Close()

	var entries []TrackingEvent
	for rows.Next() {
		var e TrackingEvent
		var eventTime sql.NullTime
		var signerEmail sql.NullString
		var raw sql.NullString
		if err := rows.Scan(&e.EventType, &eventTime, &e.ReceivedAt, &signerEmail, &raw); err != nil {
			return AuditTrail{}, err
		}
		if eventTime.Valid {
			e.Timestamp = eventTime.Time
		}
		if signerEmail.Valid {
			e.SignerEmail = signerEmail.String
		}
		if raw.Valid && raw.String != "" {
			e.RawPayload = json.RawMessage(raw.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return AuditTrail{}, err
	}
	return NewAuditTrail(entries...), nil
}

func insertEvent(ctx context.Context, q interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, documentID string, e TrackingEvent) error {
	const query = `
INSERT INTO document_events (document_id, event_type, event_time, received_at, signer_email, raw_payload)
VALUES ($1, $2, $3, $4, $5, $6)`
	var eventTime sql.NullTime
	if !e.Timestamp.IsZero() {
		eventTime = sql.NullTime{Time: e.Timestamp, Valid: true}
	}
	var signerEmail sql.NullString
	if e.SignerEmail != "" {
		signerEmail = sql.NullString{String: e.SignerEmail, Valid: true}
	}
	var raw sql.NullString
	if len(e.RawPayload) > 0 {
		raw = sql.NullString{String: string(e.RawPayload), Valid: true}
	}
	_, err := q.ExecContext(ctx, query, documentID, e.EventType, eventTime, e.ReceivedAt, signerEmail, raw)
	return err
}

func encodeColumns(doc Document) (placeholdersJSON []byte, signingJSON sql.NullString, providerID sql.NullString, err error) {
	ps := doc.Placeholders
	if ps == nil {
		ps = []placeholders.Placeholder{}
	}
	placeholdersJSON, err = json.Marshal(ps)
	if err != nil {
		return nil, sql.NullString{}, sql.NullString{}, err
	}
	if doc.SigningRecord != nil {
		raw, err := json.Marshal(doc.SigningRecord)
		if err != nil {
			return nil, sql.NullString{}, sql.NullString{}, err
		}
		signingJSON = sql.NullString{String: string(raw), Valid: true}
		if doc.SigningRecord.ProviderDocumentID != "" {
			providerID = sql.NullString{String: doc.SigningRecord.ProviderDocumentID, Valid: true}
		}
	}
	return placeholdersJSON, signingJSON, providerID, nil
}

var (
	_ Repo    = (*PGRepo)(nil)
	_ queryer = (*sql.DB)(nil)
	_ queryer = (*sql.Tx)(nil)
)
