package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDocumentNotFound is returned when no document row exists for the id.
var ErrDocumentNotFound = errors.New("knowledge: document not found")

// Repository handles data access for the document registry.
type Repository interface {
	Create(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, id string) (Document, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Document, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Document, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Create(ctx context.Context, doc Document) (Document, error) {
	const query = `
        INSERT INTO documents (id, filename, size_bytes, status)
        VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4)
        RETURNING id, filename, size_bytes, status, uploaded_at
    `
	created, err := scanDocument(r.pool.QueryRow(ctx, query, doc.ID, doc.Filename, doc.SizeBytes, doc.Status))
	if err != nil {
		return Document{}, fmt.Errorf("knowledge: insert document: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Document, error) {
	const query = `SELECT id, filename, size_bytes, status, uploaded_at FROM documents WHERE id = $1`

	doc, err := scanDocument(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, fmt.Errorf("knowledge: get document: %w", err)
	}
	return doc, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id string, status Status) (Document, error) {
	const query = `
		UPDATE documents SET status = $2
		WHERE id = $1
		RETURNING id, filename, size_bytes, status, uploaded_at
	`
	doc, err := scanDocument(r.pool.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, fmt.Errorf("knowledge: update status: %w", err)
	}
	return doc, nil
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("knowledge: delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (r *PGRepository) List(ctx context.Context) ([]Document, error) {
	const query = `SELECT id, filename, size_bytes, status, uploaded_at FROM documents ORDER BY uploaded_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("knowledge: list documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("knowledge: scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge: iterate documents: %w", err)
	}
	return docs, nil
}

func scanDocument(row pgx.Row) (Document, error) {
	var doc Document
	return doc, row.Scan(&doc.ID, &doc.Filename, &doc.SizeBytes, &doc.Status, &doc.UploadedAt)
}
