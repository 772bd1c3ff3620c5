package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tenderspro/backend/internal/model"
)

var ErrTenderNotFound = errors.New("tender not found")

// processingLockTimeout bounds how long a crashed invocation can hold
// the image processing claim on a row.
const processingLockTimeout = 10 * time.Minute

type TenderRepository struct {
	db *sqlx.DB
}

func NewTenderRepository(db *sqlx.DB) *TenderRepository {
	return &TenderRepository{db: db}
}

func (r *TenderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Tender, error) {
	var tender model.Tender
	query := `SELECT * FROM tenders WHERE id = $1`
	err := r.db.GetContext(ctx, &tender, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenderNotFound
	}
	return &tender, err
}

func (r *TenderRepository) GetByTenderID(ctx context.Context, tenderID string) (*model.Tender, error) {
	var tender model.Tender
	query := `SELECT * FROM tenders WHERE tender_id = $1`
	err := r.db.GetContext(ctx, &tender, query, tenderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenderNotFound
	}
	return &tender, err
}

func (r *TenderRepository) ExistsByTenderID(ctx context.Context, tenderID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM tenders WHERE tender_id = $1)`
	err := r.db.GetContext(ctx, &exists, query, tenderID)
	return exists, err
}

func (r *TenderRepository) Insert(ctx context.Context, t *model.Tender) error {
	query := `
		INSERT INTO tenders (
			id, tender_id, title, category, type, wilaya, region,
			publication_date, deadline, specifications_price, tender_number,
			qualification_required, qualification_details, project_description,
			organization_name, organization_address, withdrawal_address,
			tender_status, link, original_image_url, image_url,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, NOW(), NOW())
		RETURNING created_at, updated_at`

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return r.db.QueryRowxContext(ctx, query,
		t.ID, t.TenderID, t.Title, t.Category, t.Type, t.Wilaya, t.Region,
		t.PublicationDate, t.Deadline, t.SpecificationsPrice, t.TenderNumber,
		t.QualificationRequired, t.QualificationDetails, t.ProjectDescription,
		t.OrganizationName, t.OrganizationAddress, t.WithdrawalAddress,
		t.TenderStatus, t.Link, t.OriginalImageURL, t.ImageURL,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// Upsert rewrites the descriptive fields on tender_id conflict while
// leaving the image pipeline's columns alone.
func (r *TenderRepository) Upsert(ctx context.Context, t *model.Tender) error {
	query := `
		INSERT INTO tenders (
			id, tender_id, title, category, type, wilaya, region,
			publication_date, deadline, specifications_price, tender_number,
			qualification_required, qualification_details, project_description,
			organization_name, organization_address, withdrawal_address,
			tender_status, link, original_image_url, image_url,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, NOW(), NOW())
		ON CONFLICT (tender_id) DO UPDATE SET
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			type = EXCLUDED.type,
			wilaya = EXCLUDED.wilaya,
			region = EXCLUDED.region,
			publication_date = EXCLUDED.publication_date,
			deadline = EXCLUDED.deadline,
			specifications_price = EXCLUDED.specifications_price,
			tender_number = EXCLUDED.tender_number,
			qualification_required = EXCLUDED.qualification_required,
			qualification_details = EXCLUDED.qualification_details,
			project_description = EXCLUDED.project_description,
			organization_name = EXCLUDED.organization_name,
			organization_address = EXCLUDED.organization_address,
			withdrawal_address = EXCLUDED.withdrawal_address,
			tender_status = EXCLUDED.tender_status,
			link = EXCLUDED.link,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return r.db.QueryRowxContext(ctx, query,
		t.ID, t.TenderID, t.Title, t.Category, t.Type, t.Wilaya, t.Region,
		t.PublicationDate, t.Deadline, t.SpecificationsPrice, t.TenderNumber,
		t.QualificationRequired, t.QualificationDetails, t.ProjectDescription,
		t.OrganizationName, t.OrganizationAddress, t.WithdrawalAddress,
		t.TenderStatus, t.Link, t.OriginalImageURL, t.ImageURL,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// LatestPublicationDate is the incremental checker's watermark. Nil
// means the table is empty.
func (r *TenderRepository) LatestPublicationDate(ctx context.Context) (*time.Time, error) {
	var latest sql.NullTime
	query := `SELECT MAX(publication_date) FROM tenders`
	if err := r.db.GetContext(ctx, &latest, query); err != nil {
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

func (r *TenderRepository) List(ctx context.Context, limit, offset int) ([]model.Tender, error) {
	var tenders []model.Tender
	query := `
		SELECT * FROM tenders
		ORDER BY publication_date DESC NULLS LAST, created_at DESC
		LIMIT $1 OFFSET $2`
	err := r.db.SelectContext(ctx, &tenders, query, limit, offset)
	return tenders, err
}

// ListUnprocessed returns tenders with a source image but no branded
// output yet, skipping rows currently claimed by another invocation.
func (r *TenderRepository) ListUnprocessed(ctx context.Context, limit int) ([]model.Tender, error) {
	var tenders []model.Tender
	query := `
		SELECT * FROM tenders
		WHERE image_url IS NOT NULL
		  AND watermarked_image_url IS NULL
		  AND (processing_started_at IS NULL OR processing_started_at < NOW() - ($2 * INTERVAL '1 second'))
		ORDER BY created_at ASC
		LIMIT $1`
	err := r.db.SelectContext(ctx, &tenders, query, limit, int(processingLockTimeout.Seconds()))
	return tenders, err
}

// TryLockProcessing claims the row for image processing. The
// conditional update makes the claim atomic across processes; stale
// claims older than the lock timeout are taken over.
func (r *TenderRepository) TryLockProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE tenders
		SET processing_started_at = NOW()
		WHERE id = $1
		  AND (processing_started_at IS NULL OR processing_started_at < NOW() - ($2 * INTERVAL '1 second'))`
	res, err := r.db.ExecContext(ctx, query, id, int(processingLockTimeout.Seconds()))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *TenderRepository) UnlockProcessing(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE tenders SET processing_started_at = NULL WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *TenderRepository) SetOriginalImageURL(ctx context.Context, id uuid.UUID, url string) error {
	query := `UPDATE tenders SET original_image_url = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, url)
	return err
}

func (r *TenderRepository) SetPNGImageURL(ctx context.Context, id uuid.UUID, url string) error {
	query := `UPDATE tenders SET png_image_url = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, url)
	return err
}

func (r *TenderRepository) SetProcessedImageURL(ctx context.Context, id uuid.UUID, url string) error {
	query := `UPDATE tenders SET processed_image_url = $2, image_processing_error = NULL, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, url)
	return err
}

func (r *TenderRepository) SetWatermarkedImageURL(ctx context.Context, id uuid.UUID, url string, processedAt time.Time) error {
	query := `
		UPDATE tenders
		SET watermarked_image_url = $2, processed_at = $3, image_processing_error = NULL, updated_at = NOW()
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, url, processedAt)
	return err
}

func (r *TenderRepository) SetImageError(ctx context.Context, id uuid.UUID, message string) error {
	query := `UPDATE tenders SET image_processing_error = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, message)
	return err
}
