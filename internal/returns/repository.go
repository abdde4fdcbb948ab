package returns

import (
	"context"

	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

// reviewColumns are written together: a review decision is never partial.
var reviewColumns = []string{"status", "reviewer_id", "review_comment", "reviewed_at"}

// Repository wires together return request persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the request. A duplicate id surfaces as the driver's
// unique-violation error for the caller to classify.
func (r *Repository) Create(ctx context.Context, request *models.ReturnRequest) error {
	request.EnsureID()
	return r.db.WithContext(ctx).Create(request).Error
}

// Get loads one request by id.
func (r *Repository) Get(ctx context.Context, requestID string) (*models.ReturnRequest, error) {
	var request models.ReturnRequest
	if err := r.db.WithContext(ctx).First(&request, "return_request_id = ?", requestID).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// ApplyReview writes the review decision fields as one unit.
func (r *Repository) ApplyReview(ctx context.Context, request *models.ReturnRequest) error {
	res := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("return_request_id = ?", request.ReturnRequestID).
		Select(reviewColumns).
		Updates(request)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns requests newest first, optionally narrowed by status.
func (r *Repository) List(ctx context.Context, status *enums.ReturnStatus) ([]models.ReturnRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.ReturnRequest{}).Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var requests []models.ReturnRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// ListByOrderID returns every request filed against one logical order.
func (r *Repository) ListByOrderID(ctx context.Context, orderID string) ([]models.ReturnRequest, error) {
	var requests []models.ReturnRequest
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// CountByStatus aggregates request counts per review status.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.ReturnStatus]int64, error) {
	type row struct {
		Status enums.ReturnStatus `gorm:"column:status"`
		Count  int64              `gorm:"column:count"`
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Select("status, COUNT(return_request_id) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[enums.ReturnStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
