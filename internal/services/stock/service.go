package stock

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/annaehugo/freepharma/internal/logger"
	"github.com/annaehugo/freepharma/internal/models"
)

// Service errors.
var (
	ErrNotFound         = errors.New("stock record not found")
	ErrNegativeQuantity = errors.New("adjusted quantity must be zero or greater")
	ErrBlocked          = errors.New("stock record is blocked")
)

// Store is the persistence surface the service needs; the gorm repository
// satisfies it.
type Store interface {
	GetStock(ctx context.Context, id string) (*models.StockRecord, error)
	ListStock(ctx context.Context, unitID string) ([]models.StockRecord, error)
	SaveStock(ctx context.Context, s *models.StockRecord) error
	SaveStockAdjustment(ctx context.Context, adj *models.StockAdjustment) error
	ListStockAdjustments(ctx context.Context, stockID string) ([]models.StockAdjustment, error)
}

// Service covers manual stock maintenance outside the NFe pipeline:
// set-quantity adjustments with an audit trail, and block/unblock. Every
// mutation keeps total value = quantity * unit value.
type Service struct {
	repo Store
	now  func() time.Time
	log  zerolog.Logger
}

// New creates a stock service.
func New(repo Store) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
		log:  logger.WithComponent("stock-service"),
	}
}

// List returns stock records, optionally restricted to one unit.
func (s *Service) List(ctx context.Context, unitID string) ([]models.StockRecord, error) {
	return s.repo.ListStock(ctx, unitID)
}

// Get returns one stock record or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*models.StockRecord, error) {
	stock, err := s.repo.GetStock(ctx, id)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, ErrNotFound
	}
	return stock, nil
}

// Adjustments lists the audit trail of one stock record.
func (s *Service) Adjustments(ctx context.Context, stockID string) ([]models.StockAdjustment, error) {
	return s.repo.ListStockAdjustments(ctx, stockID)
}

// Adjust sets the stock record to a new absolute quantity, writing an
// adjustment audit record with the delta and reason.
func (s *Service) Adjust(ctx context.Context, id string, newQuantity int, reason, userID string) (*models.StockRecord, error) {
	if newQuantity < 0 {
		return nil, ErrNegativeQuantity
	}

	stock, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if stock.Blocked {
		return nil, ErrBlocked
	}

	delta := newQuantity - stock.Quantity
	adjType := models.AdjustmentIn
	if delta < 0 {
		adjType = models.AdjustmentOut
	}

	adjustment := &models.StockAdjustment{
		StockRecordID:     stock.ID,
		PreviousQuantity:  stock.Quantity,
		NewQuantity:       newQuantity,
		DeltaQuantity:     delta,
		Type:              adjType,
		Reason:            reason,
		PreviousUnitValue: stock.UnitValue,
		NewUnitValue:      stock.UnitValue,
		UserID:            userID,
		AdjustedAt:        s.now(),
	}
	if err := s.repo.SaveStockAdjustment(ctx, adjustment); err != nil {
		return nil, err
	}

	stock.Quantity = newQuantity
	stock.LastMovementAt = s.now()
	if stock.UnitValue.IsPositive() {
		stock.TotalValue = stock.UnitValue.Mul(decimal.NewFromInt(int64(newQuantity)))
	}
	if err := s.repo.SaveStock(ctx, stock); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("stockId", stock.ID).
		Int("previous", adjustment.PreviousQuantity).
		Int("new", newQuantity).
		Str("reason", reason).
		Msg("stock adjusted")

	return stock, nil
}

// Block marks a stock record as blocked with a reason.
func (s *Service) Block(ctx context.Context, id, reason string) (*models.StockRecord, error) {
	stock, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	stock.Blocked = true
	stock.BlockReason = reason
	if err := s.repo.SaveStock(ctx, stock); err != nil {
		return nil, err
	}
	return stock, nil
}

// Unblock clears the blocked flag and reason.
func (s *Service) Unblock(ctx context.Context, id string) (*models.StockRecord, error) {
	stock, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	stock.Blocked = false
	stock.BlockReason = ""
	if err := s.repo.SaveStock(ctx, stock); err != nil {
		return nil, err
	}
	return stock, nil
}
