package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/annaehugo/freepharma/internal/models"
	"github.com/annaehugo/freepharma/internal/nfe"
)

// Repository is the gorm-backed persistence layer. It implements nfe.Store
// for the ingestion pipeline and exposes the query surface the REST layer
// consumes. Lookups return (nil, nil) when no record matches.
type Repository struct {
	db *gorm.DB
}

// New creates a repository on top of a gorm connection.
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ nfe.Store = (*Repository)(nil)

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// --- nfe.Store ---

func (r *Repository) FindSupplierByTaxID(ctx context.Context, taxID string) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.WithContext(ctx).Where("tax_id = ?", taxID).First(&supplier).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *Repository) SaveSupplier(ctx context.Context, s *models.Supplier) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *Repository) FindProductByBarcode(ctx context.Context, barcode string) (*models.ProductReference, error) {
	var product models.ProductReference
	err := r.db.WithContext(ctx).Where("barcode = ?", barcode).First(&product).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindProductByExactName(ctx context.Context, name string) (*models.ProductReference, error) {
	var product models.ProductReference
	err := r.db.WithContext(ctx).Where("name = ?", name).Order("created_at").First(&product).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) SaveProduct(ctx context.Context, p *models.ProductReference) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *Repository) FindLinkByProductAndSupplier(ctx context.Context, productID, supplierID string) (*models.ProductSupplierLink, error) {
	var link models.ProductSupplierLink
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND supplier_id = ?", productID, supplierID).
		First(&link).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *Repository) SaveLink(ctx context.Context, l *models.ProductSupplierLink) error {
	return r.db.WithContext(ctx).Omit("Product", "Supplier").Save(l).Error
}

func (r *Repository) FindStockByLinkUnitLot(ctx context.Context, linkID, unitID, lot string) (*models.StockRecord, error) {
	var stock models.StockRecord
	err := r.db.WithContext(ctx).
		Where("link_id = ? AND unit_id = ? AND lot = ?", linkID, unitID, lot).
		First(&stock).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *Repository) SaveStock(ctx context.Context, s *models.StockRecord) error {
	return r.db.WithContext(ctx).Omit("Link", "Product", "Unit").Save(s).Error
}

func (r *Repository) FindInvoiceByAccessKey(ctx context.Context, accessKey string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).Where("access_key = ?", accessKey).First(&invoice).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *Repository) SaveInvoice(ctx context.Context, inv *models.Invoice) error {
	return r.db.WithContext(ctx).Omit("Supplier", "Items").Save(inv).Error
}

func (r *Repository) SaveInvoiceItem(ctx context.Context, item *models.InvoiceItem) error {
	return r.db.WithContext(ctx).Omit("Product").Save(item).Error
}

func (r *Repository) SaveInconsistency(ctx context.Context, inc *models.Inconsistency) error {
	return r.db.WithContext(ctx).Omit("Invoice").Save(inc).Error
}

func (r *Repository) SaveImportRecord(ctx context.Context, rec *models.ImportRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

// --- query surface for the REST layer ---

func (r *Repository) GetSupplier(ctx context.Context, id string) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.WithContext(ctx).First(&supplier, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *Repository) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	err := r.db.WithContext(ctx).Order("legal_name").Find(&suppliers).Error
	return suppliers, err
}

func (r *Repository) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Items").
		Preload("Items.Product").
		First(&invoice, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *Repository) ListInvoices(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).Preload("Supplier").Order("created_at DESC").Find(&invoices).Error
	return invoices, err
}

func (r *Repository) GetImportRecord(ctx context.Context, id string) (*models.ImportRecord, error) {
	var rec models.ImportRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) ListImportRecords(ctx context.Context) ([]models.ImportRecord, error) {
	var recs []models.ImportRecord
	err := r.db.WithContext(ctx).Order("imported_at DESC").Find(&recs).Error
	return recs, err
}

// InconsistencyFilter narrows ListInconsistencies. Zero values mean "any".
type InconsistencyFilter struct {
	InvoiceID  string
	Type       string
	Status     string
	Unresolved bool
}

func (r *Repository) GetInconsistency(ctx context.Context, id string) (*models.Inconsistency, error) {
	var inc models.Inconsistency
	err := r.db.WithContext(ctx).First(&inc, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inc, nil
}

func (r *Repository) ListInconsistencies(ctx context.Context, filter InconsistencyFilter) ([]models.Inconsistency, error) {
	q := r.db.WithContext(ctx).Model(&models.Inconsistency{})
	if filter.InvoiceID != "" {
		q = q.Where("invoice_id = ?", filter.InvoiceID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Unresolved {
		q = q.Where("status <> ?", models.IncResolved)
	}

	var incs []models.Inconsistency
	err := q.Order("detected_at DESC").Find(&incs).Error
	return incs, err
}

func (r *Repository) GetStock(ctx context.Context, id string) (*models.StockRecord, error) {
	var stock models.StockRecord
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Link").
		First(&stock, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *Repository) ListStock(ctx context.Context, unitID string) ([]models.StockRecord, error) {
	q := r.db.WithContext(ctx).Preload("Product")
	if unitID != "" {
		q = q.Where("unit_id = ?", unitID)
	}
	var stocks []models.StockRecord
	err := q.Order("last_movement_at DESC").Find(&stocks).Error
	return stocks, err
}

func (r *Repository) SaveStockAdjustment(ctx context.Context, adj *models.StockAdjustment) error {
	return r.db.WithContext(ctx).Omit("StockRecord").Save(adj).Error
}

func (r *Repository) ListStockAdjustments(ctx context.Context, stockID string) ([]models.StockAdjustment, error) {
	var adjs []models.StockAdjustment
	err := r.db.WithContext(ctx).
		Where("stock_record_id = ?", stockID).
		Order("adjusted_at DESC").
		Find(&adjs).Error
	return adjs, err
}

func (r *Repository) GetUnit(ctx context.Context, id string) (*models.Unit, error) {
	var unit models.Unit
	err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*models.UserAuth, error) {
	var user models.UserAuth
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) SaveUser(ctx context.Context, user *models.UserAuth) error {
	return r.db.WithContext(ctx).Save(user).Error
}
