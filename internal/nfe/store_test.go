package nfe

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/annaehugo/freepharma/internal/models"
)

var errSaveFailed = errors.New("save failed")

// fakeStore is an in-memory Store for exercising the pipeline without a
// database. Lookups follow the (nil, nil) convention for missing records.
type fakeStore struct {
	mu sync.Mutex

	suppliers []*models.Supplier
	products  []*models.ProductReference
	links     []*models.ProductSupplierLink
	stocks    []*models.StockRecord
	invoices  []*models.Invoice
	items     []*models.InvoiceItem
	incs      []*models.Inconsistency
	records   []*models.ImportRecord

	itemSaveCalls  int
	failItemSaveAt int // fail the Nth SaveInvoiceItem call, 1-based

	saveSupplierErr      error
	saveInvoiceErr       error
	saveInconsistencyErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

func (f *fakeStore) FindSupplierByTaxID(ctx context.Context, taxID string) (*models.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.suppliers {
		if s.TaxID == taxID {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SaveSupplier(ctx context.Context, s *models.Supplier) error {
	if f.saveSupplierErr != nil {
		return f.saveSupplierErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == "" {
		ensureID(&s.ID)
		f.suppliers = append(f.suppliers, s)
	}
	return nil
}

func (f *fakeStore) FindProductByBarcode(ctx context.Context, barcode string) (*models.ProductReference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Barcode == barcode {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindProductByExactName(ctx context.Context, name string) (*models.ProductReference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SaveProduct(ctx context.Context, p *models.ProductReference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		ensureID(&p.ID)
		f.products = append(f.products, p)
	}
	return nil
}

func (f *fakeStore) FindLinkByProductAndSupplier(ctx context.Context, productID, supplierID string) (*models.ProductSupplierLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.links {
		if l.ProductID == productID && l.SupplierID == supplierID {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SaveLink(ctx context.Context, l *models.ProductSupplierLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l.ID == "" {
		ensureID(&l.ID)
		f.links = append(f.links, l)
	}
	return nil
}

func (f *fakeStore) FindStockByLinkUnitLot(ctx context.Context, linkID, unitID, lot string) (*models.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.stocks {
		if s.LinkID == linkID && s.UnitID == unitID && s.Lot == lot {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SaveStock(ctx context.Context, s *models.StockRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == "" {
		ensureID(&s.ID)
		f.stocks = append(f.stocks, s)
	}
	return nil
}

func (f *fakeStore) FindInvoiceByAccessKey(ctx context.Context, accessKey string) (*models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.AccessKey == accessKey {
			return inv, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SaveInvoice(ctx context.Context, inv *models.Invoice) error {
	if f.saveInvoiceErr != nil {
		return f.saveInvoiceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv.ID == "" {
		ensureID(&inv.ID)
		f.invoices = append(f.invoices, inv)
	}
	return nil
}

func (f *fakeStore) SaveInvoiceItem(ctx context.Context, item *models.InvoiceItem) error {
	f.mu.Lock()
	f.itemSaveCalls++
	fail := f.failItemSaveAt > 0 && f.itemSaveCalls == f.failItemSaveAt
	f.mu.Unlock()
	if fail {
		return errSaveFailed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.ID == "" {
		ensureID(&item.ID)
		f.items = append(f.items, item)
	}
	return nil
}

func (f *fakeStore) SaveInconsistency(ctx context.Context, inc *models.Inconsistency) error {
	if f.saveInconsistencyErr != nil {
		return f.saveInconsistencyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if inc.ID == "" {
		ensureID(&inc.ID)
		f.incs = append(f.incs, inc)
	}
	return nil
}

func (f *fakeStore) SaveImportRecord(ctx context.Context, rec *models.ImportRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec.ID == "" {
		ensureID(&rec.ID)
		f.records = append(f.records, rec)
	}
	return nil
}

// findingsOfType filters the persisted inconsistencies.
func (f *fakeStore) findingsOfType(incType string) []*models.Inconsistency {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Inconsistency
	for _, inc := range f.incs {
		if inc.Type == incType {
			out = append(out, inc)
		}
	}
	return out
}
