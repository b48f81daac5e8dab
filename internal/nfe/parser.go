package nfe

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/annaehugo/freepharma/internal/models"
)

// ErrMalformedDocument marks a byte stream that is not a parseable NFe
// document tree or misses the expected root elements.
var ErrMalformedDocument = errors.New("malformed NFe document")

// BarcodePlaceholder is the value the fiscal standard uses for items without
// a GTIN barcode.
const BarcodePlaceholder = "SEM GTIN"

const (
	issueDateLayout = "2006-01-02"
	accessKeyPrefix = "NFe"
)

// XML mapping for the subset of the NFe layout the pipeline consumes. The
// document may arrive either with an <NFe> root or wrapped in <nfeProc>.
type xmlEnvelope struct {
	NFe *xmlNFe `xml:"NFe"`
}

type xmlNFe struct {
	Inf *xmlInfNFe `xml:"infNFe"`
}

type xmlInfNFe struct {
	ID    string    `xml:"Id,attr"`
	Ide   xmlIde    `xml:"ide"`
	Emit  *xmlEmit  `xml:"emit"`
	Dest  *xmlDest  `xml:"dest"`
	Det   []xmlDet  `xml:"det"`
	Total *xmlTotal `xml:"total"`
}

type xmlIde struct {
	Number    string `xml:"nNF"`
	Series    string `xml:"serie"`
	IssuedAt  string `xml:"dhEmi"`
	IssuedOn  string `xml:"dEmi"`
}

type xmlAddress struct {
	Street       string `xml:"xLgr"`
	StreetNumber string `xml:"nro"`
	District     string `xml:"xBairro"`
	City         string `xml:"xMun"`
	State        string `xml:"UF"`
	PostalCode   string `xml:"CEP"`
}

type xmlEmit struct {
	CNPJ              string      `xml:"CNPJ"`
	LegalName         string      `xml:"xNome"`
	TradeName         string      `xml:"xFant"`
	StateRegistration string      `xml:"IE"`
	Address           *xmlAddress `xml:"enderEmit"`
	Phone             string      `xml:"fone"`
	Email             string      `xml:"email"`
}

type xmlDest struct {
	CNPJ    string      `xml:"CNPJ"`
	CPF     string      `xml:"CPF"`
	Name    string      `xml:"xNome"`
	Address *xmlAddress `xml:"enderDest"`
}

type xmlDet struct {
	Prod *xmlProd `xml:"prod"`
}

type xmlProd struct {
	Code      string `xml:"cProd"`
	Name      string `xml:"xProd"`
	Barcode   string `xml:"cEAN"`
	TaxCode   string `xml:"NCM"`
	CFOP      string `xml:"CFOP"`
	Unit      string `xml:"uCom"`
	Quantity  string `xml:"qCom"`
	UnitPrice string `xml:"vUnCom"`
	LineTotal string `xml:"vProd"`
	Lot       string `xml:"xLote"`
	Expiry    string `xml:"dVal"`
}

type xmlTotal struct {
	ICMSTot *struct {
		Total string `xml:"vNF"`
	} `xml:"ICMSTot"`
}

// Parse turns raw NFe document bytes into an ExtractedInvoice. It is purely
// structural: field-level validation (access key length, totals, tax codes)
// belongs to the orchestrator and the consistency checker.
func Parse(data []byte) (*ExtractedInvoice, error) {
	inf, err := locateInfNFe(data)
	if err != nil {
		return nil, err
	}

	inv := &ExtractedInvoice{
		AccessKey: strings.TrimPrefix(inf.ID, accessKeyPrefix),
		Number:    strings.TrimSpace(inf.Ide.Number),
		Series:    strings.TrimSpace(inf.Ide.Series),
		IssueDate: parseIssueDate(inf.Ide.IssuedAt, inf.Ide.IssuedOn),
	}

	if inf.Total != nil && inf.Total.ICMSTot != nil {
		inv.TotalAmount = parseDecimal(inf.Total.ICMSTot.Total)
	}

	if inf.Emit != nil {
		inv.Issuer = ExtractedIssuer{
			TaxID:             strings.TrimSpace(inf.Emit.CNPJ),
			LegalName:         strings.TrimSpace(inf.Emit.LegalName),
			TradeName:         strings.TrimSpace(inf.Emit.TradeName),
			StateRegistration: strings.TrimSpace(inf.Emit.StateRegistration),
			Address:           formatAddress(inf.Emit.Address),
			Phone:             strings.TrimSpace(inf.Emit.Phone),
			Email:             strings.TrimSpace(inf.Emit.Email),
		}
	}

	if inf.Dest != nil {
		taxID := inf.Dest.CNPJ
		if taxID == "" {
			taxID = inf.Dest.CPF
		}
		inv.Recipient = ExtractedRecipient{
			TaxID:   strings.TrimSpace(taxID),
			Name:    strings.TrimSpace(inf.Dest.Name),
			Address: formatAddress(inf.Dest.Address),
		}
	}

	for _, det := range inf.Det {
		if det.Prod == nil {
			continue
		}
		inv.Items = append(inv.Items, extractItem(det.Prod))
	}

	inv.OperationType = inferOperationType(inv.Items)

	return inv, nil
}

func locateInfNFe(data []byte) (*xmlInfNFe, error) {
	var env xmlEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if env.NFe != nil {
		if env.NFe.Inf == nil {
			return nil, fmt.Errorf("%w: infNFe element not found", ErrMalformedDocument)
		}
		return env.NFe.Inf, nil
	}

	// No <NFe> child: the document may use <NFe> as its root element.
	var root xmlNFe
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if root.Inf == nil {
		return nil, fmt.Errorf("%w: NFe element not found", ErrMalformedDocument)
	}
	return root.Inf, nil
}

func extractItem(prod *xmlProd) ExtractedItem {
	name := strings.TrimSpace(prod.Name)
	return ExtractedItem{
		SupplierCode:  strings.TrimSpace(prod.Code),
		Name:          name,
		Description:   name,
		Barcode:       strings.TrimSpace(prod.Barcode),
		TaxCode:       strings.TrimSpace(prod.TaxCode),
		OperationCode: strings.TrimSpace(prod.CFOP),
		Unit:          strings.TrimSpace(prod.Unit),
		Quantity:      truncateQuantity(prod.Quantity),
		UnitPrice:     parseDecimal(prod.UnitPrice),
		LineTotal:     parseDecimal(prod.LineTotal),
		Lot:           strings.TrimSpace(prod.Lot),
		ExpiryDate:    parseDate(prod.Expiry),
	}
}

// truncateQuantity drops everything after the decimal point. Fractional
// quantities are not supported; this is a known lossy behavior.
func truncateQuantity(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	whole, _, _ := strings.Cut(raw, ".")
	qty, err := strconv.Atoi(whole)
	if err != nil {
		return 0
	}
	return qty
}

// inferOperationType classifies each item by the leading digit of its CFOP
// (5, 6 and 7 are outgoing operations) and takes the majority across items.
// Ties and empty invoices default to PURCHASE.
func inferOperationType(items []ExtractedItem) string {
	sales := 0
	for _, item := range items {
		if isSaleCFOP(item.OperationCode) {
			sales++
		}
	}
	if sales > len(items)-sales {
		return models.OperationSale
	}
	return models.OperationPurchase
}

func isSaleCFOP(cfop string) bool {
	if cfop == "" {
		return false
	}
	switch cfop[0] {
	case '5', '6', '7':
		return true
	}
	return false
}

func parseDecimal(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return value
}

// parseIssueDate prefers the timestamp-with-timezone field and falls back to
// the bare date field. Both failing is non-fatal: downstream validation flags
// the missing date, not the parser.
func parseIssueDate(issuedAt, issuedOn string) *time.Time {
	if ts := parseTimestamp(issuedAt); ts != nil {
		return ts
	}
	return parseDate(issuedOn)
}

func parseTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &ts
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.Parse(issueDateLayout, raw)
	if err != nil {
		return nil
	}
	return &d
}

// formatAddress flattens an address block into the single display string the
// supplier record carries: street, number - district, city - state CEP: zip.
func formatAddress(addr *xmlAddress) string {
	if addr == nil {
		return ""
	}
	var sb strings.Builder
	appendPart(&sb, addr.Street, "")
	appendPart(&sb, addr.StreetNumber, ", ")
	appendPart(&sb, addr.District, " - ")
	appendPart(&sb, addr.City, ", ")
	appendPart(&sb, addr.State, " - ")
	appendPart(&sb, addr.PostalCode, " CEP: ")
	return sb.String()
}

func appendPart(sb *strings.Builder, value, prefix string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if sb.Len() > 0 && prefix != "" {
		sb.WriteString(prefix)
	}
	sb.WriteString(value)
}
