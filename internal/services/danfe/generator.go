package danfe

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/annaehugo/freepharma/internal/models"
)

// Generate renders a simplified DANFE (invoice summary sheet) for an
// already imported invoice. The access key is printed both as text and
// as a QR code so it can be checked against the SEFAZ portal.
func Generate(inv *models.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pageWidth := 210.0
	contentW := pageWidth - 20

	// Header
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(contentW, 8, "DANFE - Documento Auxiliar da Nota Fiscal Eletronica", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("NF-e %s  Serie %s  (%s)", inv.Number, inv.Series, inv.OperationType), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	// QR with the access key
	qrPng, err := qrcode.Encode(inv.AccessKey, qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}
	imgOpts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	_ = pdf.RegisterImageOptionsReader("accesskey_qr", imgOpts, bytes.NewReader(qrPng))
	pdf.ImageOptions("accesskey_qr", pageWidth-45, 28, 35, 35, false, imgOpts, 0, "")

	// Access key
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(40, 6, "Chave de acesso:", "", 0, "L", false, 0, "")
	pdf.SetFont("Courier", "", 9)
	pdf.CellFormat(contentW-85, 6, inv.AccessKey, "", 1, "L", false, 0, "")

	// Issuer block
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(40, 6, "Emitente:", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	issuer := inv.SupplierID
	if inv.Supplier.LegalName != "" {
		issuer = fmt.Sprintf("%s (CNPJ %s)", inv.Supplier.LegalName, inv.Supplier.TaxID)
	}
	pdf.CellFormat(contentW-85, 6, issuer, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(40, 6, "Emissao:", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	issued := "-"
	if inv.IssueDate != nil {
		issued = inv.IssueDate.Format("02/01/2006")
	}
	pdf.CellFormat(contentW-85, 6, issued, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(40, 6, "Valor total:", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(contentW-85, 6, "R$ "+inv.TotalAmount.StringFixed(2), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	// Items table
	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(95, 6, "Produto", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 6, "Qtd", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 6, "Vlr. Unit.", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 6, "Vlr. Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 8)
	sum := decimal.Zero
	for _, item := range inv.Items {
		name := item.ProductID
		if item.Product.Name != "" {
			name = item.Product.Name
		}
		if len(name) > 55 {
			name = name[:55]
		}
		pdf.CellFormat(95, 6, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, item.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, item.LineTotal.StringFixed(2), "1", 1, "R", false, 0, "")
		sum = sum.Add(item.LineTotal)
	}

	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(155, 6, "Soma dos itens", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, sum.StringFixed(2), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
