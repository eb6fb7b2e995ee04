package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Logical field names recorded when a resolver has to fall back to a default.
const (
	FieldTotal         = "total_amount"
	FieldTax           = "tax_amount"
	FieldTaxableBase   = "taxable_base"
	FieldIssuerTaxID   = "issuer_tax_id"
	FieldInvoiceNumber = "invoice_number"
	FieldIssueDate     = "issue_date"
	FieldMovementType  = "movement_type"
	FieldFraudRisk     = "fraud_risk"
)

// Extraction sources name the same logical field differently, so each logical
// attribute resolves through an ordered precedence list. First present key wins.
var (
	totalKeys      = []string{"totalAmount", "total_amount", "total"}
	taxKeys        = []string{"taxAmount", "tax_amount", "tax", "iva"}
	baseKeys       = []string{"taxableBase", "taxable_base", "baseAmount", "base"}
	issuerKeys     = []string{"issuerNif", "issuer_nif", "nif", "taxId", "tax_id"}
	invoiceNumKeys = []string{"invoiceNumber", "invoice_number", "documentNumber", "number"}
	issueDateKeys  = []string{"issueDate", "issue_date", "emissionDate", "date"}
	movementKeys   = []string{"movementType", "movement_type", "type"}
	fraudRiskKeys  = []string{"fraudRisk", "fraud_risk", "riskLevel"}
)

// FiscalData is the typed view over a document's semi-structured payload.
// HasTaxableBase distinguishes "base declared as zero" from "no base at all";
// Fallbacks lists every logical field that resolved through a default, since
// a silently defaulted amount changes what the integrity checks can assert.
type FiscalData struct {
	TotalAmount    decimal.Decimal
	TaxAmount      decimal.Decimal
	TaxableBase    decimal.Decimal
	HasTaxableBase bool
	IssuerTaxID    string
	InvoiceNumber  string
	IssueDate      string
	MovementType   string
	FraudRisk      FraudRisk
	Fallbacks      []string
}

// FellBack reports whether the named logical field resolved through a default
func (f *FiscalData) FellBack(field string) bool {
	for _, name := range f.Fallbacks {
		if name == field {
			return true
		}
	}
	return false
}

// ParsePayload resolves a document's raw payload into typed fiscal data.
// A document with an empty or unparseable payload is an error; individual
// missing fields are not, they resolve to defaults and are recorded.
func ParsePayload(raw string) (*FiscalData, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("document payload is empty")
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse document payload: %w", err)
	}

	data := &FiscalData{}

	var ok bool
	if data.TotalAmount, ok = resolveAmount(fields, totalKeys); !ok {
		data.Fallbacks = append(data.Fallbacks, FieldTotal)
	}
	if data.TaxAmount, ok = resolveAmount(fields, taxKeys); !ok {
		data.Fallbacks = append(data.Fallbacks, FieldTax)
	}
	if data.TaxableBase, data.HasTaxableBase = resolveAmount(fields, baseKeys); !data.HasTaxableBase {
		data.Fallbacks = append(data.Fallbacks, FieldTaxableBase)
	}
	if data.IssuerTaxID, ok = resolveString(fields, issuerKeys); !ok {
		data.Fallbacks = append(data.Fallbacks, FieldIssuerTaxID)
	}
	if data.InvoiceNumber, ok = resolveString(fields, invoiceNumKeys); !ok {
		data.Fallbacks = append(data.Fallbacks, FieldInvoiceNumber)
	}
	if data.IssueDate, ok = resolveString(fields, issueDateKeys); !ok {
		data.Fallbacks = append(data.Fallbacks, FieldIssueDate)
	}
	if data.MovementType, ok = resolveString(fields, movementKeys); !ok {
		data.Fallbacks = append(data.Fallbacks, FieldMovementType)
	}

	risk, ok := resolveString(fields, fraudRiskKeys)
	if !ok {
		data.Fallbacks = append(data.Fallbacks, FieldFraudRisk)
	}
	data.FraudRisk = FraudRisk(strings.ToUpper(risk))

	return data, nil
}

// NormalizeTaxID strips every non-digit character from a tax identifier
func NormalizeTaxID(taxID string) string {
	var b strings.Builder
	for _, r := range taxID {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidTaxID reports whether a tax identifier normalizes to exactly 10 digits,
// the NIF format required in this domain.
func ValidTaxID(taxID string) bool {
	return len(NormalizeTaxID(taxID)) == 10
}

func resolveString(fields map[string]interface{}, keys []string) (string, bool) {
	for _, key := range keys {
		value, present := fields[key]
		if !present || value == nil {
			continue
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

// resolveAmount accepts the numeric encodings extraction sources emit:
// JSON numbers and numeric strings (OCR output frequently quotes amounts).
func resolveAmount(fields map[string]interface{}, keys []string) (decimal.Decimal, bool) {
	for _, key := range keys {
		value, present := fields[key]
		if !present || value == nil {
			continue
		}
		switch v := value.(type) {
		case float64:
			return decimal.NewFromFloat(v), true
		case string:
			parsed, err := decimal.NewFromString(strings.TrimSpace(v))
			if err == nil {
				return parsed, true
			}
		case json.Number:
			parsed, err := decimal.NewFromString(v.String())
			if err == nil {
				return parsed, true
			}
		}
	}
	return decimal.Zero, false
}
