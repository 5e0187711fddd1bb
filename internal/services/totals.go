package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/urbanvac/invoicing/internal/models"
	"github.com/urbanvac/invoicing/internal/money"
)

// Totals are the frozen monetary figures of a document.
type Totals struct {
	Subtotal money.Money
	Tax      money.Money
	Total    money.Money
}

// TotalsCalculator derives subtotal, tax, and total from line items. Tax is
// applied to invoices only; quotations and cash receipts carry 0.
type TotalsCalculator struct {
	taxRate decimal.Decimal
}

func NewTotalsCalculator(taxRate decimal.Decimal) *TotalsCalculator {
	return &TotalsCalculator{taxRate: taxRate}
}

// LineTotal recomputes quantity × unit price, rounded half-up to 2 decimals.
// The stored LineTotal field is never trusted as input.
func LineTotal(item models.LineItem, currency string) (money.Money, error) {
	return money.FromMinor(item.UnitPrice, currency).MulQuantity(item.Quantity)
}

// Compute is pure: it reads only Quantity and UnitPrice from each item and
// never mutates its input.
func (c *TotalsCalculator) Compute(items []models.LineItem, docType, currency string) (Totals, error) {
	subtotal := money.Zero(currency)
	for i, item := range items {
		lt, err := LineTotal(item, currency)
		if err != nil {
			return Totals{}, fmt.Errorf("line %d total: %w", i, err)
		}
		subtotal, err = subtotal.Add(lt)
		if err != nil {
			return Totals{}, fmt.Errorf("sum line %d: %w", i, err)
		}
	}
	tax := money.Zero(currency)
	if docType == models.TypeInvoice {
		var err error
		tax, err = subtotal.MulRate(c.taxRate)
		if err != nil {
			return Totals{}, fmt.Errorf("tax: %w", err)
		}
	}
	total, err := subtotal.Add(tax)
	if err != nil {
		return Totals{}, fmt.Errorf("sum total: %w", err)
	}
	return Totals{Subtotal: subtotal, Tax: tax, Total: total}, nil
}
