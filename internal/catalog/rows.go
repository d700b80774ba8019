package catalog

import (
	"fmt"

	"github.com/velasur/inventory-cli/internal/model"
)

const maxNameLen = 100

// ExtractProducts converts raw data rows into canonical products using a
// resolved column map. Rows without a SKU are recorded as diagnostics,
// never silently dropped. Invalid price or stock cells degrade that field
// to absent and leave the rest of the row intact. Row numbers in products
// and diagnostics are 1-based file positions counting the header row.
func ExtractProducts(cm *ColumnMap, rows [][]string, file string) ([]model.Product, []model.Diagnostic) {
	products := make([]model.Product, 0, len(rows))
	var diags []model.Diagnostic

	skuCol, _ := cm.Column(FieldSKU)

	for i, row := range rows {
		rowNum := i + 2 // header is row 1

		sku := CleanSKU(cellAt(row, skuCol))
		if sku == "" {
			diags = append(diags, model.Diagnostic{
				Code:   model.DiagMissingSKU,
				File:   file,
				Row:    rowNum,
				Reason: "row has no SKU value",
			})
			continue
		}

		p := model.Product{SKU: sku, Row: rowNum, SourceFile: file}

		if col, ok := cm.Column(FieldName); ok {
			p.Name = truncateName(cellAt(row, col))
		}

		if col, ok := cm.Column(FieldPrice); ok {
			if price, present, err := ParsePrice(cellAt(row, col)); err != nil {
				diags = append(diags, priceDiag(file, rowNum, sku, cellAt(row, col)))
			} else if present {
				p.Price = &price
			}
		}

		if col, ok := cm.Column(FieldOffer); ok {
			if offer, present, err := ParsePrice(cellAt(row, col)); err != nil {
				diags = append(diags, priceDiag(file, rowNum, sku, cellAt(row, col)))
			} else if present {
				p.OfferPrice = &offer
			}
		}

		if col, ok := cm.Column(FieldStock); ok {
			if qty, present, err := ParseStock(cellAt(row, col)); err != nil {
				diags = append(diags, model.Diagnostic{
					Code:   model.DiagInvalidStockValue,
					File:   file,
					Row:    rowNum,
					SKU:    sku,
					Reason: fmt.Sprintf("invalid stock value %q", cellAt(row, col)),
				})
			} else if present {
				p.Stock = &qty
			}
		}

		products = append(products, p)
	}

	return products, diags
}

func priceDiag(file string, row int, sku, cell string) model.Diagnostic {
	return model.Diagnostic{
		Code:   model.DiagInvalidPriceValue,
		File:   file,
		Row:    row,
		SKU:    sku,
		Reason: fmt.Sprintf("invalid price value %q", cell),
	}
}

// truncateName caps a product name at maxNameLen runes. Counting runes
// keeps accented names intact instead of splitting a multi-byte sequence.
func truncateName(name string) string {
	if len(name) <= maxNameLen {
		return name
	}
	runes := []rune(name)
	if len(runes) <= maxNameLen {
		return name
	}
	return string(runes[:maxNameLen])
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
