package catalog

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velasur/inventory-cli/internal/model"
)

func mustMap(t *testing.T, headers []string) *ColumnMap {
	t.Helper()
	cm, _, err := MapColumns(headers, nil)
	require.NoError(t, err)
	return cm
}

func TestExtractProducts_Basic(t *testing.T) {
	cm := mustMap(t, []string{"sku", "nombre", "precio", "oferta", "stock"})
	rows := [][]string{
		{"100-A", "Bicicleta urbana", "499,95 €", "", "12"},
		{"100-B", "Casco", "39.90", "29.90", ">10"},
	}

	products, diags := ExtractProducts(cm, rows, "stock.xlsx")
	require.Empty(t, diags)
	require.Len(t, products, 2)

	p := products[0]
	assert.Equal(t, "100-A", p.SKU)
	assert.Equal(t, "Bicicleta urbana", p.Name)
	require.NotNil(t, p.Price)
	assert.Equal(t, "499.95", p.Price.String())
	assert.Nil(t, p.OfferPrice)
	require.NotNil(t, p.Stock)
	assert.Equal(t, 12, *p.Stock)
	assert.Equal(t, 2, p.Row, "first data row sits under the header")

	p = products[1]
	require.NotNil(t, p.OfferPrice)
	assert.Equal(t, "29.9", p.OfferPrice.String())
	require.NotNil(t, p.Stock)
	assert.Equal(t, 10, *p.Stock)
}

func TestExtractProducts_MissingSKUIsDiagnosed(t *testing.T) {
	cm := mustMap(t, []string{"sku", "precio"})
	rows := [][]string{
		{"", "10.00"},
		{"OK-1", "20.00"},
	}

	products, diags := ExtractProducts(cm, rows, "f.csv")
	require.Len(t, products, 1)
	assert.Equal(t, "OK-1", products[0].SKU)

	require.Len(t, diags, 1)
	assert.Equal(t, model.DiagMissingSKU, diags[0].Code)
	assert.Equal(t, 2, diags[0].Row)
	assert.Equal(t, "f.csv", diags[0].File)
}

func TestExtractProducts_InvalidStockKeepsPrice(t *testing.T) {
	cm := mustMap(t, []string{"sku", "precio", "stock"})
	rows := [][]string{{"X-1", "15.00", "muchos"}}

	products, diags := ExtractProducts(cm, rows, "f.csv")
	require.Len(t, products, 1)
	require.NotNil(t, products[0].Price, "price survives a bad stock cell")
	assert.Nil(t, products[0].Stock)

	require.Len(t, diags, 1)
	assert.Equal(t, model.DiagInvalidStockValue, diags[0].Code)
	assert.Equal(t, "X-1", diags[0].SKU)
}

func TestExtractProducts_NumericSKUSuffixStripped(t *testing.T) {
	cm := mustMap(t, []string{"sku"})
	products, _ := ExtractProducts(cm, [][]string{{"4058000.0"}}, "f.csv")
	require.Len(t, products, 1)
	assert.Equal(t, "4058000", products[0].SKU)
}

func TestExtractProducts_LongNameTruncatesOnRuneBoundary(t *testing.T) {
	cm := mustMap(t, []string{"sku", "nombre"})

	long := strings.Repeat("ñ", maxNameLen+20)
	products, diags := ExtractProducts(cm, [][]string{{"N-1", long}}, "f.csv")
	require.Empty(t, diags)
	require.Len(t, products, 1)

	name := products[0].Name
	assert.True(t, utf8.ValidString(name), "truncation must not split a rune")
	assert.Equal(t, maxNameLen, utf8.RuneCountInString(name))
	assert.Equal(t, strings.Repeat("ñ", maxNameLen), name)
}

func TestExtractProducts_ShortRow(t *testing.T) {
	cm := mustMap(t, []string{"sku", "precio", "stock"})
	products, diags := ExtractProducts(cm, [][]string{{"Y-2"}}, "f.csv")
	require.Empty(t, diags)
	require.Len(t, products, 1)
	assert.Nil(t, products[0].Price)
	assert.Nil(t, products[0].Stock)
}
