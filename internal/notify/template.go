package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/velasur/inventory-cli/internal/model"
)

// detailLimit caps the per-section rows shown in the report email.
const detailLimit = 10

type priceRow struct {
	SKU      string
	OldPrice string
	NewPrice string
	IsOffer  bool
	Failed   bool
}

type stockRow struct {
	SKU      string
	OldStock int
	NewStock int
	Delta    int
	Failed   bool
}

type diagRow struct {
	File   string
	Row    int
	SKU    string
	Reason string
}

type reportView struct {
	Timestamp      string
	Duration       string
	FilesProcessed int
	RowsParsed     int
	CatalogSize    int
	PriceCount     int
	StockCount     int
	ErrorCount     int
	Prices         []priceRow
	MorePrices     int
	Stocks         []stockRow
	MoreStocks     int
	Diagnostics    []diagRow
	MoreDiags      int
}

func formatPrice(d decimal.Decimal) string {
	return d.StringFixed(2) + " EUR"
}

func buildView(report *model.RunReport) reportView {
	v := reportView{
		Timestamp:   report.FinishedAt.Format("2006-01-02 15:04:05"),
		Duration:    report.FinishedAt.Sub(report.StartedAt).Round(time.Second).String(),
		CatalogSize: report.CatalogSize,
	}
	for _, f := range report.Files {
		v.FilesProcessed++
		v.RowsParsed += f.RowsParsed
	}

	for _, op := range report.Ops {
		switch op.Kind {
		case model.OpPrice:
			v.PriceCount++
			if len(v.Prices) < detailLimit {
				v.Prices = append(v.Prices, priceRow{
					SKU:      op.SKU,
					OldPrice: formatPrice(op.OldPrice),
					NewPrice: formatPrice(op.NewPrice),
					IsOffer:  op.IsOffer,
					Failed:   op.Error != "",
				})
			}
		case model.OpStock:
			v.StockCount++
			if len(v.Stocks) < detailLimit {
				v.Stocks = append(v.Stocks, stockRow{
					SKU:      op.SKU,
					OldStock: op.OldStock,
					NewStock: op.NewStock,
					Delta:    op.Delta,
					Failed:   op.Error != "",
				})
			}
		}
		if op.Error != "" {
			v.ErrorCount++
		}
	}
	v.MorePrices = max(0, v.PriceCount-len(v.Prices))
	v.MoreStocks = max(0, v.StockCount-len(v.Stocks))

	v.ErrorCount += len(report.Diagnostics)
	for _, d := range report.Diagnostics {
		if len(v.Diagnostics) >= detailLimit {
			break
		}
		v.Diagnostics = append(v.Diagnostics, diagRow{
			File:   d.File,
			Row:    d.Row,
			SKU:    d.SKU,
			Reason: d.Reason,
		})
	}
	v.MoreDiags = len(report.Diagnostics) - len(v.Diagnostics)

	return v
}

func subjectFor(v reportView) string {
	switch {
	case v.ErrorCount > 0:
		return fmt.Sprintf("Inventory update completed with %d errors", v.ErrorCount)
	case v.PriceCount > 0 || v.StockCount > 0:
		return fmt.Sprintf("Inventory update successful - %d price, %d stock updates", v.PriceCount, v.StockCount)
	default:
		return "Inventory update completed - no changes required"
	}
}

var htmlTmpl = template.Must(template.New("report").Parse(`<html>
<head>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
.header { background-color: #f0f8ff; padding: 20px; border-radius: 5px; }
.summary { background-color: #f9f9f9; padding: 15px; margin: 20px 0; border-radius: 5px; }
table { border-collapse: collapse; width: 100%; margin: 10px 0; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }
.error { color: #dc3545; }
.footer { margin-top: 30px; font-size: 12px; color: #666; }
</style>
</head>
<body>
<div class="header">
<h2>Inventory Update Report</h2>
<p><strong>Finished:</strong> {{.Timestamp}} ({{.Duration}})</p>
</div>
<div class="summary">
<h3>Summary</h3>
<ul>
<li><strong>Files processed:</strong> {{.FilesProcessed}}</li>
<li><strong>Rows parsed:</strong> {{.RowsParsed}}</li>
<li><strong>Catalog size:</strong> {{.CatalogSize}}</li>
<li><strong>Price updates:</strong> {{.PriceCount}}</li>
<li><strong>Stock updates:</strong> {{.StockCount}}</li>
<li><strong>Errors:</strong> <span class="error">{{.ErrorCount}}</span></li>
</ul>
</div>
{{if .Prices}}
<h3>Price Updates</h3>
<table>
<tr><th>SKU</th><th>Old Price</th><th>New Price</th><th>Offer</th><th>Status</th></tr>
{{range .Prices}}<tr><td>{{.SKU}}</td><td>{{.OldPrice}}</td><td>{{.NewPrice}}</td><td>{{if .IsOffer}}Yes{{else}}No{{end}}</td><td>{{if .Failed}}<span class="error">failed</span>{{else}}applied{{end}}</td></tr>
{{end}}{{if .MorePrices}}<tr><td colspan="5">... and {{.MorePrices}} more</td></tr>{{end}}
</table>
{{end}}
{{if .Stocks}}
<h3>Stock Updates</h3>
<table>
<tr><th>SKU</th><th>Old Stock</th><th>New Stock</th><th>Delta</th><th>Status</th></tr>
{{range .Stocks}}<tr><td>{{.SKU}}</td><td>{{.OldStock}}</td><td>{{.NewStock}}</td><td>{{printf "%+d" .Delta}}</td><td>{{if .Failed}}<span class="error">failed</span>{{else}}applied{{end}}</td></tr>
{{end}}{{if .MoreStocks}}<tr><td colspan="5">... and {{.MoreStocks}} more</td></tr>{{end}}
</table>
{{end}}
{{if .Diagnostics}}
<h3>Issues</h3>
<table>
<tr><th>File</th><th>Row</th><th>SKU</th><th>Reason</th></tr>
{{range .Diagnostics}}<tr><td>{{.File}}</td><td>{{if .Row}}{{.Row}}{{end}}</td><td>{{.SKU}}</td><td>{{.Reason}}</td></tr>
{{end}}{{if .MoreDiags}}<tr><td colspan="4">... and {{.MoreDiags}} more</td></tr>{{end}}
</table>
{{end}}
<div class="footer">Automated message from the inventory sync job.</div>
</body>
</html>
`))

var textTmpl = template.Must(template.New("report_text").Parse(`Inventory Update Report
Finished: {{.Timestamp}} ({{.Duration}})

Summary
  Files processed: {{.FilesProcessed}}
  Rows parsed:     {{.RowsParsed}}
  Catalog size:    {{.CatalogSize}}
  Price updates:   {{.PriceCount}}
  Stock updates:   {{.StockCount}}
  Errors:          {{.ErrorCount}}
{{if .Prices}}
Price updates:
{{range .Prices}}  {{.SKU}}: {{.OldPrice}} -> {{.NewPrice}}{{if .IsOffer}} (offer){{end}}{{if .Failed}} [failed]{{end}}
{{end}}{{if .MorePrices}}  ... and {{.MorePrices}} more
{{end}}{{end}}{{if .Stocks}}
Stock updates:
{{range .Stocks}}  {{.SKU}}: {{.OldStock}} -> {{.NewStock}} ({{printf "%+d" .Delta}}){{if .Failed}} [failed]{{end}}
{{end}}{{if .MoreStocks}}  ... and {{.MoreStocks}} more
{{end}}{{end}}{{if .Diagnostics}}
Issues:
{{range .Diagnostics}}  {{.File}}{{if .Row}} row {{.Row}}{{end}}{{if .SKU}} [{{.SKU}}]{{end}}: {{.Reason}}
{{end}}{{if .MoreDiags}}  ... and {{.MoreDiags}} more
{{end}}{{end}}`))

// renderReport produces the subject, HTML body, and plain text body for a
// run report email.
func renderReport(report *model.RunReport) (subject, htmlBody, textBody string, err error) {
	v := buildView(report)
	subject = subjectFor(v)

	var hb bytes.Buffer
	if err := htmlTmpl.Execute(&hb, v); err != nil {
		return "", "", "", eris.Wrap(err, "notify: render html body")
	}
	var tb bytes.Buffer
	if err := textTmpl.Execute(&tb, v); err != nil {
		return "", "", "", eris.Wrap(err, "notify: render text body")
	}
	return subject, hb.String(), tb.String(), nil
}
