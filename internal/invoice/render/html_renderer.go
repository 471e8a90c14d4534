package render

import (
	"bytes"
	"html/template"
)

const invoiceHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Tax Invoice {{.InvoiceNumber}}</title>
  <style>
    :root { --accent: {{.Page.AccentColor}}; }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 32px;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      color: #1a1f36;
      background: #f7f9fc;
    }
    .invoice-card {
      background: #ffffff;
      max-width: 780px;
      margin: 0 auto;
      padding: 48px;
      border-top: 4px solid var(--accent);
      box-shadow: 0 2px 5px rgba(0,0,0,0.04);
    }
    .header { display: flex; justify-content: space-between; margin-bottom: 32px; }
    .header h1 { margin: 0; font-size: 22px; color: var(--accent); }
    .label {
      font-size: 11px;
      text-transform: uppercase;
      color: #8792a2;
      font-weight: 600;
      letter-spacing: 0.3px;
      margin-bottom: 4px;
    }
    .value { font-size: 13px; line-height: 1.5; }
    .meta-grid { display: flex; justify-content: space-between; margin-bottom: 32px; }
    .col { flex: 1; }
    table { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
    th {
      text-align: left;
      text-transform: uppercase;
      font-size: 11px;
      color: #8792a2;
      border-bottom: 1px solid #e3e8ee;
      padding: 8px 4px;
    }
    td { padding: 10px 4px; border-bottom: 1px solid #e3e8ee; font-size: 13px; vertical-align: top; }
    .td-right { text-align: right; }
    .totals { display: flex; flex-direction: column; align-items: flex-end; }
    .total-row { display: flex; justify-content: space-between; width: 260px; padding: 5px 0; font-size: 13px; }
    .total-final { border-top: 1px solid #e3e8ee; margin-top: 8px; padding-top: 8px; font-weight: 700; font-size: 15px; }
    .footer { margin-top: 40px; font-size: 12px; color: #8792a2; border-top: 1px solid #e3e8ee; padding-top: 16px; }
  </style>
</head>
<body>
  <div class="invoice-card">
    <div class="header">
      <div>
        <h1>Tax Invoice</h1>
        <div class="label" style="margin-top:10px;">Invoice number</div>
        <div class="value">{{.InvoiceNumber}}</div>
        <div class="label" style="margin-top:8px;">Date of issue</div>
        <div class="value">{{.IssueDate}}</div>
      </div>
      <div style="text-align:right;">
        {{if and .Page.ShowLogo .LogoRef}}<img src="{{.LogoRef}}" style="max-height:40px;" alt="{{.CompanyName}}">{{else}}<strong>{{.CompanyName}}</strong>{{end}}
        {{range .AddressLines}}<div class="value">{{.}}</div>{{end}}
        {{if .GSTIN}}<div class="value">GSTIN: {{.GSTIN}}</div>{{end}}
      </div>
    </div>

    <div class="meta-grid">
      <div class="col">
        <div class="label">Bill to</div>
        <div class="value"><strong>{{.BillToName}}</strong></div>
        {{range .BillToLines}}<div class="value">{{.}}</div>{{end}}
        {{if .BillToEmail}}<div class="value">{{.BillToEmail}}</div>{{end}}
      </div>
      <div class="col" style="flex:0 0 220px;">
        <div class="label">Order</div>
        <div class="value">{{.OrderNumber}} &middot; {{.OrderDate}}</div>
        <div class="label" style="margin-top:10px;">Place of supply</div>
        <div class="value">{{.PlaceOfSupply}}</div>
        <div class="label" style="margin-top:10px;">Supply type</div>
        <div class="value">{{.GSTType}}</div>
      </div>
    </div>

    <table>
      <thead>
        <tr>
          <th>#</th>
          <th style="width:40%;">Item</th>
          <th>HSN</th>
          <th class="td-right">Qty</th>
          <th class="td-right">Rate</th>
          <th class="td-right">Tax</th>
          <th class="td-right">Amount</th>
        </tr>
      </thead>
      <tbody>
        {{range .Items}}
        <tr>
          <td>{{.SN}}</td>
          <td>{{.Name}}</td>
          <td>{{.HSNCode}}</td>
          <td class="td-right">{{.Quantity}}</td>
          <td class="td-right">{{.UnitPrice}}</td>
          <td class="td-right">{{.Tax}}</td>
          <td class="td-right">{{.Amount}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="totals">
      <div class="total-row"><span>Taxable amount</span><span>{{.Subtotal}}</span></div>
      {{range .TaxRows}}
      <div class="total-row"><span>{{.Label}}</span><span>{{.Amount}}</span></div>
      {{end}}
      <div class="total-row total-final"><span>Total</span><span>{{.GrandTotal}}</span></div>
    </div>

    {{if and .Page.ShowBank .BankLines}}
    <div class="footer">
      {{range .BankLines}}<div>{{.}}</div>{{end}}
    </div>
    {{end}}
    {{if and .Page.ShowTerms .Terms}}
    <div class="footer">{{.Terms}}</div>
    {{end}}
  </div>
</body>
</html>
`

// Renderer turns a RenderInput into the document model plus its HTML
// markup.
type Renderer interface {
	Render(input RenderInput) (*Document, string, error)
}

type htmlRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	return &htmlRenderer{
		tpl: template.Must(template.New("invoice").Parse(invoiceHTMLTemplate)),
	}
}

func (r *htmlRenderer) Render(input RenderInput) (*Document, string, error) {
	doc := BuildDocument(input)

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, doc); err != nil {
		return nil, "", err
	}
	return doc, buf.String(), nil
}
