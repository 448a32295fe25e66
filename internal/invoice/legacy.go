package invoice

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	// CodDocFactura is the SRI document type code for an invoice
	CodDocFactura = "01"

	// codigoIVA is the SRI tax code for IVA
	codigoIVA = "2"

	defaultMoneda = "DOLAR"
)

// LegacyInput is the flat shape used by older integrations.
// Company, buyer and issue date members are camelCase; items, totals and payments are snake_case.
type LegacyInput struct {
	IdempotencyKey string         `json:"idempotency_key"`
	Env            string         `json:"env"`
	NumericCode    string         `json:"numeric_code,omitempty"`
	Company        *LegacyCompany `json:"company"`
	Certificate    *Certificate   `json:"certificate"`
	Invoice        *LegacyInvoice `json:"invoice"`
}

type LegacyCompany struct {
	Ruc                  string `json:"ruc"`
	RazonSocial          string `json:"razonSocial"`
	NombreComercial      string `json:"nombreComercial,omitempty"`
	DirMatriz            string `json:"dirMatriz"`
	Estab                string `json:"estab"`
	PtoEmi               string `json:"ptoEmi"`
	Secuencial           string `json:"secuencial"`
	DirEstablecimiento   string `json:"dirEstablecimiento"`
	ObligadoContabilidad string `json:"obligadoContabilidad,omitempty"`
	ContribuyenteRimpe   string `json:"contribuyenteRimpe,omitempty"`
}

type LegacyBuyer struct {
	IDType  string `json:"idType"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

type LegacyTax struct {
	TypeCode string  `json:"type_code"`
	Rate     float64 `json:"rate"`
}

type LegacyItem struct {
	Code        string      `json:"code"`
	Description string      `json:"description"`
	Qty         float64     `json:"qty"`
	UnitPrice   float64     `json:"unit_price"`
	Discount    float64     `json:"discount"`
	Taxes       []LegacyTax `json:"taxes"`
}

type LegacyPayment struct {
	Code   string  `json:"code"`
	Amount float64 `json:"amount"`
}

// LegacyTotals holds subtotal_0 plus any number of subtotal_<rate> members.
type LegacyTotals struct {
	Subtotal0     float64
	TotalDiscount float64
	Total         float64
	Payments      []LegacyPayment

	// Subtotals maps a tax rate (e.g. 15) to the taxable base at that rate
	Subtotals map[float64]float64
}

func (t *LegacyTotals) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	t.Subtotals = map[float64]float64{}
	for name, raw := range fields {
		var err error
		switch {
		case name == "subtotal_0":
			err = json.Unmarshal(raw, &t.Subtotal0)
		case name == "total_discount":
			err = json.Unmarshal(raw, &t.TotalDiscount)
		case name == "total":
			err = json.Unmarshal(raw, &t.Total)
		case name == "payments":
			err = json.Unmarshal(raw, &t.Payments)
		case strings.HasPrefix(name, "subtotal_"):
			rate, perr := strconv.ParseFloat(strings.TrimPrefix(name, "subtotal_"), 64)
			if perr != nil {
				continue
			}
			var v float64
			err = json.Unmarshal(raw, &v)
			t.Subtotals[rate] = v
		}
		if err != nil {
			return fmt.Errorf("totals.%s: %w", name, err)
		}
	}
	return nil
}

type LegacyAdditional struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type LegacyInvoice struct {
	IssueDate  string             `json:"issueDate"`
	Buyer      *LegacyBuyer       `json:"buyer"`
	Items      []LegacyItem       `json:"items"`
	Totals     *LegacyTotals      `json:"totals"`
	Additional []LegacyAdditional `json:"additional,omitempty"`
}

func (l *LegacyInput) Format() Format { return FormatLegacy }

// Submission validates the legacy shape and converts it to the canonical model.
func (l *LegacyInput) Submission() (Submission, error) {
	if err := l.validate(); err != nil {
		return Submission{}, err
	}

	env := Environment(l.Env)
	ambiente := "1"
	if env == EnvProd {
		ambiente = "2"
	}

	c, inv := l.Company, l.Invoice
	nombreComercial := c.NombreComercial
	if nombreComercial == "" {
		nombreComercial = c.RazonSocial
	}
	obligado := c.ObligadoContabilidad
	if obligado == "" {
		obligado = "SI"
	}

	sub := Submission{
		IdempotencyKey: l.IdempotencyKey,
		Env:            env,
		NumericCode:    l.NumericCode,
		Certificate:    l.Certificate,
		Format:         FormatLegacy,
		Document: Document{
			Version: DefaultVersion,
			InfoTributaria: &InfoTributaria{
				Ambiente:             ambiente,
				TipoEmision:          "1",
				RazonSocial:          c.RazonSocial,
				NombreComercial:      nombreComercial,
				Ruc:                  c.Ruc,
				CodDoc:               CodDocFactura,
				Estab:                c.Estab,
				PtoEmi:               c.PtoEmi,
				Secuencial:           c.Secuencial,
				DirMatriz:            c.DirMatriz,
				ContribuyenteRimpe:   c.ContribuyenteRimpe,
				ObligadoContabilidad: c.ObligadoContabilidad,
			},
			InfoFactura: &InfoFactura{
				FechaEmision:                isoToSRIDate(inv.IssueDate),
				DirEstablecimiento:          c.DirEstablecimiento,
				ObligadoContabilidad:        obligado,
				TipoIdentificacionComprador: inv.Buyer.IDType,
				RazonSocialComprador:        inv.Buyer.Name,
				IdentificacionComprador:     inv.Buyer.ID,
				DireccionComprador:          inv.Buyer.Address,
				TotalSinImpuestos:           round2(inv.Totals.Subtotal0),
				TotalDescuento:              inv.Totals.TotalDiscount,
				TotalConImpuestos:           inv.Totals.totalConImpuestos(),
				ImporteTotal:                inv.Totals.Total,
				Moneda:                      defaultMoneda,
				Pagos:                       legacyPagos(inv.Totals.Payments),
			},
			Detalles: legacyDetalles(inv.Items),
		},
	}

	// buyer email is accepted but not carried into the document
	if len(inv.Additional) > 0 {
		campos := make([]CampoAdicional, 0, len(inv.Additional))
		for _, a := range inv.Additional {
			campos = append(campos, CampoAdicional{Nombre: a.Name, Valor: a.Value})
		}
		sub.InfoAdicional = &InfoAdicional{Campos: campos}
	}

	if err := Validate(sub); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

func (l *LegacyInput) validate() error {
	var is issues
	if len(strings.TrimSpace(l.IdempotencyKey)) < MinIdempotencyKeyLength {
		is.addf("idempotency_key must be at least %d characters", MinIdempotencyKeyLength)
	}
	if Environment(l.Env) != EnvTest && Environment(l.Env) != EnvProd {
		is.addf("env must be test or prod")
	}
	if l.Company == nil {
		is.addf("company is required")
	}
	if l.Certificate == nil {
		is.addf("certificate is required")
	}
	inv := l.Invoice
	if inv == nil {
		is.addf("invoice is required")
		return is.err()
	}
	is.match("invoice.issueDate", inv.IssueDate, isoDatePattern, "yyyy-mm-dd")
	if inv.Buyer == nil {
		is.addf("invoice.buyer is required")
	}
	if len(inv.Items) == 0 {
		is.addf("invoice.items must contain at least one item")
	}
	for i, it := range inv.Items {
		if it.Qty <= 0 {
			is.addf("invoice.items[%d].qty must be positive", i)
		}
		if it.UnitPrice < 0 {
			is.addf("invoice.items[%d].unit_price must not be negative", i)
		}
	}
	if inv.Totals == nil {
		is.addf("invoice.totals is required")
	} else if len(inv.Totals.Payments) == 0 {
		is.addf("invoice.totals.payments must contain at least one payment")
	}
	return is.err()
}

// isoToSRIDate converts yyyy-mm-dd to dd/mm/yyyy.
func isoToSRIDate(iso string) string {
	parts := strings.Split(iso, "-")
	if len(parts) != 3 {
		return iso
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}

// ivaPercentageCode maps an IVA rate to the SRI codigoPorcentaje.
func ivaPercentageCode(rate float64) string {
	switch rate {
	case 12:
		return "2"
	case 15:
		return "4"
	default:
		return "0"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (t *LegacyTotals) rates() []float64 {
	rates := make([]float64, 0, len(t.Subtotals))
	for r := range t.Subtotals {
		if r != 0 {
			rates = append(rates, r)
		}
	}
	sort.Float64s(rates)
	return rates
}

// totalConImpuestos has one IVA entry per non-zero subtotal_<rate>; subtotal_0 is not listed.
func (t *LegacyTotals) totalConImpuestos() []TotalImpuesto {
	out := make([]TotalImpuesto, 0, len(t.Subtotals))
	for _, r := range t.rates() {
		base := t.Subtotals[r]
		out = append(out, TotalImpuesto{
			Codigo:           codigoIVA,
			CodigoPorcentaje: ivaPercentageCode(r),
			BaseImponible:    base,
			Valor:            round2(base * r / 100),
			Tarifa:           r,
		})
	}
	return out
}

func legacyDetalles(items []LegacyItem) []Detalle {
	out := make([]Detalle, 0, len(items))
	for _, it := range items {
		lineTotal := round2(it.Qty*it.UnitPrice - it.Discount)
		impuestos := make([]Impuesto, 0, len(it.Taxes))
		for _, tax := range it.Taxes {
			code := "0"
			if tax.TypeCode == codigoIVA {
				code = ivaPercentageCode(tax.Rate)
			}
			impuestos = append(impuestos, Impuesto{
				Codigo:           tax.TypeCode,
				CodigoPorcentaje: code,
				Tarifa:           tax.Rate,
				BaseImponible:    lineTotal,
				Valor:            round2(lineTotal * tax.Rate / 100),
			})
		}
		out = append(out, Detalle{
			CodigoPrincipal:        it.Code,
			Descripcion:            it.Description,
			Cantidad:               it.Qty,
			PrecioUnitario:         it.UnitPrice,
			Descuento:              it.Discount,
			PrecioTotalSinImpuesto: lineTotal,
			Impuestos:              impuestos,
		})
	}
	return out
}

func legacyPagos(payments []LegacyPayment) []Pago {
	out := make([]Pago, 0, len(payments))
	for _, p := range payments {
		out = append(out, Pago{
			FormaPago:    p.Code,
			Total:        p.Amount,
			Plazo:        "0",
			UnidadTiempo: "dias",
		})
	}
	return out
}
