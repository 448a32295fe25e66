// Package document renders the factura XML submitted to SRI and builds its access key.
package document

import (
	"encoding/xml"
	"strconv"

	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
)

// Generated is an unsigned comprobante and the access key embedded in it.
type Generated struct {
	XML       []byte
	AccessKey string
}

// Generator produces the unsigned document for a submission.
type Generator interface {
	Generate(doc invoice.Document, numericCode string) (Generated, error)
}

// FacturaGenerator renders factura documents (codDoc 01).
type FacturaGenerator struct{}

func NewFacturaGenerator() *FacturaGenerator {
	return &FacturaGenerator{}
}

// Generate builds the access key from the document fields and numericCode and
// renders the factura with the key in infoTributaria.claveAcceso.
func (g *FacturaGenerator) Generate(doc invoice.Document, numericCode string) (Generated, error) {
	it, inf := doc.InfoTributaria, doc.InfoFactura
	if it == nil || inf == nil {
		return Generated{}, invoice.NewValidationError("cannot generate document", "infoTributaria and infoFactura are required")
	}

	codDoc := it.CodDoc
	if codDoc == "" {
		codDoc = invoice.CodDocFactura
	}
	key, err := BuildAccessKey(AccessKeyFields{
		FechaEmision: inf.FechaEmision,
		CodDoc:       codDoc,
		Ruc:          it.Ruc,
		Ambiente:     it.Ambiente,
		Estab:        it.Estab,
		PtoEmi:       it.PtoEmi,
		Secuencial:   it.Secuencial,
		NumericCode:  numericCode,
		TipoEmision:  it.TipoEmision,
	})
	if err != nil {
		return Generated{}, err
	}

	version := doc.Version
	if version == "" {
		version = invoice.DefaultVersion
	}
	f := facturaXML{
		ID:      "comprobante",
		Version: version,
		InfoTributaria: infoTributariaXML{
			Ambiente:           it.Ambiente,
			TipoEmision:        it.TipoEmision,
			RazonSocial:        it.RazonSocial,
			NombreComercial:    it.NombreComercial,
			Ruc:                it.Ruc,
			ClaveAcceso:        key,
			CodDoc:             codDoc,
			Estab:              it.Estab,
			PtoEmi:             it.PtoEmi,
			Secuencial:         it.Secuencial,
			DirMatriz:          it.DirMatriz,
			ContribuyenteRimpe: it.ContribuyenteRimpe,
		},
		InfoFactura: infoFacturaXML{
			FechaEmision:                inf.FechaEmision,
			DirEstablecimiento:          inf.DirEstablecimiento,
			ObligadoContabilidad:        inf.ObligadoContabilidad,
			TipoIdentificacionComprador: inf.TipoIdentificacionComprador,
			RazonSocialComprador:        inf.RazonSocialComprador,
			IdentificacionComprador:     inf.IdentificacionComprador,
			DireccionComprador:          inf.DireccionComprador,
			TotalSinImpuestos:           money(inf.TotalSinImpuestos),
			TotalDescuento:              money(inf.TotalDescuento),
			Propina:                     money(inf.Propina),
			ImporteTotal:                money(inf.ImporteTotal),
			Moneda:                      inf.Moneda,
		},
	}
	for _, t := range inf.TotalConImpuestos {
		ti := totalImpuestoXML{
			Codigo:           t.Codigo,
			CodigoPorcentaje: t.CodigoPorcentaje,
			BaseImponible:    money(t.BaseImponible),
			Valor:            money(t.Valor),
		}
		if t.Tarifa != 0 {
			ti.Tarifa = money(t.Tarifa)
		}
		f.InfoFactura.TotalConImpuestos = append(f.InfoFactura.TotalConImpuestos, ti)
	}
	for _, p := range inf.Pagos {
		f.InfoFactura.Pagos = append(f.InfoFactura.Pagos, pagoXML{
			FormaPago:    p.FormaPago,
			Total:        money(p.Total),
			Plazo:        p.Plazo,
			UnidadTiempo: p.UnidadTiempo,
		})
	}
	for _, d := range doc.Detalles {
		dx := detalleXML{
			CodigoPrincipal:        d.CodigoPrincipal,
			Descripcion:            d.Descripcion,
			Cantidad:               quantity(d.Cantidad),
			PrecioUnitario:         quantity(d.PrecioUnitario),
			Descuento:              money(d.Descuento),
			PrecioTotalSinImpuesto: money(d.PrecioTotalSinImpuesto),
		}
		for _, imp := range d.Impuestos {
			dx.Impuestos = append(dx.Impuestos, impuestoXML{
				Codigo:           imp.Codigo,
				CodigoPorcentaje: imp.CodigoPorcentaje,
				Tarifa:           money(imp.Tarifa),
				BaseImponible:    money(imp.BaseImponible),
				Valor:            money(imp.Valor),
			})
		}
		f.Detalles = append(f.Detalles, dx)
	}
	if doc.InfoAdicional != nil && len(doc.InfoAdicional.Campos) > 0 {
		f.InfoAdicional = &infoAdicionalXML{}
		for _, c := range doc.InfoAdicional.Campos {
			f.InfoAdicional.Campos = append(f.InfoAdicional.Campos, campoXML{Nombre: c.Nombre, Valor: c.Valor})
		}
	}

	out, err := xml.Marshal(f)
	if err != nil {
		return Generated{}, invoice.WrapValidationError(err, "failed to render factura")
	}
	return Generated{
		XML:       append([]byte(xml.Header), out...),
		AccessKey: key,
	}, nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func quantity(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
