package invoice

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"strings"
)

// RawDocumentInput carries a caller built, unsigned comprobante.
// The gateway signs and submits it without regenerating the document.
type RawDocumentInput struct {
	IdempotencyKey string       `json:"idempotency_key,omitempty"`
	Env            string       `json:"env,omitempty"`
	XMLBase64      string       `json:"xml_base64"`
	Certificate    *Certificate `json:"certificate"`
}

func (r *RawDocumentInput) Format() Format { return FormatRaw }

// rawComprobante is the subset of the factura read back from a raw document.
type rawComprobante struct {
	Version        string `xml:"version,attr"`
	InfoTributaria struct {
		Ambiente        string `xml:"ambiente"`
		TipoEmision     string `xml:"tipoEmision"`
		RazonSocial     string `xml:"razonSocial"`
		NombreComercial string `xml:"nombreComercial"`
		Ruc             string `xml:"ruc"`
		ClaveAcceso     string `xml:"claveAcceso"`
		CodDoc          string `xml:"codDoc"`
		Estab           string `xml:"estab"`
		PtoEmi          string `xml:"ptoEmi"`
		Secuencial      string `xml:"secuencial"`
		DirMatriz       string `xml:"dirMatriz"`
	} `xml:"infoTributaria"`
	InfoFactura *struct {
		FechaEmision                string  `xml:"fechaEmision"`
		DirEstablecimiento          string  `xml:"dirEstablecimiento"`
		TipoIdentificacionComprador string  `xml:"tipoIdentificacionComprador"`
		RazonSocialComprador        string  `xml:"razonSocialComprador"`
		IdentificacionComprador     string  `xml:"identificacionComprador"`
		TotalSinImpuestos           float64 `xml:"totalSinImpuestos"`
		ImporteTotal                float64 `xml:"importeTotal"`
	} `xml:"infoFactura"`
	Detalles []struct {
		CodigoPrincipal string  `xml:"codigoPrincipal"`
		Descripcion     string  `xml:"descripcion"`
		Cantidad        float64 `xml:"cantidad"`
	} `xml:"detalles>detalle"`
}

// Submission decodes the embedded document and lifts the identifying fields
// needed for keying, environment selection and validation.
func (r *RawDocumentInput) Submission() (Submission, error) {
	env, err := ParseEnvironment(r.Env)
	if err != nil {
		return Submission{}, NewValidationError("invalid submission", err.Error())
	}
	if strings.TrimSpace(r.XMLBase64) == "" {
		return Submission{}, NewValidationError("invalid submission", "xml_base64 is required")
	}
	doc, err := base64.StdEncoding.DecodeString(strings.TrimSpace(r.XMLBase64))
	if err != nil {
		return Submission{}, WrapValidationError(err, "xml_base64 is not valid base64")
	}

	var c rawComprobante
	if err := xml.NewDecoder(bytes.NewReader(doc)).Decode(&c); err != nil {
		return Submission{}, WrapValidationError(err, "xml_base64 is not a well formed document")
	}

	it := c.InfoTributaria
	sub := Submission{
		IdempotencyKey: r.IdempotencyKey,
		Env:            env,
		Certificate:    r.Certificate,
		RawXML:         doc,
		AccessKey:      strings.TrimSpace(it.ClaveAcceso),
		Format:         FormatRaw,
		Document: Document{
			Version: c.Version,
			InfoTributaria: &InfoTributaria{
				Ambiente:        it.Ambiente,
				TipoEmision:     it.TipoEmision,
				RazonSocial:     it.RazonSocial,
				NombreComercial: it.NombreComercial,
				Ruc:             it.Ruc,
				CodDoc:          it.CodDoc,
				Estab:           it.Estab,
				PtoEmi:          it.PtoEmi,
				Secuencial:      it.Secuencial,
				DirMatriz:       it.DirMatriz,
			},
		},
	}
	if f := c.InfoFactura; f != nil {
		sub.InfoFactura = &InfoFactura{
			FechaEmision:                f.FechaEmision,
			DirEstablecimiento:          f.DirEstablecimiento,
			TipoIdentificacionComprador: f.TipoIdentificacionComprador,
			RazonSocialComprador:        f.RazonSocialComprador,
			IdentificacionComprador:     f.IdentificacionComprador,
			TotalSinImpuestos:           f.TotalSinImpuestos,
			ImporteTotal:                f.ImporteTotal,
		}
	}
	for _, d := range c.Detalles {
		sub.Detalles = append(sub.Detalles, Detalle{
			CodigoPrincipal: d.CodigoPrincipal,
			Descripcion:     d.Descripcion,
			Cantidad:        d.Cantidad,
		})
	}

	if err := Validate(sub); err != nil {
		return Submission{}, err
	}
	return sub, nil
}
