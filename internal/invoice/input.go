package invoice

import (
	"encoding/json"
	"fmt"
)

// Format names the input variant of an emit request.
type Format string

const (
	FormatCanonical Format = "canonical"
	FormatLegacy    Format = "legacy"
	FormatRaw       Format = "raw"
)

// Input is one of the accepted request shapes.
type Input interface {
	// Format returns the variant name
	Format() Format

	// Submission validates the input and converts it to a Submission
	Submission() (Submission, error)
}

// DecodeInput selects the input variant and decodes body into it.
//
// An explicit "format" member wins. Otherwise the shape decides: xml_base64 means a
// raw document, company/invoice means the legacy shape and anything else is canonical.
func DecodeInput(body []byte) (Input, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, WrapMalformedError(err, "request body must be a JSON object")
	}

	format, err := detectFormat(probe)
	if err != nil {
		return nil, err
	}

	var in Input
	switch format {
	case FormatRaw:
		in = &RawDocumentInput{}
	case FormatLegacy:
		in = &LegacyInput{}
	default:
		in = &CanonicalInput{}
	}
	if err := json.Unmarshal(body, in); err != nil {
		return nil, WrapMalformedError(err, fmt.Sprintf("invalid %s request body", format))
	}
	return in, nil
}

func detectFormat(probe map[string]json.RawMessage) (Format, error) {
	if raw, ok := probe["format"]; ok {
		var f string
		if err := json.Unmarshal(raw, &f); err != nil {
			return "", WrapMalformedError(err, "format must be a string")
		}
		switch Format(f) {
		case FormatCanonical, FormatLegacy, FormatRaw:
			return Format(f), nil
		default:
			return "", NewValidationError("unsupported format", fmt.Sprintf("format must be canonical, legacy or raw, got %q", f))
		}
	}
	if _, ok := probe["xml_base64"]; ok {
		return FormatRaw, nil
	}
	_, hasCompany := probe["company"]
	_, hasInvoice := probe["invoice"]
	if hasCompany || hasInvoice {
		return FormatLegacy, nil
	}
	return FormatCanonical, nil
}

// CanonicalInput mirrors the authority's factura structure.
type CanonicalInput struct {
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Env            string          `json:"env,omitempty"`
	NumericCode    string          `json:"numeric_code,omitempty"`
	Version        string          `json:"version,omitempty"`
	Certificate    *Certificate    `json:"certificate"`
	InfoTributaria *InfoTributaria `json:"infoTributaria"`
	InfoFactura    *InfoFactura    `json:"infoFactura"`
	Detalles       []Detalle       `json:"detalles"`
	InfoAdicional  *InfoAdicional  `json:"infoAdicional,omitempty"`
}

func (c *CanonicalInput) Format() Format { return FormatCanonical }

func (c *CanonicalInput) Submission() (Submission, error) {
	env, err := ParseEnvironment(c.Env)
	if err != nil {
		return Submission{}, NewValidationError("invalid submission", err.Error())
	}
	version := c.Version
	if version == "" {
		version = DefaultVersion
	}
	sub := Submission{
		IdempotencyKey: c.IdempotencyKey,
		Env:            env,
		NumericCode:    c.NumericCode,
		Certificate:    c.Certificate,
		Document: Document{
			Version:        version,
			InfoTributaria: c.InfoTributaria,
			InfoFactura:    c.InfoFactura,
			Detalles:       c.Detalles,
			InfoAdicional:  c.InfoAdicional,
		},
		Format: FormatCanonical,
	}
	if sub.InfoTributaria != nil && sub.InfoTributaria.CodDoc == "" {
		sub.InfoTributaria.CodDoc = CodDocFactura
	}
	if err := Validate(sub); err != nil {
		return Submission{}, err
	}
	return sub, nil
}
