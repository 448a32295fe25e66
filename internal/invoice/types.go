package invoice

import "fmt"

// DefaultVersion is the factura schema version used when the caller does not send one.
const DefaultVersion = "2.1.0"

// Environment is the SRI environment a document is submitted to.
type Environment string

const (
	EnvTest Environment = "test"
	EnvProd Environment = "prod"
)

// ParseEnvironment accepts "test", "prod" or an empty string (unspecified).
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case "":
		return "", nil
	case EnvTest, EnvProd:
		return Environment(s), nil
	default:
		return "", fmt.Errorf("env must be test or prod, got %q", s)
	}
}

// Certificate references the PKCS#12 signing material.
// Exactly one source is used: inline material takes precedence over the URL,
// and the URL over the filesystem path.
type Certificate struct {
	P12Base64 string `json:"p12_base64,omitempty"`
	P12URL    string `json:"p12_url,omitempty"`
	P12Path   string `json:"p12_path,omitempty"`
	Password  string `json:"password"`
}

// HasSource reports whether at least one certificate source is set.
func (c *Certificate) HasSource() bool {
	return c != nil && (c.P12Base64 != "" || c.P12URL != "" || c.P12Path != "")
}

// InfoTributaria identifies the issuer and the document sequence.
type InfoTributaria struct {
	Ambiente             string `json:"ambiente"`
	TipoEmision          string `json:"tipoEmision"`
	RazonSocial          string `json:"razonSocial"`
	NombreComercial      string `json:"nombreComercial,omitempty"`
	Ruc                  string `json:"ruc"`
	CodDoc               string `json:"codDoc,omitempty"`
	Estab                string `json:"estab"`
	PtoEmi               string `json:"ptoEmi"`
	Secuencial           string `json:"secuencial"`
	DirMatriz            string `json:"dirMatriz"`
	ContribuyenteRimpe   string `json:"contribuyenteRimpe,omitempty"`
	ObligadoContabilidad string `json:"obligadoContabilidad,omitempty"`
}

// TotalImpuesto is one entry of infoFactura.totalConImpuestos.
type TotalImpuesto struct {
	Codigo           string  `json:"codigo"`
	CodigoPorcentaje string  `json:"codigoPorcentaje"`
	BaseImponible    float64 `json:"baseImponible"`
	Valor            float64 `json:"valor"`
	Tarifa           float64 `json:"tarifa,omitempty"`
}

// Pago is one payment method of the invoice.
type Pago struct {
	FormaPago    string  `json:"formaPago"`
	Total        float64 `json:"total"`
	Plazo        string  `json:"plazo,omitempty"`
	UnidadTiempo string  `json:"unidadTiempo,omitempty"`
}

// InfoFactura carries the buyer and the invoice totals.
type InfoFactura struct {
	FechaEmision                string          `json:"fechaEmision"`
	DirEstablecimiento          string          `json:"dirEstablecimiento"`
	ObligadoContabilidad        string          `json:"obligadoContabilidad,omitempty"`
	TipoIdentificacionComprador string          `json:"tipoIdentificacionComprador"`
	RazonSocialComprador        string          `json:"razonSocialComprador"`
	IdentificacionComprador     string          `json:"identificacionComprador"`
	DireccionComprador          string          `json:"direccionComprador,omitempty"`
	TotalSinImpuestos           float64         `json:"totalSinImpuestos"`
	TotalDescuento              float64         `json:"totalDescuento"`
	TotalConImpuestos           []TotalImpuesto `json:"totalConImpuestos"`
	Propina                     float64         `json:"propina,omitempty"`
	ImporteTotal                float64         `json:"importeTotal"`
	Moneda                      string          `json:"moneda,omitempty"`
	Pagos                       []Pago          `json:"pagos"`
}

// Impuesto is a tax applied to one line item.
type Impuesto struct {
	Codigo           string  `json:"codigo"`
	CodigoPorcentaje string  `json:"codigoPorcentaje"`
	Tarifa           float64 `json:"tarifa,omitempty"`
	BaseImponible    float64 `json:"baseImponible,omitempty"`
	Valor            float64 `json:"valor,omitempty"`
}

// Detalle is one line item.
type Detalle struct {
	CodigoPrincipal        string     `json:"codigoPrincipal"`
	Descripcion            string     `json:"descripcion"`
	Cantidad               float64    `json:"cantidad"`
	PrecioUnitario         float64    `json:"precioUnitario"`
	Descuento              float64    `json:"descuento,omitempty"`
	PrecioTotalSinImpuesto float64    `json:"precioTotalSinImpuesto"`
	Impuestos              []Impuesto `json:"impuestos"`
}

// CampoAdicional is a free-form name/value pair printed on the invoice.
type CampoAdicional struct {
	Nombre string `json:"nombre"`
	Valor  string `json:"valor"`
}

type InfoAdicional struct {
	Campos []CampoAdicional `json:"campos"`
}

// Document is the business content of a factura.
// Pointer sections are nil when the caller omitted them.
type Document struct {
	Version        string          `json:"version,omitempty"`
	InfoTributaria *InfoTributaria `json:"infoTributaria,omitempty"`
	InfoFactura    *InfoFactura    `json:"infoFactura,omitempty"`
	Detalles       []Detalle       `json:"detalles,omitempty"`
	InfoAdicional  *InfoAdicional  `json:"infoAdicional,omitempty"`
}

// Submission is the single internal representation of an emit request,
// whichever input variant it arrived as.
type Submission struct {
	// IdempotencyKey is the caller supplied key (optional, see DeriveKey)
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// Env is the target environment; empty means infer from infoTributaria.ambiente
	Env Environment `json:"env,omitempty"`

	// NumericCode is the optional caller supplied 8 digit code
	NumericCode string `json:"numeric_code,omitempty"`

	Certificate *Certificate `json:"certificate,omitempty"`

	Document

	// RawXML is the caller supplied unsigned comprobante (raw document variant only).
	// When set, document generation is skipped.
	RawXML []byte `json:"raw_xml,omitempty"`

	// AccessKey is read from RawXML (raw document variant only)
	AccessKey string `json:"access_key,omitempty"`

	// Format records the input variant, it is not part of the content
	Format Format `json:"-"`
}

// IsRaw reports whether the submission carries a pre-built document.
func (s *Submission) IsRaw() bool {
	return len(s.RawXML) > 0
}
