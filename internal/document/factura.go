package document

import "encoding/xml"

// element order follows the factura v2.1.0 XSD

type facturaXML struct {
	XMLName        xml.Name          `xml:"factura"`
	ID             string            `xml:"id,attr"`
	Version        string            `xml:"version,attr"`
	InfoTributaria infoTributariaXML `xml:"infoTributaria"`
	InfoFactura    infoFacturaXML    `xml:"infoFactura"`
	Detalles       []detalleXML      `xml:"detalles>detalle"`
	InfoAdicional  *infoAdicionalXML `xml:"infoAdicional,omitempty"`
}

type infoTributariaXML struct {
	Ambiente           string `xml:"ambiente"`
	TipoEmision        string `xml:"tipoEmision"`
	RazonSocial        string `xml:"razonSocial"`
	NombreComercial    string `xml:"nombreComercial,omitempty"`
	Ruc                string `xml:"ruc"`
	ClaveAcceso        string `xml:"claveAcceso"`
	CodDoc             string `xml:"codDoc"`
	Estab              string `xml:"estab"`
	PtoEmi             string `xml:"ptoEmi"`
	Secuencial         string `xml:"secuencial"`
	DirMatriz          string `xml:"dirMatriz"`
	ContribuyenteRimpe string `xml:"contribuyenteRimpe,omitempty"`
}

type totalImpuestoXML struct {
	Codigo           string `xml:"codigo"`
	CodigoPorcentaje string `xml:"codigoPorcentaje"`
	BaseImponible    string `xml:"baseImponible"`
	Tarifa           string `xml:"tarifa,omitempty"`
	Valor            string `xml:"valor"`
}

type pagoXML struct {
	FormaPago    string `xml:"formaPago"`
	Total        string `xml:"total"`
	Plazo        string `xml:"plazo,omitempty"`
	UnidadTiempo string `xml:"unidadTiempo,omitempty"`
}

type infoFacturaXML struct {
	FechaEmision                string             `xml:"fechaEmision"`
	DirEstablecimiento          string             `xml:"dirEstablecimiento,omitempty"`
	ObligadoContabilidad        string             `xml:"obligadoContabilidad,omitempty"`
	TipoIdentificacionComprador string             `xml:"tipoIdentificacionComprador"`
	RazonSocialComprador        string             `xml:"razonSocialComprador"`
	IdentificacionComprador     string             `xml:"identificacionComprador"`
	DireccionComprador          string             `xml:"direccionComprador,omitempty"`
	TotalSinImpuestos           string             `xml:"totalSinImpuestos"`
	TotalDescuento              string             `xml:"totalDescuento"`
	TotalConImpuestos           []totalImpuestoXML `xml:"totalConImpuestos>totalImpuesto"`
	Propina                     string             `xml:"propina"`
	ImporteTotal                string             `xml:"importeTotal"`
	Moneda                      string             `xml:"moneda,omitempty"`
	Pagos                       []pagoXML          `xml:"pagos>pago"`
}

type impuestoXML struct {
	Codigo           string `xml:"codigo"`
	CodigoPorcentaje string `xml:"codigoPorcentaje"`
	Tarifa           string `xml:"tarifa"`
	BaseImponible    string `xml:"baseImponible"`
	Valor            string `xml:"valor"`
}

type detalleXML struct {
	CodigoPrincipal        string        `xml:"codigoPrincipal"`
	Descripcion            string        `xml:"descripcion"`
	Cantidad               string        `xml:"cantidad"`
	PrecioUnitario         string        `xml:"precioUnitario"`
	Descuento              string        `xml:"descuento"`
	PrecioTotalSinImpuesto string        `xml:"precioTotalSinImpuesto"`
	Impuestos              []impuestoXML `xml:"impuestos>impuesto"`
}

type campoXML struct {
	Nombre string `xml:"nombre,attr"`
	Valor  string `xml:",chardata"`
}

type infoAdicionalXML struct {
	Campos []campoXML `xml:"campoAdicional"`
}
