package invoice

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	rucPattern      = regexp.MustCompile(`^\d{13}$`)
	threeDigits     = regexp.MustCompile(`^\d{3}$`)
	nineDigits      = regexp.MustCompile(`^\d{9}$`)
	sriDatePattern  = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	isoDatePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	ambientePattern = regexp.MustCompile(`^[12]$`)
)

// issues collects field problems so a caller sees all of them at once.
type issues []string

func (is *issues) addf(format string, args ...any) {
	*is = append(*is, fmt.Sprintf(format, args...))
}

func (is *issues) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		is.addf("%s is required", field)
	}
}

func (is *issues) match(field, value string, re *regexp.Regexp, want string) {
	if !re.MatchString(value) {
		is.addf("%s must be %s", field, want)
	}
}

func (is issues) err() error {
	if len(is) == 0 {
		return nil
	}
	return NewValidationError("invalid submission", is...)
}

// Validate checks that a submission has every required section and that the
// identifying fields are well formed.
func Validate(sub Submission) error {
	var is issues

	if sub.Env != "" && sub.Env != EnvTest && sub.Env != EnvProd {
		is.addf("env must be test or prod")
	}
	if k := sub.IdempotencyKey; k != "" && len(strings.TrimSpace(k)) < MinIdempotencyKeyLength {
		is.addf("idempotency_key must be at least %d characters", MinIdempotencyKeyLength)
	}
	if sub.NumericCode != "" && !numericCodePattern.MatchString(sub.NumericCode) {
		is.addf("numeric_code must be 8 digits")
	}

	switch {
	case sub.Certificate == nil:
		is.addf("certificate is required")
	case !sub.Certificate.HasSource():
		is.addf("certificate requires one of p12_base64, p12_url or p12_path")
	}

	if sub.IsRaw() {
		if !accessKeyPattern.MatchString(sub.AccessKey) {
			is.addf("document claveAcceso must be 49 digits")
		}
	}

	validateInfoTributaria(&is, sub.InfoTributaria)
	validateInfoFactura(&is, sub.InfoFactura, sub.IsRaw())

	if len(sub.Detalles) == 0 {
		is.addf("detalles must contain at least one item")
	}
	for i, d := range sub.Detalles {
		is.required(fmt.Sprintf("detalles[%d].descripcion", i), d.Descripcion)
		if !sub.IsRaw() && d.Cantidad <= 0 {
			is.addf("detalles[%d].cantidad must be positive", i)
		}
	}

	return is.err()
}

func validateInfoTributaria(is *issues, it *InfoTributaria) {
	if it == nil {
		is.addf("infoTributaria is required")
		return
	}
	is.match("infoTributaria.ruc", it.Ruc, rucPattern, "13 digits")
	is.match("infoTributaria.estab", it.Estab, threeDigits, "3 digits")
	is.match("infoTributaria.ptoEmi", it.PtoEmi, threeDigits, "3 digits")
	is.match("infoTributaria.secuencial", it.Secuencial, nineDigits, "9 digits")
	is.match("infoTributaria.ambiente", it.Ambiente, ambientePattern, "1 or 2")
	is.required("infoTributaria.tipoEmision", it.TipoEmision)
	is.required("infoTributaria.razonSocial", it.RazonSocial)
	is.required("infoTributaria.dirMatriz", it.DirMatriz)
}

func validateInfoFactura(is *issues, inf *InfoFactura, raw bool) {
	if inf == nil {
		is.addf("infoFactura is required")
		return
	}
	is.match("infoFactura.fechaEmision", inf.FechaEmision, sriDatePattern, "dd/mm/yyyy")
	is.required("infoFactura.razonSocialComprador", inf.RazonSocialComprador)
	is.required("infoFactura.identificacionComprador", inf.IdentificacionComprador)
	is.required("infoFactura.tipoIdentificacionComprador", inf.TipoIdentificacionComprador)
	if raw {
		return
	}
	is.required("infoFactura.dirEstablecimiento", inf.DirEstablecimiento)
	if len(inf.Pagos) == 0 {
		is.addf("infoFactura.pagos must contain at least one payment")
	}
}
