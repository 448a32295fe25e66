package document

import (
	"fmt"
	"strings"

	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
)

// AccessKeyLength is the number of digits in an SRI clave de acceso.
const AccessKeyLength = 49

// AccessKeyFields are the components of an access key, in key order.
type AccessKeyFields struct {
	FechaEmision string // dd/mm/yyyy
	CodDoc       string
	Ruc          string
	Ambiente     string
	Estab        string
	PtoEmi       string
	Secuencial   string
	NumericCode  string
	TipoEmision  string
}

// BuildAccessKey assembles the 48 digit body from f and appends the modulo 11 check digit.
func BuildAccessKey(f AccessKeyFields) (string, error) {
	date := strings.Split(f.FechaEmision, "/")
	if len(date) != 3 {
		return "", invoice.NewValidationError("cannot build access key", "fechaEmision must be dd/mm/yyyy")
	}

	body := date[0] + date[1] + date[2] + f.CodDoc + f.Ruc + f.Ambiente + f.Estab + f.PtoEmi + f.Secuencial + f.NumericCode + f.TipoEmision
	if len(body) != AccessKeyLength-1 || !allDigits(body) {
		return "", invoice.NewValidationError("cannot build access key",
			fmt.Sprintf("access key body must be %d digits, got %q", AccessKeyLength-1, body))
	}
	return body + string(rune('0'+CheckDigit(body))), nil
}

// CheckDigit computes the modulo 11 check digit of digits, weighting from the
// rightmost digit with 2..7 repeating. A result of 11 maps to 0 and 10 to 1.
func CheckDigit(digits string) int {
	sum, weight := 0, 2
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	d := 11 - sum%11
	switch d {
	case 11:
		return 0
	case 10:
		return 1
	default:
		return d
	}
}

// ValidAccessKey reports whether key is 49 digits with a correct check digit.
func ValidAccessKey(key string) bool {
	if len(key) != AccessKeyLength || !allDigits(key) {
		return false
	}
	return CheckDigit(key[:AccessKeyLength-1]) == int(key[AccessKeyLength-1]-'0')
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
