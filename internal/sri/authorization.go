package sri

import (
	"regexp"
	"strings"

	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
)

// Authorization states.
const (
	StateAuthorized    = "AUTORIZADO"
	StateNotAuthorized = "NO AUTORIZADO"
	StatePending       = "PENDIENTE"
	StateUnknown       = "DESCONOCIDO"
)

const (
	pendingMessage         = "Sin autorización disponible (pendiente o no encontrado)."
	notAuthorizedNoMessage = "No autorizado sin mensaje específico"
)

var cdataPattern = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

// authorizationRootPaths locate the respuesta element, tried in order.
// When none matches the reply itself is treated as the respuesta.
var authorizationRootPaths = []fieldPath{
	// documented wrapper
	{"RespuestaAutorizacionComprobante"},
	// lower-case wrapper returned by some client stacks
	{"respuestaAutorizacionComprobante"},
}

// Authorization is the canonical form of an autorizacionComprobante reply.
type Authorization struct {
	State        string
	Number       string
	Date         string
	Document     string
	ErrorMessage string
}

// ParseAuthorization normalises an authorization reply.
//
// A reply with no autorizacion entry, or one declaring zero comprobantes, is PENDIENTE:
// a document SRI has not processed yet looks the same as one it does not know.
// Otherwise only the first entry is used.
func ParseAuthorization(r Reply) Authorization {
	root := r
	for _, p := range authorizationRootPaths {
		if sub, ok := r.sub(p...); ok {
			root = sub
			break
		}
	}

	entries, ok := root.Lookup("autorizaciones", "autorizacion")
	count := strings.TrimSpace(root.Text("numeroComprobantes"))
	if !ok || count == "0" {
		return Authorization{State: StatePending, ErrorMessage: pendingMessage}
	}

	list := asList(entries)
	if len(list) == 0 {
		return Authorization{State: StatePending, ErrorMessage: pendingMessage}
	}
	first, ok := asMap(list[0])
	if !ok {
		return Authorization{State: StatePending, ErrorMessage: pendingMessage}
	}
	entry := Reply(first)

	a := Authorization{
		State:  strings.ToUpper(strings.TrimSpace(entry.Text("estado"))),
		Number: strings.TrimSpace(entry.Text("numeroAutorizacion")),
		Date:   strings.TrimSpace(entry.Text("fechaAutorizacion")),
	}

	switch a.State {
	case StateAuthorized:
		a.Document = ExtractDocument(entry.Text("comprobante"))
	case StateNotAuthorized:
		a.ErrorMessage = notAuthorizedMessage(entry)
	default:
		a.State = StateUnknown
	}
	return a
}

// ExtractDocument returns the content of the first CDATA section in field,
// or the trimmed field when it has none.
func ExtractDocument(field string) string {
	if m := cdataPattern.FindStringSubmatch(field); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(field)
}

func notAuthorizedMessage(entry Reply) string {
	v, ok := entry.Lookup("mensajes")
	if !ok {
		return notAuthorizedNoMessage
	}
	var msgs []Message
	if m, isMap := asMap(v); isMap {
		msgs = messageList(m["mensaje"])
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if s := m.String(); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) == 0 {
		return notAuthorizedNoMessage
	}
	return strings.Join(lines, " | ")
}

// Status maps the authorization state to the caller visible status.
// PENDIENTE and DESCONOCIDO are reported as PROCESSING.
func (a Authorization) Status() invoice.Status {
	switch a.State {
	case StateAuthorized:
		return invoice.StatusAuthorized
	case StateNotAuthorized:
		return invoice.StatusNotAuthorized
	default:
		return invoice.StatusProcessing
	}
}

// Messages returns the caller visible diagnostic lines for a.
func (a Authorization) Messages() []string {
	if a.ErrorMessage == "" {
		return []string{}
	}
	return []string{a.ErrorMessage}
}
