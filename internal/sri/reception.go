package sri

import (
	"encoding/json"
	"strings"
)

// ReceptionReceived is the only estado that accepts a submission.
const ReceptionReceived = "RECIBIDA"

// receptionStatePaths are the known locations of the reception estado, tried in order.
var receptionStatePaths = []fieldPath{
	// lower-case wrapper returned by some client stacks
	{"respuestaRecepcionComprobante", "estado"},
	// documented RespuestaRecepcionComprobante wrapper
	{"RespuestaRecepcionComprobante", "estado"},
	// estado only present on the individual comprobante
	{"RespuestaRecepcionComprobante", "comprobantes", "comprobante", "estado"},
	// reply already unwrapped to the respuesta element
	{"estado"},
}

// Reception is the interpretation of a validarComprobante reply.
type Reception struct {
	// State is the upper-cased estado, "" when absent
	State string

	// Messages are the message entries found anywhere in the reply
	Messages []Message
}

// InterpretReception reads the estado and the diagnostic messages of a reception reply.
func InterpretReception(r Reply) Reception {
	return Reception{
		State:    strings.ToUpper(r.firstString(receptionStatePaths)),
		Messages: collectMessages(r),
	}
}

// Received reports whether the estado is RECIBIDA. Any other value,
// including DEVUELTA for an access key already registered or an absent estado,
// is a rejection.
func (rc Reception) Received() bool {
	return rc.State == ReceptionReceived
}

// DiagnosticLines renders a rejected reply for the caller.
// An "Estado recepción: <estado>" line comes first when the estado is present.
// When no message entries exist the raw reply is returned as JSON.
func (rc Reception) DiagnosticLines(raw Reply) []string {
	lines := make([]string, 0, len(rc.Messages)+1)
	if rc.State != "" && rc.State != ReceptionReceived {
		lines = append(lines, "Estado recepción: "+rc.State)
	}
	for _, m := range rc.Messages {
		if s := m.String(); s != "" {
			lines = append(lines, s)
		}
	}
	if len(rc.Messages) == 0 {
		if data, err := json.Marshal(raw); err == nil {
			lines = append(lines, string(data))
		}
	}
	return lines
}
