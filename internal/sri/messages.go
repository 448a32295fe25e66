package sri

import "strings"

// Message is one entry of a mensajes list.
type Message struct {
	Identificador        string
	Mensaje              string
	InformacionAdicional string
	Tipo                 string
}

// String joins the non-empty identifier, message and additional information with ": ".
func (m Message) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{m.Identificador, m.Mensaje, m.InformacionAdicional} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ": ")
}

func messageFrom(m map[string]any) Message {
	return Message{
		Identificador:        scalar(m["identificador"]),
		Mensaje:              scalar(m["mensaje"]),
		InformacionAdicional: scalar(m["informacionAdicional"]),
		Tipo:                 scalar(m["tipo"]),
	}
}

// isMessage reports whether an object node is a message entry rather than a container.
func isMessage(m map[string]any) bool {
	if _, ok := m["identificador"]; ok {
		return true
	}
	_, scalarMensaje := m["mensaje"].(string)
	return scalarMensaje
}

// collectMessages walks the reply and returns every message entry found, in document order
// for lists and key order for objects.
func collectMessages(v any) []Message {
	var out []Message
	var walk func(any)
	walk = func(v any) {
		if l, ok := v.([]any); ok {
			for _, item := range l {
				walk(item)
			}
			return
		}
		m, ok := asMap(v)
		if !ok {
			return
		}
		if isMessage(m) {
			out = append(out, messageFrom(m))
			return
		}
		for _, k := range sortedKeys(m) {
			walk(m[k])
		}
	}
	walk(v)
	return out
}

// messageList returns the entries of a mensajes.mensaje node that may be a single object or a list.
func messageList(v any) []Message {
	var out []Message
	for _, item := range asList(v) {
		if m, ok := asMap(item); ok {
			out = append(out, messageFrom(m))
		}
	}
	return out
}
