package sri

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const receptionSOAPReply = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
      <RespuestaRecepcionComprobante>
        <estado>DEVUELTA</estado>
        <comprobantes>
          <comprobante>
            <claveAcceso>123</claveAcceso>
            <mensajes>
              <mensaje><identificador>45</identificador><mensaje>CLAVE ACCESO INVALIDA</mensaje><tipo>ERROR</tipo></mensaje>
            </mensajes>
          </comprobante>
        </comprobantes>
      </RespuestaRecepcionComprobante>
    </ns2:validarComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

const authorizationSOAPReply = `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
      <RespuestaAutorizacionComprobante>
        <claveAccesoConsultada>KEY</claveAccesoConsultada>
        <numeroComprobantes>1</numeroComprobantes>
        <autorizaciones>
          <autorizacion>
            <estado>AUTORIZADO</estado>
            <numeroAutorizacion>KEY</numeroAutorizacion>
            <fechaAutorizacion>2025-03-15T10:00:00-05:00</fechaAutorizacion>
            <ambiente>PRUEBAS</ambiente>
            <comprobante><![CDATA[<factura id="comprobante"/>]]></comprobante>
          </autorizacion>
        </autorizaciones>
      </RespuestaAutorizacionComprobante>
    </ns2:autorizacionComprobanteResponse>
  </soap:Body>
</soap:Envelope>`

const faultSOAPReply = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<soap:Fault><faultcode>soap:Server</faultcode><faultstring>Internal Error</faultstring></soap:Fault>
</soap:Body></soap:Envelope>`

func TestSOAPClientSubmit(t *testing.T) {
	var gotBody, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody, gotQuery = string(b), r.URL.RawQuery
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(receptionSOAPReply))
	}))
	defer srv.Close()

	c := NewSOAPClient(5 * time.Second)
	reply, err := c.Submit(context.Background(), srv.URL+"/RecepcionComprobantesOffline?wsdl", []byte("<factura/>"))
	require.NoError(t, err)

	assert.Empty(t, gotQuery)
	assert.Contains(t, gotBody, `<ec:validarComprobante><xml>`+base64.StdEncoding.EncodeToString([]byte("<factura/>"))+`</xml>`)
	assert.Contains(t, gotBody, `xmlns:ec="http://ec.gob.sri.ws.recepcion"`)

	rc := InterpretReception(reply)
	assert.Equal(t, "DEVUELTA", rc.State)
	assert.Equal(t, []string{"Estado recepción: DEVUELTA", "45: CLAVE ACCESO INVALIDA"}, rc.DiagnosticLines(reply))
}

func TestSOAPClientCheckAuthorization(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(authorizationSOAPReply))
	}))
	defer srv.Close()

	reply, err := NewSOAPClient(5*time.Second).CheckAuthorization(context.Background(), srv.URL, "KEY")
	require.NoError(t, err)
	assert.Contains(t, gotBody, "<claveAccesoComprobante>KEY</claveAccesoComprobante>")

	a := ParseAuthorization(reply)
	assert.Equal(t, StateAuthorized, a.State)
	assert.Equal(t, `<factura id="comprobante"/>`, a.Document)
	assert.Equal(t, "2025-03-15T10:00:00-05:00", a.Date)
}

func TestSOAPClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"fault", http.StatusInternalServerError, faultSOAPReply, "SOAP fault: Internal Error"},
		{"bad status", http.StatusServiceUnavailable, "unavailable", "status 503"},
		{"not xml", http.StatusOK, "not xml", "failed to decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewSOAPClient(5*time.Second).CheckAuthorization(context.Background(), srv.URL, "KEY")
			var sriErr *SriError
			require.True(t, errors.As(err, &sriErr))
			assert.Equal(t, ErrCodeTransport, sriErr.Code())
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestDecodeXMLRepeatedElements(t *testing.T) {
	tree, err := DecodeXML(strings.NewReader(`<a><b>1</b><b>2</b><c><d> x </d></c><e/></a>`))
	require.NoError(t, err)

	a, ok := tree.sub("a")
	require.True(t, ok)
	assert.Equal(t, []any{"1", "2"}, a["b"])
	assert.Equal(t, "x", tree.Text("a", "c", "d"))
	assert.Equal(t, "", a["e"])
	assert.Equal(t, "1", tree.Text("a", "b"))
}
