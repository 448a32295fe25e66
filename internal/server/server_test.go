package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/information-sharing-networks/sri-gateway/internal/config"
	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
	"github.com/information-sharing-networks/sri-gateway/internal/services"
)

const receivedReply = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
<RespuestaRecepcionComprobante><estado>RECIBIDA</estado><comprobantes/></RespuestaRecepcionComprobante>
</ns2:validarComprobanteResponse></soap:Body></soap:Envelope>`

const authorizedReply = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
<RespuestaAutorizacionComprobante>
<numeroComprobantes>1</numeroComprobantes>
<autorizaciones><autorizacion>
<estado>AUTORIZADO</estado>
<numeroAutorizacion>0001</numeroAutorizacion>
<fechaAutorizacion>2025-03-15T10:00:00-05:00</fechaAutorizacion>
<comprobante><![CDATA[<factura id="comprobante"/>]]></comprobante>
</autorizacion></autorizaciones>
</RespuestaAutorizacionComprobante>
</ns2:autorizacionComprobanteResponse></soap:Body></soap:Envelope>`

// stubSRI answers reception and authorization calls and counts them.
type stubSRI struct {
	receptions     atomic.Int32
	authorizations atomic.Int32
}

func (s *stubSRI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml")
	switch {
	case strings.HasPrefix(r.URL.Path, "/recepcion"):
		s.receptions.Add(1)
		_, _ = w.Write([]byte(receivedReply))
	default:
		s.authorizations.Add(1)
		_, _ = w.Write([]byte(authorizedReply))
	}
}

func stubSigner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		XMLBase64 string `json:"xml_base64"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	xml, _ := base64.StdEncoding.DecodeString(req.XMLBase64)
	signed := strings.Replace(string(xml), "</factura>", "<ds:Signature/></factura>", 1)
	_ = json.NewEncoder(w).Encode(map[string]string{"signed_xml_base64": base64.StdEncoding.EncodeToString([]byte(signed))})
}

func newTestServer(t *testing.T) (*httptest.Server, *stubSRI) {
	t.Helper()

	sri := &stubSRI{}
	sriServer := httptest.NewServer(sri)
	t.Cleanup(sriServer.Close)
	signerServer := httptest.NewServer(http.HandlerFunc(stubSigner))
	t.Cleanup(signerServer.Close)

	cfg := &config.ServerEnvironment{
		Environment:                 "test",
		RequestTimeout:              10 * time.Second,
		MaxRequestBodyBytes:         1 << 20,
		CacheBackend:                config.CacheBackendMemory,
		CacheProbeTimeout:           time.Second,
		CacheSweepInterval:          time.Hour,
		CacheMaxAge:                 24 * time.Hour,
		CacheTTLError:               time.Hour,
		CacheTTLProcessing:          2 * time.Minute,
		CacheTTLFinal:               24 * time.Hour,
		KeyConflictPolicy:           config.KeyConflictPolicyResubmit,
		StatusProbeBothEnvironments: false,
		SRIRecepcionTest:            sriServer.URL + "/recepcion?wsdl",
		SRIAutorizacionTest:         sriServer.URL + "/autorizacion?wsdl",
		SRIRequestTimeout:           5 * time.Second,
		SignerURL:                   signerServer.URL,
		SignerTimeout:               5 * time.Second,
		CertificateFetchTimeout:     5 * time.Second,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svcs, err := services.NewServices(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("failed to create services: %v", err)
	}
	t.Cleanup(svcs.Close)

	srv := httptest.NewServer(NewServer(svcs, cfg, log).Handler())
	t.Cleanup(srv.Close)
	return srv, sri
}

func postEmit(t *testing.T, url string, body []byte) (int, []byte) {
	t.Helper()
	resp, err := http.Post(url+"/api/v1/invoices/emit", "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("emit request failed: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	return resp.StatusCode, data
}

func TestEmitIsIdempotent(t *testing.T) {
	srv, sri := newTestServer(t)

	payload, err := os.ReadFile("../invoice/testdata/canonical.json")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	code, first := postEmit(t, srv.URL, payload)
	if code != http.StatusOK {
		t.Fatalf("got status %d: %s", code, first)
	}

	var res invoice.Result
	if err := json.Unmarshal(first, &res); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if res.Status != invoice.StatusAuthorized {
		t.Fatalf("got status %s, messages %v", res.Status, res.Messages)
	}
	if res.Authorization == nil || res.Authorization.Number != "0001" {
		t.Errorf("unexpected authorization %+v", res.Authorization)
	}
	if !strings.Contains(string(res.SignedDocument), "<ds:Signature/>") {
		t.Error("signed document not returned")
	}
	if string(res.AuthorizedDocument) != `<factura id="comprobante"/>` {
		t.Errorf("got authorized document %q", res.AuthorizedDocument)
	}

	code, second := postEmit(t, srv.URL, payload)
	if code != http.StatusOK {
		t.Fatalf("got status %d on replay", code)
	}
	if string(first) != string(second) {
		t.Errorf("replay differs:\nfirst:  %s\nsecond: %s", first, second)
	}
	if got := sri.receptions.Load(); got != 1 {
		t.Errorf("got %d reception calls, want 1", got)
	}
	if got := sri.authorizations.Load(); got != 1 {
		t.Errorf("got %d authorization calls, want 1", got)
	}

	resp, err := http.Get(srv.URL + "/api/v1/invoices/" + res.AccessKey + "/status")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	defer resp.Body.Close()
	var status invoice.Result
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status.Status != invoice.StatusAuthorized || status.Environment != invoice.EnvTest {
		t.Errorf("unexpected status %+v", status)
	}
	if got := sri.authorizations.Load(); got != 2 {
		t.Errorf("status must query SRI: got %d authorization calls, want 2", got)
	}
}

func TestInfrastructureRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/health/live", http.StatusOK, "OK"},
		{"/health/ready", http.StatusOK, `"backend":"memory"`},
		{"/version", http.StatusOK, `"service":"sri-server"`},
		{"/api/v1/config", http.StatusOK, `"test":{"reception":true,"authorization":true}`},
		{"/api/v1/invoices/123/status", http.StatusBadRequest, `"status":"ERROR"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantCode {
				t.Fatalf("got status %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("body %s does not contain %s", body, tt.contains)
			}
			if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
				t.Error("security headers not applied")
			}
		})
	}
}
