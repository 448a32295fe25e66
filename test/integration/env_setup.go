//go:build integration

package integration

// Test environment setup and server lifecycle management.
//
// Each test starts sri-server in-process against the configured idempotency backend.
// The SRI reception/authorization services and the signing service are httptest stubs.

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/information-sharing-networks/sri-gateway/internal/config"
	"github.com/information-sharing-networks/sri-gateway/internal/logger"
	"github.com/information-sharing-networks/sri-gateway/internal/server"
	"github.com/information-sharing-networks/sri-gateway/internal/services"
)

const receivedReply = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
<RespuestaRecepcionComprobante><estado>RECIBIDA</estado><comprobantes/></RespuestaRecepcionComprobante>
</ns2:validarComprobanteResponse></soap:Body></soap:Envelope>`

const returnedReply = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<ns2:validarComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.recepcion">
<RespuestaRecepcionComprobante><estado>DEVUELTA</estado><comprobantes><comprobante>
<claveAcceso>0</claveAcceso>
<mensajes><mensaje><identificador>45</identificador><mensaje>CLAVE ACCESO INVALIDA</mensaje><tipo>ERROR</tipo></mensaje></mensajes>
</comprobante></comprobantes></RespuestaRecepcionComprobante>
</ns2:validarComprobanteResponse></soap:Body></soap:Envelope>`

const processingReply = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>
<ns2:autorizacionComprobanteResponse xmlns:ns2="http://ec.gob.sri.ws.autorizacion">
<RespuestaAutorizacionComprobante><numeroComprobantes>0</numeroComprobantes><autorizaciones/></RespuestaAutorizacionComprobante>
</ns2:autorizacionComprobanteResponse></soap:Body></soap:Envelope>`

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

// Reception behaviours of the SRI stub.
const (
	receptionReceived = iota
	receptionReturned
	receptionUnavailable
)

// Authorization behaviours of the SRI stub.
const (
	authorizationAuthorized = iota
	authorizationProcessing
)

// stubSRI serves both SRI services and counts the calls.
type stubSRI struct {
	reception      atomic.Int32
	authorization  atomic.Int32
	receptions     atomic.Int32
	authorizations atomic.Int32
}

func (s *stubSRI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml")
	if strings.HasPrefix(r.URL.Path, "/recepcion") {
		s.receptions.Add(1)
		switch s.reception.Load() {
		case receptionReturned:
			_, _ = w.Write([]byte(returnedReply))
		case receptionUnavailable:
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(receivedReply))
		}
		return
	}

	s.authorizations.Add(1)
	if s.authorization.Load() == authorizationProcessing {
		_, _ = w.Write([]byte(processingReply))
		return
	}
	_, _ = w.Write([]byte(authorizedReply))
}

func (s *stubSRI) calls() (int32, int32) {
	return s.receptions.Load(), s.authorizations.Load()
}

// signerStub wraps the document in a fake signature.
func signerStub(w http.ResponseWriter, r *http.Request) {
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

// testEnv provides access to a running server and its SRI stub.
type testEnv struct {
	baseURL  string
	sri      *stubSRI
	cfg      *config.ServerEnvironment
	services *services.Services
}

// startInProcessServer starts sri-server with the given extra environment variables
// (typically CACHE_BACKEND plus REDIS_URL or DATABASE_URL). sri may be shared between servers.
func startInProcessServer(t *testing.T, sri *stubSRI, extraEnv map[string]string) *testEnv {
	t.Helper()

	if sri == nil {
		sri = &stubSRI{}
	}
	sriServer := httptest.NewServer(sri)
	t.Cleanup(sriServer.Close)
	signerServer := httptest.NewServer(http.HandlerFunc(signerStub))
	t.Cleanup(signerServer.Close)

	port := findFreePort(t)
	logLevel := "none"
	if os.Getenv("ENABLE_SERVER_LOGS") == "true" {
		logLevel = "debug"
	}

	envVars := map[string]string{
		"HOST":                           "localhost",
		"PORT":                           fmt.Sprintf("%d", port),
		"ENVIRONMENT":                    "test",
		"LOG_LEVEL":                      logLevel,
		"RATE_LIMIT_RPS":                 "0",
		"STATUS_PROBE_BOTH_ENVIRONMENTS": "true",
		"SRI_RECEPCION_TEST":             sriServer.URL + "/recepcion?wsdl",
		"SRI_AUTORIZACION_TEST":          sriServer.URL + "/autorizacion?wsdl",
		"SRI_RECEPCION_PROD":             sriServer.URL + "/recepcion-prod?wsdl",
		"SRI_AUTORIZACION_PROD":          sriServer.URL + "/autorizacion-prod?wsdl",
		"SIGNER_URL":                     signerServer.URL,
	}
	for k, v := range extraEnv {
		envVars[k] = v
	}
	for k, v := range envVars {
		t.Setenv(k, v)
	}

	cfg, err := config.NewServerConfig()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())

	svcs, err := services.NewServices(ctx, cfg, appLogger)
	if err != nil {
		cancel()
		t.Fatalf("Failed to create services: %v", err)
	}
	serverInstance := server.NewServer(svcs, cfg, appLogger)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := serverInstance.Start(ctx); err != nil {
			serverDone <- err
		}
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-serverDone:
			if err != nil {
				t.Logf("server shutdown with error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Log("server shutdown timeout")
		}
		serverInstance.Shutdown()
	})

	env := &testEnv{
		baseURL:  fmt.Sprintf("http://localhost:%d", port),
		sri:      sri,
		cfg:      cfg,
		services: svcs,
	}
	if !waitForServer(t, env.baseURL+"/health/live", 30*time.Second) {
		t.Fatal("Server failed to start within timeout")
	}
	return env
}

func findFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.Port
}

func waitForServer(t *testing.T, url string, timeout time.Duration) bool {
	t.Helper()

	client := &http.Client{Timeout: 1 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
