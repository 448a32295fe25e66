// Package signer delegates XAdES-BES signing of comprobantes to an external signing service.
//
// The service contract is:
//
//	POST {baseURL}/sign
//	Request:  {"xml_base64": "...", "p12_base64": "...", "password": "..."}
//	Response: {"signed_xml_base64": "..."}
//
// 400 and 422 replies mean the certificate or password was rejected.
package signer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/information-sharing-networks/sri-gateway/internal/crypto"
)

// Signer signs an unsigned comprobante with PKCS#12 material.
type Signer interface {
	Sign(ctx context.Context, xml []byte, p12Base64, password string) ([]byte, error)
}

// RemoteSigner calls the signing service over HTTP.
type RemoteSigner struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteSigner creates a signer for the service at baseURL.
func NewRemoteSigner(baseURL string, timeout time.Duration) *RemoteSigner {
	return &RemoteSigner{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type signRequest struct {
	XMLBase64 string `json:"xml_base64"`
	P12Base64 string `json:"p12_base64"`
	Password  string `json:"password"`
}

type signResponse struct {
	SignedXMLBase64 string `json:"signed_xml_base64"`
	Error           string `json:"error,omitempty"`
}

// Sign returns the signed document.
// Rejections of the certificate are certificate errors, everything else is an internal error.
func (s *RemoteSigner) Sign(ctx context.Context, xml []byte, p12Base64, password string) ([]byte, error) {
	body, err := json.Marshal(signRequest{
		XMLBase64: base64.StdEncoding.EncodeToString(xml),
		P12Base64: p12Base64,
		Password:  password,
	})
	if err != nil {
		return nil, crypto.WrapInternalError(err, "failed to encode signing request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sign", bytes.NewReader(body))
	if err != nil {
		return nil, crypto.WrapInternalError(err, "failed to create signing request")
	}
	req.Header.Set("Content-Type", "application/json")

	// #nosec G704 -- baseURL is from server config
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, crypto.WrapInternalError(err, "failed to call signing service")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, crypto.WrapInternalError(err, "failed to read signing response")
	}

	var sr signResponse
	_ = json.Unmarshal(respBody, &sr)

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, crypto.NewCertificateError(fmt.Sprintf("signing service rejected the certificate: %s", errorText(sr, respBody)))
	case resp.StatusCode != http.StatusOK:
		return nil, crypto.NewInternalError(fmt.Sprintf("signing service returned status %d: %s", resp.StatusCode, errorText(sr, respBody)))
	}

	if sr.SignedXMLBase64 == "" {
		return nil, crypto.NewInternalError("signing service response has no signed_xml_base64")
	}
	signed, err := base64.StdEncoding.DecodeString(sr.SignedXMLBase64)
	if err != nil {
		return nil, crypto.WrapInternalError(err, "signing service returned invalid base64")
	}
	return signed, nil
}

func errorText(sr signResponse, body []byte) string {
	if sr.Error != "" {
		return sr.Error
	}
	return strings.TrimSpace(string(body))
}
