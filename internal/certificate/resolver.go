// Package certificate resolves the PKCS#12 signing material referenced by a submission.
//
// Sources are tried in order of precedence: inline base64 material, then a URL,
// then a filesystem path. Only the first source that is set is used.
// Material fetched from a URL or read from a path is cached in-process by source.
package certificate

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/information-sharing-networks/sri-gateway/internal/crypto"
	"github.com/information-sharing-networks/sri-gateway/internal/invoice"
	"github.com/information-sharing-networks/sri-gateway/internal/logger"
)

// maxCertificateBytes caps downloaded and file based certificates
const maxCertificateBytes = 1 << 20

// Resolver turns an invoice.Certificate into base64 PKCS#12 material.
type Resolver struct {
	httpClient *http.Client
	verify     bool

	mu    sync.RWMutex
	cache map[string]string
}

// NewResolver creates a resolver. When verify is set the resolved material is opened
// with the supplied password before it is handed to the signer.
func NewResolver(fetchTimeout time.Duration, verify bool) *Resolver {
	return &Resolver{
		httpClient: &http.Client{Timeout: fetchTimeout},
		verify:     verify,
		cache:      make(map[string]string),
	}
}

// Resolve returns the base64 encoded PKCS#12 material for cert.
// All failures are certificate errors.
func (r *Resolver) Resolve(ctx context.Context, cert *invoice.Certificate) (string, error) {
	if !cert.HasSource() {
		return "", crypto.NewCertificateError("no certificate source provided")
	}

	material, err := r.resolve(ctx, cert)
	if err != nil {
		return "", err
	}

	if r.verify {
		if err := crypto.VerifyPKCS12(material, cert.Password); err != nil {
			return "", err
		}
	}
	return material, nil
}

func (r *Resolver) resolve(ctx context.Context, cert *invoice.Certificate) (string, error) {
	switch {
	case cert.P12Base64 != "":
		material := strings.TrimSpace(cert.P12Base64)
		if _, err := base64.StdEncoding.DecodeString(material); err != nil {
			return "", crypto.WrapCertificateError(err, "p12_base64 is not valid base64")
		}
		return material, nil

	case cert.P12URL != "":
		return r.cached("url:"+cert.P12URL, func() ([]byte, error) {
			return r.fetch(ctx, cert.P12URL)
		})

	default:
		return r.cached("path:"+cert.P12Path, func() ([]byte, error) {
			return readFile(cert.P12Path)
		})
	}
}

func (r *Resolver) cached(source string, load func() ([]byte, error)) (string, error) {
	r.mu.RLock()
	material, ok := r.cache[source]
	r.mu.RUnlock()
	if ok {
		return material, nil
	}

	raw, err := load()
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", crypto.NewCertificateError("certificate source is empty")
	}
	material = base64.StdEncoding.EncodeToString(raw)

	r.mu.Lock()
	r.cache[source] = material
	r.mu.Unlock()
	return material, nil
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, crypto.WrapCertificateError(err, "invalid p12_url")
	}

	// #nosec G704 -- the URL is caller supplied by design; the response is size limited
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, crypto.WrapCertificateError(err, "failed to fetch certificate")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, crypto.NewCertificateError(fmt.Sprintf("certificate download returned status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxCertificateBytes+1))
	if err != nil {
		return nil, crypto.WrapCertificateError(err, "failed to read certificate")
	}
	if len(raw) > maxCertificateBytes {
		return nil, crypto.NewCertificateError("certificate exceeds maximum size")
	}

	logger.ContextRequestLogger(ctx).Debug("certificate fetched", slog.Int("bytes", len(raw)))
	return raw, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, crypto.WrapCertificateError(err, "failed to read certificate file")
	}
	if info.Size() > maxCertificateBytes {
		return nil, crypto.NewCertificateError("certificate exceeds maximum size")
	}
	// #nosec G304 -- operators control which paths are reachable
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, crypto.WrapCertificateError(err, "failed to read certificate file")
	}
	return raw, nil
}
