package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	soapEnvelopeNS    = "http://schemas.xmlsoap.org/soap/envelope/"
	receptionNS       = "http://ec.gob.sri.ws.recepcion"
	authorizationNS   = "http://ec.gob.sri.ws.autorizacion"
	maxSOAPReplyBytes = 32 << 20
)

// SOAPClient implements Transport against the SRI offline SOAP services.
type SOAPClient struct {
	httpClient *http.Client
}

// NewSOAPClient creates a client whose calls time out after timeout.
func NewSOAPClient(timeout time.Duration) *SOAPClient {
	return &SOAPClient{httpClient: &http.Client{Timeout: timeout}}
}

// Submit calls validarComprobante with the base64 encoded signed document.
func (c *SOAPClient) Submit(ctx context.Context, endpoint string, signed []byte) (Reply, error) {
	body := envelope(receptionNS, "validarComprobante", "xml", base64.StdEncoding.EncodeToString(signed))
	return c.call(ctx, endpoint, body)
}

// CheckAuthorization calls autorizacionComprobante for accessKey.
func (c *SOAPClient) CheckAuthorization(ctx context.Context, endpoint string, accessKey string) (Reply, error) {
	body := envelope(authorizationNS, "autorizacionComprobante", "claveAccesoComprobante", accessKey)
	return c.call(ctx, endpoint, body)
}

func envelope(ns, operation, param, value string) []byte {
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(value))

	var b bytes.Buffer
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?>`)
	fmt.Fprintf(&b, `<soapenv:Envelope xmlns:soapenv="%s" xmlns:ec="%s">`, soapEnvelopeNS, ns)
	fmt.Fprintf(&b, `<soapenv:Header/><soapenv:Body><ec:%s><%s>%s</%s></ec:%s></soapenv:Body></soapenv:Envelope>`,
		operation, param, escaped.String(), param, operation)
	return b.Bytes()
}

// serviceURL turns a configured WSDL location into the service address.
func serviceURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(u.RawQuery, "wsdl") {
		u.RawQuery = ""
	}
	return u.String(), nil
}

func (c *SOAPClient) call(ctx context.Context, endpoint string, body []byte) (Reply, error) {
	target, err := serviceURL(endpoint)
	if err != nil {
		return nil, NewConfigurationError(fmt.Sprintf("invalid SRI endpoint %q: %v", endpoint, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, WrapTransportError(err, "failed to create SOAP request")
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `""`)

	// #nosec G704 -- endpoint is from server config
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, WrapTransportError(err, "SRI web service call failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSOAPReplyBytes))
	if err != nil {
		return nil, WrapTransportError(err, "failed to read SRI reply")
	}

	tree, decodeErr := DecodeXML(bytes.NewReader(raw))
	if decodeErr == nil {
		if fault, ok := tree.sub("Envelope", "Body", "Fault"); ok {
			return nil, NewTransportError(fmt.Sprintf("SOAP fault: %s", strings.TrimSpace(fault.Text("faultstring"))))
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewTransportError(fmt.Sprintf("SRI web service returned status %d", resp.StatusCode))
	}
	if decodeErr != nil {
		return nil, WrapTransportError(decodeErr, "failed to decode SRI reply")
	}

	return unwrapEnvelope(tree)
}

// unwrapEnvelope returns the content of the operation response element.
func unwrapEnvelope(tree Reply) (Reply, error) {
	body, ok := tree.sub("Envelope", "Body")
	if !ok {
		return nil, NewTransportError("SRI reply has no SOAP body")
	}
	keys := sortedKeys(body)
	if len(keys) == 0 {
		return nil, NewTransportError("SRI reply has an empty SOAP body")
	}
	resp, ok := asMap(body[keys[0]])
	if !ok {
		// an empty response element decodes as ""
		return Reply{}, nil
	}
	return Reply(resp), nil
}

// DecodeXML converts an XML document into a Reply tree keyed by element local name.
// Leaf elements become trimmed strings (CDATA content included), repeated siblings
// become []any and attributes are dropped.
func DecodeXML(r io.Reader) (Reply, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("no root element")
			}
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			v, err := decodeElement(dec)
			if err != nil {
				return nil, err
			}
			return Reply{start.Name.Local: v}, nil
		}
	}
}

func decodeElement(dec *xml.Decoder) (any, error) {
	var (
		children Reply
		text     strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			v, err := decodeElement(dec)
			if err != nil {
				return nil, err
			}
			if children == nil {
				children = Reply{}
			}
			addChild(children, t.Name.Local, v)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if children != nil {
				return children, nil
			}
			return strings.TrimSpace(text.String()), nil
		}
	}
}

func addChild(m Reply, name string, v any) {
	existing, ok := m[name]
	if !ok {
		m[name] = v
		return
	}
	if l, isList := existing.([]any); isList {
		m[name] = append(l, v)
		return
	}
	m[name] = []any{existing, v}
}
