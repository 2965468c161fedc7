// Package sonos implements the playback device driver over UPnP SOAP.
package sonos

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// UPnP services exposed on port 1400 of every Sonos zone player.
const (
	avTransportType   = "urn:schemas-upnp-org:service:AVTransport:1"
	avTransportPath   = "/MediaRenderer/AVTransport/Control"
	renderingCtrlType = "urn:schemas-upnp-org:service:RenderingControl:1"
	renderingCtrlPath = "/MediaRenderer/RenderingControl/Control"
	controlPort       = 1400
)

// client executes SOAP actions against a single zone player.
type client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
}

func newClient(ip string, timeout time.Duration) *client {
	return &client{
		endpoint: fmt.Sprintf("http://%s:%d", ip, controlPort),
		timeout:  timeout,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// call sends one SOAP action and returns the raw response body.
func (c *client) call(serviceType, controlPath, action string, args map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	body := buildEnvelope(serviceType, action, args)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+controlPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build soap request")
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", fmt.Sprintf("%q", serviceType+"#"+action))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "device unreachable: action=%s endpoint=%s", action, c.endpoint)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read soap response")
	}

	if resp.StatusCode >= 400 {
		if code := extractText(payload, "errorCode"); code != "" {
			return nil, errors.Newf("device rejected %s: upnp error %s", action, code)
		}
		return nil, errors.Newf("action %s failed: http %d", action, resp.StatusCode)
	}

	return payload, nil
}

func buildEnvelope(serviceType, action string, args map[string]string) []byte {
	var buf strings.Builder
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	buf.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`)
	buf.WriteString("<s:Body>")
	buf.WriteString("<u:" + action + ` xmlns:u="` + serviceType + `">`)
	for key, value := range args {
		buf.WriteString("<" + key + ">")
		buf.WriteString(escapeXML(value))
		buf.WriteString("</" + key + ">")
	}
	buf.WriteString("</u:" + action + ">")
	buf.WriteString("</s:Body>")
	buf.WriteString("</s:Envelope>")
	return []byte(buf.String())
}

func escapeXML(input string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(input)
}

// extractText pulls the text content of the first occurrence of an XML
// tag. Sonos responses are flat enough that full XML decoding buys
// nothing over this.
func extractText(payload []byte, tag string) string {
	s := string(payload)
	open := "<" + tag + ">"
	start := strings.Index(s, open)
	if start < 0 {
		// Tag may carry attributes.
		open = "<" + tag + " "
		start = strings.Index(s, open)
		if start < 0 {
			return ""
		}
		rest := s[start:]
		gt := strings.Index(rest, ">")
		if gt < 0 {
			return ""
		}
		start += gt + 1
	} else {
		start += len(open)
	}
	end := strings.Index(s[start:], "</"+tag+">")
	if end < 0 {
		return ""
	}
	return s[start : start+end]
}
