// Package device is the digest-authenticated RPC client for the script
// registry of a Shelly-style controller.
package device

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/dimasma0305/shellysync/internal/log"
	"github.com/dimasma0305/shellysync/internal/shelly/config"
	"github.com/dimasma0305/shellysync/internal/shelly/errors"
)

// DefaultTimeout bounds every RPC so a hung device cannot block its unit forever
const DefaultTimeout = 30 * time.Second

// Client talks to one device. It is not shared between the sync unit and the
// log stream unit; each builds its own.
type Client struct {
	Url     string
	Creds   config.Credentials
	Autorun bool
	Client  *req.Client
}

// New builds a client from the device settings in conf
func New(conf config.Config) (*Client, error) {
	if err := conf.RequireDevice(); err != nil {
		return nil, err
	}

	return &Client{
		Url:     BaseURL(conf.Host),
		Creds:   conf.Creds,
		Autorun: conf.Autorun,
		Client:  createClient(conf.Creds),
	}, nil
}

// BaseURL turns a configured host into the RPC base URL
func BaseURL(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "https://")
	return "http://" + strings.TrimRight(host, "/")
}

// createClient creates an HTTP client that answers digest challenges for every request
func createClient(creds config.Credentials) *req.Client {
	client := req.C().
		SetUserAgent("shellysync").
		SetTimeout(DefaultTimeout).
		SetCommonDigestAuth(creds.Username, creds.Password)

	transport := client.GetTransport()
	if transport != nil {
		transport.SetMaxIdleConns(4).
			SetIdleConnTimeout(90 * time.Second)
	}

	return client
}

// WithAutorun returns a copy of the client with a different autorun policy
func (c *Client) WithAutorun(autorun bool) *Client {
	clone := *c
	clone.Autorun = autorun
	return &clone
}

// requestExecutor is a function that executes an HTTP request
type requestExecutor func(*req.Request, string) (*req.Response, error)

// doRequest runs one RPC and classifies the response status before the body is
// touched: 4xx and 5xx never reach decode.
func (c *Client) doRequest(method, endpoint string, decode func([]byte) error, executor requestExecutor) error {
	if c == nil || c.Client == nil {
		return fmt.Errorf("device client is not initialized")
	}

	fullURL := c.Url + endpoint
	log.DebugH3("Making %s request to: %s", method, fullURL)

	resp, err := executor(c.Client.R(), fullURL)
	if err != nil {
		log.Error("%s request failed for %s: %v", method, fullURL, err)
		return &errors.TransportError{Endpoint: endpoint, Err: err}
	}

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		body := resp.String()
		log.Debug("%s %s returned %d: %s", method, endpoint, resp.StatusCode, body)
		return &errors.ClientRequestError{Code: resp.StatusCode, Body: body}
	case resp.StatusCode >= 500:
		var body *string
		if text, readErr := resp.ToString(); readErr == nil {
			body = &text
		}
		return &errors.ServerError{Code: resp.StatusCode, Body: body}
	}

	if decode != nil {
		if err := decode(resp.Bytes()); err != nil {
			log.Error("Failed to decode response from %s: %v", fullURL, err)
			return err
		}
	}

	log.DebugH3("%s request successful for: %s", method, fullURL)
	return nil
}

func (c *Client) get(endpoint string, decode func([]byte) error) error {
	return c.doRequest("GET", endpoint, decode, func(r *req.Request, url string) (*req.Response, error) {
		return r.Get(url)
	})
}

func (c *Client) post(endpoint string, body any, decode func([]byte) error) error {
	return c.doRequest("POST", endpoint, decode, func(r *req.Request, url string) (*req.Response, error) {
		return r.SetBodyJsonMarshal(body).Post(url)
	})
}

// decodeInto returns a decoder that unmarshals the body into out and reports
// any failure as a ParseError for endpoint.
func decodeInto(endpoint string, out any) func([]byte) error {
	return func(body []byte) error {
		if len(strings.TrimSpace(string(body))) == 0 {
			return &errors.ParseError{Endpoint: endpoint, Reason: "empty body"}
		}
		if err := json.Unmarshal(body, out); err != nil {
			return &errors.ParseError{Endpoint: endpoint, Reason: "invalid json", Err: err}
		}
		return nil
	}
}
