// Package openexchangerates is a typed client for the Open Exchange Rates API.
//
// A Client is safe for concurrent use. Create one per application with New,
// share it across goroutines and release it with Close when finished.
package openexchangerates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// Version is sent in the User-Agent header of every request.
	Version = "1.0.0"

	DefaultBaseURL  = "https://openexchangerates.org/api/"
	DefaultCurrency = "USD"
	DefaultTimeout  = 30 * time.Second

	dateLayout = "2006-01-02"
)

var userAgent = "openexchangerates-go/" + Version

// ConvertOptions are the optional inputs of Convert.
type ConvertOptions struct {
	PrettyPrint *bool
}

// CurrenciesOptions are the optional inputs of Currencies.
type CurrenciesOptions struct {
	PrettyPrint     *bool
	ShowAlternative *bool
	ShowInactive    *bool
}

// RatesOptions are the optional inputs of LatestRates and HistoricalRates.
// Symbols restricts the returned table; nil means every currency.
type RatesOptions struct {
	Base            string
	Symbols         []string
	PrettyPrint     *bool
	ShowAlternative *bool
}

// UsageOptions are the optional inputs of Usage.
type UsageOptions struct {
	PrettyPrint *bool
}

// Client talks to the Open Exchange Rates API.
type Client struct {
	appID      string
	baseURL    string
	httpClient *http.Client
	logger     logrus.FieldLogger

	closeOnce sync.Once
	closed    atomic.Bool
}

type settings struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     logrus.FieldLogger
}

// Option configures a Client.
type Option func(*settings)

// WithBaseURL points the client at a different API root.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		s.baseURL = baseURL
	}
}

// WithHTTPClient replaces the default pooled HTTP client. The supplied client
// is not modified.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *settings) {
		s.httpClient = httpClient
	}
}

// WithTimeout sets the overall timeout of each request.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		s.timeout = timeout
	}
}

// WithLogger enables debug logging of outgoing requests.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// New creates a client authenticated with appID.
func New(appID string, options ...Option) (*Client, error) {
	if isBlank(appID) {
		return nil, invalidArgument("new", "appID")
	}

	s := settings{baseURL: DefaultBaseURL}
	for _, option := range options {
		option(&s)
	}

	if _, err := url.ParseRequestURI(s.baseURL); err != nil {
		return nil, &Error{
			Type:    ErrorTypeInvalidArgument,
			Op:      "new",
			Param:   "baseURL",
			Message: fmt.Sprintf("invalid argument %q", "baseURL"),
			Cause:   err,
		}
	}

	httpClient := s.httpClient
	if httpClient == nil {
		timeout := s.timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	} else if s.timeout > 0 {
		copied := *httpClient
		copied.Timeout = s.timeout
		httpClient = &copied
	}

	logger := s.logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	return &Client{
		appID:      appID,
		baseURL:    strings.TrimRight(s.baseURL, "/") + "/",
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Close releases the pooled connections. It is safe to call more than once.
func (client *Client) Close() error {
	client.closeOnce.Do(func() {
		client.closed.Store(true)
		client.httpClient.CloseIdleConnections()
	})
	return nil
}

// Convert converts amount from one currency to another on the server.
func (client *Client) Convert(ctx context.Context, from, to string, amount decimal.Decimal, options ConvertOptions) (*ConvertResponse, error) {
	const op = "convert"

	if isBlank(from) {
		return nil, invalidArgument(op, "from")
	}
	if isBlank(to) {
		return nil, invalidArgument(op, "to")
	}
	if !amount.IsPositive() {
		return nil, invalidArgument(op, "amount")
	}

	path := fmt.Sprintf("convert/%s/%s/%s", amount.String(), url.PathEscape(from), url.PathEscape(to))
	query := queryParams{PrettyPrint: options.PrettyPrint}

	var response *ConvertResponse
	if err := client.get(ctx, op, path, query, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// Currencies lists the currency codes the API knows, with their display names.
func (client *Client) Currencies(ctx context.Context, options CurrenciesOptions) (Currencies, error) {
	query := queryParams{
		PrettyPrint:     options.PrettyPrint,
		ShowAlternative: options.ShowAlternative,
		ShowInactive:    options.ShowInactive,
	}

	var currencies Currencies
	if err := client.get(ctx, "currencies", "currencies.json", query, &currencies); err != nil {
		return nil, err
	}
	return currencies, nil
}

// HistoricalRates returns the end-of-day rates for date. Only the calendar
// date is used; Base defaults to USD.
func (client *Client) HistoricalRates(ctx context.Context, date time.Time, options RatesOptions) (*RatesResponse, error) {
	const op = "historical"

	if date.IsZero() {
		return nil, invalidArgument(op, "date")
	}

	base := options.Base
	if base == "" {
		base = DefaultCurrency
	} else if isBlank(base) {
		return nil, invalidArgument(op, "base")
	}

	path := fmt.Sprintf("historical/%s.json", date.Format(dateLayout))
	query := queryParams{
		Base:            base,
		Symbols:         options.Symbols,
		PrettyPrint:     options.PrettyPrint,
		ShowAlternative: options.ShowAlternative,
	}

	var response *RatesResponse
	if err := client.get(ctx, op, path, query, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// LatestRates returns the most recent rates. An empty Base lets the server
// pick its default.
func (client *Client) LatestRates(ctx context.Context, options RatesOptions) (*RatesResponse, error) {
	query := queryParams{
		Base:            options.Base,
		Symbols:         options.Symbols,
		PrettyPrint:     options.PrettyPrint,
		ShowAlternative: options.ShowAlternative,
	}

	var response *RatesResponse
	if err := client.get(ctx, "latest", "latest.json", query, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// Usage returns plan and quota information for the app id.
func (client *Client) Usage(ctx context.Context, options UsageOptions) (*UsageData, error) {
	query := queryParams{PrettyPrint: options.PrettyPrint}

	var envelope *usageEnvelope
	if err := client.get(ctx, "usage", "usage.json", query, &envelope); err != nil {
		return nil, err
	}
	if envelope == nil {
		return nil, nil
	}
	return envelope.Data, nil
}

// get performs the request and decodes a successful body into target.
// An empty body leaves target untouched.
func (client *Client) get(ctx context.Context, op, path string, params queryParams, target interface{}) error {
	if client.closed.Load() {
		return ErrClientClosed
	}

	requestURL := client.baseURL + path + "?" + buildQuery(client.appID, params)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return &Error{Type: ErrorTypeTransport, Op: op, Message: "failed to create request", Cause: err}
	}
	request.Header.Set("User-Agent", userAgent)
	request.Header.Set("Accept", "application/json")

	started := time.Now()
	response, err := client.httpClient.Do(request)
	if err != nil {
		err = redactURL(err, client.baseURL+path)
		client.logger.WithFields(logrus.Fields{"op": op, "path": path}).Debugf("Request failed: %v", err)
		return requestFailure(ctx, op, err)
	}
	defer response.Body.Close()

	client.logger.WithFields(logrus.Fields{
		"op":       op,
		"path":     path,
		"status":   response.StatusCode,
		"duration": time.Since(started),
	}).Debug("Open Exchange Rates request completed")

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return remoteFailure(op, response.StatusCode, reasonPhrase(response))
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return requestFailure(ctx, op, err)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return decodeFailure(op, err)
	}
	return nil
}

// reasonPhrase extracts "Not Found" from a status line such as "404 Not Found".
func reasonPhrase(response *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(response.Status, strconv.Itoa(response.StatusCode)))
	if reason == "" {
		reason = http.StatusText(response.StatusCode)
	}
	return reason
}

// redactURL drops the query string, which carries the app id, from transport errors.
func redactURL(err error, redacted string) error {
	var urlError *url.Error
	if errors.As(err, &urlError) {
		return &url.Error{Op: urlError.Op, URL: redacted, Err: urlError.Err}
	}
	return err
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
