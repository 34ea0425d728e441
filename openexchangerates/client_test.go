package openexchangerates

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalfonso89/openexchangerates/internal/testutils"
)

func newTestClient(t *testing.T, upstream *testutils.MockUpstream, options ...Option) *Client {
	t.Helper()

	options = append([]Option{WithBaseURL(upstream.URL())}, options...)
	client, err := New(testutils.TestAppID, options...)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNew_RejectsBlankAppID(t *testing.T) {
	for _, appID := range []string{"", "   ", "\t\n"} {
		client, err := New(appID)

		assert.Nil(t, client)
		require.Error(t, err)
		assert.True(t, IsInvalidArgument(err))

		var clientError *Error
		require.True(t, errors.As(err, &clientError))
		assert.Equal(t, "appID", clientError.Param)
	}
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	_, err := New("key", WithBaseURL("not a url"))

	assert.True(t, IsInvalidArgument(err))
}

func TestWithTimeout_DoesNotModifySuppliedClient(t *testing.T) {
	supplied := &http.Client{Timeout: time.Minute}

	client, err := New("key", WithHTTPClient(supplied), WithTimeout(time.Second))
	require.NoError(t, err)

	assert.Equal(t, time.Minute, supplied.Timeout)
	assert.Equal(t, time.Second, client.httpClient.Timeout)
}

func TestClient_LatestRates(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	client := newTestClient(t, upstream)

	rates, err := client.LatestRates(context.Background(), RatesOptions{
		Base:        "USD",
		Symbols:     []string{"EUR", "GBP", "JPY"},
		PrettyPrint: Bool(false),
	})
	require.NoError(t, err)
	require.NotNil(t, rates)

	assert.Equal(t, "USD", rates.BaseCurrency)
	assert.True(t, time.Unix(1700000000, 0).Equal(rates.Timestamp.Time))
	assert.Len(t, rates.Rates, 3)
	assert.True(t, decimal.RequireFromString("149.8765432109").Equal(rates.Rates["JPY"]))
	assert.Equal(t, "149.8765432109", rates.Rates["JPY"].String())
	assert.NotEmpty(t, rates.Disclaimer)

	request := upstream.LastRequest()
	assert.Equal(t, "latest.json", request.Path)
	assert.Equal(t, "app_id=test-app-id&base=USD&symbols=EUR%2CGBP%2CJPY&prettyprint=false", request.RawQuery)
	assert.Equal(t, "openexchangerates-go/"+Version, request.UserAgent)
	assert.Equal(t, http.MethodGet, request.Method)
}

func TestClient_LatestRates_NoOptions(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	client := newTestClient(t, upstream)

	_, err := client.LatestRates(context.Background(), RatesOptions{})
	require.NoError(t, err)

	assert.Equal(t, "app_id=test-app-id", upstream.LastRequest().RawQuery)
}

func TestClient_HistoricalRates(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	client := newTestClient(t, upstream)

	date := time.Date(2024, time.January, 1, 23, 59, 0, 0, time.UTC)
	rates, err := client.HistoricalRates(context.Background(), date, RatesOptions{ShowAlternative: Bool(true)})
	require.NoError(t, err)
	require.NotNil(t, rates)

	assert.Equal(t, "USD", rates.BaseCurrency)
	assert.True(t, decimal.RequireFromString("0.905").Equal(rates.Rates["EUR"]))

	request := upstream.LastRequest()
	assert.Equal(t, "historical/2024-01-01.json", request.Path)
	assert.Equal(t, "app_id=test-app-id&base=USD&show_alternative=true", request.RawQuery)
}

func TestClient_HistoricalRates_Validation(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	client := newTestClient(t, upstream)

	tests := []struct {
		name  string
		date  time.Time
		base  string
		param string
	}{
		{"zero date", time.Time{}, "", "date"},
		{"whitespace base", time.Now(), "   ", "base"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.HistoricalRates(context.Background(), tt.date, RatesOptions{Base: tt.base})

			var clientError *Error
			require.True(t, errors.As(err, &clientError))
			assert.Equal(t, ErrorTypeInvalidArgument, clientError.Type)
			assert.Equal(t, tt.param, clientError.Param)
		})
	}

	assert.Zero(t, upstream.RequestCount())
}

func TestClient_Currencies(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	client := newTestClient(t, upstream)

	currencies, err := client.Currencies(context.Background(), CurrenciesOptions{
		ShowAlternative: Bool(false),
		ShowInactive:    Bool(true),
	})
	require.NoError(t, err)

	assert.Equal(t, "Euro", currencies["EUR"])
	assert.Len(t, currencies, 3)
	assert.Equal(t, "app_id=test-app-id&show_alternative=false&show_inactive=true", upstream.LastRequest().RawQuery)
}

func TestClient_Convert(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	client := newTestClient(t, upstream)

	amount := decimal.RequireFromString("19999.95")
	response, err := client.Convert(context.Background(), "GBP", "EUR", amount, ConvertOptions{PrettyPrint: Bool(true)})
	require.NoError(t, err)
	require.NotNil(t, response)

	assert.Equal(t, "GBP", response.Request.From)
	assert.Equal(t, "EUR", response.Request.To)
	assert.True(t, amount.Equal(response.Request.Amount))
	assert.Equal(t, "27673.975864", response.Amount.String())
	assert.Equal(t, "1.383702", response.Metadata.Rate.String())
	assert.Equal(t, int64(1449885661), response.Metadata.Timestamp.Unix())

	request := upstream.LastRequest()
	assert.Equal(t, "convert/19999.95/GBP/EUR", request.Path)
	assert.Equal(t, "app_id=test-app-id&prettyprint=true", request.RawQuery)
}

func TestClient_Convert_Validation(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	client := newTestClient(t, upstream)

	tests := []struct {
		name   string
		from   string
		to     string
		amount decimal.Decimal
		param  string
	}{
		{"zero amount", "USD", "EUR", decimal.Zero, "amount"},
		{"negative amount", "USD", "EUR", decimal.NewFromInt(-5), "amount"},
		{"empty from", "", "EUR", decimal.NewFromInt(1), "from"},
		{"whitespace from", "  ", "EUR", decimal.NewFromInt(1), "from"},
		{"empty to", "USD", "", decimal.NewFromInt(1), "to"},
		{"whitespace to", "USD", "\t", decimal.NewFromInt(1), "to"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, err := client.Convert(context.Background(), tt.from, tt.to, tt.amount, ConvertOptions{})

			assert.Nil(t, response)
			var clientError *Error
			require.True(t, errors.As(err, &clientError))
			assert.Equal(t, ErrorTypeInvalidArgument, clientError.Type)
			assert.Equal(t, tt.param, clientError.Param)
		})
	}

	assert.Zero(t, upstream.RequestCount(), "validation failures must not reach the network")
}

func TestClient_Usage(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	client := newTestClient(t, upstream)

	usage, err := client.Usage(context.Background(), UsageOptions{})
	require.NoError(t, err)
	require.NotNil(t, usage)

	assert.Equal(t, "X", usage.AppID)
	assert.Equal(t, StatusActive, usage.Status)
	assert.Equal(t, "Enterprise", usage.Plan.Name)
	assert.Equal(t, "30-minute", usage.Plan.UpdateFrequency)
	assert.True(t, usage.Plan.Features.TimeSeries)
	assert.False(t, usage.Plan.Features.Convert)
	assert.Equal(t, 54524, usage.Usage.Requests)
	assert.Equal(t, 100000, usage.Usage.RequestsQuota)
	assert.Equal(t, 2842, usage.Usage.DailyAverage)
}

func TestClient_AbsentPayloads(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		call func(*Client) (interface{}, error)
	}{
		{
			name: "usage envelope null",
			path: "usage.json",
			body: "null",
			call: func(c *Client) (interface{}, error) { return c.Usage(context.Background(), UsageOptions{}) },
		},
		{
			name: "usage data null",
			path: "usage.json",
			body: `{"data": null}`,
			call: func(c *Client) (interface{}, error) { return c.Usage(context.Background(), UsageOptions{}) },
		},
		{
			name: "latest empty body",
			path: "latest.json",
			body: "",
			call: func(c *Client) (interface{}, error) { return c.LatestRates(context.Background(), RatesOptions{}) },
		},
		{
			name: "currencies null",
			path: "currencies.json",
			body: "null",
			call: func(c *Client) (interface{}, error) { return c.Currencies(context.Background(), CurrenciesOptions{}) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := testutils.NewMockUpstream()
			defer upstream.Close()
			upstream.SetResponse(tt.path, testutils.MockResponse{StatusCode: http.StatusOK, Body: tt.body})
			client := newTestClient(t, upstream)

			result, err := tt.call(client)
			require.NoError(t, err)
			assert.Nil(t, result)
		})
	}
}

func TestClient_RemoteFailure(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	upstream.SetResponse("latest.json", testutils.MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Reason:     "Slow Down Please",
		Body:       `this is not json`,
	})
	client := newTestClient(t, upstream)

	rates, err := client.LatestRates(context.Background(), RatesOptions{})

	assert.Nil(t, rates)
	require.Error(t, err)
	assert.True(t, IsRemote(err))
	assert.False(t, IsDecode(err))
	assert.Equal(t, "Slow Down Please", err.Error())

	var clientError *Error
	require.True(t, errors.As(err, &clientError))
	assert.Equal(t, http.StatusTooManyRequests, clientError.StatusCode)
}

func TestClient_RemoteFailure_EveryEndpoint(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()

	client, err := New("wrong-key", WithBaseURL(upstream.URL()))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	calls := map[string]func() error{
		"convert": func() error {
			_, err := client.Convert(ctx, "USD", "EUR", decimal.NewFromInt(1), ConvertOptions{})
			return err
		},
		"currencies": func() error { _, err := client.Currencies(ctx, CurrenciesOptions{}); return err },
		"historical": func() error { _, err := client.HistoricalRates(ctx, time.Now(), RatesOptions{}); return err },
		"latest":     func() error { _, err := client.LatestRates(ctx, RatesOptions{}); return err },
		"usage":      func() error { _, err := client.Usage(ctx, UsageOptions{}); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			assert.True(t, IsRemote(err))
			assert.Equal(t, "Unauthorized", err.Error())
		})
	}
}

func TestClient_DecodeFailure(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	upstream.SetResponse("latest.json", testutils.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"timestamp": "yesterday", "base": "USD", "rates": {}}`,
	})
	client := newTestClient(t, upstream)

	_, err := client.LatestRates(context.Background(), RatesOptions{})

	assert.True(t, IsDecode(err))
	assert.False(t, IsRemote(err))
}

func TestClient_Cancellation(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	upstream.SetResponse("latest.json", testutils.MockResponse{
		StatusCode: http.StatusOK,
		Body:       testutils.LatestRatesJSON,
		Delay:      5 * time.Second,
	})
	client := newTestClient(t, upstream)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	rates, err := client.LatestRates(ctx, RatesOptions{})

	assert.Nil(t, rates)
	assert.True(t, IsCancelled(err))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsRemote(err))
}

func TestClient_DeadlineExceeded(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	upstream.SetResponse("usage.json", testutils.MockResponse{
		StatusCode: http.StatusOK,
		Body:       testutils.UsageJSON,
		Delay:      5 * time.Second,
	})
	client := newTestClient(t, upstream)

	ctx, cancel := testutils.MockContextWithTimeout(50 * time.Millisecond)
	defer cancel()

	_, err := client.Usage(ctx, UsageOptions{})

	assert.True(t, IsCancelled(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_TransportFailure(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	baseURL := upstream.URL()
	upstream.Close()

	client, err := New(testutils.TestAppID, WithBaseURL(baseURL))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.LatestRates(context.Background(), RatesOptions{})

	assert.Equal(t, ErrorTypeTransport, TypeOf(err))
}

func TestClient_Close(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	client := newTestClient(t, upstream)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err := client.LatestRates(context.Background(), RatesOptions{})
	assert.True(t, errors.Is(err, ErrClientClosed))
	assert.Zero(t, upstream.RequestCount())
}

func TestClient_ConcurrentCalls(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()
	client := newTestClient(t, upstream)

	const workers = 20
	var waitGroup sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		waitGroup.Add(1)
		go func(i int) {
			defer waitGroup.Done()
			base := []string{"USD", "EUR", "GBP", "JPY"}[i%4]
			rates, err := client.LatestRates(context.Background(), RatesOptions{Base: base})
			if err == nil && rates == nil {
				err = errors.New("missing rates")
			}
			errs <- err
		}(i)
	}
	waitGroup.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	requests := upstream.Requests()
	assert.Len(t, requests, workers)
	for _, request := range requests {
		values, err := url.ParseQuery(request.RawQuery)
		require.NoError(t, err)
		assert.Contains(t, []string{"USD", "EUR", "GBP", "JPY"}, values.Get("base"))
	}
}

func TestClient_DebugLogOmitsAppID(t *testing.T) {
	upstream := testutils.NewMockUpstream()
	defer upstream.Close()

	var buffer bytes.Buffer
	client := newTestClient(t, upstream, WithLogger(testutils.MockLogger(&buffer)))

	_, err := client.Usage(context.Background(), UsageOptions{})
	require.NoError(t, err)

	output := buffer.String()
	assert.Contains(t, output, `"op":"usage"`)
	assert.False(t, strings.Contains(output, testutils.TestAppID))
}
