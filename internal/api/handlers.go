package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/dalfonso89/openexchangerates/internal/metrics"
	"github.com/dalfonso89/openexchangerates/internal/middleware"
	"github.com/dalfonso89/openexchangerates/internal/models"
	"github.com/dalfonso89/openexchangerates/openexchangerates"
)

const dateLayout = "2006-01-02"

// RatesClient is the part of openexchangerates.Client the gateway uses
type RatesClient interface {
	Convert(ctx context.Context, from, to string, amount decimal.Decimal, options openexchangerates.ConvertOptions) (*openexchangerates.ConvertResponse, error)
	Currencies(ctx context.Context, options openexchangerates.CurrenciesOptions) (openexchangerates.Currencies, error)
	HistoricalRates(ctx context.Context, date time.Time, options openexchangerates.RatesOptions) (*openexchangerates.RatesResponse, error)
	LatestRates(ctx context.Context, options openexchangerates.RatesOptions) (*openexchangerates.RatesResponse, error)
	Usage(ctx context.Context, options openexchangerates.UsageOptions) (*openexchangerates.UsageData, error)
}

// HandlerConfig holds the dependencies of the gateway
type HandlerConfig struct {
	Logger         logrus.FieldLogger
	Client         RatesClient
	MetricsEnabled bool
}

// Handlers contains all HTTP handlers
type Handlers struct {
	logger         logrus.FieldLogger
	client         RatesClient
	metricsEnabled bool
	startTime      time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(handlerConfig HandlerConfig) *Handlers {
	return &Handlers{
		logger:         handlerConfig.Logger,
		client:         handlerConfig.Client,
		metricsEnabled: handlerConfig.MetricsEnabled,
		startTime:      time.Now(),
	}
}

// SetupRoutes configures all the routes using Gin
func (handlers *Handlers) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(handlers.logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	if handlers.metricsEnabled {
		router.Use(middleware.Metrics())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.GET("/health", handlers.HealthCheck)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/convert/:amount/:from/:to", handlers.Convert)
		apiV1.GET("/latest", handlers.GetLatestRates)
		apiV1.GET("/historical/:date", handlers.GetHistoricalRates)
		apiV1.GET("/currencies", handlers.GetCurrencies)
		apiV1.GET("/usage", handlers.GetUsage)
	}

	return router
}

// HealthCheck reports liveness; with ?upstream=true it also calls the usage endpoint
func (handlers *Handlers) HealthCheck(context *gin.Context) {
	healthStatus := "healthy"

	if context.Query("upstream") == "true" {
		started := time.Now()
		_, err := handlers.client.Usage(context.Request.Context(), openexchangerates.UsageOptions{})
		metrics.ObserveUpstream("usage", started, err)
		if err != nil {
			healthStatus = "unhealthy"
			handlers.logger.Warnf("Open Exchange Rates health check failed: %v", err)
		}
	}

	statusCode := http.StatusOK
	if healthStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	context.JSON(statusCode, models.HealthCheck{
		Status:    healthStatus,
		Timestamp: time.Now(),
		Version:   openexchangerates.Version,
		Uptime:    time.Since(handlers.startTime).String(),
	})
}

// Convert handles GET /api/v1/convert/:amount/:from/:to
func (handlers *Handlers) Convert(context *gin.Context) {
	amount, err := decimal.NewFromString(context.Param("amount"))
	if err != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid amount", "amount must be a decimal number")
		return
	}
	prettyPrint, ok := handlers.flag(context, "prettyprint")
	if !ok {
		return
	}

	started := time.Now()
	response, err := handlers.client.Convert(context.Request.Context(), context.Param("from"), context.Param("to"), amount,
		openexchangerates.ConvertOptions{PrettyPrint: prettyPrint})
	metrics.ObserveUpstream("convert", started, err)
	if err != nil {
		handlers.writeClientError(context, err)
		return
	}

	handlers.writeResult(context, response == nil, func() interface{} { return models.FromConvert(response) })
}

// GetLatestRates handles GET /api/v1/latest
func (handlers *Handlers) GetLatestRates(context *gin.Context) {
	options, ok := handlers.ratesOptions(context)
	if !ok {
		return
	}

	started := time.Now()
	response, err := handlers.client.LatestRates(context.Request.Context(), options)
	metrics.ObserveUpstream("latest", started, err)
	if err != nil {
		handlers.writeClientError(context, err)
		return
	}

	handlers.writeResult(context, response == nil, func() interface{} { return models.FromRates(response) })
}

// GetHistoricalRates handles GET /api/v1/historical/:date
func (handlers *Handlers) GetHistoricalRates(context *gin.Context) {
	date, err := time.Parse(dateLayout, strings.TrimSuffix(context.Param("date"), ".json"))
	if err != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid date", "date must be formatted as YYYY-MM-DD")
		return
	}
	options, ok := handlers.ratesOptions(context)
	if !ok {
		return
	}

	started := time.Now()
	response, err := handlers.client.HistoricalRates(context.Request.Context(), date, options)
	metrics.ObserveUpstream("historical", started, err)
	if err != nil {
		handlers.writeClientError(context, err)
		return
	}

	handlers.writeResult(context, response == nil, func() interface{} { return models.FromRates(response) })
}

// GetCurrencies handles GET /api/v1/currencies
func (handlers *Handlers) GetCurrencies(context *gin.Context) {
	var options openexchangerates.CurrenciesOptions
	var ok bool
	if options.PrettyPrint, ok = handlers.flag(context, "prettyprint"); !ok {
		return
	}
	if options.ShowAlternative, ok = handlers.flag(context, "show_alternative"); !ok {
		return
	}
	if options.ShowInactive, ok = handlers.flag(context, "show_inactive"); !ok {
		return
	}

	started := time.Now()
	currencies, err := handlers.client.Currencies(context.Request.Context(), options)
	metrics.ObserveUpstream("currencies", started, err)
	if err != nil {
		handlers.writeClientError(context, err)
		return
	}

	handlers.writeResult(context, currencies == nil, func() interface{} { return map[string]string(currencies) })
}

// GetUsage handles GET /api/v1/usage
func (handlers *Handlers) GetUsage(context *gin.Context) {
	prettyPrint, ok := handlers.flag(context, "prettyprint")
	if !ok {
		return
	}

	started := time.Now()
	usage, err := handlers.client.Usage(context.Request.Context(), openexchangerates.UsageOptions{PrettyPrint: prettyPrint})
	metrics.ObserveUpstream("usage", started, err)
	if err != nil {
		handlers.writeClientError(context, err)
		return
	}

	handlers.writeResult(context, usage == nil, func() interface{} { return models.FromUsage(usage) })
}

// ratesOptions reads base, symbols, prettyprint and show_alternative from the query string
func (handlers *Handlers) ratesOptions(context *gin.Context) (openexchangerates.RatesOptions, bool) {
	options := openexchangerates.RatesOptions{Base: strings.ToUpper(context.Query("base"))}

	if symbols, present := context.GetQuery("symbols"); present {
		options.Symbols = SplitSymbols(symbols)
	}

	var ok bool
	if options.PrettyPrint, ok = handlers.flag(context, "prettyprint"); !ok {
		return options, false
	}
	if options.ShowAlternative, ok = handlers.flag(context, "show_alternative"); !ok {
		return options, false
	}
	return options, true
}

// flag reads an optional boolean query parameter; absent stays nil. It writes a 400 and
// returns false when the value does not parse.
func (handlers *Handlers) flag(context *gin.Context, name string) (*bool, bool) {
	raw, present := context.GetQuery(name)
	if !present {
		return nil, true
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid "+name, name+" must be true or false")
		return nil, false
	}
	return openexchangerates.Bool(value), true
}

// SplitSymbols turns "eur, GBP" into ["EUR", "GBP"], keeping order. An empty
// input yields an empty, non-nil list.
func SplitSymbols(raw string) []string {
	symbols := []string{}
	for _, symbol := range strings.Split(raw, ",") {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol != "" {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

// writeResult answers 204 when the API returned no payload
func (handlers *Handlers) writeResult(context *gin.Context, absent bool, view func() interface{}) {
	if absent {
		context.Status(http.StatusNoContent)
		return
	}
	context.JSON(http.StatusOK, view())
}

// writeClientError maps client error types onto gateway status codes
func (handlers *Handlers) writeClientError(context *gin.Context, err error) {
	_ = context.Error(err)

	if errors.Is(err, openexchangerates.ErrClientClosed) {
		handlers.writeErrorResponse(context, http.StatusServiceUnavailable, "client closed", err.Error())
		return
	}

	switch openexchangerates.TypeOf(err) {
	case openexchangerates.ErrorTypeInvalidArgument:
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid argument", err.Error())
	case openexchangerates.ErrorTypeRemote:
		handlers.logger.Warnf("Open Exchange Rates rejected request: %v", err)
		handlers.writeErrorResponse(context, http.StatusBadGateway, "upstream failure", err.Error())
	case openexchangerates.ErrorTypeCancelled:
		handlers.writeErrorResponse(context, http.StatusGatewayTimeout, "request cancelled", err.Error())
	default:
		handlers.logger.Errorf("Open Exchange Rates call failed: %v", err)
		handlers.writeErrorResponse(context, http.StatusBadGateway, "upstream failure", err.Error())
	}
}

// writeErrorResponse writes an error response using Gin context
func (handlers *Handlers) writeErrorResponse(context *gin.Context, statusCode int, errorMessage, errorDetails string) {
	context.AbortWithStatusJSON(statusCode, models.ErrorResponse{
		Error:   errorMessage,
		Message: errorDetails,
		Code:    statusCode,
	})
}
