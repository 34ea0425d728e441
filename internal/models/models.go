package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dalfonso89/openexchangerates/openexchangerates"
)

// The client's DTOs are decode-only, so everything the CLI and the gateway
// print goes through these views.

type RatesResponse struct {
	Base      string                     `json:"base"`
	Timestamp int64                      `json:"timestamp"`
	Time      time.Time                  `json:"time"`
	Rates     map[string]decimal.Decimal `json:"rates"`
}

type ConvertResponse struct {
	Query     string          `json:"query,omitempty"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Rate      decimal.Decimal `json:"rate"`
	Converted decimal.Decimal `json:"converted"`
	Timestamp int64           `json:"timestamp"`
}

type PlanFeatures struct {
	Base         bool `json:"base"`
	Symbols      bool `json:"symbols"`
	Experimental bool `json:"experimental"`
	TimeSeries   bool `json:"time_series"`
	Convert      bool `json:"convert"`
}

type Plan struct {
	Name            string       `json:"name"`
	Quota           string       `json:"quota"`
	UpdateFrequency string       `json:"update_frequency"`
	Features        PlanFeatures `json:"features"`
}

type Usage struct {
	Requests          int `json:"requests"`
	RequestsQuota     int `json:"requests_quota"`
	RequestsRemaining int `json:"requests_remaining"`
	DaysElapsed       int `json:"days_elapsed"`
	DaysRemaining     int `json:"days_remaining"`
	DailyAverage      int `json:"daily_average"`
}

type UsageResponse struct {
	AppID  string `json:"app_id"`
	Status string `json:"status"`
	Plan   Plan   `json:"plan"`
	Usage  Usage  `json:"usage"`
}

// HistoricalEntry pairs a requested date with its rates table
type HistoricalEntry struct {
	Date  string         `json:"date"`
	Rates *RatesResponse `json:"rates"`
}

type HealthCheck struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// FromRates returns nil when the API returned no payload
func FromRates(response *openexchangerates.RatesResponse) *RatesResponse {
	if response == nil {
		return nil
	}
	rates := make(map[string]decimal.Decimal, len(response.Rates))
	for code, rate := range response.Rates {
		rates[code] = rate
	}
	return &RatesResponse{
		Base:      response.BaseCurrency,
		Timestamp: unixSeconds(response.Timestamp),
		Time:      response.Timestamp.Time,
		Rates:     rates,
	}
}

func FromConvert(response *openexchangerates.ConvertResponse) *ConvertResponse {
	if response == nil {
		return nil
	}
	return &ConvertResponse{
		Query:     response.Request.Query,
		From:      response.Request.From,
		To:        response.Request.To,
		Amount:    response.Request.Amount,
		Rate:      response.Metadata.Rate,
		Converted: response.Amount,
		Timestamp: unixSeconds(response.Metadata.Timestamp),
	}
}

func FromUsage(data *openexchangerates.UsageData) *UsageResponse {
	if data == nil {
		return nil
	}
	features := data.Plan.Features
	return &UsageResponse{
		AppID:  data.AppID,
		Status: data.Status.String(),
		Plan: Plan{
			Name:            data.Plan.Name,
			Quota:           data.Plan.Quota,
			UpdateFrequency: data.Plan.UpdateFrequency,
			Features: PlanFeatures{
				Base:         features.Base,
				Symbols:      features.Symbols,
				Experimental: features.Experimental,
				TimeSeries:   features.TimeSeries,
				Convert:      features.Convert,
			},
		},
		Usage: Usage(data.Usage),
	}
}

func unixSeconds(timestamp openexchangerates.UnixTime) int64 {
	if timestamp.IsZero() {
		return 0
	}
	return timestamp.Unix()
}
