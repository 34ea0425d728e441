package openexchangerates

import "github.com/shopspring/decimal"

// ConvertRequest echoes the conversion the caller asked for.
type ConvertRequest struct {
	Query  string          `json:"query"`
	Amount decimal.Decimal `json:"amount"`
	From   string          `json:"from"`
	To     string          `json:"to"`
}

// ConversionMetadata is the rate snapshot a conversion was computed with.
type ConversionMetadata struct {
	Timestamp UnixTime        `json:"timestamp"`
	Rate      decimal.Decimal `json:"rate"`
}

type ConvertResponse struct {
	Disclaimer string             `json:"disclaimer,omitempty"`
	License    string             `json:"license,omitempty"`
	Request    ConvertRequest     `json:"request"`
	Amount     decimal.Decimal    `json:"response"`
	Metadata   ConversionMetadata `json:"meta"`
}

// RatesResponse is a table of rates relative to BaseCurrency, which is fixed at 1.
type RatesResponse struct {
	Disclaimer   string                     `json:"disclaimer,omitempty"`
	License      string                     `json:"license,omitempty"`
	Timestamp    UnixTime                   `json:"timestamp"`
	BaseCurrency string                     `json:"base"`
	Rates        map[string]decimal.Decimal `json:"rates"`
}

type PlanFeatures struct {
	Base         bool `json:"base"`
	Symbols      bool `json:"symbols"`
	Experimental bool `json:"experimental"`
	TimeSeries   bool `json:"time-series"`
	Convert      bool `json:"convert"`
}

type Plan struct {
	Name            string       `json:"name"`
	Quota           string       `json:"quota"`
	UpdateFrequency string       `json:"update_frequency"`
	Features        PlanFeatures `json:"features"`
}

// Usage counters are computed by the server; the client does not check them.
type Usage struct {
	Requests          int `json:"requests"`
	RequestsQuota     int `json:"requests_quota"`
	RequestsRemaining int `json:"requests_remaining"`
	DaysElapsed       int `json:"days_elapsed"`
	DaysRemaining     int `json:"days_remaining"`
	DailyAverage      int `json:"daily_average"`
}

type UsageData struct {
	AppID  string    `json:"app_id"`
	Status APIStatus `json:"status"`
	Plan   Plan      `json:"plan"`
	Usage  Usage     `json:"usage"`
}

type usageEnvelope struct {
	Data *UsageData `json:"data"`
}

// Currencies maps currency codes to their display names.
type Currencies map[string]string
