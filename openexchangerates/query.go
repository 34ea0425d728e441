package openexchangerates

import (
	"net/url"
	"strings"
)

// Bool returns a pointer to v, for setting the tri-state request flags.
func Bool(v bool) *bool {
	return &v
}

// queryParams holds the optional query inputs shared by every endpoint.
// A nil Symbols slice is omitted; an empty non-nil slice is sent as "symbols=".
type queryParams struct {
	Base            string
	Symbols         []string
	PrettyPrint     *bool
	ShowAlternative *bool
	ShowInactive    *bool
}

// buildQuery renders the query string for a request. app_id always comes first
// and the boolean flags follow in a fixed order.
func buildQuery(appID string, params queryParams) string {
	var builder strings.Builder
	builder.WriteString("app_id=")
	builder.WriteString(url.QueryEscape(appID))

	if params.Base != "" {
		builder.WriteString("&base=")
		builder.WriteString(url.QueryEscape(params.Base))
	}

	if params.Symbols != nil {
		builder.WriteString("&symbols=")
		builder.WriteString(url.QueryEscape(strings.Join(params.Symbols, ",")))
	}

	appendBool(&builder, "prettyprint", params.PrettyPrint)
	appendBool(&builder, "show_alternative", params.ShowAlternative)
	appendBool(&builder, "show_inactive", params.ShowInactive)

	return builder.String()
}

func appendBool(builder *strings.Builder, name string, value *bool) {
	if value == nil {
		return
	}
	builder.WriteString("&")
	builder.WriteString(name)
	if *value {
		builder.WriteString("=true")
	} else {
		builder.WriteString("=false")
	}
}
