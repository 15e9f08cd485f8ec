package tracing

// Span attribute keys.
const (
	// Render data attributes
	AttrSlotName    = "slot.name"
	AttrSlotKind    = "slot.kind"
	AttrSlotSize    = "slot.size"
	AttrSlotCount   = "slot.count"
	AttrSlotSkipped = "slot.skipped"
	AttrEntityType  = "entity.type"

	// HTTP attributes
	AttrHTTPMethod    = "http.method"
	AttrHTTPRoute     = "http.route"
	AttrHTTPStatus    = "http.status_code"
	AttrHTTPRequestID = "http.request_id"

	// Notification attributes
	AttrNotifyChannel = "notify.channel"
	AttrApplicationID = "application.id"
)

// Span names and prefixes.
const (
	SpanPrime         = "renderdata.prime"
	SpanPrefixRefresh = "renderdata.refresh."
	SpanPrefixHTTP    = "http."
	SpanNotify        = "notify.telegram"
)
