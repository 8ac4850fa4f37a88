package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"

	// checkout business counters
	MPaymentAttempts MetricKey = "payment_attempts_total"       // {method,result}
	MSettledAmount   MetricKey = "payment_settled_amount_total" // {method}
	MStockRejections MetricKey = "stock_rejections_total"       // {reason}
)
