package logx

const (
	FieldAddress         = "address"
	FieldAmount          = "amount"
	FieldAppName         = "app-name"
	FieldAppVersion      = "app-version"
	FieldContentLength   = "content-length"
	FieldCursor          = "cursor"
	FieldDurationMs      = "duration-ms"
	FieldError           = "error"
	FieldGiveawayID      = "giveaway-id"
	FieldHTTPMethod      = "http-method"
	FieldHTTPRequest     = "http-request"
	FieldHTTPResponse    = "http-response"
	FieldIP              = "ip"
	FieldJob             = "job"
	FieldListingID       = "listing-id"
	FieldMessageID       = "message-id"
	FieldRecipientID     = "recipient-id"
	FieldReferrerID      = "referrer-id"
	FieldRequestBody     = "request-body"
	FieldRequestID       = "request-id"
	FieldResponseBody    = "response-body"
	FieldResponseHeaders = "response-headers"
	FieldResponseStatus  = "response-status"
	FieldSellerID        = "seller-id"
	FieldStack           = "stack"
	FieldTraceID         = "trace-id"
	FieldURL             = "url"
	FieldUserID          = "user-id"
	FieldWithdrawID      = "withdraw-id"
)
