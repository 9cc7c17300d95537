package hub

import (
	"encoding/json"
	"time"
)

// Inbound message types.
const (
	msgSubscribe            = "subscribe"
	msgUnsubscribe          = "unsubscribe"
	msgPing                 = "ping"
	msgGetAgentStats        = "getAgentStats"
	msgGetPriceHistory      = "getPriceHistory"
	msgGetMarketData        = "getMarketData"
	msgGetOrderBook         = "getOrderBook"
	msgSubscribeToTrades    = "subscribeToTrades"
	msgSubscribeToPortfolio = "subscribeToPortfolio"
	msgBatchRequest         = "batchRequest"
	msgSetClientMetadata    = "setClientMetadata"
	msgAgentMessage         = "agentMessage"
)

// Error codes carried in error envelopes.
const (
	CodeInvalidMessage     = "INVALID_MESSAGE"
	CodeUnknownMessageType = "UNKNOWN_MESSAGE_TYPE"
	CodeInvalidChannel     = "INVALID_CHANNEL"
	CodeSubscriptionLimit  = "SUBSCRIPTION_LIMIT_EXCEEDED"
	CodeRateLimit          = "RATE_LIMIT_EXCEEDED"
	CodeBatchLimit         = "BATCH_LIMIT_EXCEEDED"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeQueryFailed        = "QUERY_FAILED"
)

// maxBatchRequests caps the sub-requests accepted in one batchRequest.
const maxBatchRequests = 10

// inbound is the envelope for client messages. One struct covers every
// message type; unused fields stay zero.
type inbound struct {
	Type         string            `json:"type"`
	Channel      string            `json:"channel,omitempty"`
	Options      json.RawMessage   `json:"options,omitempty"`
	Timestamp    int64             `json:"timestamp,omitempty"`
	AgentAddress string            `json:"agentAddress,omitempty"`
	UserAddress  string            `json:"userAddress,omitempty"`
	Timeframe    string            `json:"timeframe,omitempty"`
	Message      string            `json:"message,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Requests     []json.RawMessage `json:"requests,omitempty"`
}

// envelope builds an outbound frame: the given fields plus type and a
// millisecond timestamp. Fields named "type" or "timestamp" are overwritten.
func envelope(msgType string, fields map[string]any) []byte {
	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["type"] = msgType
	m["timestamp"] = time.Now().UnixMilli()

	data, err := json.Marshal(m)
	if err != nil {
		// Only unmarshalable field values can land here; callers pass
		// JSON-safe types.
		data, _ = json.Marshal(map[string]any{
			"type":      "error",
			"code":      CodeInvalidMessage,
			"timestamp": time.Now().UnixMilli(),
		})
	}
	return data
}

// errorEnvelope builds an error frame with a code, message, and any extra
// fields (e.g. retryAfter).
func errorEnvelope(code, message string, extra map[string]any) []byte {
	fields := map[string]any{
		"code":    code,
		"message": message,
	}
	for k, v := range extra {
		fields[k] = v
	}
	return envelope("error", fields)
}
