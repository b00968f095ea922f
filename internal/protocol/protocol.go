// Package protocol carries the JSON-RPC 2.0 message model and the
// Content-Length framed transport the language server speaks over
// standard input and output, together with the protocol structures for
// the features the server implements.
package protocol

import "encoding/json"

// Message is a JSON-RPC 2.0 message: request, notification, or
// response, depending on which fields are set. IDs stay raw so that
// numeric and string ids round-trip byte for byte.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is a JSON-RPC 2.0 error object.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return e.Message
}

// Standard JSON-RPC error codes, plus the server-not-initialized code
// the language server protocol reserves.
const (
	ParseError           = -32700
	InvalidRequest       = -32600
	MethodNotFound       = -32601
	InvalidParams        = -32602
	InternalError        = -32603
	ServerNotInitialized = -32002
)

// NewResultMessage builds a successful response. A nil result encodes
// as an explicit null, which the protocol requires for empty results.
func NewResultMessage(id json.RawMessage, result any) *Message {
	if result == nil {
		result = json.RawMessage("null")
	}
	return &Message{JSONRPC: "2.0", ID: id, Result: result}
}

// NewErrorMessage builds an error response.
func NewErrorMessage(id json.RawMessage, code int, message string) *Message {
	return &Message{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &ResponseError{Code: code, Message: message},
	}
}

// NewNotificationMessage builds a notification (no id, no response).
func NewNotificationMessage(method string, params json.RawMessage) *Message {
	return &Message{JSONRPC: "2.0", Method: method, Params: params}
}

// IsRequest reports whether the message expects a response.
func (m *Message) IsRequest() bool {
	return m.Method != "" && len(m.ID) > 0
}

// IsNotification reports whether the message is a notification.
func (m *Message) IsNotification() bool {
	return m.Method != "" && len(m.ID) == 0
}
