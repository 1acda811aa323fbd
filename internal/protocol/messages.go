package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type" jsonschema:"required"`
	ProtocolVersion string            `json:"protocol_version" jsonschema:"required"`
	ClientName      string            `json:"client_name" jsonschema:"required"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type" jsonschema:"required"`
	ProtocolVersion string         `json:"protocol_version" jsonschema:"required"`
	SessionID       string         `json:"session_id" jsonschema:"required"`
	Ops             []string       `json:"ops" jsonschema:"required"`
	Catalogs        CatalogDigests `json:"catalogs" jsonschema:"required"`
}

// CatalogDigests tells a client which rules the server plays by.
type CatalogDigests struct {
	Combined string            `json:"combined" jsonschema:"required"`
	Tuning   string            `json:"tuning" jsonschema:"required"`
	Files    map[string]string `json:"files" jsonschema:"required"`
}

// OP (client -> server): one boundary operation. ID is echoed back.
type OpMsg struct {
	Type            string          `json:"type" jsonschema:"required"`
	ProtocolVersion string          `json:"protocol_version,omitempty"`
	ID              string          `json:"id" jsonschema:"required"`
	Op              string          `json:"op" jsonschema:"required"`
	Payload         json.RawMessage `json:"payload,omitempty"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string `json:"type" jsonschema:"required"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Op              string `json:"op,omitempty"`
	OK              bool   `json:"ok" jsonschema:"required"`
	Result          any    `json:"result,omitempty"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}

func Failure(id, op, code, msg string) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ID: id, Op: op, Code: code, Message: msg}
}

func Success(id, op string, result any) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ID: id, Op: op, OK: true, Result: result}
}
