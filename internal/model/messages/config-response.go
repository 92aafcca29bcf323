package messages

import "encoding/json"

// ConfigResponse is the envelope returned by the configuration service.
type ConfigResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}
