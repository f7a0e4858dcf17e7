package mcp

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notecomb/notecomb/internal/errors"
)

// decode unmarshals MCP request arguments into a typed request struct.
// Malformed arguments come back as an INVALID_REQUEST error, ready for
// errorResult, so handlers never see a raw json error.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	args := req.GetArguments()
	b, err := json.Marshal(args)
	if err != nil {
		return result, errors.NewInvalidRequest("invalid arguments: " + err.Error())
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, errors.NewInvalidRequest("invalid arguments: " + err.Error())
	}
	return result, nil
}
