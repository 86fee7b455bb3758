package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/wortal/internal/errors"
)

// maxExactFloat is 2^53. From there on, distinct int64 values share a float64.
const maxExactFloat = 1 << 53

// decode unmarshals MCP request arguments into a typed struct.
// Unknown argument names are rejected so typos surface as INVALID_PARAM
// instead of silently falling back to defaults.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	args := req.GetArguments()
	if args == nil {
		return result, nil
	}
	for name, v := range args {
		if err := checkExact(name, v); err != nil {
			return result, err
		}
	}
	b, err := json.Marshal(args)
	if err != nil {
		return result, errors.NewInvalidParam("arguments", fmt.Sprintf("marshal: %v", err))
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&result); err != nil {
		return result, errors.NewInvalidParam("arguments", err.Error())
	}
	return result, nil
}

// checkExact rejects a top-level number that arrived as float64 beyond 2^53.
// The transport has already rounded it, so passing it on would store a
// different value than the caller sent. Nested blobs such as player data are
// opaque JSON and keep float semantics.
func checkExact(field string, v any) error {
	if f, ok := v.(float64); ok && math.Abs(f) >= maxExactFloat {
		return errors.NewInvalidParam(field, "exceeds 2^53 and lost precision in transit; send it as a decimal string")
	}
	return nil
}

// exactInt is an int64 argument given either as a JSON integer or as a
// decimal string, so the full 64-bit range can cross a float64 transport.
type exactInt int64

func (n *exactInt) UnmarshalJSON(b []byte) error {
	text := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return fmt.Errorf("%s is not a 64-bit integer", text)
	}
	*n = exactInt(v)
	return nil
}
