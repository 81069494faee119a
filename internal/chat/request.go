package chat

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	internal_errors "github.com/viabilitychat/chatrelay/internal/errors"
)

// ParseRequest decodes a relay request body. The shape check runs on the raw
// JSON first so that a missing or non-array messages field is reported as
// such instead of as a decoding failure.
func ParseRequest(body []byte) (*Request, error) {
	if !gjson.ValidBytes(body) {
		return nil, internal_errors.NewInvalidRequestError("invalid format: body is not valid json")
	}

	messages := gjson.GetBytes(body, "messages")
	if !messages.Exists() || !messages.IsArray() {
		return nil, internal_errors.NewInvalidRequestError("invalid format: missing messages[]")
	}

	for i, m := range messages.Array() {
		if !m.IsObject() {
			return nil, internal_errors.NewInvalidRequestError(fmt.Sprintf("invalid format: messages[%d] is not an object", i))
		}

		role := m.Get("role")
		if role.Type != gjson.String || !Role(role.Str).Valid() {
			return nil, internal_errors.NewInvalidRequestError(fmt.Sprintf("invalid format: messages[%d].role must be one of user, assistant, system", i))
		}

		content := m.Get("content")
		if content.Exists() && content.Type != gjson.String && content.Type != gjson.Null {
			return nil, internal_errors.NewInvalidRequestError(fmt.Sprintf("invalid format: messages[%d].content must be a string", i))
		}
	}

	for _, field := range []string{"system", "model", "preset"} {
		r := gjson.GetBytes(body, field)
		if r.Exists() && r.Type != gjson.String && r.Type != gjson.Null {
			return nil, internal_errors.NewInvalidRequestError(fmt.Sprintf("invalid format: %s must be a string", field))
		}
	}

	stream := gjson.GetBytes(body, "stream")
	if stream.Exists() && !stream.IsBool() && stream.Type != gjson.Null {
		return nil, internal_errors.NewInvalidRequestError("invalid format: stream must be a boolean")
	}

	req := &Request{}
	err := json.Unmarshal(body, req)
	if err != nil {
		return nil, internal_errors.NewInvalidRequestError("invalid format: " + err.Error())
	}

	if req.Messages == nil {
		req.Messages = []Message{}
	}

	return req, nil
}
