package dispatch

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"hookrelay/internal/domain"
)

// mergePayload builds the outbound body from the occurrence payload plus
// the service token. The service token wins over any token key already in
// the payload. The input map is never mutated.
func mergePayload(payload map[string]any, token string) map[string]any {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	if token != "" {
		body["token"] = token
	}
	return body
}

// encodeBody serializes the body per the service content type.
func encodeBody(contentType domain.ContentType, body map[string]any) ([]byte, error) {
	switch contentType {
	case domain.ContentTypeJSON:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("encode json body: %v", err)}
		}
		return data, nil
	case domain.ContentTypeForm:
		values := url.Values{}
		for k, v := range body {
			s, err := formValue(v)
			if err != nil {
				return nil, &ConfigError{Reason: fmt.Sprintf("encode form field %q: %v", k, err)}
			}
			values.Set(k, s)
		}
		return []byte(values.Encode()), nil
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("unsupported content type %q", contentType)}
	}
}

// formValue flattens one payload value for form encoding. Scalars keep
// their natural text form; nested values are JSON-stringified since
// form-urlencoded has no native nesting.
func formValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case json.Number:
		return t.String(), nil
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
