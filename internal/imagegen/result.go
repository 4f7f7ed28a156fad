package imagegen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"ytthumbs/internal/domain"
)

// Result is the decoded shape of a terminal success payload. It is one of
// StringResult, ObjectResult, ListResult or Unrecognized.
type Result interface {
	isResult()
}

// StringResult is a bare string value.
type StringResult struct{ Value string }

// ObjectResult is an object; URL is the first URL-bearing field found.
type ObjectResult struct {
	URL   string
	Field string
}

// ListResult is a JSON array of results.
type ListResult struct{ Items []Result }

// Unrecognized is any other JSON value, kept for logging.
type Unrecognized struct{ Raw json.RawMessage }

func (StringResult) isResult() {}
func (ObjectResult) isResult() {}
func (ListResult) isResult()   {}
func (Unrecognized) isResult() {}

// urlFields are probed in order on object results.
var urlFields = []string{"url", "image_url", "src"}

// DecodeResult decodes raw once into a Result.
func DecodeResult(raw json.RawMessage) Result {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Unrecognized{Raw: raw}
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return StringResult{Value: s}
		}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err == nil {
			for _, name := range urlFields {
				var s string
				if v, ok := fields[name]; ok && json.Unmarshal(v, &s) == nil && strings.TrimSpace(s) != "" {
					return ObjectResult{URL: s, Field: name}
				}
			}
			return ObjectResult{}
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err == nil {
			list := ListResult{Items: make([]Result, 0, len(items))}
			for _, item := range items {
				list.Items = append(list.Items, DecodeResult(item))
			}
			return list
		}
	}
	return Unrecognized{Raw: raw}
}

// Extract returns the generated image URL: a bare string is used directly, an
// object yields its URL field, and a list is judged by its first element.
func Extract(r Result) (string, error) {
	if list, ok := r.(ListResult); ok {
		if len(list.Items) == 0 {
			return "", noResult("generated list is empty")
		}
		r = list.Items[0]
	}
	if u := usableURL(r); u != "" {
		return u, nil
	}
	return "", noResult(fmt.Sprintf("unsupported result shape %s", describe(r)))
}

// ExtractAll returns up to limit usable URLs in payload order. The first
// entry must be usable; later unusable entries are skipped.
func ExtractAll(r Result, limit int) ([]string, error) {
	first, err := Extract(r)
	if err != nil {
		return nil, err
	}
	out := []string{first}
	list, ok := r.(ListResult)
	if !ok {
		return out, nil
	}
	for _, item := range list.Items[1:] {
		if len(out) >= limit {
			break
		}
		if u := usableURL(item); u != "" {
			out = append(out, u)
		}
	}
	return out, nil
}

func usableURL(r Result) string {
	var candidate string
	switch v := r.(type) {
	case StringResult:
		candidate = v.Value
	case ObjectResult:
		candidate = v.URL
	default:
		return ""
	}
	candidate = strings.TrimSpace(candidate)
	u, err := url.Parse(candidate)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return candidate
}

func describe(r Result) string {
	switch v := r.(type) {
	case StringResult:
		return "string"
	case ObjectResult:
		if v.URL == "" {
			return "object without url"
		}
		return "object"
	case ListResult:
		return "list"
	default:
		return "unrecognized"
	}
}

func noResult(detail string) error {
	return domain.NewPipelineError(domain.ErrNoResultFound, domain.StageExtract, "the generation result contained no image", errors.New(detail))
}
