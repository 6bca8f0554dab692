package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Annotation is a note attached to a captured element, stamped by the relay
// when it arrives.
type Annotation struct {
	ID         string    `json:"id"`
	SessionID  SessionID `json:"sessionId,omitempty"`
	Note       string    `json:"note"`
	Element    Element   `json:"element"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type ElementAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type ElementPosition struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is the descriptor produced by the page-capture side. Only URL is
// required; the remaining fields are decoded best effort for display and the
// original document is kept verbatim so it round-trips untouched.
type Element struct {
	URL        string             `json:"url"`
	Selector   string             `json:"selector,omitempty"`
	XPath      string             `json:"xpath,omitempty"`
	TagName    string             `json:"tagName,omitempty"`
	DOMID      string             `json:"id,omitempty"`
	ClassName  string             `json:"className,omitempty"`
	InnerText  string             `json:"innerText,omitempty"`
	Attributes []ElementAttribute `json:"attributes,omitempty"`
	Position   *ElementPosition   `json:"position,omitempty"`
	Timestamp  string             `json:"timestamp,omitempty"`

	raw json.RawMessage
}

type elementFields Element

func (e *Element) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: element must be a JSON object", ErrMalformedAnnotation)
	}
	if fields == nil {
		*e = Element{}
		return nil
	}

	var decoded Element
	if raw, ok := fields["url"]; ok {
		if err := json.Unmarshal(raw, &decoded.URL); err != nil {
			return fmt.Errorf("%w: element url must be a string", ErrMalformedAnnotation)
		}
	}
	decodeField(fields, "selector", &decoded.Selector)
	decodeField(fields, "xpath", &decoded.XPath)
	decodeField(fields, "tagName", &decoded.TagName)
	decodeField(fields, "id", &decoded.DOMID)
	decodeField(fields, "className", &decoded.ClassName)
	decodeField(fields, "innerText", &decoded.InnerText)
	decodeField(fields, "attributes", &decoded.Attributes)
	decodeField(fields, "position", &decoded.Position)
	decodeField(fields, "timestamp", &decoded.Timestamp)

	decoded.raw = append(json.RawMessage(nil), data...)
	*e = decoded
	return nil
}

func (e Element) MarshalJSON() ([]byte, error) {
	if len(e.raw) > 0 {
		return e.raw, nil
	}

	return json.Marshal(elementFields(e))
}

func (e Element) Validate() error {
	if strings.TrimSpace(e.URL) == "" {
		return fmt.Errorf("%w: element url is required", ErrMalformedAnnotation)
	}

	return nil
}

func decodeField(fields map[string]json.RawMessage, key string, dst any) {
	raw, ok := fields[key]
	if !ok {
		return
	}

	// Mistyped optional fields are left zero; the raw document still carries them.
	_ = json.Unmarshal(raw, dst)
}
