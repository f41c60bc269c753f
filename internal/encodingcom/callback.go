package encodingcom

import (
	"encoding/xml"
	"io"
	"strings"

	"encodeflow/internal/services"
)

// CallbackPayload is the provider's asynchronous job notification.
type CallbackPayload struct {
	MediaID string
	Status  string
	// HasStatus distinguishes an absent status element from an empty one.
	HasStatus bool
}

type callbackDocument struct {
	XMLName xml.Name
	MediaID *string `xml:"mediaid"`
	Status  *string `xml:"status"`
}

const maxCallbackBytes = 1 << 20

// ParseCallback decodes a notification document of the form
// <result><mediaid>..</mediaid><status>..</status></result>.
// The root element name is not checked.
func ParseCallback(r io.Reader) (CallbackPayload, error) {
	if r == nil {
		return CallbackPayload{}, services.Wrap(services.ErrMalformedCallback, "encodingcom", "parse callback", "empty body", nil)
	}
	var doc callbackDocument
	if err := xml.NewDecoder(io.LimitReader(r, maxCallbackBytes)).Decode(&doc); err != nil {
		return CallbackPayload{}, services.Wrap(services.ErrMalformedCallback, "encodingcom", "parse callback", "decode xml", err)
	}
	payload := CallbackPayload{}
	if doc.MediaID != nil {
		payload.MediaID = strings.TrimSpace(*doc.MediaID)
	}
	if doc.Status != nil {
		payload.Status = strings.TrimSpace(*doc.Status)
		payload.HasStatus = true
	}
	return payload, nil
}
