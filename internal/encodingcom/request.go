package encodingcom

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"encodeflow/internal/config"
	"encodeflow/internal/services"
)

// ActionAddMedia asks the provider to fetch the source and start processing.
const ActionAddMedia = "AddMedia"

// thumbnailOutput is the output value the provider uses for still images.
const thumbnailOutput = "thumbnail"

// Credentials authenticate every request.
type Credentials struct {
	UserID  string
	UserKey string
}

// RequestInput is everything needed to describe one encoding job.
// Destinations maps each rendition and thumbnail suffix to its upload URL.
type RequestInput struct {
	Credentials  Credentials
	NotifyURL    string
	SourceURL    string
	Renditions   []config.Rendition
	Thumbnails   []config.Thumbnail
	Destinations map[string]string
}

type queryDocument struct {
	XMLName xml.Name         `xml:"query"`
	UserID  string           `xml:"userid"`
	UserKey string           `xml:"userkey"`
	Action  string           `xml:"action"`
	Source  string           `xml:"source"`
	Notify  string           `xml:"notify"`
	Formats []formatDocument `xml:"format"`
}

type formatDocument struct {
	Output      string `xml:"output"`
	VideoCodec  string `xml:"video_codec,omitempty"`
	TwoPass     string `xml:"two_pass,omitempty"`
	Width       int    `xml:"width,omitempty"`
	Height      int    `xml:"height,omitempty"`
	Destination string `xml:"destination"`
}

// BuildRequest renders the AddMedia query document. Renditions are emitted
// before thumbnails, each in configuration order, so identical input always
// yields identical bytes.
func BuildRequest(in RequestInput) ([]byte, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	doc := queryDocument{
		UserID:  in.Credentials.UserID,
		UserKey: in.Credentials.UserKey,
		Action:  ActionAddMedia,
		Source:  in.SourceURL,
		Notify:  in.NotifyURL,
		Formats: make([]formatDocument, 0, len(in.Renditions)+len(in.Thumbnails)),
	}
	for _, r := range in.Renditions {
		doc.Formats = append(doc.Formats, formatDocument{
			Output:      r.Output(),
			VideoCodec:  strings.TrimSpace(r.VideoCodec),
			TwoPass:     yesNo(r.TwoPass),
			Destination: in.Destinations[r.Suffix],
		})
	}
	for _, t := range in.Thumbnails {
		doc.Formats = append(doc.Formats, formatDocument{
			Output:      thumbnailOutput,
			Width:       t.Width,
			Height:      t.Height,
			Destination: in.Destinations[t.Suffix],
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, services.Wrap(services.ErrValidation, "encodingcom", "build request", "encode xml", err)
	}
	return buf.Bytes(), nil
}

func validateInput(in RequestInput) error {
	invalid := func(message string) error {
		return services.Wrap(services.ErrValidation, "encodingcom", "build request", message, nil)
	}
	if strings.TrimSpace(in.Credentials.UserID) == "" || strings.TrimSpace(in.Credentials.UserKey) == "" {
		return invalid("credentials are required")
	}
	if strings.TrimSpace(in.SourceURL) == "" {
		return invalid("source url is required")
	}
	if strings.TrimSpace(in.NotifyURL) == "" {
		return invalid("notify url is required")
	}
	for _, r := range in.Renditions {
		if strings.TrimSpace(in.Destinations[r.Suffix]) == "" {
			return invalid(fmt.Sprintf("no destination for rendition %q", r.Suffix))
		}
	}
	for _, t := range in.Thumbnails {
		if strings.TrimSpace(in.Destinations[t.Suffix]) == "" {
			return invalid(fmt.Sprintf("no destination for thumbnail %q", t.Suffix))
		}
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
