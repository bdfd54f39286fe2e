// Package compose builds the raw MIME message handed to the SMTP transport.
// Composition is deterministic: given identical inputs the output bytes are
// identical, which lets the debug audit artifact reproduce exactly what was
// (or would have been) sent.
package compose

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"
)

// BodyType selects the MIME type of the message body.
type BodyType string

const (
	BodyPlain BodyType = "plain"
	BodyHTML  BodyType = "html"
)

// ContentType returns the MIME content type for the body part.
func (t BodyType) ContentType() string {
	if t == BodyHTML {
		return "text/html; charset=UTF-8"
	}
	return "text/plain; charset=UTF-8"
}

// Attachment is one file part of the outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Input holds everything needed to build a message. Date and ID are
// request-scoped values supplied by the pipeline so that building the
// same Input twice yields byte-identical output.
type Input struct {
	// ID is the request UUID; it seeds the Message-ID header and the
	// multipart boundary.
	ID string
	// From is the display address for the From header.
	From string
	// To is the single recipient address.
	To      string
	Subject string
	Body    string
	// BodyType defaults to plain when empty.
	BodyType BodyType
	// Date is the request timestamp used for the Date header.
	Date time.Time
	// SenderDomain forms the right-hand side of the Message-ID header.
	SenderDomain string
	Attachments  []Attachment
}

// Build constructs the raw RFC 2045 message. The only failure modes are
// internal encoding faults, which signal a logic defect upstream.
func Build(in Input) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", in.From)
	fmt.Fprintf(&buf, "To: %s\r\n", in.To)
	// Q-encoding keeps the subject a single header line whatever bytes
	// the caller passed; plain ASCII comes through unchanged.
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", in.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", in.Date.Format(time.RFC1123Z))
	if in.SenderDomain != "" {
		fmt.Fprintf(&buf, "Message-ID: <%s@%s>\r\n", in.ID, in.SenderDomain)
	}
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&buf)
	// A boundary derived from the request ID keeps composition
	// deterministic for the debug artifact.
	if err := writer.SetBoundary(boundaryFromID(in.ID)); err != nil {
		return nil, fmt.Errorf("compose: set boundary: %w", err)
	}
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	bodyType := in.BodyType
	if bodyType == "" {
		bodyType = BodyPlain
	}

	bodyHeader := make(textproto.MIMEHeader)
	bodyHeader.Set("Content-Type", bodyType.ContentType())
	part, err := writer.CreatePart(bodyHeader)
	if err != nil {
		return nil, fmt.Errorf("compose: create body part: %w", err)
	}
	part.Write([]byte(in.Body))

	for _, att := range in.Attachments {
		attHeader := make(textproto.MIMEHeader)
		attHeader.Set("Content-Type", attachmentContentType(att))
		attHeader.Set("Content-Transfer-Encoding", "base64")
		attHeader.Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s", mime.QEncoding.Encode("UTF-8", att.Filename)))

		part, err := writer.CreatePart(attHeader)
		if err != nil {
			return nil, fmt.Errorf("compose: create attachment part: %w", err)
		}

		encoded := encodeBase64WithLineBreaks(att.Content)
		part.Write([]byte(encoded))
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("compose: close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// boundaryFromID builds a boundary token from the request UUID.
func boundaryFromID(id string) string {
	return "=_mg_" + strings.ReplaceAll(id, "-", "")
}

// attachmentContentType returns the declared content type, guessing from
// the filename extension when the declaration is missing or generic.
func attachmentContentType(att Attachment) string {
	ct := strings.TrimSpace(att.ContentType)
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if guessed := mime.TypeByExtension(filepath.Ext(att.Filename)); guessed != "" {
		return guessed
	}
	return "application/octet-stream"
}

// encodeBase64WithLineBreaks encodes bytes to base64 with 76-character
// line breaks per RFC 2045.
func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}
