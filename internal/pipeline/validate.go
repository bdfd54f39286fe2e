package pipeline

import (
	"fmt"
	"net/mail"
	"strings"
)

// Limits mirrors config.LimitsConfig to avoid a dependency on the config
// package. Callers populate it from configuration at startup.
type Limits struct {
	MaxRecipientLen    int
	MaxSubjectLen      int
	MaxBodyLen         int
	MaxAttachments     int
	MaxAttachmentBytes int64
}

// Validate checks a request against the configured limits and returns the
// list of violations. It is pure: no side effects, no I/O. An empty result
// means the request may enter the pipeline.
func Validate(req Request, l Limits) []string {
	var violations []string

	if req.Recipient == "" {
		violations = append(violations, "recipient_email is required")
	} else {
		if len(req.Recipient) > l.MaxRecipientLen {
			violations = append(violations,
				fmt.Sprintf("recipient_email must be at most %d characters", l.MaxRecipientLen))
		}
		if _, err := mail.ParseAddress(req.Recipient); err != nil {
			violations = append(violations, "recipient_email is not a valid address")
		}
	}

	if len(req.Subject) > l.MaxSubjectLen {
		violations = append(violations,
			fmt.Sprintf("subject must be at most %d characters", l.MaxSubjectLen))
	}
	// Subject and filenames end up in message headers; a raw CR or LF
	// would let the client smuggle additional headers past validation.
	if containsControlChars(req.Subject) {
		violations = append(violations, "subject must not contain control characters")
	}
	if len(req.Body) > l.MaxBodyLen {
		violations = append(violations,
			fmt.Sprintf("body must be at most %d characters", l.MaxBodyLen))
	}

	switch req.BodyType {
	case "", "plain", "html":
	default:
		violations = append(violations, `body_type must be either "plain" or "html"`)
	}

	if len(req.Attachments) > l.MaxAttachments {
		violations = append(violations,
			fmt.Sprintf("at most %d attachments are allowed", l.MaxAttachments))
	}
	for _, att := range req.Attachments {
		if att.Filename == "" {
			violations = append(violations, "attachment filename is required")
			continue
		}
		if containsControlChars(att.Filename) {
			violations = append(violations,
				"attachment filename must not contain control characters")
		}
		if int64(len(att.Data)) > l.MaxAttachmentBytes {
			violations = append(violations,
				fmt.Sprintf("attachment %q exceeds the %d byte limit", att.Filename, l.MaxAttachmentBytes))
		}
	}

	return violations
}

// containsControlChars reports whether s contains ASCII control
// characters, including CR and LF.
func containsControlChars(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return r < 0x20 || r == 0x7f
	})
}
