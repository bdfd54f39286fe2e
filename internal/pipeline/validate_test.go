package pipeline

import (
	"strings"
	"testing"
)

func testLimits() Limits {
	return Limits{
		MaxRecipientLen:    64,
		MaxSubjectLen:      255,
		MaxBodyLen:         50000,
		MaxAttachments:     2,
		MaxAttachmentBytes: 2 * 1024 * 1024,
	}
}

func validRequest() Request {
	return Request{
		Recipient: "user@example.com",
		Subject:   "hello",
		Body:      "body text",
	}
}

func TestValidate_OK(t *testing.T) {
	if v := Validate(validRequest(), testLimits()); len(v) != 0 {
		t.Errorf("expected no violations, got %v", v)
	}
}

func TestValidate_RecipientRequired(t *testing.T) {
	req := validRequest()
	req.Recipient = ""

	v := Validate(req, testLimits())
	if len(v) != 1 || !strings.Contains(v[0], "required") {
		t.Errorf("expected single required violation, got %v", v)
	}
}

func TestValidate_RecipientTooLong(t *testing.T) {
	req := validRequest()
	req.Recipient = strings.Repeat("a", 60) + "@example.com"

	v := Validate(req, testLimits())
	if len(v) != 1 || !strings.Contains(v[0], "64") {
		t.Errorf("expected length violation, got %v", v)
	}
}

func TestValidate_RecipientMalformed(t *testing.T) {
	req := validRequest()
	req.Recipient = "not an address"

	v := Validate(req, testLimits())
	if len(v) != 1 || !strings.Contains(v[0], "valid address") {
		t.Errorf("expected address violation, got %v", v)
	}
}

func TestValidate_SubjectAndBodyLimits(t *testing.T) {
	req := validRequest()
	req.Subject = strings.Repeat("s", 256)
	req.Body = strings.Repeat("b", 50001)

	v := Validate(req, testLimits())
	if len(v) != 2 {
		t.Fatalf("expected two violations, got %v", v)
	}
}

func TestValidate_BodyType(t *testing.T) {
	req := validRequest()
	for _, ok := range []string{"", "plain", "html"} {
		req.BodyType = ok
		if v := Validate(req, testLimits()); len(v) != 0 {
			t.Errorf("body_type %q: expected no violations, got %v", ok, v)
		}
	}

	req.BodyType = "markdown"
	if v := Validate(req, testLimits()); len(v) != 1 {
		t.Errorf("expected body_type violation, got %v", v)
	}
}

func TestValidate_TooManyAttachments(t *testing.T) {
	req := validRequest()
	req.Attachments = []Attachment{
		{Filename: "a.txt", Data: []byte("a")},
		{Filename: "b.txt", Data: []byte("b")},
		{Filename: "c.txt", Data: []byte("c")},
	}

	v := Validate(req, testLimits())
	if len(v) != 1 || !strings.Contains(v[0], "at most 2") {
		t.Errorf("expected attachment count violation, got %v", v)
	}
}

func TestValidate_AttachmentConstraints(t *testing.T) {
	limits := testLimits()
	limits.MaxAttachmentBytes = 4

	req := validRequest()
	req.Attachments = []Attachment{
		{Filename: "", Data: []byte("a")},
		{Filename: "big.bin", Data: []byte("12345")},
	}

	v := Validate(req, limits)
	if len(v) != 2 {
		t.Fatalf("expected two violations, got %v", v)
	}
	if !strings.Contains(v[0], "filename") {
		t.Errorf("expected filename violation first, got %v", v[0])
	}
	if !strings.Contains(v[1], "big.bin") {
		t.Errorf("expected size violation naming the file, got %v", v[1])
	}
}

func TestValidate_RejectsControlCharactersInSubject(t *testing.T) {
	req := validRequest()
	req.Subject = "Hi\r\nBcc: attacker@evil.example"

	v := Validate(req, testLimits())
	if len(v) != 1 || !strings.Contains(v[0], "control characters") {
		t.Errorf("expected control character violation, got %v", v)
	}

	req.Subject = "tab\there"
	if v := Validate(req, testLimits()); len(v) != 1 {
		t.Errorf("expected tab to be rejected, got %v", v)
	}
}

func TestValidate_RejectsControlCharactersInFilename(t *testing.T) {
	req := validRequest()
	req.Attachments = []Attachment{
		{Filename: "a.txt\r\nX-Injected: yes", Data: []byte("x")},
	}

	v := Validate(req, testLimits())
	if len(v) != 1 || !strings.Contains(v[0], "control characters") {
		t.Errorf("expected control character violation, got %v", v)
	}
}

func TestValidate_CollectsMultipleViolations(t *testing.T) {
	req := Request{
		Recipient: "bad",
		Subject:   strings.Repeat("s", 300),
		BodyType:  "rtf",
	}

	v := Validate(req, testLimits())
	if len(v) != 3 {
		t.Errorf("expected three violations, got %v", v)
	}
}
