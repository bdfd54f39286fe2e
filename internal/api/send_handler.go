package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sungwon/mail-gateway/internal/pipeline"
)

// Deliverer executes one mail-send request end to end.
type Deliverer interface {
	Deliver(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// SendHandler handles the mail-send endpoints.
type SendHandler struct {
	pipeline Deliverer
	limits   pipeline.Limits
	log      zerolog.Logger
}

// NewSendHandler creates a SendHandler.
func NewSendHandler(d Deliverer, limits pipeline.Limits, log zerolog.Logger) *SendHandler {
	return &SendHandler{pipeline: d, limits: limits, log: log}
}

// sendRequest is the JSON body of POST /v1/mail/send.
type sendRequest struct {
	RecipientEmail string `json:"recipient_email"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	BodyType       string `json:"body_type"`
	Debug          bool   `json:"debug"`
}

// sendResponse is the success body of both send endpoints.
type sendResponse struct {
	RequestID     string `json:"request_id"`
	Detail        string `json:"detail"`
	MessageLength int    `json:"message_length"`
}

// Send handles POST /v1/mail/send with a JSON body and no attachments.
func (h *SendHandler) Send(w http.ResponseWriter, r *http.Request) {
	var body sendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	h.deliver(w, r, pipeline.Request{
		Recipient: body.RecipientEmail,
		Subject:   body.Subject,
		Body:      body.Body,
		BodyType:  body.BodyType,
		Debug:     body.Debug,
		ClientIP:  clientIP(r),
	})
}

// SendWithAttachments handles POST /v1/mail/send-with-attachments as a
// multipart form. Text fields mirror the JSON endpoint; file parts are read
// from the repeated "attachments" field. The form is read in full here and
// validated by the pipeline before any storage write.
func (h *SendHandler) SendWithAttachments(w http.ResponseWriter, r *http.Request) {
	// Cap the request body a little above the theoretical maximum so an
	// oversized upload fails the read instead of exhausting memory.
	maxForm := h.limits.MaxAttachmentBytes*int64(h.limits.MaxAttachments+1) + int64(h.limits.MaxBodyLen) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxForm)

	if err := r.ParseMultipartForm(maxForm); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := pipeline.Request{
		Recipient: r.FormValue("recipient_email"),
		Subject:   r.FormValue("subject"),
		Body:      r.FormValue("body"),
		BodyType:  r.FormValue("body_type"),
		Debug:     strings.EqualFold(r.FormValue("debug"), "true"),
		ClientIP:  clientIP(r),
	}

	for _, fh := range r.MultipartForm.File["attachments"] {
		f, err := fh.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "bad_request", "unreadable attachment part")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, "bad_request", "unreadable attachment part")
			return
		}
		req.Attachments = append(req.Attachments, pipeline.Attachment{
			// Some clients send a full path; only the base name is kept.
			Filename:    filepath.Base(fh.Filename),
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	h.deliver(w, r, req)
}

// deliver runs the pipeline and translates its outcome to HTTP.
func (h *SendHandler) deliver(w http.ResponseWriter, r *http.Request, req pipeline.Request) {
	result, err := h.pipeline.Deliver(r.Context(), req)
	if err != nil {
		h.respondDeliveryError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sendResponse{
		RequestID:     result.RequestID.String(),
		Detail:        "mail delivered",
		MessageLength: result.MessageLength,
	})
}

// respondDeliveryError maps pipeline errors to HTTP status codes.
func (h *SendHandler) respondDeliveryError(w http.ResponseWriter, err error) {
	var ve *pipeline.ValidationError
	if errors.As(err, &ve) {
		respondValidationErrors(w, ve.Violations)
		return
	}

	var se *pipeline.StageError
	if errors.As(err, &se) {
		switch se.Kind {
		case pipeline.KindQuotaExceeded:
			respondError(w, http.StatusBadRequest, se.Kind, "attachment exceeds the size limit")
		case pipeline.KindStorageUnavailable:
			respondError(w, http.StatusServiceUnavailable, se.Kind, "attachment storage is unavailable")
		case pipeline.KindConnect, pipeline.KindAuth, pipeline.KindSend:
			respondError(w, http.StatusBadGateway, se.Kind, "mail relay refused the message")
		default:
			// NotFound and CompositionError both mean the request was fine
			// and the service broke mid-flight.
			respondError(w, http.StatusInternalServerError, se.Kind, "message could not be composed")
		}
		return
	}

	h.log.Error().Err(err).Msg("unclassified delivery error")
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// clientIP resolves the originating address, preferring the proxy-supplied
// X-Real-IP header over the socket peer.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
