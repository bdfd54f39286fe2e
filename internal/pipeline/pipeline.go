// Package pipeline orchestrates one mail-send request from validation to
// delivery: validate, stage attachments in the object store, compose the
// MIME message, transmit it through the SMTP relay, and write the audit
// record. Staged attachments are deleted on every exit path once staging
// has begun.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sungwon/mail-gateway/internal/audit"
	"github.com/sungwon/mail-gateway/internal/compose"
	"github.com/sungwon/mail-gateway/internal/metrics"
	"github.com/sungwon/mail-gateway/internal/objstore"
	"github.com/sungwon/mail-gateway/internal/transport"
)

// Attachment is one uploaded file accompanying a request.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Request is a validated-shape mail-send request. Field constraints are
// enforced by Validate before any side effect occurs.
type Request struct {
	// ID is assigned by the pipeline when nil.
	ID        uuid.UUID
	Recipient string
	Subject   string
	Body      string
	// BodyType is "plain" (default) or "html".
	BodyType string
	// Debug requests a verbatim copy of the composed message in the
	// audit store, independent of the delivery outcome.
	Debug       bool
	ClientIP    string
	Attachments []Attachment
}

// Result reports a completed delivery.
type Result struct {
	RequestID     uuid.UUID
	MessageLength int
}

// stagedAttachment tracks one blob placed in the staging store.
type stagedAttachment struct {
	Key         string
	Filename    string
	ContentType string
	Size        int64
}

// Pipeline executes mail-send requests. It holds no per-request state and
// is safe for concurrent use.
type Pipeline struct {
	store        objstore.BlobStore
	sender       transport.Sender
	audit        *audit.Logger
	limits       Limits
	identity     transport.Identity
	senderDomain string
	log          zerolog.Logger
	now          func() time.Time
}

// Options bundles the pipeline's collaborators and settings.
type Options struct {
	Store        objstore.BlobStore
	Sender       transport.Sender
	Audit        *audit.Logger
	Limits       Limits
	Identity     transport.Identity
	SenderDomain string
	Log          zerolog.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{
		store:        opts.Store,
		sender:       opts.Sender,
		audit:        opts.Audit,
		limits:       opts.Limits,
		identity:     opts.Identity,
		senderDomain: opts.SenderDomain,
		log:          opts.Log,
		now:          time.Now,
	}
}

// Deliver runs the full pipeline for one request. On success it returns a
// Result and has written one success audit record. After validation, every
// failure writes exactly one failure audit record and surfaces as a
// *StageError; validation failures surface as *ValidationError with no
// record written.
func (p *Pipeline) Deliver(ctx context.Context, req Request) (*Result, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	ts := p.now()
	start := ts

	if violations := Validate(req, p.limits); len(violations) > 0 {
		metrics.DeliveriesTotal.WithLabelValues("rejected").Inc()
		return nil, &ValidationError{Violations: violations}
	}

	log := p.log.With().
		Str("request_id", req.ID.String()).
		Str("recipient", req.Recipient).
		Logger()

	staged, stageErr := p.stageAttachments(ctx, req, log)
	if stageErr != nil {
		p.recordFailure(ctx, req, ts, stageErr)
		return nil, stageErr
	}
	// Attachments are transient staging; delete them on every exit path
	// from here on, whatever the delivery outcome.
	defer p.cleanup(ctx, staged, log)

	message, stageErr := p.composeMessage(ctx, req, ts, staged)
	if stageErr != nil {
		p.recordFailure(ctx, req, ts, stageErr)
		return nil, stageErr
	}

	sendErr := p.sender.Send(ctx, req.Recipient, message, p.identity)

	entry := audit.Entry{
		RequestID: req.ID.String(),
		Timestamp: ts,
		Recipient: req.Recipient,
		Subject:   req.Subject,
		ClientIP:  req.ClientIP,
	}

	if sendErr != nil {
		kind := deliveryKind(sendErr)
		entry.Outcome = audit.OutcomeFailure
		entry.ErrorKind = kind
		entry.ErrorDetail = sendErr.Error()
		p.audit.Record(ctx, entry)
		if req.Debug {
			p.audit.RecordDebug(ctx, req.ID.String(), ts, message)
		}
		metrics.DeliveriesTotal.WithLabelValues("failure").Inc()
		metrics.StageFailuresTotal.WithLabelValues(string(StageDelivering)).Inc()
		log.Error().Err(sendErr).Str("kind", kind).Msg("delivery failed")
		return nil, &StageError{Stage: StageDelivering, Kind: kind, Err: sendErr}
	}

	entry.Outcome = audit.OutcomeSuccess
	entry.MessageLength = len(message)
	p.audit.Record(ctx, entry)
	if req.Debug {
		p.audit.RecordDebug(ctx, req.ID.String(), ts, message)
	}

	metrics.DeliveriesTotal.WithLabelValues("success").Inc()
	metrics.DeliveryDuration.Observe(p.now().Sub(start).Seconds())
	log.Info().Int("message_length", len(message)).Msg("mail delivered")

	return &Result{RequestID: req.ID, MessageLength: len(message)}, nil
}

// stageAttachments uploads each attachment to the staging store. The first
// failure aborts the request; already-staged blobs are deleted best-effort
// before returning.
func (p *Pipeline) stageAttachments(ctx context.Context, req Request, log zerolog.Logger) ([]stagedAttachment, *StageError) {
	var staged []stagedAttachment

	for _, att := range req.Attachments {
		key := fmt.Sprintf("%s_%s", uuid.New(), att.Filename)
		if err := p.store.Put(ctx, key, att.Data); err != nil {
			p.cleanup(ctx, staged, log)
			metrics.StageFailuresTotal.WithLabelValues(string(StageStaging)).Inc()

			kind := KindStorageUnavailable
			if errors.Is(err, objstore.ErrTooLarge) {
				kind = KindQuotaExceeded
			}
			log.Error().Err(err).Str("filename", att.Filename).Msg("attachment staging failed")
			return nil, &StageError{Stage: StageStaging, Kind: kind, Err: err}
		}

		staged = append(staged, stagedAttachment{
			Key:         key,
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Size:        int64(len(att.Data)),
		})
		metrics.AttachmentsStagedTotal.Inc()
		metrics.AttachmentBytesTotal.Add(float64(len(att.Data)))
	}

	return staged, nil
}

// composeMessage re-fetches staged blobs and builds the raw MIME message.
func (p *Pipeline) composeMessage(ctx context.Context, req Request, ts time.Time, staged []stagedAttachment) ([]byte, *StageError) {
	attachments := make([]compose.Attachment, 0, len(staged))
	for _, s := range staged {
		data, err := p.store.Get(ctx, s.Key)
		if err != nil {
			metrics.StageFailuresTotal.WithLabelValues(string(StageComposing)).Inc()
			kind := KindStorageUnavailable
			if errors.Is(err, objstore.ErrNotFound) {
				kind = KindNotFound
			}
			return nil, &StageError{Stage: StageComposing, Kind: kind, Err: err}
		}
		attachments = append(attachments, compose.Attachment{
			Filename:    s.Filename,
			ContentType: s.ContentType,
			Content:     data,
		})
	}

	message, err := compose.Build(compose.Input{
		ID:           req.ID.String(),
		From:         p.identity.DisplayAddress,
		To:           req.Recipient,
		Subject:      req.Subject,
		Body:         req.Body,
		BodyType:     compose.BodyType(req.BodyType),
		Date:         ts,
		SenderDomain: p.senderDomain,
		Attachments:  attachments,
	})
	if err != nil {
		// Unreachable given upstream validation; a failure here is a
		// logic defect, not a bad request.
		metrics.StageFailuresTotal.WithLabelValues(string(StageComposing)).Inc()
		return nil, &StageError{Stage: StageComposing, Kind: KindComposition, Err: err}
	}
	return message, nil
}

// recordFailure writes the single failure audit record for a stage error.
func (p *Pipeline) recordFailure(ctx context.Context, req Request, ts time.Time, stageErr *StageError) {
	p.audit.Record(ctx, audit.Entry{
		RequestID:   req.ID.String(),
		Outcome:     audit.OutcomeFailure,
		Timestamp:   ts,
		Recipient:   req.Recipient,
		Subject:     req.Subject,
		ErrorKind:   stageErr.Kind,
		ErrorDetail: stageErr.Err.Error(),
		ClientIP:    req.ClientIP,
	})
	metrics.DeliveriesTotal.WithLabelValues("failure").Inc()
}

// cleanup deletes staged blobs best-effort. Failures are logged and never
// change the reported outcome.
func (p *Pipeline) cleanup(ctx context.Context, staged []stagedAttachment, log zerolog.Logger) {
	for _, s := range staged {
		if err := p.store.Delete(ctx, s.Key); err != nil {
			log.Warn().Err(err).Str("key", s.Key).Msg("staged attachment cleanup failed")
		}
	}
}

// deliveryKind maps a transport error to its audit kind label.
func deliveryKind(err error) string {
	switch transport.Kind(err) {
	case transport.KindConnect:
		return KindConnect
	case transport.KindAuth:
		return KindAuth
	case transport.KindSend:
		return KindSend
	default:
		return KindSend
	}
}
