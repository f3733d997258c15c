package webhook

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/inboxd/pkg/domains/inbox"
	"github.com/inboxd/pkg/entities"
	"github.com/inboxd/pkg/providers/evolution"
	"github.com/inboxd/pkg/providers/meta"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Ack values reported back in the webhook response body. The response is
// always 200 for well-formed payloads; the ack only tells the sender (and
// anyone reading logs) what happened to the delivery.
const (
	AckProcessed = "processed"
	AckDuplicate = "duplicate"
	AckSkipped   = "skipped"
	AckError     = "error"
)

// ErrUnknownObject rejects Meta deliveries whose object field names a
// surface this service does not ingest.
var ErrUnknownObject = errors.New("webhook: unknown object type")

type Service interface {
	HandleEvolution(ctx context.Context, payload *evolution.WebhookPayload) string
	HandleMeta(ctx context.Context, payload *meta.WebhookPayload) (string, error)
}

type service struct {
	ledger     Ledger
	repository inbox.Repository
	processor  inbox.Service
}

func NewService(ledger Ledger, r inbox.Repository, processor inbox.Service) Service {
	return &service{
		ledger:     ledger,
		repository: r,
		processor:  processor,
	}
}

// HandleEvolution runs one gateway delivery through classification, the
// dedup ledger, and the processor. Every outcome maps to an ack; nothing
// here surfaces as a non-2xx response, because the gateway would retry and
// the retry would fare no better.
func (s *service) HandleEvolution(ctx context.Context, payload *evolution.WebhookPayload) string {
	switch evolution.Classify(payload.Event) {
	case evolution.KindChatDeletion:
		return s.handleChatDeletion(ctx, payload)
	case evolution.KindMessage:
		return s.handleEvolutionMessage(ctx, payload)
	}
	return AckSkipped
}

func (s *service) handleEvolutionMessage(ctx context.Context, payload *evolution.WebhookPayload) string {
	event, err := evolution.Normalize(payload)
	if err != nil {
		logrus.WithError(err).WithField("event", payload.Event).Warn("discarding unparseable evolution payload")
		return AckSkipped
	}

	account, err := s.repository.FindChannelAccountByExternalID(ctx, entities.ChannelWhatsAppEvolution, payload.Instance)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithField("instance", payload.Instance).Warn("webhook for unknown evolution instance")
			return AckSkipped
		}
		logrus.WithError(err).Error("looking up evolution channel account")
		return AckError
	}

	key := DedupeKey("evolution", event.Message.ExternalMessageID, event.Message.Timestamp)
	if err := s.ledger.Admit(ctx, account.WorkspaceID, "evolution", key, envelopeRaw(payload)); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return AckDuplicate
		}
		logrus.WithError(err).Error("admitting evolution delivery")
		return AckError
	}

	if err := s.processor.Process(ctx, account.WorkspaceID, *event); err != nil {
		logrus.WithError(err).WithField("dedupe_key", key).Error("processing evolution event")
		if markErr := s.ledger.MarkFailed(ctx, key, err.Error()); markErr != nil {
			logrus.WithError(markErr).Error("marking evolution delivery failed")
		}
		return AckError
	}

	if err := s.ledger.MarkProcessed(ctx, key); err != nil {
		logrus.WithError(err).Error("marking evolution delivery processed")
	}
	return AckProcessed
}

// handleChatDeletion skips the ledger: deletion events carry no message id
// to key on, and the operation is idempotent anyway.
func (s *service) handleChatDeletion(ctx context.Context, payload *evolution.WebhookPayload) string {
	account, err := s.repository.FindChannelAccountByExternalID(ctx, entities.ChannelWhatsAppEvolution, payload.Instance)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithField("instance", payload.Instance).Warn("chat deletion for unknown evolution instance")
			return AckSkipped
		}
		logrus.WithError(err).Error("looking up evolution channel account")
		return AckError
	}

	ids := evolution.NormalizeChatDeletion(payload)
	if len(ids) == 0 {
		return AckSkipped
	}

	if err := s.processor.ProcessChatDeletion(ctx, account, ids); err != nil {
		logrus.WithError(err).Error("processing chat deletion")
		return AckError
	}
	return AckProcessed
}

// HandleMeta processes a batched Graph delivery. One failing event does not
// block the others; the delivery acks as error only when every admitted
// event failed.
func (s *service) HandleMeta(ctx context.Context, payload *meta.WebhookPayload) (string, error) {
	if payload.Object != "page" && payload.Object != "instagram" {
		return "", ErrUnknownObject
	}

	events := meta.NormalizeBatch(payload)
	if len(events) == 0 {
		return AckSkipped, nil
	}

	var processed, failed int
	for _, event := range events {
		switch s.handleMetaEvent(ctx, event) {
		case AckProcessed:
			processed++
		case AckError:
			failed++
		}
	}

	if failed > 0 && processed == 0 {
		return AckError, nil
	}
	if processed == 0 {
		return AckSkipped, nil
	}
	return AckProcessed, nil
}

func (s *service) handleMetaEvent(ctx context.Context, event inbox.CanonicalEvent) string {
	account, err := s.repository.FindChannelAccountByExternalID(ctx, event.ChannelType, event.ChannelExternalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithFields(logrus.Fields{
				"channel_type": event.ChannelType,
				"external_id":  event.ChannelExternalID,
			}).Warn("webhook for unknown meta page")
			return AckSkipped
		}
		logrus.WithError(err).Error("looking up meta channel account")
		return AckError
	}

	key := DedupeKey("meta", event.Message.ExternalMessageID, event.Message.Timestamp)
	if err := s.ledger.Admit(ctx, account.WorkspaceID, "meta", key, event.Message.RawPayload); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return AckDuplicate
		}
		logrus.WithError(err).Error("admitting meta delivery")
		return AckError
	}

	if err := s.processor.Process(ctx, account.WorkspaceID, event); err != nil {
		logrus.WithError(err).WithField("dedupe_key", key).Error("processing meta event")
		if markErr := s.ledger.MarkFailed(ctx, key, err.Error()); markErr != nil {
			logrus.WithError(markErr).Error("marking meta delivery failed")
		}
		return AckError
	}

	if err := s.ledger.MarkProcessed(ctx, key); err != nil {
		logrus.WithError(err).Error("marking meta delivery processed")
	}
	return AckProcessed
}

func envelopeRaw(payload *evolution.WebhookPayload) map[string]any {
	data, err := json.Marshal(payload)
	if err != nil {
		return map[string]any{}
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string]any{}
	}
	return raw
}
