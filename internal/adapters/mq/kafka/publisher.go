// Package kafka publishes offer-generated events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/loanoffer/internal/domain/model"
)

// EventTypeOfferGenerated labels every event this package emits.
const EventTypeOfferGenerated = "loanoffer.offer_generated"

// ErrNoBrokers is returned when a writer is requested without brokers.
var ErrNoBrokers = errors.New("kafka brokers are required")

// Config holds writer settings.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// MessageWriter is the subset of *kafkago.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter builds a writer for cfg.Topic that waits for all in-sync
// replicas.
func NewWriter(cfg Config) (*kafkago.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	batch := cfg.BatchTimeout
	if batch <= 0 {
		batch = 10 * time.Millisecond
	}
	return &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: batch,
		RequiredAcks: kafkago.RequireAll,
	}, nil
}

// OfferSummary is the top-ranked offer carried in an event.
type OfferSummary struct {
	TenureMonths          int     `json:"tenure_months"`
	Amount                float64 `json:"amount"`
	Rate                  float64 `json:"rate"`
	MonthlyInstallment    float64 `json:"monthly_installment"`
	ConversionProbability float64 `json:"conversion_probability"`
	Score                 float64 `json:"score"`
}

// OfferGeneratedEvent is the event payload.
type OfferGeneratedEvent struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	RequestID   string          `json:"request_id"`
	ApplicantID string          `json:"applicant_id"`
	RiskScore   float64         `json:"risk_score"`
	RiskLevel   model.RiskLevel `json:"risk_level"`
	OfferCount  int             `json:"offer_count"`
	BestOffer   *OfferSummary   `json:"best_offer,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// NewOfferGeneratedEvent summarises rec.
func NewOfferGeneratedEvent(rec model.OfferRecord) OfferGeneratedEvent {
	evt := OfferGeneratedEvent{
		EventID:     uuid.NewString(),
		EventType:   EventTypeOfferGenerated,
		RequestID:   rec.RequestID,
		ApplicantID: rec.ApplicantID,
		RiskScore:   rec.RiskScore,
		RiskLevel:   rec.RiskLevel,
		OfferCount:  len(rec.Offers),
		OccurredAt:  rec.CreatedAt,
	}
	for _, o := range rec.Offers {
		if o.Rank != 1 {
			continue
		}
		evt.BestOffer = &OfferSummary{
			TenureMonths:          o.Offer.AdjustedTenureMonths,
			Amount:                o.Offer.AdjustedAmount,
			Rate:                  o.Offer.AdjustedRate,
			MonthlyInstallment:    o.Offer.AdjustedInstallment,
			ConversionProbability: o.Offer.ConversionProbability,
			Score:                 o.Score,
		}
		break
	}
	return evt
}

// Publisher writes one event per offer record, keyed by applicant id so an
// applicant's events stay ordered within a partition.
type Publisher struct {
	writer MessageWriter
}

// NewPublisher wraps w.
func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}

// Name identifies the publisher as a persistence sink.
func (p *Publisher) Name() string { return "kafka" }

// Write publishes the event for rec.
func (p *Publisher) Write(ctx context.Context, rec model.OfferRecord) error {
	evt := NewOfferGeneratedEvent(rec)
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.EventID, err)
	}
	msg := kafkago.Message{
		Key:   []byte(rec.ApplicantID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
			{Key: "event_id", Value: []byte(evt.EventID)},
			{Key: "request_id", Value: []byte(rec.RequestID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish offer %s: %w", rec.RequestID, err)
	}
	return nil
}

// Close closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
