package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestPublishDispensation(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	var sent DispensationEvent
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "test-events" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "unit_42" {
			return errors.New("wrong key " + string(key))
		}
		value, _ := msg.Value.Encode()
		return json.Unmarshal(value, &sent)
	})

	p := NewPublisherWithProducer(producer, "test-events")
	err := p.PublishDispensation(context.Background(), DispensationEvent{
		EventType: EventTypeUnitCheckedOut,
		ClinicID:  1,
		UnitID:    42,
		Quantity:  3,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if sent.EventID == "" || sent.Timestamp.IsZero() || sent.Quantity != 3 {
		t.Fatalf("event metadata not filled: %+v", sent)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPublishDispensationFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewPublisherWithProducer(producer, "")
	if err := p.PublishDispensation(context.Background(), DispensationEvent{EventType: EventTypeUnitAdjusted, UnitID: 1}); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected broker error, got %v", err)
	}
	_ = p.Close()
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	if err := p.PublishDispensation(context.Background(), DispensationEvent{}); err != nil {
		t.Fatalf("nil publisher must be a no-op, got %v", err)
	}
}

func TestHandleMessageDispatchesQuarantineRequests(t *testing.T) {
	c := newConsumer(nil, "test", []string{TopicQuarantineRequests})
	var got QuarantineRequestedEvent
	c.HandleQuarantineRequested(func(ctx context.Context, event QuarantineRequestedEvent) error {
		got = event
		return nil
	})
	h := &consumerGroupHandler{consumer: c}

	payload, _ := json.Marshal(QuarantineRequestedEvent{ClinicID: 3, UnitID: 9, RequestedBy: 4, Reason: "recall"})
	msg := &sarama.ConsumerMessage{
		Topic: TopicQuarantineRequests,
		Value: payload,
		Headers: []*sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(EventTypeQuarantineRequested)},
			{Key: []byte("event_id"), Value: []byte("evt-1")},
		},
	}
	if err := h.handleMessage(context.Background(), msg); err != nil {
		t.Fatalf("expected message to be handled, got %v", err)
	}
	if got.UnitID != 9 || got.ClinicID != 3 || got.Reason != "recall" {
		t.Fatalf("unexpected event %+v", got)
	}

	cases := map[string]*sarama.ConsumerMessage{
		"no event type": {Topic: TopicQuarantineRequests, Value: payload},
		"unknown type": {Topic: TopicQuarantineRequests, Value: payload, Headers: []*sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte("unit.teleported")},
		}},
		"bad payload": {Topic: TopicQuarantineRequests, Value: []byte("{"), Headers: []*sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(EventTypeQuarantineRequested)},
		}},
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			if err := h.handleMessage(context.Background(), msg); !IsPermanent(err) {
				t.Fatalf("expected a permanent rejection, got %v", err)
			}
		})
	}
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func quarantineMessages(offsets ...int64) *fakeClaim {
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(offsets))}
	payload, _ := json.Marshal(QuarantineRequestedEvent{ClinicID: 1, UnitID: 5, RequestedBy: 2})
	for _, offset := range offsets {
		claim.messages <- &sarama.ConsumerMessage{
			Topic:  TopicQuarantineRequests,
			Offset: offset,
			Value:  payload,
			Headers: []*sarama.RecordHeader{
				{Key: []byte("event_type"), Value: []byte(EventTypeQuarantineRequested)},
			},
		}
	}
	close(claim.messages)
	return claim
}

func newTestConsumer(handler QuarantineRequestedHandler) *consumerGroupHandler {
	c := newConsumer(nil, "test", []string{TopicQuarantineRequests})
	c.maxAttempts = 3
	c.retryBackoff = time.Millisecond
	c.maxBackoff = 2 * time.Millisecond
	c.HandleQuarantineRequested(handler)
	return &consumerGroupHandler{consumer: c}
}

func TestConsumeClaimRetriesTransientFailures(t *testing.T) {
	calls := 0
	h := newTestConsumer(func(ctx context.Context, event QuarantineRequestedEvent) error {
		calls++
		if calls < 3 {
			return errors.New("lock not acquired")
		}
		return nil
	})
	session := &fakeSession{ctx: context.Background()}

	if err := h.ConsumeClaim(session, quarantineMessages(7)); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if calls != 3 || len(session.marked) != 1 || session.marked[0] != 7 {
		t.Fatalf("calls=%d marked=%v; want 3 calls and offset 7 committed", calls, session.marked)
	}
}

func TestConsumeClaimLeavesPersistentFailureUncommitted(t *testing.T) {
	calls := 0
	h := newTestConsumer(func(ctx context.Context, event QuarantineRequestedEvent) error {
		calls++
		return errors.New("ledger unavailable")
	})
	session := &fakeSession{ctx: context.Background()}

	if err := h.ConsumeClaim(session, quarantineMessages(7, 8)); err == nil {
		t.Fatalf("expected ConsumeClaim to end the session")
	}
	if calls != 3 || len(session.marked) != 0 {
		t.Fatalf("calls=%d marked=%v; a failed request must not be committed", calls, session.marked)
	}
}

func TestConsumeClaimCommitsPermanentRejections(t *testing.T) {
	calls := 0
	h := newTestConsumer(func(ctx context.Context, event QuarantineRequestedEvent) error {
		calls++
		return Permanent(errors.New("unit not found"))
	})
	session := &fakeSession{ctx: context.Background()}

	if err := h.ConsumeClaim(session, quarantineMessages(7, 8)); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if calls != 2 || len(session.marked) != 2 {
		t.Fatalf("calls=%d marked=%v; permanent rejections are committed without retry", calls, session.marked)
	}
}

func TestNextBackoffIsCapped(t *testing.T) {
	c := newConsumer(nil, "test", nil)
	c.maxBackoff = time.Second
	if got := c.nextBackoff(300 * time.Millisecond); got != 600*time.Millisecond {
		t.Fatalf("nextBackoff = %v; want 600ms", got)
	}
	if got := c.nextBackoff(800 * time.Millisecond); got != time.Second {
		t.Fatalf("nextBackoff = %v; want the 1s cap", got)
	}
}

type failingGroup struct {
	sarama.ConsumerGroup
	calls  int
	errors chan error
}

func (g *failingGroup) Consume(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	g.calls++
	return sarama.ErrOutOfBrokers
}

func (g *failingGroup) Errors() <-chan error { return g.errors }

func TestRunBacksOffWhileBrokersAreDown(t *testing.T) {
	group := &failingGroup{errors: make(chan error)}
	close(group.errors)
	c := newConsumer(group, "test", []string{TopicQuarantineRequests})
	c.retryBackoff = 20 * time.Millisecond
	c.maxBackoff = 40 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if group.calls < 2 || group.calls > 8 {
		t.Fatalf("Consume called %d times in 150ms; expected backoff between attempts", group.calls)
	}
}
