package eventpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
	"github.com/iho/rewardledger/internal/usecase"
	"github.com/iho/rewardledger/internal/usecase/mocks"
)

func TestProcessEventsPublishesAndMarks(t *testing.T) {
	repo := &stubOutboxRepo{
		events: []*domain.OutboxEvent{{ID: "evt-1", EventType: "type"}},
	}
	pub := &stubPublisher{}
	ep := newTestPublisher(repo, pub)

	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("processEvents failed: %v", err)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(pub.published))
	}
	if len(repo.marked) != 1 || repo.marked[0] != "evt-1" {
		t.Fatalf("expected event to be marked published, got %#v", repo.marked)
	}
}

func TestProcessEventsContinuesOnPublishError(t *testing.T) {
	repo := &stubOutboxRepo{
		events: []*domain.OutboxEvent{
			{ID: "evt-1", EventType: "type"},
			{ID: "evt-2", EventType: "type"},
		},
	}
	pub := &stubPublisher{
		errorsByID: map[string]error{"evt-1": errors.New("fail")},
	}
	ep := newTestPublisher(repo, pub)

	if err := ep.processEvents(context.Background()); err != nil {
		t.Fatalf("processEvents returned error: %v", err)
	}

	if len(pub.published) != 1 || pub.published[0].ID != "evt-2" {
		t.Fatalf("expected only evt-2 to be published, got %#v", pub.published)
	}
	if len(repo.marked) != 1 || repo.marked[0] != "evt-2" {
		t.Fatalf("expected only evt-2 to be marked, got %#v", repo.marked)
	}
	if got := testutil.ToFloat64(ep.metrics.OutboxErrors); got != 1 {
		t.Fatalf("expected one outbox error, got %v", got)
	}
	if got := testutil.ToFloat64(ep.metrics.OutboxPublished); got != 1 {
		t.Fatalf("expected one published event counted, got %v", got)
	}
}

func TestPurgeRespectsRetention(t *testing.T) {
	repo := &stubOutboxRepo{}
	ep := newTestPublisher(repo, &stubPublisher{})

	ep.purge(context.Background())
	if len(repo.purgedBefore) != 0 {
		t.Fatal("purge without retention should not delete anything")
	}

	ep.retention = time.Hour
	ep.purge(context.Background())
	if len(repo.purgedBefore) != 1 {
		t.Fatalf("expected one purge, got %d", len(repo.purgedBefore))
	}
	if cutoff := time.Since(repo.purgedBefore[0]); cutoff < time.Hour || cutoff > time.Hour+time.Minute {
		t.Fatalf("unexpected purge cutoff %v ago", cutoff)
	}
}

func TestRedisPublisherPublishesJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, DefaultEventsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	pub := NewRedisPublisher(client, "")
	event := &domain.OutboxEvent{
		ID:            "evt-1",
		EventType:     domain.EventTypeEntrySettled,
		AggregateType: domain.AggregateTypeEntry,
		AggregateID:   "entry-1",
		Payload:       map[string]any{"amount": "10"},
	}
	if err := pub.Publish(ctx, event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got redisEvent
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if got.ID != "evt-1" || got.AggregateID != "entry-1" || got.Payload["amount"] != "10" {
			t.Fatalf("unexpected message %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestDispatchPublisherRebuildsSettledEvent(t *testing.T) {
	store := mocks.NewStore()
	store.PutAccount(&domain.Account{ID: "acc-1", UserID: "user-1", Currency: "USD", Balance: decimal.NewFromInt(50)})
	store.PutEntry(&domain.LedgerEntry{
		ID:        "entry-1",
		AccountID: "acc-1",
		Type:      domain.EntryTypeWithdrawal,
		Amount:    decimal.NewFromInt(20),
		Currency:  "USD",
		Status:    domain.EntryStatusCompleted,
	})

	dispatcher := &recordingDispatcher{}
	pub := NewDispatchPublisher(mocks.NewMockEntryRepository(store), mocks.NewMockAccountRepository(store), dispatcher)
	ctx := context.Background()

	if err := pub.Publish(ctx, &domain.OutboxEvent{EventType: domain.EventTypeRankChanged, AggregateID: "user-1"}); err != nil {
		t.Fatalf("rank events should pass through, got %v", err)
	}
	if len(dispatcher.events) != 0 {
		t.Fatal("rank events must not be dispatched")
	}

	if err := pub.Publish(ctx, &domain.OutboxEvent{EventType: domain.EventTypeEntrySettled, AggregateID: "entry-1"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(dispatcher.events) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(dispatcher.events))
	}
	ev := dispatcher.events[0]
	if ev.Account.ID != "acc-1" || !ev.Delta.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("unexpected settled event %+v", ev)
	}

	err := pub.Publish(ctx, &domain.OutboxEvent{EventType: domain.EventTypeEntrySettled, AggregateID: "missing"})
	if !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestMultiPublisherJoinsErrors(t *testing.T) {
	ok := &stubPublisher{}
	failing := &stubPublisher{errorsByID: map[string]error{"evt-1": errors.New("down")}}

	err := MultiPublisher{failing, ok}.Publish(context.Background(), &domain.OutboxEvent{ID: "evt-1"})
	if err == nil {
		t.Fatal("expected an error from the failing publisher")
	}
	if len(ok.published) != 1 {
		t.Fatal("later publishers should still run")
	}
}

func TestStartStopsOnContextCancellation(t *testing.T) {
	repo := &stubOutboxRepo{}
	pub := &stubPublisher{}
	ep := newTestPublisher(repo, pub)
	ep.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ep.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after cancel")
	}
}

func newTestPublisher(repo *stubOutboxRepo, pub Publisher) *EventPublisher {
	return NewEventPublisher(Config{
		OutboxRepo: repo,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
		Metrics:    metrics.NewWithRegistry(prometheus.NewRegistry()),
		BatchSize:  10,
		Interval:   5 * time.Millisecond,
	})
}

type stubOutboxRepo struct {
	events       []*domain.OutboxEvent
	marked       []string
	purgedBefore []time.Time
}

func (s *stubOutboxRepo) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	return nil
}

func (s *stubOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if len(s.events) <= limit {
		return append([]*domain.OutboxEvent(nil), s.events...), nil
	}
	return append([]*domain.OutboxEvent(nil), s.events[:limit]...), nil
}

func (s *stubOutboxRepo) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	s.marked = append(s.marked, id)
	return nil
}

func (s *stubOutboxRepo) DeletePublished(ctx context.Context, before time.Time) error {
	s.purgedBefore = append(s.purgedBefore, before)
	return nil
}

type stubPublisher struct {
	published  []*domain.OutboxEvent
	errorsByID map[string]error
}

func (s *stubPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	if err := s.errorsByID[event.ID]; err != nil {
		return err
	}
	s.published = append(s.published, event)
	return nil
}

type recordingDispatcher struct {
	events []*domain.SettledEvent
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, event *domain.SettledEvent) error {
	d.events = append(d.events, event)
	return nil
}

var _ usecase.SettledDispatcher = (*recordingDispatcher)(nil)
