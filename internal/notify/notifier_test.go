package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/alicebob/miniredis/v2"

	"sneakerbot/deal-sniper/internal/db"
	"sneakerbot/deal-sniper/internal/model"
	"sneakerbot/deal-sniper/internal/notify"
)

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(context.Context, model.Deal) error {
	s.calls++
	return s.err
}

// ── Multi ──────────────────────────────────────────────────────────────────

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	errA := errors.New("a down")
	errC := errors.New("c down")
	a, b, c := &stubNotifier{err: errA}, &stubNotifier{}, &stubNotifier{err: errC}

	err := notify.Multi{a, b, c}.Notify(context.Background(), sampleDeal(9))

	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Errorf("calls = %d/%d/%d, want 1/1/1", a.calls, b.calls, c.calls)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errC) {
		t.Errorf("err = %v, want both sink errors", err)
	}
}

func TestMulti_NilOnSuccess(t *testing.T) {
	if err := (notify.Multi{&stubNotifier{}}).Notify(context.Background(), sampleDeal(9)); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

// ── Log ────────────────────────────────────────────────────────────────────

func TestLog_WritesDeal(t *testing.T) {
	var buf bytes.Buffer
	n := notify.Log{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	if err := n.Notify(context.Background(), sampleDeal(9)); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "deal found" || rec["url"] != "https://www.ebay.com/itm/1" || rec["score"] != float64(9) {
		t.Errorf("log record = %v", rec)
	}
}

// ── Kafka ──────────────────────────────────────────────────────────────────

func TestKafka_ProducesEventKeyedByURL(t *testing.T) {
	p := mocks.NewSyncProducer(t, nil)
	p.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "deals" {
			return fmt.Errorf("topic = %q", msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "https://www.ebay.com/itm/1" {
			return fmt.Errorf("key = %q", key)
		}
		val, _ := msg.Value.Encode()
		var ev notify.Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Type != notify.EventDealFound || ev.Deal.Score != 9 || ev.Message.Color != notify.ColorHot {
			return fmt.Errorf("event = %+v", ev)
		}
		return nil
	})

	k := notify.NewKafkaWithProducer(p, "deals")
	if err := k.Notify(context.Background(), sampleDeal(9)); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := k.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestKafka_SendFailure(t *testing.T) {
	p := mocks.NewSyncProducer(t, nil)
	p.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	k := notify.NewKafkaWithProducer(p, "deals")
	err := k.Notify(context.Background(), sampleDeal(9))
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Errorf("err = %v, want ErrOutOfBrokers", err)
	}
	k.Close()
}

// ── Redis ──────────────────────────────────────────────────────────────────

func TestRedis_Publishes(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://" + miniredis.RunT(t).Addr()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, url)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer rdb.Close()

	channel := fmt.Sprintf("test-deals-%d", time.Now().UnixNano())
	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := notify.NewRedis(rdb, channel).Notify(ctx, sampleDeal(9)); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if !strings.Contains(msg.Payload, `"type":"EVENT_DEAL_FOUND"`) {
		t.Errorf("payload = %s", msg.Payload)
	}
}
