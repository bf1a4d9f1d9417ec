package notify

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestConsumerDisabledWithoutBrokers(t *testing.T) {
	c := NewConsumer(slog.New(slog.DiscardHandler), nil, Config{
		Brokers: "",
		GroupID: "notify",
		Topic:   "booking.reservation.created.v1",
	}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run should return immediately when no brokers are configured")
	}
}
