//go:build integration

package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_PubSub(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	client, err := Connect(Options{URL: natsURL, Token: os.Getenv("NATS_TOKEN")}, slog.Default())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	received := make(chan map[string]string, 1)

	err = client.Subscribe("openclaw.memory.test.>", func(subject string, data []byte) {
		var msg map[string]string
		json.Unmarshal(data, &msg)
		received <- msg
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// Give subscription time to propagate
	time.Sleep(100 * time.Millisecond)

	err = client.Publish("openclaw.memory.test.ping", map[string]string{
		"message": "hello from integration test",
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg["message"] != "hello from integration test" {
			t.Errorf("expected hello message, got %v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestIntegration_Respond(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	client, err := Connect(Options{URL: natsURL, Token: os.Getenv("NATS_TOKEN")}, slog.Default())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	subject := Subject("openclaw.memory.test", HookBeforeAgentStart)
	err = client.Respond(subject, func(_ string, data []byte) any {
		return map[string]string{"echo": string(data)}
	})
	if err != nil {
		t.Fatalf("respond failed: %v", err)
	}

	msg, err := client.conn.Request(subject, []byte("ping"), 5*time.Second)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var reply map[string]string
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply["echo"] != "ping" {
		t.Errorf("expected echo ping, got %v", reply)
	}
}

func TestIntegration_Drain(t *testing.T) {
	natsURL := skipWithoutNATS(t)

	client, err := Connect(Options{URL: natsURL, Token: os.Getenv("NATS_TOKEN")}, slog.Default())
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := client.Subscribe("openclaw.memory.test.drain", func(string, []byte) {}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Drain(ctx); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if !client.conn.IsClosed() {
		t.Error("expected connection closed after drain")
	}
	client.Close()
}
