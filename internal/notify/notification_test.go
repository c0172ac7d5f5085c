package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNotificationJSONShape(t *testing.T) {
	n := Notification{
		Kind:       KindMinted,
		Caller:     "0x1111111111111111111111111111111111111111",
		PositionID: "42",
		EmittedAt:  "2024-01-01T00:00:00Z",
		Data: MintedData{
			TickLower: -887272,
			TickUpper: 887272,
			Liquidity: "5000",
			Used0:     "1000",
			Used1:     "2000",
		},
	}

	b, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["kind"] != "minted" {
		t.Fatalf("unexpected kind: %v", decoded["kind"])
	}
	data, ok := decoded["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing data payload: %v", decoded)
	}
	if data["liquidity"] != "5000" {
		t.Fatalf("unexpected liquidity: %v", data["liquidity"])
	}
}

func TestJsonlSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.jsonl")
	sink := NewJsonlSink(path)

	notifications := []Notification{
		{Kind: KindDecreased, Caller: "0xaa", PositionID: "1", Data: DecreasedData{LiquidityRemoved: "10", Owed0: "4", Owed1: "6"}},
		{Kind: KindCollected, Caller: "0xaa", PositionID: "1", Data: CollectedData{Recipient: "0xbb", Collected0: "4", Collected1: "6"}},
	}
	for _, n := range notifications {
		if err := sink.Publish(context.Background(), n); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var n Notification
		if err := json.Unmarshal(scanner.Bytes(), &n); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		if n.Kind != notifications[lines].Kind {
			t.Fatalf("line %d kind mismatch: %s", lines, n.Kind)
		}
		lines++
	}
	if lines != len(notifications) {
		t.Fatalf("expected %d lines, got %d", len(notifications), lines)
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	var first, second []Notification
	m := Multi{
		sinkFunc(func(n Notification) error { first = append(first, n); return nil }),
		sinkFunc(func(n Notification) error { second = append(second, n); return nil }),
	}

	if err := m.Publish(context.Background(), Notification{Kind: KindIncreased}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("fan-out missed a sink: %d, %d", len(first), len(second))
	}
}

type sinkFunc func(Notification) error

func (f sinkFunc) Publish(_ context.Context, n Notification) error { return f(n) }
