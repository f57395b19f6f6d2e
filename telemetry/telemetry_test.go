package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

func TestSendDoesNotBlock(t *testing.T) {
	ch := make(chan Reading, 1)
	if !Send(ch, Reading{Smoothed: 1}) {
		t.Fatal("first send dropped")
	}
	if Send(ch, Reading{Smoothed: 2}) {
		t.Fatal("send into full channel reported queued")
	}
	if r := <-ch; r.Smoothed != 1 {
		t.Fatalf("got %+v", r)
	}
}

func TestReadingJSON(t *testing.T) {
	b, err := json.Marshal(Reading{Smoothed: 16, Text: "  16", SinceBootNS: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	const want = `{"smoothed":16,"text":"  16","since_boot_ns":1000000000}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

// readPacket reads one MQTT control packet and returns its type nibble and body.
func readPacket(r *bufio.Reader) (byte, []byte, error) {
	first, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	var n, shift int
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, nil, err
		}
		n |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return first >> 4, body, nil
}

func TestPublisherPublishesReadings(t *testing.T) {
	client, broker := net.Pipe()
	defer broker.Close()

	published := make(chan []byte, 1)
	brokerErr := make(chan error, 1)
	go func() {
		r := bufio.NewReader(broker)
		typ, body, err := readPacket(r)
		if err != nil {
			brokerErr <- err
			return
		}
		if typ != 1 || !strings.Contains(string(body), "segtest") {
			brokerErr <- errors.New("expected CONNECT with client id")
			return
		}
		// CONNACK, session not present, accepted.
		if _, err := broker.Write([]byte{0x20, 0x02, 0x00, 0x00}); err != nil {
			brokerErr <- err
			return
		}
		typ, body, err = readPacket(r)
		if err != nil {
			brokerErr <- err
			return
		}
		if typ != 3 {
			brokerErr <- errors.New("expected PUBLISH")
			return
		}
		published <- body
	}()

	dialed := 0
	dial := func(context.Context) (io.ReadWriteCloser, error) {
		dialed++
		if dialed > 1 {
			return nil, errors.New("already dialed")
		}
		return client, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	readings := make(chan Reading, 1)
	pub := Publisher{
		ID:                "segtest",
		Topic:             "seg/reading",
		Timeout:           2 * time.Second,
		HeartbeatInterval: time.Hour,
	}
	done := make(chan error, 1)
	go func() { done <- pub.Run(ctx, dial, readings) }()

	Send(readings, Reading{Smoothed: 16, Text: "  16"})

	select {
	case body := <-published:
		s := string(body)
		if !strings.Contains(s, "seg/reading") || !strings.Contains(s, `"smoothed":16`) {
			t.Fatalf("publish body %q", s)
		}
	case err := <-brokerErr:
		t.Fatalf("broker: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no publish received")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestPublisherPingsOnHeartbeat(t *testing.T) {
	client, broker := net.Pipe()
	defer broker.Close()

	pings := make(chan struct{}, 8)
	go func() {
		r := bufio.NewReader(broker)
		if _, _, err := readPacket(r); err != nil {
			return
		}
		if _, err := broker.Write([]byte{0x20, 0x02, 0x00, 0x00}); err != nil {
			return
		}
		for {
			typ, _, err := readPacket(r)
			if err != nil {
				return
			}
			if typ != 12 {
				continue
			}
			// PINGRESP
			if _, err := broker.Write([]byte{0xD0, 0x00}); err != nil {
				return
			}
			select {
			case pings <- struct{}{}:
			default:
			}
		}
	}()

	dialed := false
	dial := func(context.Context) (io.ReadWriteCloser, error) {
		if dialed {
			return nil, errors.New("redialed: session was dropped")
		}
		dialed = true
		return client, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pub := Publisher{
		ID:                "segtest",
		Topic:             "seg/reading",
		Timeout:           2 * time.Second,
		HeartbeatInterval: 20 * time.Millisecond,
	}
	done := make(chan error, 1)
	go func() { done <- pub.Run(ctx, dial, make(chan Reading)) }()

	for i := 0; i < 2; i++ {
		select {
		case <-pings:
		case err := <-done:
			t.Fatalf("Run returned %v before ping %d", err, i+1)
		case <-time.After(5 * time.Second):
			t.Fatalf("ping %d not received", i+1)
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
}

func TestPublisherRetriesDial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := make(chan struct{}, 3)
	dial := func(context.Context) (io.ReadWriteCloser, error) {
		attempts <- struct{}{}
		if len(attempts) == cap(attempts) {
			cancel()
		}
		return nil, errors.New("unreachable")
	}
	pub := Publisher{ID: "x", Topic: "t", RetryDelay: time.Millisecond}
	err := pub.Run(ctx, dial, make(chan Reading))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("dialed %d times, want 3", len(attempts))
	}
}
