// Package telemetry publishes smoothed readings to an MQTT broker.
//
// The transport is supplied by the caller through a Dialer: a net.Conn on
// hosts, an lneto TCP connection on the Pico W.
//
//	readings := make(chan telemetry.Reading, 10)
//	pub := telemetry.Publisher{ID: "segdisplay", Topic: "segdisplay/reading", Logger: logger}
//	go pub.Run(ctx, dial, readings)
//
//	// from the sampling loop; drops the reading if the channel is full
//	telemetry.Send(readings, telemetry.Reading{Smoothed: v})
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"
)

// Reading is one smoothed sample as published.
type Reading struct {
	Smoothed    uint16        `json:"smoothed"`
	Text        string        `json:"text"`          // What the display shows.
	SinceBootNS time.Duration `json:"since_boot_ns"` // Nanoseconds since boot.
}

// Send hands r to ch without blocking. It reports whether r was queued.
func Send(ch chan<- Reading, r Reading) bool {
	select {
	case ch <- r:
		return true
	default:
		return false
	}
}

// Dialer opens a fresh connection to the broker.
type Dialer func(ctx context.Context) (io.ReadWriteCloser, error)

// deadliner is implemented by net.Conn and lneto's tcp.Conn.
type deadliner interface {
	SetDeadline(t time.Time) error
}

// Publisher keeps an MQTT session open and publishes readings on Topic.
type Publisher struct {
	ID       string
	Topic    string
	Username string // optional
	Password string // optional, requires Username
	// Timeout bounds the connect handshake and each publish.
	Timeout time.Duration
	// HeartbeatInterval is how often a PINGREQ keeps the session alive.
	HeartbeatInterval time.Duration
	// RetryDelay is the pause before redialing after a failure.
	RetryDelay time.Duration
	Logger     *slog.Logger
}

var errNotConnected = errors.New("telemetry: broker did not accept connection")

// Run connects, publishes every reading from readings and reconnects after
// failures until ctx is done. Readings that arrive while disconnected stay
// in the channel.
func (p *Publisher) Run(ctx context.Context, dial Dialer, readings <-chan Reading) error {
	logger := p.logger()
	retry := p.RetryDelay
	if retry <= 0 {
		retry = 2 * time.Second
	}
	for {
		err := p.session(ctx, dial, readings)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Error("mqtt:session-ended", slog.String("reason", errString(err)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

func (p *Publisher) session(ctx context.Context, dial Dialer, readings <-chan Reading) error {
	logger := p.logger()
	conn, err := dial(ctx)
	if err != nil {
		return errors.New("dial:" + err.Error())
	}
	defer conn.Close()

	pubFlags, err := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	if err != nil {
		return err
	}
	pubVar := mqtt.VariablesPublish{TopicName: []byte(p.Topic)}

	client := mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 1024)},
		OnPub: func(_ mqtt.Header, varPub mqtt.VariablesPublish, _ io.Reader) error {
			logger.Info("mqtt:received", slog.String("topic", string(varPub.TopicName)))
			return nil
		},
	})
	var varConn mqtt.VariablesConnect
	varConn.SetDefaultMQTT([]byte(p.ID))
	if p.Username != "" {
		varConn.Username = []byte(p.Username)
		if p.Password != "" {
			varConn.Password = []byte(p.Password)
		}
	}

	p.setDeadline(conn)
	logger.Info("mqtt:connecting", slog.String("client", p.ID))
	if err := client.StartConnect(conn, &varConn); err != nil {
		return errors.New("start connect:" + err.Error())
	}
	for retries := 50; retries > 0 && !client.IsConnected(); retries-- {
		if err := client.HandleNext(); err != nil {
			logger.Debug("mqtt:handle-next-failed", slog.String("err", err.Error()))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if !client.IsConnected() {
		if cerr := client.Err(); cerr != nil {
			return errors.New(errNotConnected.Error() + ": " + cerr.Error())
		}
		return errNotConnected
	}
	logger.Info("mqtt:connected", slog.String("topic", p.Topic))

	heartbeat := p.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	hb := time.NewTicker(heartbeat)
	defer hb.Stop()

	var packetID uint16
	for client.IsConnected() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-readings:
			payload, err := json.Marshal(r)
			if err != nil {
				logger.Error("mqtt:marshal-failed", slog.String("err", err.Error()))
				continue
			}
			packetID++
			pubVar.PacketIdentifier = packetID
			p.setDeadline(conn)
			if err := client.PublishPayload(pubFlags, pubVar, payload); err != nil {
				return errors.New("publish:" + err.Error())
			}
			logger.Debug("mqtt:published", slog.Uint64("smoothed", uint64(r.Smoothed)))
		case <-hb.C:
			if err := p.ping(conn, client); err != nil {
				return errors.New("ping:" + err.Error())
			}
			logger.Debug("mqtt:pong")
		}
	}
	return client.Err()
}

// maxPingWait bounds the wait for PINGRESP. Readings queue up meanwhile.
const maxPingWait = time.Second

// ping sends PINGREQ and reads until PINGRESP or the deadline.
func (p *Publisher) ping(conn io.ReadWriteCloser, client *mqtt.Client) error {
	wait := maxPingWait
	if p.Timeout > 0 && p.Timeout < wait {
		wait = p.Timeout
	}
	p.setDeadlineIn(conn, wait)
	defer p.setDeadlineIn(conn, 0)
	if err := client.StartPing(); err != nil {
		return err
	}
	return client.HandleNext()
}

func (p *Publisher) setDeadline(conn io.ReadWriteCloser) {
	p.setDeadlineIn(conn, p.Timeout)
}

// setDeadlineIn sets the connection deadline d from now; d <= 0 clears it.
func (p *Publisher) setDeadlineIn(conn io.ReadWriteCloser, d time.Duration) {
	dl, ok := conn.(deadliner)
	if !ok {
		return
	}
	if d <= 0 {
		dl.SetDeadline(time.Time{})
		return
	}
	dl.SetDeadline(time.Now().Add(d))
}

func (p *Publisher) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)}))
}

func errString(err error) string {
	if err == nil {
		return "disconnected"
	}
	return err.Error()
}
