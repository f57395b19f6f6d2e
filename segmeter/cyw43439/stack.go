//go:build tinygo

// Package cyw43439 brings up WiFi on the Pico W and dials TCP connections
// through the lneto stack, for telemetry.
//
//	stack, err := cyw43439.Join(ssid, pass, cyw43439.StackConfig{Hostname: "segmeter", Logger: logger})
//	_, err = stack.SetupWithDHCP(cyw43439.DHCPConfig{})
//	go stack.Serve(ctx)
//	conn, err := stack.Dial(ctx, "10.0.0.9:1883")
//
// The device handling is adapted from the soypat/cyw43439 examples:
// https://github.com/soypat/cyw43439/tree/main/examples/common
package cyw43439

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"runtime"
	"strconv"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/lneto/tcp"
	"github.com/soypat/lneto/x/xnet"
)

const (
	mtu = cyw43439.MTU
	// tcpBufSize is the MTU minus the ethernet, IP and TCP headers.
	tcpBufSize = 2030
	pollTime   = 5 * time.Millisecond
)

// StackConfig configures the lneto stack.
type StackConfig struct {
	// Hostname is used for DHCP requests.
	Hostname string
	Logger   *slog.Logger
	// RandSeed is mixed into the stack's PRNG seed.
	RandSeed int64
}

// DHCPConfig configures the DHCP request.
type DHCPConfig struct {
	// RequestedAddr is the preferred address. If DHCP fails and this is set,
	// it is used as a static address.
	RequestedAddr netip.Addr
}

// Stack couples the CYW43439 device with an lneto StackAsync. It supports
// one TCP connection at a time.
type Stack struct {
	s       xnet.StackAsync
	dev     *cyw43439.Device
	log     *slog.Logger
	sendbuf []byte

	conn       tcp.Conn
	configured bool
}

// Join initializes the WiFi chip, joins the network and prepares the stack.
// Joining is retried every 5 seconds until it succeeds.
func Join(ssid, pass string, cfg StackConfig) (*Stack, error) {
	if cfg.Hostname == "" {
		return nil, errors.New("empty hostname")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(127),
		}))
	}

	start := time.Now()
	dev := cyw43439.NewPicoWDevice()
	dev.SetLogger(logger)
	if err := dev.Init(cyw43439.DefaultWifiConfig()); err != nil {
		return nil, errors.New("wifi init:" + err.Error())
	}
	logger.Info("cyw43439:init", slog.Duration("duration", time.Since(start)))

	for {
		err := dev.JoinWPA2(ssid, pass)
		if err == nil {
			break
		}
		logger.Error("wifi:join-failed", slog.String("ssid", ssid), slog.String("err", err.Error()))
		time.Sleep(5 * time.Second)
	}

	mac, err := dev.HardwareAddr6()
	if err != nil {
		return nil, errors.New("hardware address:" + err.Error())
	}
	logger.Info("wifi:joined", slog.String("mac", net.HardwareAddr(mac[:]).String()))

	stack := &Stack{
		dev:     dev,
		log:     logger,
		sendbuf: make([]byte, mtu),
	}
	err = stack.s.Reset(xnet.StackConfig{
		Hostname:        cfg.Hostname,
		MaxTCPConns:     1,
		RandSeed:        time.Since(start).Nanoseconds() ^ cfg.RandSeed,
		HardwareAddress: mac,
		MTU:             mtu,
	})
	if err != nil {
		return nil, errors.New("stack reset:" + err.Error())
	}
	dev.RecvEthHandle(func(pkt []byte) error {
		return stack.s.Demux(pkt, 0)
	})
	return stack, nil
}

// SetupWithDHCP acquires an address and resolves the gateway. Serve must be
// running.
func (s *Stack) SetupWithDHCP(cfg DHCPConfig) (*xnet.DHCPResults, error) {
	if !cfg.RequestedAddr.IsValid() {
		cfg.RequestedAddr = netip.AddrFrom4([4]byte{})
	} else if !cfg.RequestedAddr.Is4() {
		return nil, errors.New("only dhcpv4 supported")
	}
	rstack := s.s.StackRetrying(50 * time.Millisecond)

	s.log.Info("dhcp:starting")
	results, err := rstack.DoDHCPv4(cfg.RequestedAddr.As4(), 3*time.Second, 3)
	if err != nil {
		if !cfg.RequestedAddr.IsUnspecified() {
			s.log.Info("dhcp:static-fallback", slog.String("ip", cfg.RequestedAddr.String()))
			s.s.SetIPAddr(cfg.RequestedAddr)
			return &xnet.DHCPResults{AssignedAddr: cfg.RequestedAddr}, nil
		}
		return nil, errors.New("dhcp:" + err.Error())
	}
	if err := s.s.AssimilateDHCPResults(results); err != nil {
		return nil, errors.New("assimilate dhcp:" + err.Error())
	}
	gw, err := rstack.DoResolveHardwareAddress6(results.Router, 500*time.Millisecond, 4)
	if err != nil {
		return nil, errors.New("resolve gateway:" + err.Error())
	}
	s.s.SetGateway6(gw)

	s.log.Info("dhcp:complete",
		slog.String("ip", results.AssignedAddr.String()),
		slog.String("router", results.Router.String()),
		slog.Uint64("lease_sec", uint64(results.TLease)),
	)
	return results, nil
}

// Serve moves packets between the device and the stack until ctx is done.
func (s *Stack) Serve(ctx context.Context) error {
	for ctx.Err() == nil {
		send, recv, _ := s.recvAndSend()
		if send == 0 && recv == 0 {
			time.Sleep(pollTime)
		} else {
			runtime.Gosched()
		}
	}
	return ctx.Err()
}

func (s *Stack) recvAndSend() (send, recv int, err error) {
	got, errRecv := s.dev.PollOne()
	if got {
		recv = 1
	}
	if errRecv != nil {
		s.log.Error("stack:poll", slog.String("err", errRecv.Error()))
	}
	send, err = s.s.Encapsulate(s.sendbuf, -1, 0)
	if err != nil {
		s.log.Error("stack:encapsulate", slog.Int("plen", send), slog.String("err", err.Error()))
	} else {
		err = errRecv
	}
	if send == 0 {
		return send, recv, err
	}
	if err = s.dev.SendEth(s.sendbuf[:send]); err != nil {
		s.log.Error("stack:send", slog.Int("plen", send), slog.String("err", err.Error()))
	}
	return send, recv, err
}

// Addr returns the stack's IP address.
func (s *Stack) Addr() netip.Addr {
	return s.s.Addr()
}

// Dial resolves host if needed and opens a TCP connection to addr
// ("host:port"). The previous connection, if any, is aborted first.
func (s *Stack) Dial(ctx context.Context, addr string) (io.ReadWriteCloser, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, errors.New("parsing " + addr + ":" + err.Error())
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, errors.New("parsing port " + portStr + ":" + err.Error())
	}
	rstack := s.s.StackRetrying(pollTime)

	ip, err := netip.ParseAddr(host)
	if err != nil {
		s.log.Info("dns:resolving", slog.String("host", host))
		addrs, err := rstack.DoLookupIP(host, 5*time.Second, 3)
		if err != nil {
			return nil, errors.New("dns lookup " + host + ":" + err.Error())
		}
		if len(addrs) == 0 {
			return nil, errors.New("dns lookup " + host + ": no addresses")
		}
		ip = addrs[0]
	}

	if !s.configured {
		err = s.conn.Configure(tcp.ConnConfig{
			RxBuf:             make([]byte, tcpBufSize),
			TxBuf:             make([]byte, tcpBufSize),
			TxPacketQueueSize: 3,
		})
		if err != nil {
			return nil, errors.New("tcp configure:" + err.Error())
		}
		s.configured = true
	} else if !s.conn.State().IsClosed() {
		s.conn.Abort()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	localPort := uint16(s.s.Prand32()>>17) + 1024
	s.log.Info("tcp:dialing", slog.String("addr", addr), slog.Uint64("localPort", uint64(localPort)))
	err = rstack.DoDialTCP(&s.conn, localPort, netip.AddrPortFrom(ip, uint16(port)), 10*time.Second, 3)
	if err != nil {
		s.conn.Abort()
		return nil, errors.New("tcp dial:" + err.Error())
	}
	s.log.Info("tcp:connected", slog.String("state", s.conn.State().String()))
	return &conn{Conn: &s.conn}, nil
}

// conn closes gracefully and aborts if the peer does not finish the close
// within 5 seconds.
type conn struct {
	*tcp.Conn
}

func (c *conn) Close() error {
	err := c.Conn.Close()
	for i := 0; i < 50 && !c.Conn.State().IsClosed(); i++ {
		time.Sleep(100 * time.Millisecond)
	}
	c.Conn.Abort()
	return err
}
