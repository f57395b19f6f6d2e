package panel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harveysanders/segdisplay/glyph"
	"github.com/harveysanders/segdisplay/sim"
	"github.com/harveysanders/segdisplay/smoother"
	"github.com/harveysanders/segdisplay/vk16k33"
)

type digitWrite struct {
	mask  uint16
	index int
}

type fakeDisplay struct {
	mu     sync.Mutex
	writes []digitWrite
	on     int
	off    int
	err    error
}

func (d *fakeDisplay) SetDigit(mask uint16, index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, digitWrite{mask, index})
	return d.err
}

func (d *fakeDisplay) DisplayOn() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.on++
	return d.err
}

func (d *fakeDisplay) DisplayOff() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.off++
	return d.err
}

func (d *fakeDisplay) last(n int) []digitWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]digitWrite(nil), d.writes[len(d.writes)-n:]...)
}

func textBuffer(t *testing.T, s string) Buffer {
	t.Helper()
	buf, err := EncodeText(s)
	if err != nil {
		t.Fatalf("EncodeText(%q): %v", s, err)
	}
	return buf
}

func TestNewStartsBlank(t *testing.T) {
	p := New(&fakeDisplay{}, Config{})
	want := Buffer{glyph.Blank, glyph.Blank, glyph.Blank, glyph.Blank}
	if got := p.Buffer(); got != want {
		t.Fatalf("Buffer() = %q, want blanks", got)
	}
}

func TestTickRendersBufferInOrder(t *testing.T) {
	disp := &fakeDisplay{}
	p := New(disp, Config{})
	if err := p.ShowText("Ab1?"); err != nil {
		t.Fatal(err)
	}
	p.Tick()

	want := []digitWrite{
		{uint16(glyph.MustEncode('A').Mask()), 0},
		{uint16(glyph.MustEncode('b').Mask()), 1},
		{uint16(glyph.MustEncode('1').Mask()), 2},
		{uint16(glyph.MustEncode('?').Mask()), 3},
	}
	got := disp.last(4)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if s := p.Stats(); s.Ticks != 1 || s.WriteErrors != 0 {
		t.Fatalf("Stats = %+v", s)
	}
}

func TestFormatReading(t *testing.T) {
	tests := []struct {
		v    uint16
		want string
	}{
		{0, "   0"},
		{7, "   7"},
		{16, "  16"},
		{255, " 255"},
		{1000, "1000"},
		{9999, "9999"},
		{10000, "----"},
		{65535, "----"},
	}
	for _, tt := range tests {
		got := FormatReading(tt.v)
		if string(got[:]) != tt.want {
			t.Errorf("FormatReading(%d) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestShowReading(t *testing.T) {
	p := New(&fakeDisplay{}, Config{})
	p.ShowReading(255)
	if got := p.Buffer(); got != textBuffer(t, " 255") {
		t.Fatalf("Buffer() = %q", got)
	}
	p.ShowReading(12345)
	if got := p.Buffer(); got != textBuffer(t, "----") {
		t.Fatalf("Buffer() = %q", got)
	}
	if p.Stats().Readings != 2 {
		t.Fatalf("Readings = %d", p.Stats().Readings)
	}
}

type sliceADC struct {
	samples []uint16
}

func (a *sliceADC) Read() (uint16, error) {
	if len(a.samples) == 0 {
		return 0, errors.New("no more samples")
	}
	v := a.samples[0]
	a.samples = a.samples[1:]
	return v, nil
}

func TestSampleStreamToDisplay(t *testing.T) {
	ctrl := sim.NewController(0)
	dev := vk16k33.New(ctrl, 0)
	if err := dev.Configure(); err != nil {
		t.Fatal(err)
	}
	p := New(&dev, Config{})

	// 15*250 + 346 = 4096
	samples := make([]uint16, smoother.Window)
	for i := range samples {
		samples[i] = 250
	}
	samples[7] = 346

	var published []uint16
	s := &Sampler{
		ADC:       &sliceADC{samples: samples},
		Smoother:  smoother.New(smoother.DefaultScale),
		Panel:     p,
		OnReading: func(v uint16) { published = append(published, v) },
	}
	for i := 0; i < smoother.Window; i++ {
		v, ok, err := s.Step()
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		if ok != (i == smoother.Window-1) {
			t.Fatalf("Step %d: ready=%v", i, ok)
		}
		if ok && v != 16 {
			t.Fatalf("smoothed = %d, want 16", v)
		}
	}

	want := Buffer{glyph.Blank, glyph.Blank, glyph.MustEncode('1'), glyph.MustEncode('6')}
	if got := p.Buffer(); got != want {
		t.Fatalf("Buffer() = %q, want %q", got, want)
	}
	if len(published) != 1 || published[0] != 16 {
		t.Fatalf("OnReading saw %v", published)
	}

	p.Tick()
	for i, g := range want {
		if got := ctrl.Digit(i); got != uint16(g.Mask()) {
			t.Errorf("controller digit %d = %#04x, want %#04x", i, got, g.Mask())
		}
	}
}

func TestRotationCadence(t *testing.T) {
	r, err := NewRotation("LOVE", "LILI")
	if err != nil {
		t.Fatal(err)
	}
	disp := &fakeDisplay{}
	p := New(disp, Config{Source: r})
	love, lili := textBuffer(t, "LOVE"), textBuffer(t, "LILI")

	if p.Buffer() != love {
		t.Fatalf("initial buffer = %q", p.Buffer())
	}
	for i := 1; i <= 4; i++ {
		p.Tick()
		if p.Buffer() != love {
			t.Fatalf("after tick %d buffer = %q", i, p.Buffer())
		}
	}
	p.Tick()
	if p.Buffer() != lili {
		t.Fatalf("after tick 5 buffer = %q, want LILI", p.Buffer())
	}
	// tick 5 still rendered the old content
	if got := disp.last(4)[0].mask; got != uint16(love[0].Mask()) {
		t.Fatalf("tick 5 rendered %#04x", got)
	}
	for i := 0; i < DefaultCadence; i++ {
		p.Tick()
	}
	if p.Buffer() != love {
		t.Fatalf("after tick 10 buffer = %q, want LOVE", p.Buffer())
	}
}

func TestCustomCadence(t *testing.T) {
	r, _ := NewRotation("A", "B")
	p := New(&fakeDisplay{}, Config{Source: r, Cadence: 1})
	p.Tick()
	if p.Buffer() != textBuffer(t, "B") {
		t.Fatalf("buffer = %q", p.Buffer())
	}
}

func TestNewRotationRejects(t *testing.T) {
	if _, err := NewRotation(); err == nil {
		t.Fatal("empty rotation accepted")
	}
	if _, err := NewRotation("LOVE", "a:b"); !errors.Is(err, glyph.ErrUnsupported) {
		t.Fatalf("unsupported char: %v", err)
	}
	if _, err := NewRotation("TOOLONG"); err == nil {
		t.Fatal("long text accepted")
	}
}

func TestSelfTestWalksCharset(t *testing.T) {
	r := SelfTest()
	cs := glyph.Charset()
	if want := (len(cs) + Digits - 1) / Digits; r.Len() != want {
		t.Fatalf("Len = %d, want %d", r.Len(), want)
	}
	var sb strings.Builder
	for i := 0; i < r.Len(); i++ {
		buf, ok := r.Next()
		if !ok {
			t.Fatal("Next returned false")
		}
		sb.WriteString(buf.String())
	}
	got := strings.TrimRight(sb.String(), " ")
	if got != strings.TrimRight(string(cs), " ") {
		t.Fatalf("self test walked %q", got)
	}
	first, _ := r.Next()
	if first.String() != "ABCD" {
		t.Fatalf("rotation did not wrap: %q", first)
	}
}

func TestShowTextRejectedKeepsBuffer(t *testing.T) {
	p := New(&fakeDisplay{}, Config{})
	if err := p.ShowText("OK"); err != nil {
		t.Fatal(err)
	}
	before := p.Buffer()
	if err := p.ShowText("a:b"); !errors.Is(err, glyph.ErrUnsupported) {
		t.Fatalf("ShowText(a:b) = %v", err)
	}
	if err := p.ShowText("12345"); err == nil {
		t.Fatal("ShowText(12345) accepted")
	}
	if p.Buffer() != before {
		t.Fatalf("buffer changed to %q", p.Buffer())
	}
}

func TestWriteErrorsAreCounted(t *testing.T) {
	disp := &fakeDisplay{err: errors.New("nack")}
	p := New(disp, Config{})
	p.Tick()
	p.Tick()
	s := p.Stats()
	if s.Ticks != 2 || s.WriteErrors != 2*Digits {
		t.Fatalf("Stats = %+v", s)
	}
}

func TestTouchTogglesDisplay(t *testing.T) {
	disp := &fakeDisplay{}
	p := New(disp, Config{TouchTogglesDisplay: true})

	p.Touch()
	if p.Stats().Touches != 0 {
		t.Fatal("touch handled before tick")
	}
	p.Tick()
	if disp.off != 1 || disp.on != 0 {
		t.Fatalf("after 1 touch: on=%d off=%d", disp.on, disp.off)
	}

	p.Touch()
	p.Touch()
	p.Tick()
	if disp.off != 1 || disp.on != 0 {
		t.Fatalf("even touches toggled: on=%d off=%d", disp.on, disp.off)
	}

	p.Touch()
	p.Tick()
	if disp.on != 1 {
		t.Fatalf("display not back on: on=%d off=%d", disp.on, disp.off)
	}
	if got := p.Stats().Touches; got != 4 {
		t.Fatalf("Touches = %d, want 4", got)
	}
}

func TestTouchOnlyCountedByDefault(t *testing.T) {
	disp := &fakeDisplay{}
	p := New(disp, Config{})
	p.Touch()
	p.Tick()
	if disp.on != 0 || disp.off != 0 {
		t.Fatalf("display toggled: on=%d off=%d", disp.on, disp.off)
	}
	if p.Stats().Touches != 1 {
		t.Fatalf("Touches = %d", p.Stats().Touches)
	}
}

func TestLEDTogglesEveryTick(t *testing.T) {
	led := &sim.LED{}
	p := New(&fakeDisplay{}, Config{LED: led})
	for i := 0; i < 3; i++ {
		p.Tick()
	}
	if led.Toggles() != 3 || !led.On() {
		t.Fatalf("led toggles=%d on=%v", led.Toggles(), led.On())
	}
}

func TestRunTicks(t *testing.T) {
	p := New(&fakeDisplay{}, Config{})
	ticks := make(chan time.Time, 3)
	for i := 0; i < 3; i++ {
		ticks <- time.Time{}
	}
	close(ticks)
	if err := p.RunTicks(context.Background(), ticks); err != nil {
		t.Fatalf("RunTicks: %v", err)
	}
	if p.Stats().Ticks != 3 {
		t.Fatalf("Ticks = %d", p.Stats().Ticks)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.RunTicks(ctx, make(chan time.Time)); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunTicks after cancel = %v", err)
	}
	if err := p.Run(ctx, 0); err == nil {
		t.Fatal("Run accepted zero period")
	}
}

func TestSamplerReadError(t *testing.T) {
	p := New(&fakeDisplay{}, Config{})
	s := &Sampler{ADC: &sliceADC{}, Smoother: smoother.New(0), Panel: p}
	if _, _, err := s.Step(); err == nil {
		t.Fatal("Step: expected error")
	}
	if s.ReadErrors() != 1 {
		t.Fatalf("ReadErrors = %d", s.ReadErrors())
	}
	if p.Stats().Readings != 0 {
		t.Fatal("reading shown after failed read")
	}
}

func TestSamplerAndTicksConcurrently(t *testing.T) {
	ctrl := sim.NewController(0)
	dev := vk16k33.New(ctrl, 0)
	p := New(&dev, Config{LED: &sim.LED{}})
	s := &Sampler{
		ADC:      &sim.Wave{Min: 0, Max: 4095, Step: 64},
		Smoother: smoother.New(0),
		Panel:    p,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs := make(chan error, 2)
	go func() { errs <- s.Run(ctx) }()
	go func() { errs <- p.Run(ctx, time.Millisecond) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		st := p.Stats()
		if st.Readings >= 3 && st.Ticks >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out: %+v", st)
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	for i := 0; i < 2; i++ {
		if err := <-errs; !errors.Is(err, context.Canceled) {
			t.Fatalf("loop returned %v", err)
		}
	}
}
