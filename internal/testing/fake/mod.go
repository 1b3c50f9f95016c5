// Package fake provides the fakes shared by the unit tests: a fixed error,
// call recorders, deterministic or failing readers, a clock, serde engines and
// an in-memory ledger snapshot.
package fake

import (
	"time"

	"go.dedis.ch/sealbox/serde"
	"golang.org/x/xerrors"
)

var fakeErr = xerrors.New("fake error")

// GetError returns the fake error used by the fake implementations.
func GetError() error {
	return fakeErr
}

// Err returns the expected error message for a wrapped fake error.
func Err(msg string) string {
	return msg + ": " + fakeErr.Error()
}

// Call is a tool to keep track of a function calls.
type Call struct {
	calls [][]interface{}
}

// NewCall returns a new empty call tracker.
func NewCall() *Call {
	return &Call{}
}

// Get returns the nth call ith parameter.
func (c *Call) Get(n, i int) interface{} {
	return c.calls[n][i]
}

// Len returns the number of calls.
func (c *Call) Len() int {
	return len(c.calls)
}

// Add adds a call to the list.
func (c *Call) Add(args ...interface{}) {
	c.calls = append(c.calls, args)
}

// BadReader is a reader that always returns the fake error.
//
// - implements io.Reader
type BadReader struct{}

// Read implements io.Reader. It always returns an error.
func (BadReader) Read([]byte) (int, error) {
	return 0, fakeErr
}

// CounterReader is a deterministic reader that fills buffers with an
// incrementing byte counter. It is used to generate reproducible nonces.
//
// - implements io.Reader
type CounterReader struct {
	next byte
}

// Read implements io.Reader.
func (r *CounterReader) Read(buf []byte) (int, error) {
	for i := range buf {
		r.next++
		buf[i] = r.next
	}

	return len(buf), nil
}

// Clock is a fake clock that returns a fixed time which can be advanced.
type Clock struct {
	Current time.Time
}

// Now returns the current time of the fake clock.
func (c *Clock) Now() time.Time {
	return c.Current
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}

// Format is a fake format engine.
//
// - implements serde.FormatEngine
type Format struct {
	Msg  serde.Message
	Data []byte
	Err  error
}

// NewBadFormat returns a format engine that always returns an error.
func NewBadFormat() Format {
	return Format{Err: fakeErr}
}

// Encode implements serde.FormatEngine.
func (f Format) Encode(ctx serde.Context, m serde.Message) ([]byte, error) {
	return f.Data, f.Err
}

// Decode implements serde.FormatEngine.
func (f Format) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.Msg, f.Err
}

// Message is a fake implementation of a serde message.
//
// - implements serde.Message
type Message struct{}

// Serialize implements serde.Message.
func (m Message) Serialize(serde.Context) ([]byte, error) {
	return []byte("{}"), nil
}

// ContextEngine is a fake implementation of a context engine.
//
// - implements serde.ContextEngine
type ContextEngine struct {
	Format serde.Format
	err    error
}

const (
	// GoodFormat is the format of the fake context.
	GoodFormat = serde.Format("FakeGood")
	// BadFormat is the format of the bad fake context.
	BadFormat = serde.Format("FakeBad")
)

// NewContext returns a context with a fake engine.
func NewContext() serde.Context {
	return serde.NewContext(ContextEngine{Format: GoodFormat})
}

// NewBadContext returns a context with an engine that always fails.
func NewBadContext() serde.Context {
	return serde.NewContext(ContextEngine{Format: BadFormat, err: fakeErr})
}

// GetFormat implements serde.ContextEngine.
func (ctx ContextEngine) GetFormat() serde.Format {
	return ctx.Format
}

// Marshal implements serde.ContextEngine.
func (ctx ContextEngine) Marshal(interface{}) ([]byte, error) {
	return nil, ctx.err
}

// Unmarshal implements serde.ContextEngine.
func (ctx ContextEngine) Unmarshal([]byte, interface{}) error {
	return ctx.err
}
