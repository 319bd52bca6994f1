// Package async implements the library's result abstraction: a
// cancellable, lazy, "cold" sequence (spec.md §9). No work happens until
// a consumer starts pulling; the consumer receives zero or more values
// followed by either completion or an error; a cancellation signal
// detaches the producer and is observed before the next emission.
//
// The teacher library solves the analogous "one reply, then zero or more
// notifications" shape with a plain Go channel per request
// (client.Session.Execute/ExecuteAsync/Subscribe in
// github.com/damianoneill/net/v2/netconf/client/message.go). Sequence
// generalizes that pattern into a reusable, explicitly cancellable type
// so the Client API can build getData/editConfig/subscription on one
// primitive instead of ad hoc channels at each call site.
package async

import "context"

// Producer is called once per Subscribe, when a consumer starts pulling,
// with a channel it should send values to and a cancellation channel it
// must watch. It reports the terminal error (nil on success) by
// returning it, and must not close values: Subscribe closes values after
// the producer returns.
type Producer func(ctx context.Context, values chan<- interface{}, cancel <-chan struct{}) error

// Sequence is a lazy, cold, cancellable stream of values. Nothing runs
// until Subscribe is called.
type Sequence struct {
	produce Producer
}

// New builds a Sequence around produce. produce is not invoked until
// Subscribe is called.
func New(produce Producer) *Sequence {
	return &Sequence{produce: produce}
}

// Single returns a Sequence that, once subscribed, immediately yields one
// value (or the given error) and then completes. Useful for building
// request/reply call sites on top of the same primitive used for
// streaming subscriptions.
func Single(get func(ctx context.Context) (interface{}, error)) *Sequence {
	return New(func(ctx context.Context, values chan<- interface{}, cancel <-chan struct{}) error {
		v, err := get(ctx)
		if err != nil {
			return err
		}
		select {
		case values <- v:
		case <-cancel:
		}
		return nil
	})
}

// Subscription is a handle to a running Sequence: Values delivers emitted
// items; Err carries the terminal error, if any, once the producer has
// returned (after completing, failing, or observing a cancellation);
// Cancel signals the producer to detach, after which Values closes
// without further emissions.
type Subscription struct {
	values chan interface{}
	err    chan error
	cancel chan struct{}
}

// Values returns the channel of emitted items. It is closed when the
// sequence completes, errors or is cancelled.
func (s *Subscription) Values() <-chan interface{} { return s.values }

// Err returns the channel carrying the terminal error, if any. It
// receives at most one value and is always eventually closed.
func (s *Subscription) Err() <-chan error { return s.err }

// Cancel detaches the producer. It is safe to call more than once and
// safe to call after the sequence has already completed.
func (s *Subscription) Cancel() {
	select {
	case <-s.cancel:
	default:
		close(s.cancel)
	}
}

// Subscribe starts pulling from the sequence. This is the only point at
// which the underlying Producer runs.
func (seq *Sequence) Subscribe(ctx context.Context) *Subscription {
	sub := &Subscription{
		values: make(chan interface{}),
		err:    make(chan error, 1),
		cancel: make(chan struct{}),
	}

	go func() {
		defer close(sub.values)
		err := seq.produce(ctx, sub.values, sub.cancel)
		sub.err <- err
		close(sub.err)
	}()

	return sub
}

// First subscribes, waits for exactly one value (or completion/error/
// cancellation) and cancels the sequence. It is the common case for the
// request/reply-shaped client calls (hello, getData, editConfig*, rpc).
func (seq *Sequence) First(ctx context.Context) (interface{}, error) {
	sub := seq.Subscribe(ctx)
	defer sub.Cancel()

	select {
	case v, ok := <-sub.values:
		if !ok {
			if err := <-sub.err; err != nil {
				return nil, err
			}
			return nil, nil
		}
		return v, nil
	case err := <-sub.err:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
