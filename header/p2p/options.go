package p2p

import (
	"fmt"
	"time"
)

// parameters is an interface that encompasses all params needed for
// client and server parameters to protect `optional functions` from this package.
type parameters interface {
	ServerParameters | ClientParameters
}

// Option is the functional option that is applied to the exchange instance
// to configure parameters.
type Option[T parameters] func(*T)

// ServerParameters is the set of parameters that must be configured for the exchange server.
type ServerParameters struct {
	// WriteDeadline sets the timeout for sending messages to the stream
	WriteDeadline time.Duration
	// ReadDeadline sets the timeout for reading messages from the stream
	ReadDeadline time.Duration
	// MaxRequestSize defines the max amount of headers that can be handled at once.
	MaxRequestSize uint64
	// RangeRequestTimeout defines a timeout after which the session will try to re-request headers
	// from another peer.
	RangeRequestTimeout time.Duration
}

// DefaultServerParameters returns the default params to configure the store.
func DefaultServerParameters() ServerParameters {
	return ServerParameters{
		WriteDeadline:       time.Second * 8,
		ReadDeadline:        time.Minute,
		MaxRequestSize:      512,
		RangeRequestTimeout: time.Second * 10,
	}
}

func (p *ServerParameters) Validate() error {
	if p.WriteDeadline == 0 {
		return fmt.Errorf("invalid write time duration: %v", p.WriteDeadline)
	}
	if p.ReadDeadline == 0 {
		return fmt.Errorf("invalid read time duration: %v", p.ReadDeadline)
	}
	if p.MaxRequestSize == 0 {
		return fmt.Errorf("invalid max request size: %d", p.MaxRequestSize)
	}
	if p.RangeRequestTimeout == 0 {
		return fmt.Errorf("invalid request timeout for session: "+
			"%s. %s: %v", greaterThenZero, providedSuffix, p.RangeRequestTimeout)
	}
	return nil
}

// WithWriteDeadline is a functional option that configures the
// `WriteDeadline` parameter.
func WithWriteDeadline[T ServerParameters](deadline time.Duration) Option[T] {
	return func(p *T) {
		switch t := any(p).(type) { //nolint:gocritic
		case *ServerParameters:
			t.WriteDeadline = deadline
		}
	}
}

// WithReadDeadline is a functional option that configures the
// `WithReadDeadline` parameter.
func WithReadDeadline[T ServerParameters](deadline time.Duration) Option[T] {
	return func(p *T) {
		switch t := any(p).(type) { //nolint:gocritic
		case *ServerParameters:
			t.ReadDeadline = deadline
		}
	}
}

// WithMaxRequestSize is a functional option that configures the
// `MaxRequestSize` parameter.
func WithMaxRequestSize[T parameters](size uint64) Option[T] {
	return func(p *T) {
		switch t := any(p).(type) {
		case *ClientParameters:
			t.MaxRequestSize = size
		case *ServerParameters:
			t.MaxRequestSize = size
		}
	}
}

// WithRangeRequestTimeout is a functional option that configures the
// `RangeRequestTimeout` parameter.
func WithRangeRequestTimeout[T ServerParameters](duration time.Duration) Option[T] {
	return func(p *T) {
		switch t := any(p).(type) { //nolint:gocritic
		case *ServerParameters:
			t.RangeRequestTimeout = duration
		}
	}
}

// ClientParameters is the set of parameters that must be configured for the exchange.
type ClientParameters struct {
	// MaxRequestSize defines the max amount of headers that can be requested at once.
	MaxRequestSize uint64
	// MaxMessageSize limits the size of a single response in bytes.
	MaxMessageSize int
}

// DefaultClientParameters returns the default params to configure the exchange.
func DefaultClientParameters() ClientParameters {
	return ClientParameters{
		MaxRequestSize: 512,
		MaxMessageSize: 4 << 20,
	}
}

const (
	greaterThenZero = "should be greater than 0"
	providedSuffix  = "Provided value"
)

func (p *ClientParameters) Validate() error {
	if p.MaxRequestSize == 0 {
		return fmt.Errorf("invalid MaxRequestSize: %s. %s: %v", greaterThenZero, providedSuffix, p.MaxRequestSize)
	}
	if p.MaxMessageSize <= 0 {
		return fmt.Errorf("invalid MaxMessageSize: %s. %s: %v", greaterThenZero, providedSuffix, p.MaxMessageSize)
	}
	return nil
}

// WithMaxMessageSize is a functional option that configures the
// `MaxMessageSize` parameter.
func WithMaxMessageSize[T ClientParameters](size int) Option[T] {
	return func(p *T) {
		switch t := any(p).(type) { //nolint:gocritic
		case *ClientParameters:
			t.MaxMessageSize = size
		}
	}
}

// WithParams is a functional option that overrides all the parameters at once.
func WithParams[T parameters](params T) Option[T] {
	return func(p *T) {
		*p = params
	}
}
