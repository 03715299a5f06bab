package drone

import (
	"context"
	"errors"
)

// ErrConnectionLost is returned (or wrapped) by a sink when the link to
// the vehicle itself is gone. It is the only sink failure that changes
// session state.
var ErrConnectionLost = errors.New("actuator connection lost")

// ActuatorSink is the abstract destination for validated commands. The
// wire protocol behind it is out of scope; the relay only needs
// connect/ack/fail semantics.
type ActuatorSink interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, cmd Command) error
	Close() error
}

// LoopbackSink acknowledges everything. It stands in when no actuator
// endpoint is configured, mirroring a bench setup with no vehicle.
type LoopbackSink struct{}

func (LoopbackSink) Connect(ctx context.Context) error           { return nil }
func (LoopbackSink) Send(ctx context.Context, cmd Command) error { return nil }
func (LoopbackSink) Close() error                                { return nil }
