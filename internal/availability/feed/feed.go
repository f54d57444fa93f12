package feed

import (
	"context"
	"time"
)

const (
	EventJoinRoom           = "join_room"
	EventLeaveRoom          = "leave_room"
	EventRequestUpdate      = "request_availability_update"
	EventAvailabilityUpdate = "fieldsAvailabilityUpdate"
)

// Frame is one inbound message from the feed.
type Frame struct {
	Event    string
	Room     string
	BranchID int64
	Payload  []byte
}

// Event is one outbound command.
type Event struct {
	Name     string
	Room     string
	BranchID int64
	Payload  any
}

type roomPayload struct {
	Room     string `json:"room"`
	BranchID int64  `json:"branchId,omitempty"`
}

type updateRequestPayload struct {
	Date     string `json:"date"`
	BranchID int64  `json:"branchId,omitempty"`
}

// Session is one live connection. Done is closed when the connection drops.
type Session interface {
	Send(ctx context.Context, ev Event) error
	Frames() <-chan Frame
	Done() <-chan struct{}
	Close() error
}

type Transport interface {
	Dial(ctx context.Context) (Session, error)
}

// Feed is the owned live-availability connection shared by every reconciler
// in the process.
type Feed interface {
	Connect(ctx context.Context) error
	JoinRoom(ctx context.Context, branchID int64, date string)
	LeaveRoom(ctx context.Context, branchID int64, date string)
	RequestUpdate(ctx context.Context, date string, branchID int64)
	Send(ctx context.Context, ev Event) error
	Subscribe(fn func(Frame)) (unsubscribe func())
	OnReconnect(fn func()) (dispose func())
	Connected() bool
	Disconnect() error
}

type Options struct {
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}
