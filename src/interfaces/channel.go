package interfaces

// -----------------------------------------------------------------------------
// IChannel is one live delivery endpoint (a websocket connection).
// -----------------------------------------------------------------------------

type IChannel interface {

	// ID returns a stable identifier for logs.
	ID() string

	// -----------------------------------------------------------------------------

	// IsOpen reports whether the endpoint still accepts messages.
	IsOpen() bool

	// -----------------------------------------------------------------------------

	// Send enqueues an already serialized payload. It must not block; an
	// error means the payload was not accepted.
	Send(payload []byte) error
}

// -----------------------------------------------------------------------------
// IAccountPublisher delivers messages to subscribers of an account or to all.
// -----------------------------------------------------------------------------

type IAccountPublisher interface {
	SendToAccount(accountID int64, message interface{})
	BroadcastToAll(message interface{})
	HasConnections() bool
}
