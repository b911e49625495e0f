package domain

// ConnectionState — фаза жизненного цикла соединения с анализатором.
// В любой момент активна ровно одна.
type ConnectionState string

const (
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
	StateError        ConnectionState = "error"
)
