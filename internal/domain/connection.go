package domain

type ConnectionID string

// Connection is a read-only view of one connected client.
type Connection struct {
	ID            ConnectionID `json:"id"`
	Room          RoomID       `json:"room,omitempty"`
	Authenticated bool         `json:"authenticated"`
}

// MediaScope selects who receives relayed voice frames.
type MediaScope string

const (
	MediaScopeRoom   MediaScope = "room"
	MediaScopeGlobal MediaScope = "global"
)

func (s MediaScope) Valid() bool {
	return s == MediaScopeRoom || s == MediaScopeGlobal
}
