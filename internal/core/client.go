package core

// Client is a connected subscriber as seen by the hub. Rooms is owned by the
// hub loop; nothing else may touch it.
type Client struct {
	ID     string
	Name   string
	Events chan *Event
	Rooms  map[string]struct{}
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id, name string) *Client {
	if name == "" {
		name = id
	}
	return &Client{
		ID:     id,
		Name:   name,
		Events: make(chan *Event, 16),
		Rooms:  make(map[string]struct{}),
	}
}
