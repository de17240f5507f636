package core

// subscription groups clients subscribed to the same room topic.
// Only the hub loop touches it.
type subscription struct {
	Room    string
	clients map[*Client]struct{}
}

func newSubscription(room string) *subscription {
	return &subscription{
		Room:    room,
		clients: make(map[*Client]struct{}),
	}
}

// add inserts a client. Returns true if newly added.
func (s *subscription) add(c *Client) bool {
	if _, exists := s.clients[c]; exists {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

// remove deletes a client. Returns true if removed.
func (s *subscription) remove(c *Client) bool {
	if _, exists := s.clients[c]; !exists {
		return false
	}
	delete(s.clients, c)
	return true
}

// broadcast sends an event to all subscribed clients.
func (s *subscription) broadcast(event *Event) {
	for client := range s.clients {
		select {
		case client.Events <- event:
		default:
			// Drop if slow consumer.
		}
	}
}

// empty returns true if no clients remain.
func (s *subscription) empty() bool {
	return len(s.clients) == 0
}
