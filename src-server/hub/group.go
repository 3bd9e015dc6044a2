package hub

import "sync"

// Group addresses clients by key, e.g. every open dashboard of one admin.
type Group struct {
	mu      sync.Mutex
	clients map[string]map[*Client]struct{}
}

func NewGroup() *Group {
	return &Group{clients: make(map[string]map[*Client]struct{})}
}

// Add keeps c under key until its connection closes.
func (g *Group) Add(key string, c *Client) {
	g.mu.Lock()
	if g.clients[key] == nil {
		g.clients[key] = make(map[*Client]struct{})
	}
	g.clients[key][c] = struct{}{}
	g.mu.Unlock()
	c.OnClose(func() { g.remove(key, c) })
}

func (g *Group) remove(key string, c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.clients[key], c)
	if len(g.clients[key]) == 0 {
		delete(g.clients, key)
	}
}

// Send delivers to every client under key and reports how many took it.
func (g *Group) Send(key, msgType string, data any) int {
	g.mu.Lock()
	clients := make([]*Client, 0, len(g.clients[key]))
	for c := range g.clients[key] {
		clients = append(clients, c)
	}
	g.mu.Unlock()
	sent := 0
	for _, c := range clients {
		if c.Send(msgType, data) {
			sent++
		}
	}
	return sent
}

func (g *Group) Count(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients[key])
}
