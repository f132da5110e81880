package signaling

// Binding ties a logical user identity to the connection currently serving it.
type Binding struct {
	ClientID    string
	Conn        *Client
	DisplayName string
	Avatar      string
	RoomID      string
}

// Connections maps user ids to their live connection. Like Registry it is
// owned by the hub loop and does no locking of its own.
type Connections struct {
	bindings map[string]*Binding
}

func NewConnections() *Connections {
	return &Connections{bindings: make(map[string]*Binding)}
}

// Bind stores b, replacing whatever was bound to b.ClientID before. The
// replaced binding is returned but its connection is not told about it.
func (c *Connections) Bind(b *Binding) *Binding {
	prev := c.bindings[b.ClientID]
	c.bindings[b.ClientID] = b
	return prev
}

// Resolve returns the binding for clientID.
func (c *Connections) Resolve(clientID string) (*Binding, bool) {
	b, ok := c.bindings[clientID]
	return b, ok
}

// Unbind drops the binding for clientID, if any.
func (c *Connections) Unbind(clientID string) {
	delete(c.bindings, clientID)
}

// Owns reports whether conn is the connection currently bound to clientID.
func (c *Connections) Owns(clientID string, conn *Client) bool {
	b, ok := c.bindings[clientID]
	return ok && b.Conn == conn
}

// Len returns the number of bound identities.
func (c *Connections) Len() int {
	return len(c.bindings)
}
