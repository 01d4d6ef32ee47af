package storage_service

// Endpoint is the identity of a registered storage node: its data-plane and
// control-plane handles. Two endpoints are the same node iff both handles are
// equal, so handle implementations must be comparable.
type Endpoint struct {
	Client  Storage
	Command Command
}

func (e Endpoint) IsValid() bool {
	return e.Client != nil && e.Command != nil
}
