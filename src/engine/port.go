package engine

// Port is a stream endpoint in the signal graph. Every instrument exposes
// one output port and every effect adapter exposes exactly one input and one
// output, whatever its internal topology. Ports carry topology only; audio
// moves through the track buffers during rendering.
type Port struct {
	label string
	to    *Port
}

func newPort(label string) *Port {
	return &Port{label: label}
}

// Label identifies the port for logs and tests.
func (p *Port) Label() string {
	return p.label
}

// Connect routes this port into dst, replacing any previous connection.
func (p *Port) Connect(dst *Port) {
	p.to = dst
}

// Disconnect removes the outgoing connection. Disconnecting an already
// disconnected port is a no-op.
func (p *Port) Disconnect() {
	p.to = nil
}

// Target returns the port this one feeds, or nil when disconnected.
func (p *Port) Target() *Port {
	return p.to
}
