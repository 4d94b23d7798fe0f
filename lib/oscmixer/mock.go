package oscmixer

import (
	"fmt"
	"net"
	"sync"
	"time"

	"faderbridge/lib/osc"
)

// MockMixer is a loopback desk for tests and bench runs. It records every
// message it receives and can push messages back to the connected client.
type MockMixer struct {
	pc       net.PacketConn
	ln       net.Listener
	mu       sync.Mutex
	peer     net.Addr
	conns    []net.Conn
	messages chan osc.Message
}

func NewMockMixer(transport string) (*MockMixer, error) {
	m := &MockMixer{messages: make(chan osc.Message, 4096)}
	var err error
	switch transport {
	case "", "udp":
		m.pc, err = net.ListenPacket("udp", "127.0.0.1:0")
		if err == nil {
			go m.servePackets()
		}
	case "tcp":
		m.ln, err = net.Listen("tcp", "127.0.0.1:0")
		if err == nil {
			go m.serveStream()
		}
	default:
		err = fmt.Errorf("oscmixer: unknown transport %q", transport)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MockMixer) Port() int {
	if m.pc != nil {
		return m.pc.LocalAddr().(*net.UDPAddr).Port
	}
	return m.ln.Addr().(*net.TCPAddr).Port
}

func (m *MockMixer) Close() error {
	m.mu.Lock()
	for _, conn := range m.conns {
		conn.Close()
	}
	m.mu.Unlock()
	if m.pc != nil {
		return m.pc.Close()
	}
	return m.ln.Close()
}

// Expect waits for the next message sent to addr, skipping others.
func (m *MockMixer) Expect(addr string, timeout time.Duration) (osc.Message, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case msg := <-m.messages:
			if msg.Address == addr {
				return msg, true
			}
		case <-deadline:
			return osc.Message{}, false
		}
	}
}

func (m *MockMixer) Send(msg osc.Message) error {
	buf, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pc != nil {
		if m.peer == nil {
			return fmt.Errorf("oscmixer: mock has no peer yet")
		}
		_, err := m.pc.WriteTo(buf, m.peer)
		return err
	}
	for _, conn := range m.conns {
		if _, err := conn.Write(osc.Frame(buf)); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockMixer) record(packet []byte) {
	msg, err := osc.Parse(packet)
	if err != nil {
		return
	}
	select {
	case m.messages <- msg:
	default:
	}
}

func (m *MockMixer) servePackets() {
	buf := make([]byte, 65536)
	for {
		n, addr, err := m.pc.ReadFrom(buf)
		if err != nil {
			return
		}
		m.mu.Lock()
		m.peer = addr
		m.mu.Unlock()
		m.record(buf[:n])
	}
}

func (m *MockMixer) serveStream() {
	for {
		conn, err := m.ln.Accept()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.conns = append(m.conns, conn)
		m.mu.Unlock()
		go m.handleConn(conn)
	}
}

func (m *MockMixer) handleConn(conn net.Conn) {
	var pending []byte
	tmp := make([]byte, 4096)
	for {
		n, err := conn.Read(tmp)
		if err != nil {
			return
		}
		pending = append(pending, tmp[:n]...)
		for {
			frame, rest, ok := osc.NextFrame(pending)
			pending = rest
			if !ok {
				break
			}
			m.record(frame)
		}
	}
}
