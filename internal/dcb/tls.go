package dcb

import (
	"context"
	"crypto/tls"
)

// SSLHandshake drives the TLS handshake state machine spec §4.3 describes:
// it does not block, returning -1 on error, 0 when more I/O is needed
// (WANT_READ/WANT_WRITE, recorded so the next poll cycle re-arms the right
// readiness bit), or 1 once established. conn must already be wrapped in
// *tls.Conn (d.Conn upgraded by the caller before the first call).
func (d *DCB) SSLHandshake(conn *tls.Conn) int {
	d.tls = TLSHandshakeRequired
	err := conn.HandshakeContext(context.Background())
	if err == nil {
		d.tls = TLSEstablished
		d.wantRead, d.wantWrite = false, false
		return 1
	}
	if isWouldBlock(err) {
		// A real WANT_READ/WANT_WRITE distinction requires inspecting the
		// underlying net.Conn's blocked direction, which crypto/tls does
		// not expose; re-arming both bits is the conservative fallback.
		d.wantRead, d.wantWrite = true, true
		return 0
	}
	d.tls = TLSHandshakeFailed
	d.lastErr = err
	return -1
}

// WantRead/WantWrite report the pending TLS retry direction recorded by
// the last SSLHandshake/Read/WriteqDrain call that hit a would-block.
func (d *DCB) WantRead() bool  { return d.wantRead }
func (d *DCB) WantWrite() bool { return d.wantWrite }
