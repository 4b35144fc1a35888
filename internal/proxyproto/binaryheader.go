package proxyproto

import (
	"encoding/binary"
	"net"
)

// Signature is the 12-byte magic that opens a binary-form (v2) header.
var Signature = [12]byte{0x0D, 0x0A, 0x0D, 0x0A, 0x00, 0x0D, 0x0A, 0x51, 0x55, 0x49, 0x54, 0x0A}

// Address family / transport nibbles, packed into the family/transport byte
// as (family<<4)|transport.
const (
	famUnspec = 0x0
	famInet   = 0x1
	famInet6  = 0x2
	famUnix   = 0x3

	transUnspec = 0x0
	transStream = 0x1
	transDgram  = 0x2
)

const (
	addrLenIPv4 = 12
	addrLenIPv6 = 36
	addrLenUnix = 216
)

// ParseBinaryHeader parses the 12-byte-signature binary header form. buf
// must contain at least the signature, version/command byte, family/
// transport byte, and 2-byte big-endian length; ParseBinaryHeader reads
// exactly signature+4+length bytes from the front of buf and ignores
// anything beyond that. It fails closed on any truncation or unrecognized
// family.
func ParseBinaryHeader(buf []byte) (Header, int, error) {
	const fixedLen = 12 + 1 + 1 + 2
	if len(buf) < fixedLen {
		return Header{}, 0, ErrNotProxyHeader
	}
	if [12]byte(buf[:12]) != Signature {
		return Header{}, 0, ErrNotProxyHeader
	}
	verCmd := buf[12]
	version := verCmd >> 4
	if version != 2 {
		return Header{}, 0, ErrMalformedHeader
	}
	cmd := verCmd & 0x0f
	famTrans := buf[13]
	family := famTrans >> 4
	length := int(binary.BigEndian.Uint16(buf[14:16]))
	total := fixedLen + length
	if len(buf) < total {
		return Header{}, 0, ErrMalformedHeader
	}
	addr := buf[fixedLen:total]

	// LOCAL command (0x0) carries no meaningful address; callers should
	// fall back to the real socket address.
	if cmd == 0x0 {
		return Header{}, total, ErrMalformedHeader
	}

	switch family {
	case famInet:
		if len(addr) < addrLenIPv4 {
			return Header{}, 0, ErrMalformedHeader
		}
		srcIP := net.IP(addr[0:4])
		dstIP := net.IP(addr[4:8])
		srcPort := binary.BigEndian.Uint16(addr[8:10])
		dstPort := binary.BigEndian.Uint16(addr[10:12])
		return Header{
			SourceAddr: &net.TCPAddr{IP: append(net.IP(nil), srcIP...), Port: int(srcPort)},
			DestAddr:   &net.TCPAddr{IP: append(net.IP(nil), dstIP...), Port: int(dstPort)},
		}, total, nil
	case famInet6:
		if len(addr) < addrLenIPv6 {
			return Header{}, 0, ErrMalformedHeader
		}
		srcIP := net.IP(addr[0:16])
		dstIP := net.IP(addr[16:32])
		srcPort := binary.BigEndian.Uint16(addr[32:34])
		dstPort := binary.BigEndian.Uint16(addr[34:36])
		return Header{
			SourceAddr: &net.TCPAddr{IP: append(net.IP(nil), srcIP...), Port: int(srcPort)},
			DestAddr:   &net.TCPAddr{IP: append(net.IP(nil), dstIP...), Port: int(dstPort)},
		}, total, nil
	case famUnix:
		if len(addr) < addrLenUnix {
			return Header{}, 0, ErrMalformedHeader
		}
		srcPath := cstring(addr[0:108])
		dstPath := cstring(addr[108:216])
		return Header{
			SourceAddr: &net.UnixAddr{Name: srcPath, Net: "unix"},
			DestAddr:   &net.UnixAddr{Name: dstPath, Net: "unix"},
		}, total, nil
	default:
		return Header{}, 0, ErrMalformedHeader
	}
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// GenBinaryHeader produces the binary-form header for the given client/
// server endpoints. Both addresses must be of the same family, one of
// *net.TCPAddr (IPv4 or IPv6) or *net.UnixAddr.
func GenBinaryHeader(client, server net.Addr) ([]byte, error) {
	switch c := client.(type) {
	case *net.TCPAddr:
		s, ok := server.(*net.TCPAddr)
		if !ok {
			return nil, ErrMalformedHeader
		}
		if v4 := c.IP.To4(); v4 != nil {
			if s.IP.To4() == nil {
				return nil, ErrMalformedHeader
			}
			return buildBinary(famInet, transStream, func() []byte {
				buf := make([]byte, addrLenIPv4)
				copy(buf[0:4], v4)
				copy(buf[4:8], s.IP.To4())
				binary.BigEndian.PutUint16(buf[8:10], uint16(c.Port))
				binary.BigEndian.PutUint16(buf[10:12], uint16(s.Port))
				return buf
			}()), nil
		}
		v6 := c.IP.To16()
		if v6 == nil || s.IP.To16() == nil {
			return nil, ErrMalformedHeader
		}
		buf := make([]byte, addrLenIPv6)
		copy(buf[0:16], v6)
		copy(buf[16:32], s.IP.To16())
		binary.BigEndian.PutUint16(buf[32:34], uint16(c.Port))
		binary.BigEndian.PutUint16(buf[34:36], uint16(s.Port))
		return buildBinary(famInet6, transStream, buf), nil
	case *net.UnixAddr:
		s, ok := server.(*net.UnixAddr)
		if !ok {
			return nil, ErrMalformedHeader
		}
		if len(c.Name) >= 108 || len(s.Name) >= 108 {
			return nil, ErrMalformedHeader
		}
		buf := make([]byte, addrLenUnix)
		copy(buf[0:108], c.Name)
		copy(buf[108:216], s.Name)
		return buildBinary(famUnix, transStream, buf), nil
	default:
		return nil, ErrMalformedHeader
	}
}

func buildBinary(family, transport byte, addr []byte) []byte {
	out := make([]byte, 0, 16+len(addr))
	out = append(out, Signature[:]...)
	out = append(out, (2<<4)|0x1) // version 2, PROXY command
	out = append(out, (family<<4)|transport)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(addr)))
	out = append(out, lenBuf[:]...)
	out = append(out, addr...)
	return out
}
