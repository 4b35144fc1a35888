package wire

// StatusFlags are the subset of MariaDB/MySQL OK/EOF packet status flags
// the transaction tracker needs in order to self-correct against the
// server's authoritative view (spec §6, §4.5).
type StatusFlags uint16

const (
	// StatusInTrans is SERVER_STATUS_IN_TRANS (bit 0).
	StatusInTrans StatusFlags = 0x0001
	// StatusAutocommit is SERVER_STATUS_AUTOCOMMIT (bit 1).
	StatusAutocommit StatusFlags = 0x0002
	// StatusInReadOnlyTrans is SERVER_STATUS_IN_RO_TRANS (bit 13).
	StatusInReadOnlyTrans StatusFlags = 0x2000
)

// Has reports whether all bits of want are set in f.
func (f StatusFlags) Has(want StatusFlags) bool { return f&want == want }

// DecodeOKStatusFlags extracts the status-flag field from an OK or EOF
// packet payload. OK packets (header 0x00) carry:
//
//	header(1) affected_rows(lenenc) last_insert_id(lenenc) status_flags(2) warnings(2) ...
//
// EOF packets (header 0xfe, payload < 9 bytes) carry:
//
//	header(1) warnings(2) status_flags(2)
//
// Malformed or unrecognized payloads decode to zero flags; callers treat
// that as "no correction available" rather than an error, per the spec's
// lexical-error swallow policy.
func DecodeOKStatusFlags(payload []byte) StatusFlags {
	if len(payload) == 0 {
		return 0
	}
	switch payload[0] {
	case EOFPacketHeader:
		if len(payload) < 5 {
			return 0
		}
		return StatusFlags(payload[3]) | StatusFlags(payload[4])<<8
	case OKPacketHeader:
		rest := payload[1:]
		var ok bool
		if rest, ok = skipLenEnc(rest); !ok {
			return 0
		}
		if rest, ok = skipLenEnc(rest); !ok {
			return 0
		}
		if len(rest) < 2 {
			return 0
		}
		return StatusFlags(rest[0]) | StatusFlags(rest[1])<<8
	default:
		return 0
	}
}

// skipLenEnc advances past one length-encoded integer, as used by the OK
// packet's affected_rows and last_insert_id fields.
func skipLenEnc(b []byte) ([]byte, bool) {
	if len(b) == 0 {
		return nil, false
	}
	switch {
	case b[0] < 0xfb:
		return b[1:], true
	case b[0] == 0xfc:
		if len(b) < 3 {
			return nil, false
		}
		return b[3:], true
	case b[0] == 0xfd:
		if len(b) < 4 {
			return nil, false
		}
		return b[4:], true
	case b[0] == 0xfe:
		if len(b) < 9 {
			return nil, false
		}
		return b[9:], true
	default: // 0xfb is NULL, carries no further bytes
		return b[1:], true
	}
}
