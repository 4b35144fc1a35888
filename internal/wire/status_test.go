package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeOKStatusFlags_OKPacket(t *testing.T) {
	// header, affected_rows=0, last_insert_id=0, status=IN_TRANS|AUTOCOMMIT, warnings=0
	payload := []byte{OKPacketHeader, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00}
	flags := DecodeOKStatusFlags(payload)
	assert.True(t, flags.Has(StatusInTrans))
	assert.True(t, flags.Has(StatusAutocommit))
}

func TestDecodeOKStatusFlags_EOFPacket(t *testing.T) {
	payload := []byte{EOFPacketHeader, 0x00, 0x00, 0x00, 0x20} // status bit 13 set
	flags := DecodeOKStatusFlags(payload)
	assert.True(t, flags.Has(StatusInReadOnlyTrans))
}

func TestDecodeOKStatusFlags_Malformed(t *testing.T) {
	assert.Equal(t, StatusFlags(0), DecodeOKStatusFlags(nil))
	assert.Equal(t, StatusFlags(0), DecodeOKStatusFlags([]byte{OKPacketHeader}))
	assert.Equal(t, StatusFlags(0), DecodeOKStatusFlags([]byte{0x99, 0x01}))
}
