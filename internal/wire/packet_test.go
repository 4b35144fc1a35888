package wire

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadPacket_RoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("SELECT 1"),
		bytes.Repeat([]byte("x"), MaxPayloadLen-1),
		bytes.Repeat([]byte("y"), MaxPayloadLen),
		bytes.Repeat([]byte("z"), MaxPayloadLen+100),
		bytes.Repeat([]byte("w"), MaxPayloadLen*2),
	}
	for _, payload := range cases {
		var buf bytes.Buffer
		require.NoError(t, WritePacket(&buf, payload, 0))

		got, err := ReadPacket(bufio.NewReader(&buf))
		require.NoError(t, err)
		assert.Equal(t, payload, got.Payload)
	}
}

func TestReadPacket_ShortHeader(t *testing.T) {
	_, err := ReadPacket(bufio.NewReader(bytes.NewReader([]byte{1, 2})))
	require.Error(t, err)
}

func TestCommandByte(t *testing.T) {
	cmd, ok := CommandByte([]byte{byte(ComQuery), 'S'})
	require.True(t, ok)
	assert.Equal(t, ComQuery, cmd)

	_, ok = CommandByte(nil)
	assert.False(t, ok)
}
