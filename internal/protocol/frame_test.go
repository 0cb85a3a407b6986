package protocol

import (
	"bufio"
	"bytes"
	"io"
	"math/rand"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeededLengthNeedsTwoBytes(t *testing.T) {
	for _, b := range [][]byte{nil, {}, {0x00}, {0xFF}} {
		n, ok := NeededLength(b)
		assert.False(t, ok)
		assert.Zero(t, n)
	}
}

func TestNeededLengthIsTheHeaderValue(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		hi, lo := byte(rng.Intn(256)), byte(rng.Intn(256))
		tail := make([]byte, 2+rng.Intn(8))
		rng.Read(tail[2:])
		tail[0], tail[1] = hi, lo

		n, ok := NeededLength(tail)
		require.True(t, ok)
		assert.Equal(t, uint32(hi)<<8|uint32(lo), n)

		// Bytes past the length field do not matter.
		n2, _ := NeededLength(tail[:2])
		assert.Equal(t, n, n2)
	}
}

func TestNeededLengthPassesZeroThrough(t *testing.T) {
	n, ok := NeededLength([]byte{0x00, 0x00, 0x01})
	assert.True(t, ok)
	assert.Zero(t, n)
}

func sampleStream(t *testing.T) ([]byte, []*Pdu) {
	t.Helper()
	pdus := []*Pdu{
		Register("bob"),
		Signal(TypeRegisterSuccess),
		Broadcast("bob", "hi"),
		Direct("bob", []string{"amy", "cid"}, "yo"),
		Signal(TypeListHandles),
		ListLen(2),
		Handle("amy"),
		Handle("bob"),
		Signal(TypeHandlesListDone),
	}
	var buf bytes.Buffer
	for _, p := range pdus {
		require.NoError(t, WritePDU(&buf, p))
	}
	return buf.Bytes(), pdus
}

func TestReadPDUOneByteAtATime(t *testing.T) {
	stream, pdus := sampleStream(t)
	r := iotest.OneByteReader(bytes.NewReader(stream))

	var buf []byte
	for i, want := range pdus {
		raw, err := ReadPDU(r, buf)
		require.NoError(t, err, "pdu %d", i)
		buf = raw

		got, err := Decode(raw)
		require.NoError(t, err, "pdu %d", i)
		assert.Equal(t, want.Type, got.Type)
	}
	_, err := ReadPDU(r, buf)
	assert.Equal(t, io.EOF, err)
}

func TestReadPDUReusesBuffer(t *testing.T) {
	raw := []byte{0x00, 0x07, 0x01, 0x03, 'b', 'o', 'b'}
	buf := make([]byte, 0, 64)
	out, err := ReadPDU(bytes.NewReader(raw), buf)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
	assert.Equal(t, 64, cap(out))
}

func TestReadPDUErrors(t *testing.T) {
	_, err := ReadPDU(bytes.NewReader([]byte{0x00}), nil)
	assert.Equal(t, io.ErrUnexpectedEOF, err)

	_, err = ReadPDU(bytes.NewReader([]byte{0x00, 0x09, 0x01}), nil)
	assert.Equal(t, io.ErrUnexpectedEOF, err)

	_, err = ReadPDU(bytes.NewReader([]byte{0x00, 0x01, 0x01}), nil)
	assert.ErrorIs(t, err, ErrBadLength)
}

func TestReadPDUMinimalLength(t *testing.T) {
	out, err := ReadPDU(bytes.NewReader([]byte{0x00, 0x02, 0x00, 0x03, 0x02}), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x02}, out)

	_, err = Decode(out)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestSplitPDUWithRandomChunks(t *testing.T) {
	stream, pdus := sampleStream(t)

	sc := bufio.NewScanner(iotest.HalfReader(bytes.NewReader(stream)))
	sc.Buffer(make([]byte, 0, 16), MaxPDUSize)
	sc.Split(SplitPDU)

	var got []MessageType
	for sc.Scan() {
		p, err := Decode(sc.Bytes())
		require.NoError(t, err)
		got = append(got, p.Type)
	}
	require.NoError(t, sc.Err())
	require.Len(t, got, len(pdus))
	for i := range pdus {
		assert.Equal(t, pdus[i].Type, got[i])
	}
}

func TestSplitPDUNeedsMore(t *testing.T) {
	adv, tok, err := SplitPDU([]byte{0x00}, false)
	assert.Zero(t, adv)
	assert.Nil(t, tok)
	assert.NoError(t, err)

	adv, tok, err = SplitPDU([]byte{0x00, 0x07, 0x01}, false)
	assert.Zero(t, adv)
	assert.Nil(t, tok)
	assert.NoError(t, err)

	_, _, err = SplitPDU([]byte{0x00, 0x07, 0x01}, true)
	assert.Equal(t, io.ErrUnexpectedEOF, err)

	_, _, err = SplitPDU([]byte{0x00, 0x00}, false)
	assert.ErrorIs(t, err, ErrBadLength)
}

func TestCutWalksBuffer(t *testing.T) {
	stream, pdus := sampleStream(t)

	rest := stream
	for i := range pdus {
		var pdu []byte
		var err error
		pdu, rest, err = Cut(rest)
		require.NoError(t, err)
		p, err := Decode(pdu)
		require.NoError(t, err)
		assert.Equal(t, pdus[i].Type, p.Type)
	}
	assert.Empty(t, rest)

	_, rest, err := Cut(rest)
	assert.ErrorIs(t, err, ErrNeedMoreData)
	assert.Empty(t, rest)
}

func TestCutErrors(t *testing.T) {
	for _, data := range [][]byte{{0x00}, {0x00, 0x07, 0x01, 0x03}} {
		pdu, rest, err := Cut(data)
		assert.ErrorIs(t, err, ErrNeedMoreData)
		assert.Nil(t, pdu)
		assert.Equal(t, data, rest, "nothing is consumed")
	}

	_, _, err := Cut([]byte{0x00, 0x01, 0x01})
	assert.ErrorIs(t, err, ErrBadLength)

	pdu, rest, err := Cut([]byte{0x00, 0x02, 0xAA})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x02}, pdu)
	assert.Equal(t, []byte{0xAA}, rest)
}

// A payload error in one PDU must not disturb framing of the next.
func TestTruncatedPDUDoesNotDesyncStream(t *testing.T) {
	bad := []byte{0x00, 0x08, 0x05, 0xC8, 'b', 'o', 'b', 0x00}
	good, err := Encode(Direct("amy", []string{"bob"}, "ok"))
	require.NoError(t, err)

	r := bytes.NewReader(append(append([]byte{}, bad...), good...))

	raw, err := ReadPDU(r, nil)
	require.NoError(t, err)
	_, err = Decode(raw)
	require.ErrorIs(t, err, ErrTruncated)

	raw, err = ReadPDU(r, nil)
	require.NoError(t, err)
	p, err := Decode(raw)
	require.NoError(t, err)
	a := p.Payload.(Addressed)
	assert.Equal(t, "amy", a.Sender.Value)
	assert.Equal(t, "ok", a.Body.Value)
}
