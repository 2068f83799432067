package rtsp

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseDefaults(t *testing.T) {
	r := NewResponse(ProtocolRTSP10)
	assert.Equal(t, StatusOK, r.StatusCode)
	assert.Equal(t, "RTSP/1.0", r.ProtocolLabel())
	assert.Empty(t, r.Read())
	assert.Equal(t, 0, r.Header.Len())

	var zero Response
	assert.Equal(t, StatusOK, zero.Status())
	assert.Equal(t, "", zero.ProtocolLabel())
}

func TestResponseWriteSetsLengthOfLastCall(t *testing.T) {
	r := NewResponse(ProtocolHTTP11)

	n, err := r.Write(bytes.Repeat([]byte{'a'}, 10))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, "10", r.Header.Get("Content-Length"))

	n, err = r.Write(bytes.Repeat([]byte{'b'}, 5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.Len(t, r.Read(), 15)
	assert.Equal(t, 15, r.BodyLen())
	assert.Equal(t, "5", r.Header.Get("content-length"))
	assert.Equal(t, []string{"Content-Length"}, r.Header.Keys())
}

func TestResponseWriteRange(t *testing.T) {
	r := NewResponse(ProtocolRTSP10)
	src := []byte("0123456789")

	_, err := r.WriteRange(src, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("234"), r.Read())
	assert.Equal(t, "3", r.Header.Get(HeaderContentLength))

	_, err = r.WriteRange(src, 8, 5)
	assert.ErrorIs(t, err, ErrRange)
	_, err = r.WriteRange(src, -1, 1)
	assert.ErrorIs(t, err, ErrRange)
	_, err = r.WriteRange(src, math.MaxInt, 1)
	assert.ErrorIs(t, err, ErrRange)
	_, err = r.WriteRange(src, 1, math.MaxInt)
	assert.ErrorIs(t, err, ErrRange)
	_, err = r.WriteRange(src, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, []byte("234"), r.Read())
}

func TestResponseReadIsCopy(t *testing.T) {
	r := NewResponse(ProtocolRTSP10)
	r.Write([]byte("abc"))

	body := r.Read()
	body[0] = 'x'
	assert.Equal(t, []byte("abc"), r.Read())
}

func TestProtocolLabel(t *testing.T) {
	tests := []struct {
		protocol Protocol
		want     string
	}{
		{ProtocolHTTP10, "HTTP/1.0"},
		{ProtocolHTTP11, "HTTP/1.1"},
		{ProtocolRTSP10, "RTSP/1.0"},
		{ProtocolUnknown, ""},
		{Protocol(99), ""},
	}
	for _, tt := range tests {
		t.Run(tt.protocol.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.protocol.Label())
			assert.Equal(t, tt.want != "", tt.protocol.IsValid())
			if tt.want != "" {
				assert.Equal(t, tt.protocol, ParseProtocol(tt.want))
			}
		})
	}
	assert.Equal(t, ProtocolUnknown, ParseProtocol("SIP/2.0"))
}

func TestHeaderCaseInsensitiveOrdered(t *testing.T) {
	var h Header
	h.Set("CSeq", "1")
	h.Add("Server", "AirTunes/220.68")
	h.Set("Audio-Jack-Status", "connected; type=analog")
	h.Set("cseq", "2")
	h.Add("SERVER", "extra")

	assert.Equal(t, []string{"CSeq", "Server", "Audio-Jack-Status"}, h.Keys())
	assert.Equal(t, "2", h.Get("CSEQ"))
	assert.Equal(t, []string{"AirTunes/220.68", "extra"}, h.Values("server"))
	assert.True(t, h.Has("audio-jack-status"))

	h.Del("server")
	assert.False(t, h.Has("Server"))
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, "", h.Get("Server"))
	assert.Nil(t, h.Values("Server"))
}

func TestResponseWriteTo(t *testing.T) {
	r := NewResponse(ProtocolRTSP10)
	r.Header.Set("CSeq", "3")
	r.Header.Set("Server", "AirTunes/220.68")
	r.Write([]byte("hello"))

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	require.NoError(t, err)

	want := strings.Join([]string{
		"RTSP/1.0 200 OK",
		"CSeq: 3",
		"Server: AirTunes/220.68",
		"Content-Length: 5",
		"",
		"hello",
	}, "\r\n")
	assert.Equal(t, want, buf.String())
	assert.Equal(t, int64(len(want)), n)
}

func TestResponseWriteToStatus(t *testing.T) {
	r := NewResponse(ProtocolHTTP11)
	r.StatusCode = StatusNotFound

	out, err := r.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 404 Not Found\r\n\r\n", string(out))

	r.StatusCode = StatusCode(299)
	out, err = r.Bytes()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "HTTP/1.1 299 Unknown\r\n"))
}

func TestResponseWriteToUnknownProtocol(t *testing.T) {
	r := NewResponse(ProtocolUnknown)
	_, err := r.Bytes()
	assert.ErrorIs(t, err, ErrUnknownProtocol)
}
