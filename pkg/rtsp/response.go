package rtsp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// HeaderContentLength is the body length header.
const HeaderContentLength = "Content-Length"

// Response is a protocol reply: status, headers and an in-memory body.
type Response struct {
	Protocol   Protocol
	StatusCode StatusCode
	Header     Header

	body bytes.Buffer
}

// NewResponse creates a response for the given protocol with status OK.
func NewResponse(protocol Protocol) *Response {
	return &Response{Protocol: protocol, StatusCode: StatusOK}
}

// Write appends p to the body and sets Content-Length to len(p).
//
// Content-Length reflects only this call, not the accumulated body. Callers
// writing a body in several pieces must set Content-Length themselves.
func (r *Response) Write(p []byte) (int, error) {
	n, _ := r.body.Write(p)
	r.Header.Set(HeaderContentLength, strconv.Itoa(n))
	return n, nil
}

// WriteRange appends p[offset:offset+count] to the body and sets
// Content-Length to count.
func (r *Response) WriteRange(p []byte, offset, count int) (int, error) {
	if offset < 0 || count < 0 || offset > len(p) || count > len(p)-offset {
		return 0, fmt.Errorf("%w: offset %d count %d len %d", ErrRange, offset, count, len(p))
	}
	return r.Write(p[offset : offset+count])
}

// Read returns the accumulated body.
func (r *Response) Read() []byte {
	return bytes.Clone(r.body.Bytes())
}

// BodyLen returns the accumulated body size.
func (r *Response) BodyLen() int {
	return r.body.Len()
}

// ProtocolLabel returns the wire token for the response protocol, or "".
func (r *Response) ProtocolLabel() string {
	return r.Protocol.Label()
}

// Status returns the effective status code; the zero value reads as OK.
func (r *Response) Status() StatusCode {
	if r.StatusCode == 0 {
		return StatusOK
	}
	return r.StatusCode
}

// WriteTo serializes the status line, headers in insertion order, a blank
// line and the body.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	label := r.ProtocolLabel()
	if label == "" {
		return 0, ErrUnknownProtocol
	}

	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	status := r.Status()
	fmt.Fprintf(bw, "%s %d %s\r\n", label, int(status), status.Reason())
	for _, f := range r.Header.fields {
		for _, v := range f.values {
			fmt.Fprintf(bw, "%s: %s\r\n", f.name, v)
		}
	}
	bw.WriteString("\r\n")
	bw.Write(r.body.Bytes())

	err := bw.Flush()
	return cw.n, err
}

// Bytes returns the serialized response.
func (r *Response) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
