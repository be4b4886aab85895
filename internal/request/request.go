// Package request implements the accumulator an acceptor feeds raw bytes
// into as they arrive off a connection. It does not parse incrementally
// itself; it buffers whatever has arrived so far and hands the buffer to
// net/http.ReadRequest on every call to Parse. That parser already knows
// how to fail fast on a malformed head and report io.ErrUnexpectedEOF on a
// truncated one, which Parse maps onto a three-way Partial/Complete/
// Malformed result.
package request

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/smukkama/emberd/internal/response"
)

// ParseResult is the outcome of attempting to parse whatever bytes have
// been accumulated so far.
type ParseResult int

const (
	// Partial means more bytes are needed before a verdict can be reached.
	Partial ParseResult = iota
	// Complete means a well-formed request head (and body, if any) was parsed.
	Complete
	// Malformed means the accumulated bytes can never form a valid request.
	Malformed
)

func (r ParseResult) String() string {
	switch r {
	case Partial:
		return "partial"
	case Complete:
		return "complete"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Request accumulates bytes for one connection's in-flight HTTP request and
// carries the per-request identifiers the rest of the gateway needs:
// PeerAddress for logging, RequestID for cross-system correlation.
type Request struct {
	MaxHeaders  int
	PeerAddress string
	RequestID   string

	buf []byte

	Method  string
	Path    string
	Proto   string
	Header  http.Header
	Body    []byte

	resp response.Response
}

// New creates an accumulator for a freshly accepted connection.
func New(maxHeaders int, peerAddress string) *Request {
	return &Request{
		MaxHeaders:  maxHeaders,
		PeerAddress: peerAddress,
		RequestID:   uuid.NewString(),
	}
}

// Append feeds newly read bytes into the accumulator.
func (r *Request) Append(b []byte) {
	r.buf = append(r.buf, b...)
}

// Len reports the number of bytes accumulated so far.
func (r *Request) Len() int { return len(r.buf) }

// Parse attempts to interpret the accumulated bytes as a complete request.
// It is safe to call repeatedly as more bytes arrive; a Partial verdict
// leaves the accumulator untouched for the next Append+Parse cycle.
func (r *Request) Parse() ParseResult {
	headEnd := bytes.Index(r.buf, []byte("\r\n\r\n"))
	if headEnd < 0 {
		// The request line's own CRLF is counted here too, so a head still
		// waiting for its blank line may hold MaxHeaders+1 terminators.
		if r.MaxHeaders > 0 && countCRLF(r.buf) > r.MaxHeaders+1 {
			return Malformed
		}
		return Partial
	}
	if r.MaxHeaders > 0 && countCRLF(r.buf[:headEnd]) > r.MaxHeaders {
		return Malformed
	}

	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(r.buf)))
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Partial
		}
		return Malformed
	}

	var body []byte
	if req.Body != nil {
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return Partial
		}
		if req.ContentLength >= 0 && int64(len(body)) < req.ContentLength {
			return Partial
		}
	}

	r.Method = req.Method
	r.Path = req.URL.RequestURI()
	r.Proto = req.Proto
	r.Header = req.Header
	r.Body = body
	return Complete
}

// countCRLF counts header-line terminators, a cheap proxy for header count
// used to reject oversized heads before net/http ever sees them.
func countCRLF(b []byte) int {
	return strings.Count(string(b), "\r\n")
}

// SetResponse attaches the in-flight response this request produced, once a
// handler has run. Workers read it back via GetResponse.
func (r *Request) SetResponse(resp response.Response) { r.resp = resp }

// GetResponse returns the response slot, or nil if no handler has run yet.
func (r *Request) GetResponse() response.Response { return r.resp }
