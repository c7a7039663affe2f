package dap

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/go-dap"
)

// Message framing. Every DAP message, in both directions, is
//
//	Content-Length: <N>\r\n\r\n<N bytes of UTF-8 JSON>
//
// Reads from the socket arrive in arbitrary chunks, so decoding works
// over an accumulating buffer: extractFrame peels at most one complete
// frame off the front and reports how much of the buffer it consumed.
// A malformed frame is consumed whole, which keeps one bad message from
// wedging the rest of the stream.

const headerTerminator = "\r\n\r\n"

// frameError describes a frame that was complete but undecodable. The
// frame has already been consumed from the buffer when it is returned.
type frameError struct {
	msg string
}

func (e *frameError) Error() string {
	return e.msg
}

// extractFrame returns the body of the first complete frame in buf and
// the remaining buffer. When no complete frame has arrived yet it
// returns ok=false and buf unchanged. A header block without a usable
// Content-Length is consumed and reported as a *frameError.
func extractFrame(buf []byte) (body, rest []byte, ok bool, err error) {
	idx := bytes.Index(buf, []byte(headerTerminator))
	if idx < 0 {
		return nil, buf, false, nil
	}
	length, perr := contentLength(buf[:idx])
	if perr != nil {
		return nil, buf[idx+len(headerTerminator):], true, perr
	}
	bodyStart := idx + len(headerTerminator)
	if len(buf) < bodyStart+length {
		return nil, buf, false, nil
	}
	return buf[bodyStart : bodyStart+length], buf[bodyStart+length:], true, nil
}

// contentLength scans a header block for the Content-Length header.
// Header names are case-insensitive; unrecognized headers are ignored.
func contentLength(header []byte) (int, error) {
	for _, line := range strings.Split(string(header), "\r\n") {
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(line[:colon]), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(line[colon+1:]))
		if err != nil || n < 0 {
			return 0, &frameError{msg: fmt.Sprintf("invalid Content-Length %q", strings.TrimSpace(line[colon+1:]))}
		}
		return n, nil
	}
	return 0, &frameError{msg: "header block without Content-Length"}
}

// decodeMessage decodes one frame body into either a typed DAP message
// or, for request commands outside the DAP schema, a custom request
// envelope.
func decodeMessage(body []byte) (dap.Message, *customRequest, error) {
	msg, err := dap.DecodeProtocolMessage(body)
	if err == nil {
		return msg, nil, nil
	}
	var fieldErr *dap.DecodeProtocolMessageFieldError
	if errors.As(err, &fieldErr) && fieldErr.SubType == "Request" && fieldErr.FieldName == "command" {
		var cr customRequest
		if jerr := unmarshalArguments(body, &cr); jerr == nil {
			return nil, &cr, nil
		}
	}
	return nil, nil, err
}
