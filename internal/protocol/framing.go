package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gpuasm/internal/errors"
)

// MaxContentLength caps a single framed message. Full-document sync
// sends whole file contents, so the cap is generous.
const MaxContentLength = 16 * 1024 * 1024

// ReadMessage reads one Content-Length framed message. It returns
// io.EOF on a clean end of stream.
//
// Failures split two ways. A body that does not decode leaves the
// stream aligned on the next header, so ReadMessage returns the error
// together with a partial message carrying any id it could salvage;
// the caller can answer with a parse error and keep serving. Header
// failures lose framing alignment: those return a nil message and the
// caller must stop reading.
func ReadMessage(r *bufio.Reader) (*Message, error) {
	contentLen := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" && contentLen < 0 {
				return nil, io.EOF
			}
			return nil, errors.NewProtocolFramingError("truncated header", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errors.NewProtocolFramingError(fmt.Sprintf("malformed header line %q", line), nil)
		}
		if strings.EqualFold(strings.TrimSpace(key), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, errors.NewProtocolFramingError(fmt.Sprintf("invalid Content-Length %q", strings.TrimSpace(value)), err)
			}
			contentLen = n
		}
		// Other headers (Content-Type) carry no information we need.
	}
	if contentLen < 0 {
		return nil, errors.NewProtocolFramingError("missing Content-Length header", nil)
	}
	if contentLen > MaxContentLength {
		return nil, errors.NewProtocolFramingError(fmt.Sprintf("message of %d bytes exceeds the %d byte limit", contentLen, MaxContentLength), nil)
	}

	body := make([]byte, contentLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.NewProtocolFramingError("truncated message body", err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		partial := &Message{}
		var probe struct {
			ID json.RawMessage `json:"id"`
		}
		if json.Unmarshal(body, &probe) == nil {
			partial.ID = probe.ID
		}
		return partial, errors.NewProtocolFramingError("invalid JSON payload", err)
	}
	return &msg, nil
}

// WriteMessage frames and writes one message. The header and body go
// out in a single write so concurrent writers cannot interleave them.
func WriteMessage(w io.Writer, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.NewInternalError("marshal protocol message", err)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Content-Length: %d\r\n\r\n", len(body))
	buf.Write(body)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.NewProtocolFramingError("write message", err)
	}
	return nil
}
