// Package lsp runs the language server: a sequential read-dispatch-
// write loop over Content-Length framed JSON-RPC on standard input and
// output. Messages are processed strictly in arrival order, which is
// what guarantees a feature request never observes a document version
// older than the lifecycle notifications that preceded it.
package lsp

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"gpuasm/internal/document"
	"gpuasm/internal/engine"
	"gpuasm/internal/errors"
	"gpuasm/internal/index"
	"gpuasm/internal/isa/snapshot"
	"gpuasm/internal/protocol"
	"gpuasm/internal/slogutil"
)

// Options configures a server.
type Options struct {
	// DataPath locates the instruction database snapshot.
	DataPath string
	// Version is reported to the client during initialize.
	Version string
	// ArchitectureOverride pins lookups to one architecture before the
	// client has a chance to; initialize options can still replace it.
	ArchitectureOverride string
	// MinPrefix is the completion prefix gate, passed to the engine.
	MinPrefix int
	// Logger receives server logs. It must not write to stdout, which
	// belongs to the protocol. Nil discards logs.
	Logger *slog.Logger
}

// Server owns one client session.
type Server struct {
	stdin  io.Reader
	stdout io.Writer
	reader *bufio.Reader
	logger *slog.Logger

	version   string
	sessionID string
	dataPath  string

	idx    *index.Index
	engine *engine.Engine
	docs   *document.Store

	initialized  bool
	shuttingDown bool
}

// NewServer loads the snapshot at opts.DataPath and builds a server
// over it. A missing or invalid snapshot fails here, before any
// protocol message is read; the process must not come up over a broken
// database.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	snap, err := snapshot.Load(opts.DataPath)
	if err != nil {
		return nil, err
	}
	idx := index.New(snap)
	eng := engine.New(idx, engine.Options{MinPrefix: opts.MinPrefix})
	if opts.ArchitectureOverride != "" {
		eng.SetArchitectureOverride(opts.ArchitectureOverride)
	}

	stats := snap.Stats()
	s := &Server{
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		logger:    logger,
		version:   opts.Version,
		sessionID: uuid.New().String(),
		dataPath:  opts.DataPath,
		idx:       idx,
		engine:    eng,
		docs:      document.NewStore(idx),
	}
	s.logger.Info("instruction database loaded",
		"path", opts.DataPath,
		"instructions", stats.Instructions,
		"architectures", stats.Architectures,
		"special_registers", stats.Singles+stats.Ranges,
	)
	return s, nil
}

// SetStdin sets the input stream (for testing).
func (s *Server) SetStdin(r io.Reader) {
	s.stdin = r
	s.reader = nil
}

// SetStdout sets the output stream (for testing).
func (s *Server) SetStdout(w io.Writer) {
	s.stdout = w
}

// Start processes messages until the client disconnects or asks the
// server to exit. A clean shutdown/exit sequence and a bare EOF both
// return nil; an exit without a prior shutdown, or an unrecoverable
// framing failure, return an error.
func (s *Server) Start() error {
	s.logger.Info("language server starting",
		"version", s.version,
		"session_id", s.sessionID,
	)

	for {
		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("client closed the stream, shutting down")
				return nil
			}
			// A salvaged partial message means the stream is still
			// aligned: answer and keep serving. Otherwise framing is
			// lost and continuing would misread every later byte.
			if msg != nil {
				s.logger.Warn("dropping malformed message", "error", err.Error())
				if len(msg.ID) > 0 {
					s.writeMessage(protocol.NewErrorMessage(msg.ID, protocol.ParseError, fmt.Sprintf("malformed message: %v", err)))
				}
				continue
			}
			s.logger.Error("protocol framing lost", "error", err.Error())
			return err
		}

		response, done := s.handleMessage(msg)
		if response != nil {
			s.writeMessage(response)
		}
		if done {
			if s.shuttingDown {
				s.logger.Info("session ended", "session_id", s.sessionID)
				return nil
			}
			return fmt.Errorf("exit requested before shutdown")
		}
	}
}

// readMessage reads one framed message, initializing the buffered
// reader on first use.
func (s *Server) readMessage() (*protocol.Message, error) {
	if s.reader == nil {
		s.reader = bufio.NewReader(s.stdin)
	}
	return protocol.ReadMessage(s.reader)
}

// writeMessage frames and writes a message, logging failures rather
// than surfacing them; a client that stopped reading is handled by the
// next read returning EOF.
func (s *Server) writeMessage(msg *protocol.Message) {
	if err := protocol.WriteMessage(s.stdout, msg); err != nil {
		s.logger.Error("failed to write response",
			"error", err.Error(),
			"code", string(errors.CodeOf(err)),
		)
	}
}
