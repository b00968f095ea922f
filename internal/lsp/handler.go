package lsp

import (
	"encoding/json"
	"fmt"

	"gpuasm/internal/protocol"
	"gpuasm/internal/workspace"
)

// handleMessage dispatches one message. It returns the response to
// write (nil for notifications and dropped messages) and whether the
// server should stop after it.
func (s *Server) handleMessage(msg *protocol.Message) (*protocol.Message, bool) {
	switch {
	case msg.IsRequest():
		s.logger.Debug("request", "method", msg.Method)
		return s.handleRequest(msg), false
	case msg.IsNotification():
		s.logger.Debug("notification", "method", msg.Method)
		return nil, s.handleNotification(msg)
	default:
		// A response or a shape we do not recognize. The server sends
		// no requests of its own, so there is nothing to correlate.
		s.logger.Debug("ignoring message without method")
		return nil, false
	}
}

func (s *Server) handleRequest(msg *protocol.Message) *protocol.Message {
	if msg.Method == "initialize" {
		return s.handleInitialize(msg)
	}
	if !s.initialized {
		return protocol.NewErrorMessage(msg.ID, protocol.ServerNotInitialized,
			fmt.Sprintf("received %q before initialize", msg.Method))
	}
	if s.shuttingDown {
		return protocol.NewErrorMessage(msg.ID, protocol.InvalidRequest,
			fmt.Sprintf("received %q after shutdown", msg.Method))
	}

	switch msg.Method {
	case "shutdown":
		s.shuttingDown = true
		s.logger.Info("shutdown requested")
		return protocol.NewResultMessage(msg.ID, nil)
	case "textDocument/hover",
		"textDocument/completion",
		"textDocument/definition",
		"textDocument/signatureHelp":
		return s.handleFeatureRequest(msg)
	default:
		return protocol.NewErrorMessage(msg.ID, protocol.MethodNotFound,
			fmt.Sprintf("method not found: %s", msg.Method))
	}
}

func (s *Server) handleInitialize(msg *protocol.Message) *protocol.Message {
	var params protocol.InitializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return protocol.NewErrorMessage(msg.ID, protocol.InvalidParams,
				fmt.Sprintf("invalid initialize params: %v", err))
		}
	}

	ws := s.loadWorkspaceSettings(params)
	if ws != nil && ws.Completion.MinPrefix > 0 {
		s.engine.SetMinPrefix(ws.Completion.MinPrefix)
		s.logger.Debug("completion prefix gate from workspace settings", "min_prefix", ws.Completion.MinPrefix)
	}

	// Explicit client options beat workspace settings, which beat any
	// override the server was started with.
	override := ""
	if opts := params.InitializationOptions; opts != nil {
		override = opts.ArchitectureOverride
	}
	if override == "" && ws != nil {
		override = ws.Architecture
	}
	if override != "" {
		s.engine.SetArchitectureOverride(override)
		s.logger.Info("architecture override", "architecture", override)
	}

	client := "unknown"
	if params.ClientInfo != nil {
		client = params.ClientInfo.Name
	}
	s.logger.Info("initialized session",
		"client", client,
		"root_uri", params.RootURI,
	)
	s.initialized = true

	result := protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncFull,
			HoverProvider:    true,
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider: false,
			},
			SignatureHelpProvider: &protocol.SignatureHelpOptions{
				TriggerCharacters: []string{" "},
			},
			DefinitionProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "gpuasm-lsp",
			Version: s.version,
		},
	}
	return protocol.NewResultMessage(msg.ID, result)
}

// loadWorkspaceSettings reads .gpuasm.toml from the workspace root the
// client announced, if any. Unreadable settings are logged and skipped
// rather than failing the handshake.
func (s *Server) loadWorkspaceSettings(params protocol.InitializeParams) *workspace.File {
	root := ""
	if params.RootURI != "" {
		if p, ok := uriToPath(params.RootURI); ok {
			root = p
		}
	}
	if root == "" {
		root = params.RootPath
	}
	if root == "" {
		return nil
	}
	ws, err := workspace.Load(root)
	if err != nil {
		s.logger.Warn("ignoring unreadable workspace settings", "root", root, "error", err.Error())
		return nil
	}
	return ws
}

// handleFeatureRequest serves the four positional features. All of them
// share the textDocument/position parameter shape, tolerate an unopened
// document by answering null, and never fail the session.
func (s *Server) handleFeatureRequest(msg *protocol.Message) *protocol.Message {
	var params protocol.TextDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return protocol.NewErrorMessage(msg.ID, protocol.InvalidParams,
			fmt.Sprintf("invalid %s params: %v", msg.Method, err))
	}

	doc, ok := s.docs.Get(params.TextDocument.URI)
	if !ok {
		s.logger.Warn("request for unopened document",
			"method", msg.Method,
			"uri", params.TextDocument.URI,
		)
		return protocol.NewResultMessage(msg.ID, nil)
	}

	var result any
	switch msg.Method {
	case "textDocument/hover":
		if h := s.engine.Hover(doc, params.Position); h != nil {
			result = h
		}
	case "textDocument/completion":
		if c := s.engine.Completion(doc, params.Position); c != nil {
			result = c
		}
	case "textDocument/definition":
		if l := s.engine.Definition(doc, params.Position); l != nil {
			result = l
		}
	case "textDocument/signatureHelp":
		if sh := s.engine.SignatureHelp(doc, params.Position); sh != nil {
			result = sh
		}
	}
	return protocol.NewResultMessage(msg.ID, result)
}

// handleNotification reacts to one notification and reports whether it
// was exit. Notifications carry no id, so decode failures are logged
// and swallowed.
func (s *Server) handleNotification(msg *protocol.Message) bool {
	switch msg.Method {
	case "exit":
		s.logger.Info("exit requested", "after_shutdown", s.shuttingDown)
		return true
	case "initialized":
		s.logger.Debug("client reports ready")
	case "textDocument/didOpen":
		s.handleDidOpen(msg)
	case "textDocument/didChange":
		s.handleDidChange(msg)
	case "textDocument/didClose":
		s.handleDidClose(msg)
	default:
		s.logger.Debug("ignoring notification", "method", msg.Method)
	}
	return false
}

func (s *Server) handleDidOpen(msg *protocol.Message) {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("invalid didOpen params", "error", err.Error())
		return
	}
	item := params.TextDocument
	s.docs.Open(item.URI, item.LanguageID, item.Text)
	s.logger.Debug("document opened",
		"uri", item.URI,
		"language", item.LanguageID,
		"bytes", len(item.Text),
		"open_documents", s.docs.Len(),
	)
}

func (s *Server) handleDidChange(msg *protocol.Message) {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("invalid didChange params", "error", err.Error())
		return
	}
	if len(params.ContentChanges) == 0 {
		s.logger.Warn("didChange without content changes", "uri", params.TextDocument.URI)
		return
	}
	// Full sync: the last change event holds the complete new text.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	if !s.docs.Change(params.TextDocument.URI, text) {
		s.logger.Warn("change for unopened document", "uri", params.TextDocument.URI)
		return
	}
	s.logger.Debug("document changed",
		"uri", params.TextDocument.URI,
		"version", params.TextDocument.Version,
		"bytes", len(text),
	)
}

func (s *Server) handleDidClose(msg *protocol.Message) {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logger.Warn("invalid didClose params", "error", err.Error())
		return
	}
	if !s.docs.Close(params.TextDocument.URI) {
		s.logger.Warn("close for unopened document", "uri", params.TextDocument.URI)
		return
	}
	s.logger.Debug("document closed",
		"uri", params.TextDocument.URI,
		"open_documents", s.docs.Len(),
	)
}
