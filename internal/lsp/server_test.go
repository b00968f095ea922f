package lsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gpuasm/internal/errors"
	"gpuasm/internal/isa/snapshot"
	"gpuasm/internal/protocol"
)

func writeTestSnapshot(t *testing.T) string {
	t.Helper()
	snap := &snapshot.Snapshot{
		Instructions: []snapshot.Instruction{
			{
				Name:               "V_ADD_F32",
				Architectures:      []string{"rdna3"},
				Description:        "Add two single-precision floats.",
				Args:               []string{"VDST", "SRC0", "SRC1"},
				ArgTypes:           []string{"register", "register_or_inline", "register_or_inline"},
				ArgDataTypes:       []string{"FMT_NUM_F32", "FMT_NUM_F32", "FMT_NUM_F32"},
				AvailableEncodings: []string{"ENC_VOP2", "ENC_VOP3"},
			},
			{
				Name:               "V_ADD_U32",
				Architectures:      []string{"rdna3"},
				Description:        "Add two unsigned integers.",
				Args:               []string{"VDST", "SRC0", "SRC1"},
				ArgTypes:           []string{"register", "register_or_inline", "register_or_inline"},
				ArgDataTypes:       []string{"FMT_NUM_U32", "FMT_NUM_U32", "FMT_NUM_U32"},
				AvailableEncodings: []string{"ENC_VOP2"},
			},
			{
				Name:               "V_SUB_F32",
				Architectures:      []string{"cdna3"},
				Description:        "Subtract two single-precision floats.",
				Args:               []string{"VDST", "SRC0", "SRC1"},
				ArgTypes:           []string{"register", "register_or_inline", "register_or_inline"},
				ArgDataTypes:       []string{"FMT_NUM_F32", "FMT_NUM_F32", "FMT_NUM_F32"},
				AvailableEncodings: []string{"ENC_VOP2"},
			},
			{
				Name:               "S_CBRANCH_SCC0",
				Architectures:      []string{"rdna3", "cdna3"},
				Description:        "Branch if SCC is zero.",
				Args:               []string{"TGT"},
				ArgTypes:           []string{"label"},
				ArgDataTypes:       []string{"FMT_NUM_B32"},
				AvailableEncodings: []string{"ENC_SOPP"},
			},
		},
		SpecialRegisters: snapshot.SpecialRegisters{
			Singles: []snapshot.Single{
				{Name: "exec", Description: "Execution mask."},
			},
		},
	}
	path := filepath.Join(t.TempDir(), "isa.json")
	if err := snapshot.Write(path, snap, true); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return path
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(Options{
		DataPath: writeTestSnapshot(t),
		Version:  "1.2.3",
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return s
}

func frame(body string) string {
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
}

func request(id int, method string, params any) string {
	msg := map[string]any{"jsonrpc": "2.0", "id": id, "method": method}
	if params != nil {
		msg["params"] = params
	}
	data, _ := json.Marshal(msg)
	return string(data)
}

func notification(method string, params any) string {
	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	if params != nil {
		msg["params"] = params
	}
	data, _ := json.Marshal(msg)
	return string(data)
}

func didOpen(uri, languageID, text string) string {
	return notification("textDocument/didOpen", protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: languageID, Version: 1, Text: text},
	})
}

func positionParams(uri string, line, character int) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Position:     protocol.Position{Line: line, Character: character},
	}
}

// runRawSession feeds raw bytes to the server and collects every framed
// response it wrote, together with Start's error.
func runRawSession(t *testing.T, s *Server, raw string) ([]*protocol.Message, error) {
	t.Helper()
	var out bytes.Buffer
	s.SetStdin(strings.NewReader(raw))
	s.SetStdout(&out)
	err := s.Start()

	r := bufio.NewReader(&out)
	var responses []*protocol.Message
	for {
		msg, rerr := protocol.ReadMessage(r)
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			t.Fatalf("reading server output: %v", rerr)
		}
		responses = append(responses, msg)
	}
	return responses, err
}

func runSession(t *testing.T, s *Server, bodies ...string) ([]*protocol.Message, error) {
	t.Helper()
	var raw strings.Builder
	for _, body := range bodies {
		raw.WriteString(frame(body))
	}
	return runRawSession(t, s, raw.String())
}

func decodeResult(t *testing.T, msg *protocol.Message, target any) {
	t.Helper()
	if msg.Error != nil {
		t.Fatalf("response carries error %d: %s", msg.Error.Code, msg.Error.Message)
	}
	data, err := json.Marshal(msg.Result)
	if err != nil {
		t.Fatalf("re-marshaling result: %v", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
}

func TestNewServerMissingSnapshot(t *testing.T) {
	_, err := NewServer(Options{
		DataPath: filepath.Join(t.TempDir(), "absent.json"),
	})
	if err == nil {
		t.Fatal("NewServer() succeeded with a missing snapshot")
	}
	if code := errors.CodeOf(err); code != errors.DataLoad {
		t.Errorf("CodeOf() = %q, want %q", code, errors.DataLoad)
	}
}

func TestNewServerCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "isa.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := NewServer(Options{DataPath: path})
	if err == nil {
		t.Fatal("NewServer() succeeded with a corrupt snapshot")
	}
	if code := errors.CodeOf(err); code != errors.DataLoad {
		t.Errorf("CodeOf() = %q, want %q", code, errors.DataLoad)
	}
}

func TestServerLifecycle(t *testing.T) {
	s := newTestServer(t)
	responses, err := runSession(t, s,
		request(1, "initialize", protocol.InitializeParams{
			ClientInfo: &protocol.ClientInfo{Name: "test-editor"},
		}),
		notification("initialized", nil),
		request(2, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(responses))
	}

	if got := string(responses[0].ID); got != "1" {
		t.Errorf("initialize response id = %s, want 1", got)
	}
	var init protocol.InitializeResult
	decodeResult(t, responses[0], &init)
	caps := init.Capabilities
	if caps.TextDocumentSync != protocol.TextDocumentSyncFull {
		t.Errorf("TextDocumentSync = %d, want %d", caps.TextDocumentSync, protocol.TextDocumentSyncFull)
	}
	if !caps.HoverProvider || !caps.DefinitionProvider {
		t.Errorf("hover/definition providers = %v/%v, want true/true", caps.HoverProvider, caps.DefinitionProvider)
	}
	if caps.CompletionProvider == nil || caps.CompletionProvider.ResolveProvider {
		t.Errorf("CompletionProvider = %+v, want non-nil without resolve", caps.CompletionProvider)
	}
	if caps.SignatureHelpProvider == nil || len(caps.SignatureHelpProvider.TriggerCharacters) != 1 || caps.SignatureHelpProvider.TriggerCharacters[0] != " " {
		t.Errorf("SignatureHelpProvider = %+v, want space trigger", caps.SignatureHelpProvider)
	}
	if init.ServerInfo == nil || init.ServerInfo.Name != "gpuasm-lsp" || init.ServerInfo.Version != "1.2.3" {
		t.Errorf("ServerInfo = %+v", init.ServerInfo)
	}

	if got := string(responses[1].ID); got != "2" {
		t.Errorf("shutdown response id = %s, want 2", got)
	}
	if responses[1].Error != nil {
		t.Errorf("shutdown returned error %+v", responses[1].Error)
	}
	if responses[1].Result != nil {
		t.Errorf("shutdown result = %v, want null", responses[1].Result)
	}
}

func TestServerHoverRoundTrip(t *testing.T) {
	s := newTestServer(t)
	responses, err := runSession(t, s,
		request(1, "initialize", nil),
		didOpen("file:///a.s", "rdna3", "\tv_add_f32 v0, v1, v2\n"),
		request(2, "textDocument/hover", positionParams("file:///a.s", 0, 3)),
		request(3, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}

	var hov protocol.Hover
	decodeResult(t, responses[1], &hov)
	if hov.Contents.Kind != protocol.MarkupKindMarkdown {
		t.Errorf("Contents.Kind = %q, want %q", hov.Contents.Kind, protocol.MarkupKindMarkdown)
	}
	want := "**v_add_f32**\n\n" +
		"VDST: reg f32, SRC0: reg/inline f32, SRC1: reg/inline f32\n\n" +
		"Add two single-precision floats."
	if hov.Contents.Value != want {
		t.Errorf("hover value = %q, want %q", hov.Contents.Value, want)
	}
}

func TestServerCompletionRoundTrip(t *testing.T) {
	s := newTestServer(t)
	responses, err := runSession(t, s,
		request(1, "initialize", nil),
		didOpen("file:///a.s", "", "v_ad"),
		request(2, "textDocument/completion", positionParams("file:///a.s", 0, 4)),
		request(3, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var list protocol.CompletionList
	decodeResult(t, responses[1], &list)
	if list.IsIncomplete {
		t.Error("IsIncomplete = true, want false")
	}
	var labels []string
	for _, item := range list.Items {
		labels = append(labels, item.Label)
	}
	want := []string{"v_add_f32", "v_add_u32"}
	if len(labels) != len(want) {
		t.Fatalf("labels = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels = %v, want %v", labels, want)
		}
	}
	edit := list.Items[0].TextEdit
	if edit == nil {
		t.Fatal("first item has no text edit")
	}
	if edit.Range.Start.Character != 0 || edit.Range.End.Character != 4 {
		t.Errorf("edit range = %+v, want characters [0, 4]", edit.Range)
	}
	if edit.NewText != "v_add_f32" {
		t.Errorf("edit text = %q, want v_add_f32", edit.NewText)
	}
}

func TestServerDefinitionRoundTrip(t *testing.T) {
	lines := []string{
		"; kernel prologue",
		"s_mov_b32 s0, 0",
		"loop:",
		"\tv_add_f32 v0, v1, v2",
		"",
		"",
		"",
		"",
		"",
		"\tv_add_u32 v3, v4, v5",
		"\ts_cbranch_scc0 loop",
	}
	s := newTestServer(t)
	responses, err := runSession(t, s,
		request(1, "initialize", nil),
		didOpen("file:///k.s", "rdna3", strings.Join(lines, "\n")),
		request(2, "textDocument/definition", positionParams("file:///k.s", 10, 17)),
		request(3, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var loc protocol.Location
	decodeResult(t, responses[1], &loc)
	if loc.URI != "file:///k.s" {
		t.Errorf("URI = %q, want file:///k.s", loc.URI)
	}
	if loc.Range.Start.Line != 2 || loc.Range.Start.Character != 0 {
		t.Errorf("definition start = %+v, want line 2 character 0", loc.Range.Start)
	}
	if loc.Range.End.Line != 2 || loc.Range.End.Character != 4 {
		t.Errorf("definition end = %+v, want line 2 character 4", loc.Range.End)
	}
}

func TestServerSignatureHelpRoundTrip(t *testing.T) {
	s := newTestServer(t)
	responses, err := runSession(t, s,
		request(1, "initialize", nil),
		didOpen("file:///a.s", "rdna3", "\tv_add_f32 v0, v1"),
		request(2, "textDocument/signatureHelp", positionParams("file:///a.s", 0, 15)),
		request(3, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var help protocol.SignatureHelp
	decodeResult(t, responses[1], &help)
	if len(help.Signatures) != 1 {
		t.Fatalf("got %d signatures, want 1", len(help.Signatures))
	}
	sig := help.Signatures[0]
	if sig.Label != "v_add_f32 VDST, SRC0, SRC1" {
		t.Errorf("label = %q", sig.Label)
	}
	if len(sig.Parameters) != 3 {
		t.Fatalf("got %d parameters, want 3", len(sig.Parameters))
	}
	if sig.ActiveParameter == nil || *sig.ActiveParameter != 1 {
		t.Errorf("ActiveParameter = %v, want 1", sig.ActiveParameter)
	}
	if help.ActiveSignature == nil || *help.ActiveSignature != 0 {
		t.Errorf("ActiveSignature = %v, want 0", help.ActiveSignature)
	}
}

func TestServerRequestBeforeInitialize(t *testing.T) {
	s := newTestServer(t)
	responses, err := runSession(t, s,
		request(1, "textDocument/hover", positionParams("file:///a.s", 0, 0)),
		request(2, "initialize", nil),
		request(3, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	if responses[0].Error == nil || responses[0].Error.Code != protocol.ServerNotInitialized {
		t.Errorf("pre-initialize response = %+v, want ServerNotInitialized error", responses[0].Error)
	}
	if responses[1].Error != nil {
		t.Errorf("initialize after rejection failed: %+v", responses[1].Error)
	}
}

func TestServerRequestAfterShutdown(t *testing.T) {
	s := newTestServer(t)
	responses, err := runSession(t, s,
		request(1, "initialize", nil),
		request(2, "shutdown", nil),
		request(3, "textDocument/hover", positionParams("file:///a.s", 0, 0)),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	if responses[2].Error == nil || responses[2].Error.Code != protocol.InvalidRequest {
		t.Errorf("post-shutdown response = %+v, want InvalidRequest error", responses[2].Error)
	}
}

func TestServerExitWithoutShutdown(t *testing.T) {
	s := newTestServer(t)
	_, err := runSession(t, s,
		request(1, "initialize", nil),
		notification("exit", nil),
	)
	if err == nil {
		t.Fatal("Start() = nil, want error for exit before shutdown")
	}
}

func TestServerCleanEOF(t *testing.T) {
	s := newTestServer(t)
	responses, err := runSession(t, s,
		request(1, "initialize", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v, want nil on EOF", err)
	}
	if len(responses) != 1 {
		t.Errorf("got %d responses, want 1", len(responses))
	}
}

func TestServerUnknownMethod(t *testing.T) {
	s := newTestServer(t)
	responses, err := runSession(t, s,
		request(1, "initialize", nil),
		request(2, "workspace/symbol", nil),
		notification("$/setTrace", nil),
		request(3, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	if responses[1].Error == nil || responses[1].Error.Code != protocol.MethodNotFound {
		t.Errorf("unknown method response = %+v, want MethodNotFound error", responses[1].Error)
	}
}

func TestServerMalformedBodyRecovery(t *testing.T) {
	s := newTestServer(t)
	responses, err := runSession(t, s,
		request(1, "initialize", nil),
		`{"jsonrpc":"2.0","id":7,"method":42}`,
		`{broken`,
		request(2, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v, want recovery", err)
	}
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	if got := string(responses[1].ID); got != "7" {
		t.Errorf("parse error response id = %s, want 7", got)
	}
	if responses[1].Error == nil || responses[1].Error.Code != protocol.ParseError {
		t.Errorf("parse error response = %+v, want ParseError", responses[1].Error)
	}
	if got := string(responses[2].ID); got != "2" {
		t.Errorf("post-recovery response id = %s, want 2", got)
	}
}

func TestServerFramingLossFatal(t *testing.T) {
	s := newTestServer(t)
	raw := frame(request(1, "initialize", nil)) + "this is not a header\r\n\r\n"
	responses, err := runRawSession(t, s, raw)
	if err == nil {
		t.Fatal("Start() = nil, want error after framing loss")
	}
	if len(responses) != 1 {
		t.Errorf("got %d responses, want only the initialize reply", len(responses))
	}
}

func TestServerDidChangeLastWins(t *testing.T) {
	s := newTestServer(t)
	change := notification("textDocument/didChange", protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{URI: "file:///a.s", Version: 2},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{
			{Text: "s_nop 0"},
			{Text: "\tv_add_u32 v0, v1, v2"},
		},
	})
	responses, err := runSession(t, s,
		request(1, "initialize", nil),
		didOpen("file:///a.s", "rdna3", "\tv_add_f32 v0, v1, v2"),
		change,
		request(2, "textDocument/hover", positionParams("file:///a.s", 0, 3)),
		request(3, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var hov protocol.Hover
	decodeResult(t, responses[1], &hov)
	if !strings.HasPrefix(hov.Contents.Value, "**v_add_u32**") {
		t.Errorf("hover after change = %q, want v_add_u32 record", hov.Contents.Value)
	}
}

func TestServerFeatureOnUnopenedDocument(t *testing.T) {
	s := newTestServer(t)
	responses, err := runSession(t, s,
		request(1, "initialize", nil),
		request(2, "textDocument/hover", positionParams("file:///nope.s", 0, 0)),
		request(3, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if responses[1].Error != nil {
		t.Errorf("unopened document response error = %+v, want null result", responses[1].Error)
	}
	if responses[1].Result != nil {
		t.Errorf("unopened document result = %v, want null", responses[1].Result)
	}
}

func TestServerDidCloseDropsDocument(t *testing.T) {
	s := newTestServer(t)
	responses, err := runSession(t, s,
		request(1, "initialize", nil),
		didOpen("file:///a.s", "rdna3", "\tv_add_f32 v0, v1, v2"),
		notification("textDocument/didClose", protocol.DidCloseTextDocumentParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///a.s"},
		}),
		request(2, "textDocument/hover", positionParams("file:///a.s", 0, 3)),
		request(3, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if responses[1].Result != nil || responses[1].Error != nil {
		t.Errorf("hover after close = %+v, want null result", responses[1])
	}
}

func TestServerWorkspaceSettingsFromRootURI(t *testing.T) {
	root := t.TempDir()
	settings := "architecture = \"cdna3\"\n\n[completion]\nmin_prefix = 2\n"
	if err := os.WriteFile(filepath.Join(root, ".gpuasm.toml"), []byte(settings), 0644); err != nil {
		t.Fatal(err)
	}

	s := newTestServer(t)
	text := "v_sub_f32 v0, v1, v2\nv_add_f32 v0, v1, v2\nv\n"
	responses, err := runSession(t, s,
		request(1, "initialize", protocol.InitializeParams{RootURI: "file://" + root}),
		didOpen("file:///a.s", "", text),
		request(2, "textDocument/hover", positionParams("file:///a.s", 0, 2)),
		request(3, "textDocument/hover", positionParams("file:///a.s", 1, 2)),
		request(4, "textDocument/completion", positionParams("file:///a.s", 2, 1)),
		request(5, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var hov protocol.Hover
	decodeResult(t, responses[1], &hov)
	if !strings.HasPrefix(hov.Contents.Value, "**v_sub_f32**") {
		t.Errorf("workspace-architecture hover = %q, want v_sub_f32 record", hov.Contents.Value)
	}
	if responses[2].Result != nil {
		t.Errorf("hover on filtered-out instruction = %v, want null", responses[2].Result)
	}
	if responses[3].Result != nil {
		t.Errorf("one-character completion = %v, want null under min_prefix 2", responses[3].Result)
	}
}

func TestServerInitializationOptionsBeatWorkspace(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".gpuasm.toml"), []byte("architecture = \"cdna3\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s := newTestServer(t)
	text := "v_add_f32 v0, v1, v2\nv_sub_f32 v0, v1, v2"
	responses, err := runSession(t, s,
		request(1, "initialize", protocol.InitializeParams{
			RootURI: "file://" + root,
			InitializationOptions: &protocol.InitializationOptions{
				ArchitectureOverride: "rdna3",
			},
		}),
		didOpen("file:///a.s", "", text),
		request(2, "textDocument/hover", positionParams("file:///a.s", 0, 2)),
		request(3, "textDocument/hover", positionParams("file:///a.s", 1, 2)),
		request(4, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var hov protocol.Hover
	decodeResult(t, responses[1], &hov)
	if !strings.HasPrefix(hov.Contents.Value, "**v_add_f32**") {
		t.Errorf("hover under client override = %q, want v_add_f32 record", hov.Contents.Value)
	}
	if responses[2].Result != nil {
		t.Errorf("hover on workspace-architecture instruction = %v, want null under client override", responses[2].Result)
	}
}

func TestServerArchitectureOverrideFromInitialize(t *testing.T) {
	s := newTestServer(t)
	text := "v_sub_f32 v0, v1, v2\nv_add_f32 v0, v1, v2"
	responses, err := runSession(t, s,
		request(1, "initialize", protocol.InitializeParams{
			InitializationOptions: &protocol.InitializationOptions{
				ArchitectureOverride: "CDNA 3",
			},
		}),
		didOpen("file:///a.s", "", text),
		request(2, "textDocument/hover", positionParams("file:///a.s", 0, 2)),
		request(3, "textDocument/hover", positionParams("file:///a.s", 1, 2)),
		request(4, "shutdown", nil),
		notification("exit", nil),
	)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var hov protocol.Hover
	decodeResult(t, responses[1], &hov)
	if !strings.HasPrefix(hov.Contents.Value, "**v_sub_f32**") {
		t.Errorf("override hover = %q, want v_sub_f32 record", hov.Contents.Value)
	}
	if responses[2].Result != nil {
		t.Errorf("hover on filtered-out instruction = %v, want null", responses[2].Result)
	}
}
