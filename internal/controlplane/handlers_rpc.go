package controlplane

import (
	"context"
	"encoding/json"

	"github.com/codebridgehq/codebridge/internal/rpcerrors"
	"github.com/codebridgehq/codebridge/internal/rpcio"
)

// registerRPCHandlers wires the control plane's required methods (spec.md
// §6 "Required methods") into the assistant-facing JSON-RPC server.
func (b *Bridge) registerRPCHandlers() {
	b.rpc.Handle("initialize", b.handleInitialize)
	b.rpc.Handle("initialized", b.handleInitialized)
	b.rpc.Handle("tools/list", b.handleToolsList)
	b.rpc.Handle("tools/call", b.handleToolsCall)
	b.rpc.Handle("resources/list", b.handleResourcesList)
}

func (b *Bridge) handleInitialize(ctx context.Context, req rpcio.Request) (json.RawMessage, *rpcerrors.Error) {
	result := struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
		Capabilities struct {
			Tools     map[string]any `json:"tools"`
			Resources map[string]any `json:"resources"`
		} `json:"capabilities"`
	}{ProtocolVersion: protocolVersion}
	result.ServerInfo.Name = "codebridge"
	result.ServerInfo.Version = serverVersion
	result.Capabilities.Tools = map[string]any{}
	result.Capabilities.Resources = map[string]any{}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, rpcerrors.Routing("failed to marshal initialize result")
	}
	return data, nil
}

// handleInitialized switches the control plane into the state where
// further tool calls are permitted (spec.md §4.J). It is a notification
// (no id), so its return value is discarded by rpcio.
func (b *Bridge) handleInitialized(ctx context.Context, req rpcio.Request) (json.RawMessage, *rpcerrors.Error) {
	b.mu.Lock()
	b.initialized = true
	b.mu.Unlock()
	return nil, nil
}

func (b *Bridge) handleToolsList(ctx context.Context, req rpcio.Request) (json.RawMessage, *rpcerrors.Error) {
	result := struct {
		Tools []any `json:"tools"`
	}{}
	for _, t := range b.catalog.MCPTools() {
		result.Tools = append(result.Tools, t)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, rpcerrors.Routing("failed to marshal tools/list result")
	}
	return data, nil
}

// handleResourcesList returns a minimal static resource catalog (spec.md
// §4.J); the bridge has no addressable resources of its own beyond its
// tools, so the list is always empty.
func (b *Bridge) handleResourcesList(ctx context.Context, req rpcio.Request) (json.RawMessage, *rpcerrors.Error) {
	result := struct {
		Resources []any `json:"resources"`
	}{Resources: []any{}}
	data, _ := json.Marshal(result)
	return data, nil
}

func (b *Bridge) handleToolsCall(ctx context.Context, req rpcio.Request) (json.RawMessage, *rpcerrors.Error) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, rpcerrors.InvalidParams("name")
	}
	if params.Name == "" {
		return nil, rpcerrors.InvalidParams("name")
	}

	result, rpcErr := b.disp.Call(ctx, params.Name, params.Arguments)
	if rpcErr != nil {
		return nil, rpcErr
	}

	wrapped, err := rawTextResult(result)
	if err != nil {
		return nil, rpcerrors.Routing("failed to marshal tool result")
	}
	return wrapped, nil
}
