package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for sercha-code resources.
	uriScheme = "sercha-code://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "workspaces",
		Name:        "workspaces",
		Description: "Indexed workspaces with status and chunk counts",
		MIMEType:    "application/json",
	}, s.handleWorkspacesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "files/{fileId}/chunks",
		Name:        "file-chunks",
		Description: "Indexed chunks of a file, in order, with line ranges",
		MIMEType:    "application/json",
	}, s.handleFileChunksResource)
}

// handleWorkspacesResource returns every indexed workspace.
func (s *Server) handleWorkspacesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Browse == nil {
		return jsonResult(req.Params.URI, "[]"), nil
	}

	workspaces, err := s.ports.Browse.ListWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}

	type workspaceInfo struct {
		ID     string `json:"id"`
		Path   string `json:"path"`
		Name   string `json:"name"`
		Status string `json:"status"`
		Chunks int    `json:"chunks"`
	}

	infos := make([]workspaceInfo, len(workspaces))
	for i := range workspaces {
		ws := &workspaces[i]
		count, err := s.ports.Browse.ChunkCount(ctx, ws.ID)
		if err != nil {
			return nil, fmt.Errorf("counting chunks for %s: %w", ws.Path, err)
		}
		infos[i] = workspaceInfo{
			ID:     ws.ID,
			Path:   ws.Path,
			Name:   ws.Name,
			Status: ws.Status.String(),
			Chunks: count,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling workspaces: %w", err)
	}

	return jsonResult(req.Params.URI, string(data)), nil
}

// handleFileChunksResource returns the chunks of one file.
func (s *Server) handleFileChunksResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Browse == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract fileId from URI: sercha-code://files/{fileId}/chunks
	fileID := extractFileID(req.Params.URI)
	if fileID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	file, err := s.ports.Browse.GetFile(ctx, fileID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting file: %w", err)
	}

	chunks, err := s.ports.Browse.GetChunks(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("getting chunks: %w", err)
	}

	type chunkInfo struct {
		ID        string `json:"id"`
		Index     int    `json:"index"`
		LineStart int    `json:"line_start"`
		LineEnd   int    `json:"line_end"`
		Content   string `json:"content"`
	}
	type fileInfo struct {
		ID     string      `json:"id"`
		Path   string      `json:"path"`
		Chunks []chunkInfo `json:"chunks"`
	}

	info := fileInfo{
		ID:     file.ID,
		Path:   file.AbsolutePath,
		Chunks: make([]chunkInfo, len(chunks)),
	}
	for i := range chunks {
		info.Chunks[i] = chunkInfo{
			ID:        chunks[i].ID,
			Index:     chunks[i].Index,
			LineStart: chunks[i].LineStart,
			LineEnd:   chunks[i].LineEnd,
			Content:   chunks[i].Content,
		}
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling chunks: %w", err)
	}

	return jsonResult(req.Params.URI, string(data)), nil
}

func jsonResult(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		}},
	}
}

// extractFileID extracts the file ID from a URI like sercha-code://files/{fileId}/chunks.
func extractFileID(uri string) string {
	const prefix = uriScheme + "files/"
	const suffix = "/chunks"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	id := strings.TrimSuffix(uri, suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
