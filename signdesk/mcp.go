package signdesk

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/signdesk/internal/store"
	"github.com/hazyhaar/signdesk/kit"
)

// RegisterMCP registers signdesk tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerOpenTool(srv)
	s.registerPlaceTool(srv)
	s.registerListElementsTool(srv)
	s.registerExportTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// --- open ---

type openReq struct {
	Document string `json:"document"` // base64 PDF bytes
	Name     string `json:"name"`
}

func (s *Service) registerOpenTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "signdesk_open",
		Description: "Open a PDF document for annotation. Returns the session id and page geometry.",
		InputSchema: inputSchema(map[string]any{
			"document": map[string]any{"type": "string", "description": "Base64-encoded PDF bytes"},
			"name":     map[string]any{"type": "string", "description": "Original filename"},
		}, []string{"document"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*openReq)
		data, err := base64.StdEncoding.DecodeString(r.Document)
		if err != nil {
			return nil, err
		}
		sess, err := s.CreateSession(ctx, data, r.Name)
		if err != nil {
			return nil, err
		}
		return sess.State(), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r openReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- place ---

type placeReq struct {
	SessionID string  `json:"session_id"`
	Kind      string  `json:"kind"`
	Page      int     `json:"page"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Content   string  `json:"content,omitempty"`
}

func (s *Service) registerPlaceTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "signdesk_place",
		Description: "Place an annotation element on a page at the given point. Signature and image kinds require content (a data URI).",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string"},
			"kind":       map[string]any{"type": "string", "description": "Element kind, e.g. checkbox, text, signature"},
			"page":       map[string]any{"type": "integer"},
			"x":          map[string]any{"type": "number"},
			"y":          map[string]any{"type": "number"},
			"content":    map[string]any{"type": "string", "description": "Text content or data URI payload"},
		}, []string{"session_id", "kind", "page", "x", "y"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*placeReq)
		sess, err := s.Session(r.SessionID)
		if err != nil {
			return nil, err
		}
		if err := sess.SetPage(r.Page); err != nil {
			return nil, err
		}
		switch store.Kind(r.Kind) {
		case store.KindSignature:
			sess.UseSignature(r.Content)
		case store.KindImage:
			sess.UseImage(r.Content)
		}
		if err := sess.SelectTool(r.Kind); err != nil {
			return nil, err
		}
		if err := sess.Pointer(ctx, PhaseDown, r.X, r.Y, ""); err != nil {
			return nil, err
		}
		sess.ClearTool()

		state := sess.State()
		elements := sess.Elements()
		placed := elements[len(elements)-1]
		if r.Content != "" && store.Kind(r.Kind).Textual() {
			if err := sess.UpdateElement(placed.ID, store.Patch{Content: &r.Content}); err != nil {
				return nil, err
			}
			placed.Content = r.Content
		}
		return map[string]any{"element": placed, "state": state}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r placeReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- list elements ---

type listElementsReq struct {
	SessionID string `json:"session_id"`
	Page      int    `json:"page,omitempty"`
}

func (s *Service) registerListElementsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "signdesk_list_elements",
		Description: "List the annotation elements in a session, optionally restricted to one page.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string"},
			"page":       map[string]any{"type": "integer", "description": "0 lists all pages"},
		}, []string{"session_id"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*listElementsReq)
		sess, err := s.Session(r.SessionID)
		if err != nil {
			return nil, err
		}
		els := sess.Elements()
		if r.Page > 0 {
			filtered := els[:0]
			for _, e := range els {
				if e.Page == r.Page {
					filtered = append(filtered, e)
				}
			}
			els = filtered
		}
		return map[string]any{"elements": els}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r listElementsReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- export ---

type exportReq struct {
	SessionID string `json:"session_id"`
}

func (s *Service) registerExportTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "signdesk_export",
		Description: "Bake every element into the PDF and return the signed document as base64.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string"},
		}, []string{"session_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*exportReq)
		sess, err := s.Session(r.SessionID)
		if err != nil {
			return nil, err
		}
		out, name, err := sess.Export(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"filename": name,
			"document": base64.StdEncoding.EncodeToString(out),
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r exportReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
