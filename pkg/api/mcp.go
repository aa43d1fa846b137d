package api

import (
	"fmt"

	"github.com/hazyhaar/sarf/pkg/kit"
	"github.com/hazyhaar/sarf/pkg/normalize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer returns an MCP server exposing the sarf tools.
func NewMCPServer(svc *Service, version string) *server.MCPServer {
	srv := server.NewMCPServer("sarf", version, server.WithToolCapabilities(false))
	RegisterMCPTools(srv, svc)
	return srv
}

// RegisterMCPTools registers the sarf MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, svc *Service) {
	ep := newEndpoints(svc)
	registerAnalyze(srv, ep)
	registerExplain(srv, ep)
	registerTokenize(srv, ep)
	registerStrip(srv, ep)
	registerListLexicons(srv, ep)
}

func registerAnalyze(srv *server.MCPServer, ep endpoints) {
	tool := mcp.NewTool("analyze",
		mcp.WithDescription("Tokenize Arabic text and return one morphological record per token (lemma, lemma id, part of speech, root, frequency)."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text to analyze")),
		mcp.WithString("shape", mcp.Description("Output shape: full, lemmatization, pos or root (default full)")),
		mcp.WithString("limit", mcp.Description("Candidates per token: first or all (default first)")),
	)

	kit.RegisterMCPTool(srv, tool, ep.analyze, func(req mcp.CallToolRequest) (any, error) {
		args := req.GetArguments()
		text, _ := args["text"].(string)
		shapeName, _ := args["shape"].(string)
		limitName, _ := args["limit"].(string)
		shape, limit, err := parseOptions(ep.logger, shapeName, limitName)
		if err != nil {
			return nil, err
		}
		return &analyzeReq{Text: text, Shape: shape, Limit: limit}, nil
	})
}

func registerExplain(srv *server.MCPServer, ep endpoints) {
	tool := mcp.NewTool("explain",
		mcp.WithDescription("Show how a single token is classified and which normalization strategy finds it in the lexicons."),
		mcp.WithString("token", mcp.Required(), mcp.Description("A single token")),
		mcp.WithString("limit", mcp.Description("Candidates: first or all (default first)")),
	)

	kit.RegisterMCPTool(srv, tool, ep.explain, func(req mcp.CallToolRequest) (any, error) {
		args := req.GetArguments()
		token, _ := args["token"].(string)
		limitName, _ := args["limit"].(string)
		_, limit, err := parseOptions(ep.logger, "", limitName)
		if err != nil {
			return nil, err
		}
		return &explainReq{Token: token, Limit: limit}, nil
	})
}

func registerTokenize(srv *server.MCPServer, ep endpoints) {
	tool := mcp.NewTool("tokenize",
		mcp.WithDescription("Split text into punctuation tokens and letter/mark/number runs with byte offsets."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text to tokenize")),
	)

	kit.RegisterMCPTool(srv, tool, ep.tokenize, func(req mcp.CallToolRequest) (any, error) {
		text, _ := req.GetArguments()["text"].(string)
		return &tokenizeReq{Text: text}, nil
	})
}

// stripFlagArgs maps tool argument names to Flags fields.
var stripFlagArgs = []struct {
	name string
	set  func(*normalize.Flags)
}{
	{"diacs", func(f *normalize.Flags) { f.Diacs = true }},
	{"small_diacs", func(f *normalize.Flags) { f.SmallDiacs = true }},
	{"shaddah", func(f *normalize.Flags) { f.Shaddah = true }},
	{"digit", func(f *normalize.Flags) { f.Digit = true }},
	{"alif", func(f *normalize.Flags) { f.Alif = true }},
	{"special_chars", func(f *normalize.Flags) { f.SpecialChars = true }},
}

func registerStrip(srv *server.MCPServer, ep endpoints) {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Remove diacritics, digits or special characters from Arabic text and unify alif variants."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text to normalize")),
	}
	for _, fa := range stripFlagArgs {
		opts = append(opts, mcp.WithBoolean(fa.name, mcp.Description(fmt.Sprintf("Apply the %s rewrite", fa.name))))
	}
	tool := mcp.NewTool("strip", opts...)

	kit.RegisterMCPTool(srv, tool, ep.strip, func(req mcp.CallToolRequest) (any, error) {
		args := req.GetArguments()
		text, _ := args["text"].(string)
		var flags normalize.Flags
		for _, fa := range stripFlagArgs {
			if on, _ := args[fa.name].(bool); on {
				fa.set(&flags)
			}
		}
		return &stripReq{Text: text, Flags: flags}, nil
	})
}

func registerListLexicons(srv *server.MCPServer, ep endpoints) {
	tool := mcp.NewTool("list_lexicons",
		mcp.WithDescription("List all loaded lexicons with metadata (version, source, license, storage, entry count)."),
	)

	kit.RegisterMCPTool(srv, tool, ep.lexicons, func(_ mcp.CallToolRequest) (any, error) {
		return nil, nil
	})
}
