package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/sarf/pkg/analyzer"
	"github.com/hazyhaar/sarf/pkg/kit"
	"github.com/hazyhaar/sarf/pkg/lexicon"
	"github.com/hazyhaar/sarf/pkg/normalize"
	"github.com/hazyhaar/sarf/pkg/tokenize"
)

// maxTextRunes bounds the text accepted by a single call.
const maxTextRunes = 20_000

// Catalog lists the lexicons behind the analyzer. *lexicon.Registry
// implements it.
type Catalog interface {
	List() []lexicon.Info
}

// Service bundles what the endpoints need. Catalog may be nil when the
// analyzer runs on a fixed lexicon.
type Service struct {
	Analyzer  *analyzer.Analyzer
	Tokenizer *tokenize.Tokenizer
	Catalog   Catalog
	Logger    *slog.Logger
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Service) lexicons() []lexicon.Info {
	if s.Catalog == nil {
		return []lexicon.Info{}
	}
	return s.Catalog.List()
}

// Shared request/response types used by both HTTP and MCP transports.

type analyzeReq struct {
	Text  string
	Shape analyzer.Shape
	Limit lexicon.Limit
}

type analyzeResponse struct {
	Shape   analyzer.Shape    `json:"shape"`
	Limit   string            `json:"limit"`
	Records []analyzer.Record `json:"records"`
}

type explainReq struct {
	Token string
	Limit lexicon.Limit
}

type tokenizeReq struct {
	Text string
}

type tokenizeResponse struct {
	Tokens []tokenize.Token `json:"tokens"`
}

type stripReq struct {
	Text  string
	Flags normalize.Flags
}

type stripResponse struct {
	Text string `json:"text"`
}

type lexiconsResponse struct {
	Lexicons []lexicon.Info `json:"lexicons"`
}

type healthResponse struct {
	Status       string `json:"status"`
	Lexicons     int    `json:"lexicons"`
	TotalEntries int    `json:"total_entries"`
}

// endpoints are the kit.Endpoints shared by HTTP and MCP, already wrapped in
// the request-id and logging middlewares.
type endpoints struct {
	logger   *slog.Logger
	analyze  kit.Endpoint
	explain  kit.Endpoint
	tokenize kit.Endpoint
	strip    kit.Endpoint
	lexicons kit.Endpoint
	health   kit.Endpoint
}

func newEndpoints(svc *Service) endpoints {
	wrap := func(name string, e kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.RequestID(), kit.Logging(svc.logger(), name))(e)
	}
	return endpoints{
		logger:   svc.logger(),
		analyze:  wrap("analyze", analyzeEndpoint(svc)),
		explain:  wrap("explain", explainEndpoint(svc)),
		tokenize: wrap("tokenize", tokenizeEndpoint(svc)),
		strip:    wrap("strip", stripEndpoint()),
		lexicons: wrap("lexicons", lexiconsEndpoint(svc)),
		health:   healthEndpoint(svc),
	}
}

func checkText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is empty")
	}
	if n := utf8.RuneCountInString(text); n > maxTextRunes {
		return fmt.Errorf("text too long (max %d characters, got %d)", maxTextRunes, n)
	}
	return nil
}

func analyzeEndpoint(svc *Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*analyzeReq)
		if err := checkText(req.Text); err != nil {
			return nil, err
		}
		records := svc.Analyzer.Analyze(ctx, req.Text, req.Shape, req.Limit)
		if records == nil {
			records = []analyzer.Record{}
		}
		return analyzeResponse{Shape: req.Shape, Limit: req.Limit.String(), Records: records}, nil
	}
}

func explainEndpoint(svc *Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*explainReq)
		if err := checkText(req.Token); err != nil {
			return nil, err
		}
		return svc.Analyzer.Explain(ctx, req.Token, req.Limit), nil
	}
}

func tokenizeEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*tokenizeReq)
		if err := checkText(req.Text); err != nil {
			return nil, err
		}
		tokens := []tokenize.Token{}
		for t := range svc.Tokenizer.Tokens(req.Text) {
			tokens = append(tokens, t)
		}
		return tokenizeResponse{Tokens: tokens}, nil
	}
}

func stripEndpoint() kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*stripReq)
		if utf8.RuneCountInString(req.Text) > maxTextRunes {
			return nil, fmt.Errorf("text too long (max %d characters)", maxTextRunes)
		}
		return stripResponse{Text: normalize.Strip(req.Text, req.Flags)}, nil
	}
}

func lexiconsEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return lexiconsResponse{Lexicons: svc.lexicons()}, nil
	}
}

func healthEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		infos := svc.lexicons()
		total := 0
		for _, info := range infos {
			total += info.Entries
		}
		return healthResponse{Status: "ok", Lexicons: len(infos), TotalEntries: total}, nil
	}
}

// parseOptions parses the shape and limit names shared by the analyze routes
// and tools. An unknown shape falls back to full; an unknown limit is an error.
func parseOptions(logger *slog.Logger, shape, limit string) (analyzer.Shape, lexicon.Limit, error) {
	sh, err := analyzer.ParseShape(shape)
	if err != nil {
		logger.Debug("unknown shape, using full", "shape", shape)
	}
	lim, err := lexicon.ParseLimit(limit)
	if err != nil {
		return "", 0, err
	}
	return sh, lim, nil
}
