package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/hazyhaar/sarf/pkg/kit"
	"github.com/hazyhaar/sarf/pkg/normalize"
)

// NewRouter returns an http.Handler with all sarf API routes.
func NewRouter(svc *Service) http.Handler {
	mux := http.NewServeMux()
	h := &handler{ep: newEndpoints(svc)}

	mux.HandleFunc("POST /v1/analyze", h.handleAnalyzeBody)
	mux.HandleFunc("GET /v1/analyze/{text}", h.handleAnalyzePath)
	mux.HandleFunc("GET /v1/explain/{token}", h.handleExplain)
	mux.HandleFunc("GET /v1/tokenize/{text}", h.handleTokenize)
	mux.HandleFunc("GET /v1/strip", methodNotAllowed) // body only
	mux.HandleFunc("POST /v1/strip", h.handleStrip)
	mux.HandleFunc("GET /v1/lexicons", h.handleLexicons)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(requestID(mux))
}

type handler struct {
	ep endpoints
}

// --- analyze ---

type httpAnalyzeRequest struct {
	Text  string `json:"text"`
	Shape string `json:"shape,omitempty"`
	Limit string `json:"limit,omitempty"`
}

func (h *handler) handleAnalyzeBody(w http.ResponseWriter, r *http.Request) {
	var req httpAnalyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.analyze(w, r, req)
}

func (h *handler) handleAnalyzePath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.analyze(w, r, httpAnalyzeRequest{
		Text:  r.PathValue("text"),
		Shape: q.Get("shape"),
		Limit: q.Get("limit"),
	})
}

func (h *handler) analyze(w http.ResponseWriter, r *http.Request, req httpAnalyzeRequest) {
	shape, limit, err := parseOptions(h.ep.logger, req.Shape, req.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.serve(w, r, h.ep.analyze, &analyzeReq{Text: req.Text, Shape: shape, Limit: limit})
}

// --- explain ---

func (h *handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	_, limit, err := parseOptions(h.ep.logger, "", r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.serve(w, r, h.ep.explain, &explainReq{Token: r.PathValue("token"), Limit: limit})
}

// --- tokenize ---

func (h *handler) handleTokenize(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.ep.tokenize, &tokenizeReq{Text: r.PathValue("text")})
}

// --- strip ---

type httpStripRequest struct {
	Text         string `json:"text"`
	Diacs        bool   `json:"diacs"`
	SmallDiacs   bool   `json:"small_diacs"`
	Shaddah      bool   `json:"shaddah"`
	Digit        bool   `json:"digit"`
	Alif         bool   `json:"alif"`
	SpecialChars bool   `json:"special_chars"`
}

func (req httpStripRequest) flags() normalize.Flags {
	return normalize.Flags{
		Diacs:        req.Diacs,
		SmallDiacs:   req.SmallDiacs,
		Shaddah:      req.Shaddah,
		Digit:        req.Digit,
		Alif:         req.Alif,
		SpecialChars: req.SpecialChars,
	}
}

func (h *handler) handleStrip(w http.ResponseWriter, r *http.Request) {
	var req httpStripRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.serve(w, r, h.ep.strip, &stripReq{Text: req.Text, Flags: req.flags()})
}

// --- lexicons / health ---

func (h *handler) handleLexicons(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.ep.lexicons, nil)
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.ep.health, nil)
}

// --- helpers ---

// serve runs an endpoint and writes its response. Endpoint errors are caller
// errors: every endpoint only fails on invalid input.
func (h *handler) serve(w http.ResponseWriter, r *http.Request, e kit.Endpoint, req any) {
	resp, err := e(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 256*1024) // 256 KiB max
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// requestID propagates X-Request-ID, generating one when absent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), kit.TransportHTTP)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
