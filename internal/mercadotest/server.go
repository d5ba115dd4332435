// Package mercadotest is an in-memory double of the Mercado API, used by the
// runner's own tests and for local dry runs.
package mercadotest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mercado-qa/internal/logger"
)

var cnpjPattern = regexp.MustCompile(`^\d{14}$`)

// Handler serves the Mercado routes from a Store.
type Handler struct {
	store   *Store
	latency time.Duration
	log     *logger.Entry
}

type Option func(*Handler)

// WithLatency delays every response, for timeout tests.
func WithLatency(d time.Duration) Option {
	return func(h *Handler) { h.latency = d }
}

func NewHandler(s *Store, opts ...Option) *Handler {
	h := &Handler{store: s, log: logger.GetLogger().WithComponent("mercadotest")}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Router mounts every route under /mercado.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(h.requestLog)
	if h.latency > 0 {
		r.Use(h.delay)
	}

	r.Route("/mercado", func(r chi.Router) {
		r.Get("/", h.listMarkets)
		r.Post("/", h.createMarket)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getMarket)
			r.Put("/", h.updateMarket)
			r.Delete("/", h.deleteMarket)
			r.Get("/produtos", h.listProducts)
			r.Get("/produtos/hortifruit/{kind}", h.listItems)
			r.Post("/produtos/hortifruit/{kind}", h.createItem)
			r.Delete("/produtos/hortifruit/{kind}/{itemID}", h.deleteItem)
		})
	})
	return r
}

// NewServer starts a double with an empty store. Callers Close it.
func NewServer(opts ...Option) *httptest.Server {
	return httptest.NewServer(NewHandler(NewStore(), opts...).Router())
}

// BaseURL is the suite base URL for a running double.
func BaseURL(srv *httptest.Server) string {
	return srv.URL + "/mercado"
}

func (h *Handler) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.WithFields(logger.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}

func (h *Handler) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(h.latency):
		case <-r.Context().Done():
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) listMarkets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Markets())
}

func (h *Handler) createMarket(w http.ResponseWriter, r *http.Request) {
	in, msg := decodeMarket(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	m := h.store.CreateMarket(in)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Mercado criado com sucesso!",
		"novoMercado": m,
	})
}

func (h *Handler) getMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	m, found := h.store.Market(id)
	if !ok || !found {
		writeError(w, http.StatusNotFound, "Mercado não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) updateMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if _, found := h.store.Market(id); !ok || !found {
		writeError(w, http.StatusNotFound, "Mercado não encontrado")
		return
	}
	in, msg := decodeMarket(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	m, found := h.store.UpdateMarket(id, in)
	if !found {
		writeError(w, http.StatusNotFound, "Mercado não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Mercado atualizado com sucesso!",
		"mercado": m,
	})
}

func (h *Handler) deleteMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok || !h.store.DeleteMarket(id) {
		writeError(w, http.StatusNotFound, "Mercado não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Mercado deletado com sucesso!"})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	frutas, found := h.store.Items(id, KindFrutas)
	if !ok || !found {
		writeError(w, http.StatusNotFound, "Mercado não encontrado")
		return
	}
	legumes, _ := h.store.Items(id, KindLegumes)
	writeJSON(w, http.StatusOK, map[string]any{
		"hortifruit": map[string]any{KindFrutas: frutas, KindLegumes: legumes},
	})
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	kind, known := itemKind(r)
	items, found := h.store.Items(id, kind)
	if !ok || !known || !found {
		writeError(w, http.StatusNotFound, "Mercado não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	kind, known := itemKind(r)
	if _, found := h.store.Market(id); !ok || !known || !found {
		writeError(w, http.StatusNotFound, "Mercado não encontrado")
		return
	}
	var in Item
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Nome) == "" {
		writeError(w, http.StatusBadRequest, "nome e valor são obrigatórios")
		return
	}
	item, found := h.store.AddItem(id, kind, in)
	if !found {
		writeError(w, http.StatusNotFound, "Mercado não encontrado")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "Produto adicionado com sucesso!",
		"product_item": item,
	})
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	itemID, itemOK := pathID(r, "itemID")
	kind, known := itemKind(r)
	if !ok || !itemOK || !known || !h.store.DeleteItem(id, kind, itemID) {
		writeError(w, http.StatusNotFound, "Produto não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Produto removido com sucesso!"})
}

func decodeMarket(r *http.Request) (Market, string) {
	var in Market
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return Market{}, "corpo inválido"
	}
	if strings.TrimSpace(in.Nome) == "" || strings.TrimSpace(in.Endereco) == "" {
		return Market{}, "nome e endereco são obrigatórios"
	}
	if !cnpjPattern.MatchString(in.CNPJ) {
		return Market{}, "cnpj deve ter 14 dígitos"
	}
	return in, ""
}

func pathID(r *http.Request, key string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, key))
	return n, err == nil
}

func itemKind(r *http.Request) (string, bool) {
	kind := chi.URLParam(r, "kind")
	return kind, kind == KindFrutas || kind == KindLegumes
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}
