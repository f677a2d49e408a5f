package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/iov-one/tradeescrow/client"
	"github.com/iov-one/tradeescrow/x/tradeescrow"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// OrderReader is the read access to the chain state required by the API.
type OrderReader interface {
	Status(ctx context.Context) (*client.Status, error)
	Order(ctx context.Context, id []byte) (*client.OrderResult, error)
	OrdersByParty(ctx context.Context, role string, addr weave.Address) ([]*client.OrderResult, error)
}

var _ OrderReader = (*client.Client)(nil)

func newRouter(orders OrderReader, logger log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(uuidRequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&logFormatter{logger: logger}))
	r.Use(middleware.Recoverer)

	r.Get("/info", infoHandler(orders))
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", listOrdersHandler(orders))
		r.Get("/{orderID}", orderHandler(orders))
		r.Get("/{orderID}/history", historyHandler(orders))
	})
	return r
}

const requestIDHeader = "X-Request-ID"

func init() {
	middleware.RequestIDHeader = requestIDHeader
}

// uuidRequestID makes sure the request carries a UUID request id before
// middleware.RequestID stores it in the context. A client provided id is
// kept when it is a valid UUID. The id is sent back in the response.
func uuidRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// logFormatter writes chi request log entries to the tendermint logger.
type logFormatter struct {
	logger log.Logger
}

func (f *logFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &logEntry{logger: f.logger.With(
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	)}
}

type logEntry struct {
	logger log.Logger
}

func (e *logEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	e.logger.Info("request", "status", status, "bytes", bytes, "took", elapsed)
}

func (e *logEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("panic", "err", v, "stack", string(stack))
}

func infoHandler(orders OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := orders.Status(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// orderView is the JSON representation of an order.
type orderView struct {
	ID    uint64             `json:"id"`
	Order *tradeescrow.Order `json:"order"`
}

func toView(o *client.OrderResult) orderView {
	var id uint64
	if len(o.ID) == 8 {
		id = binary.BigEndian.Uint64(o.ID)
	}
	return orderView{ID: id, Order: o.Order}
}

func orderHandler(orders OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := loadOrder(r, orders)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toView(o))
	}
}

func historyHandler(orders OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := loadOrder(r, orders)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, o.Order.History)
	}
}

func loadOrder(r *http.Request, orders OrderReader) (*client.OrderResult, error) {
	n, err := strconv.ParseUint(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, "order ID must be a number")
	}
	id := make([]byte, 8)
	binary.BigEndian.PutUint64(id, n)
	return orders.Order(r.Context(), id)
}

// listOrdersHandler returns orders of a single party. Exactly one of the
// importer, exporter and verifier query parameters must be given.
func listOrdersHandler(orders OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var role, raw string
		for _, name := range []string{"importer", "exporter", "verifier"} {
			v := r.URL.Query().Get(name)
			if v == "" {
				continue
			}
			if role != "" {
				writeErr(w, errors.Wrap(errors.ErrInput, "only one party filter is allowed"))
				return
			}
			role, raw = name, v
		}
		if role == "" {
			writeErr(w, errors.Wrap(errors.ErrInput, "party filter is required"))
			return
		}
		addr, err := weave.ParseAddress(raw)
		if err != nil {
			writeErr(w, errors.Wrap(errors.ErrInput, err.Error()))
			return
		}
		found, err := orders.OrdersByParty(r.Context(), role, addr)
		if err != nil {
			writeErr(w, err)
			return
		}
		views := make([]orderView, 0, len(found))
		for _, o := range found {
			views = append(views, toView(o))
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.ErrNotFound.Is(err):
		code = http.StatusNotFound
	case errors.ErrInput.Is(err):
		code = http.StatusBadRequest
	case errors.ErrNetwork.Is(err):
		code = http.StatusBadGateway
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
