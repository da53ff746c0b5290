package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/orneryd/nornicgraph/pkg/logging"
	"github.com/orneryd/nornicgraph/pkg/predicate"
	"github.com/orneryd/nornicgraph/pkg/query"
	"github.com/orneryd/nornicgraph/pkg/record"
	"github.com/orneryd/nornicgraph/pkg/schema"
	"github.com/orneryd/nornicgraph/pkg/storage"
	"github.com/orneryd/nornicgraph/pkg/value"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve read-only queries and Prometheus metrics over HTTP",
		Long: `Serve exposes the graph over a small read-only HTTP API:

  GET /health                      liveness
  GET /classes                     catalog as JSON
  GET /find?class=Person&where=... class scan
  GET /edges?rid=%231:0&direction=out&class=Knows&where=...
  GET /metrics                     Prometheus metrics (when enabled)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd)
		},
	}
	cmd.Flags().String("address", "", "Listen address (default: metrics.address)")
	cmd.Flags().Bool("demo", false, "Seed the demo graph when the database is empty")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command) error {
	log := logging.Component(a.log, "server")

	addr := a.cfg.Metrics.Address
	if cmd.Flags().Changed("address") {
		addr, _ = cmd.Flags().GetString("address")
	}

	engine, err := a.openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	if demo, _ := cmd.Flags().GetBool("demo"); demo {
		classes, err := engine.Classes(schema.Undefined)
		if err != nil {
			return err
		}
		if len(classes) == 0 {
			if err := seedDemo(engine); err != nil {
				return err
			}
			log.Info("demo graph created")
		}
	}

	if a.registry != nil {
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      newHandler(a, engine, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.WithFields(logrus.Fields{
		"address": addr,
		"metrics": a.registry != nil,
	}).Info("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// handler serves read-only queries against fresh snapshots of engine.
type handler struct {
	app    *app
	engine *storage.BadgerEngine
	log    *logrus.Entry
}

func newHandler(a *app, engine *storage.BadgerEngine, log *logrus.Entry) http.Handler {
	h := &handler{app: a, engine: engine, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /classes", h.classes)
	mux.HandleFunc("GET /find", h.find)
	mux.HandleFunc("GET /edges", h.edges)
	if a.registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	}
	return mux
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type classJSON struct {
	ID         schema.ClassID    `json:"id"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Super      schema.ClassID    `json:"super_class_id,omitempty"`
	Properties map[string]string `json:"properties"`
}

func (h *handler) classes(w http.ResponseWriter, r *http.Request) {
	kind, err := schema.ParseClassType(r.URL.Query().Get("kind"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	classes, err := h.engine.Classes(kind)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]classJSON, 0, len(classes))
	for _, c := range classes {
		props := make(map[string]string, c.Properties.Len())
		for name, desc := range c.Properties.NameToDesc {
			props[name] = desc.Type.String()
		}
		out = append(out, classJSON{
			ID:         c.ID(),
			Name:       c.Name(),
			Type:       c.Type().String(),
			Super:      c.Descriptor.SuperClassID,
			Properties: props,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *handler) find(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	className := q.Get("class")
	if className == "" {
		h.writeError(w, fmt.Errorf("missing class parameter"))
		return
	}
	kind, err := schema.ParseClassType(q.Get("kind"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	err = h.app.withSnapshot(h.engine, func(exec *query.Executor, snap *storage.Snapshot) error {
		classes, err := snap.ClassesByName([]string{className}, kind)
		if err != nil {
			return err
		}
		pred, err := queryPredicate(q.Get, q["where"], classes)
		if err != nil {
			return err
		}
		rs, err := exec.Find(className, kind, pred)
		if err != nil {
			return err
		}
		h.writeJSON(w, http.StatusOK, resultsJSON(rs))
		return nil
	})
	if err != nil {
		h.writeError(w, err)
	}
}

func (h *handler) edges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rid, err := record.ParseID(q.Get("rid"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	dir := query.All
	if s := q.Get("direction"); s != "" {
		if dir, err = query.ParseDirection(s); err != nil {
			h.writeError(w, err)
			return
		}
	}
	filter := predicate.NewClassFilter(q["class"]...)
	err = h.app.withSnapshot(h.engine, func(exec *query.Executor, snap *storage.Snapshot) error {
		classes, err := edgeClassesFor(snap, filter)
		if err != nil {
			return err
		}
		pred, err := queryPredicate(q.Get, q["where"], classes)
		if err != nil {
			return err
		}
		rs, err := exec.Edges(rid, dir, pred, filter)
		if err != nil {
			return err
		}
		h.writeJSON(w, http.StatusOK, resultsJSON(rs))
		return nil
	})
	if err != nil {
		h.writeError(w, err)
	}
}

func queryPredicate(get func(string) string, clauses []string, classes []schema.ClassInfo) (predicate.Predicate, error) {
	ignoreCase, _ := strconv.ParseBool(get("ignore_case"))
	anyOf, _ := strconv.ParseBool(get("any"))
	return buildPredicate(clauses, typesOf(classes), ignoreCase, anyOf)
}

type resultJSON struct {
	RID        string         `json:"rid"`
	Class      string         `json:"class"`
	Depth      uint32         `json:"depth,omitempty"`
	Properties map[string]any `json:"properties"`
}

func resultsJSON(rs query.ResultSet) []resultJSON {
	out := make([]resultJSON, 0, len(rs))
	for _, r := range rs {
		props := make(map[string]any, r.Record.Len())
		for name, v := range r.Record.Properties() {
			props[name] = jsonValue(v)
		}
		out = append(out, resultJSON{
			RID:        r.ID.String(),
			Class:      r.Record.ClassName(),
			Depth:      r.Record.Depth(),
			Properties: props,
		})
	}
	return out
}

func jsonValue(v value.Value) any {
	switch {
	case v.IsEmpty():
		return nil
	case v.Type() == value.TypeText:
		return v.AsText()
	case v.Type().IsNumeric():
		return json.Number(v.Format())
	}
	return v.Format()
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.WithError(err).Warn("failed to write response")
	}
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, schema.ErrNoSuchClass), errors.Is(err, record.ErrVertexNotFound):
		status = http.StatusNotFound
	case errors.Is(err, predicate.ErrInternal), errors.Is(err, storage.ErrStorageClosed):
		status = http.StatusInternalServerError
	}
	h.log.WithError(err).WithField("status", status).Debug("request failed")
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// withSnapshot runs fn against a fresh snapshot of an already open engine.
func (a *app) withSnapshot(engine *storage.BadgerEngine, fn func(exec *query.Executor, snap *storage.Snapshot) error) error {
	exec, snap, err := a.executor(engine)
	if err != nil {
		return err
	}
	defer snap.Close()
	return fn(exec, snap)
}
