package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"google.golang.org/api/idtoken"

	"kronologic/schedule"
)

type app struct {
	cfg      serverConfig
	store    *store
	graph    *schedule.Graph
	topology schedule.Topology
	log      *slog.Logger
	validate tokenValidator
}

func newApp(cfg serverConfig, st *store, logger *slog.Logger) (*app, error) {
	top, err := cfg.topology()
	if err != nil {
		return nil, fmt.Errorf("load topology: %w", err)
	}
	g, err := schedule.NewGraph(top)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		store:    st,
		graph:    g,
		topology: top,
		log:      logger,
		validate: idtoken.Validate,
	}, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	st, err := openStore(cfg.PGConn)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("connected to database")

	a, err := newApp(cfg, st, logger)
	if err != nil {
		logger.Error("failed to start", "err", err)
		os.Exit(1)
	}

	logger.Info("listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, a.routes()); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func (a *app) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/google/callback", handleGoogleCallback(a))
	mux.HandleFunc("GET /api/admin/check", handleAdminCheck(a))
	mux.HandleFunc("GET /api/puzzles", handleListPuzzles(a))
	mux.HandleFunc("POST /api/puzzles", handleCreatePuzzle(a))
	mux.HandleFunc("GET /api/puzzles/{puzzleID}", handleGetPuzzle(a))
	mux.HandleFunc("GET /api/puzzles/{puzzleID}/solution", handleGetSolution(a))
	mux.HandleFunc("GET /api/puzzles/{puzzleID}/solution.txt", handleGetSolutionText(a))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.store.db.PingContext(r.Context()); err != nil {
			http.Error(w, "db unhealthy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func handleListPuzzles(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := a.requireAdmin(w, r); !ok {
			return
		}
		puzzles, err := a.store.listPuzzles(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, puzzles)
	}
}

func handleCreatePuzzle(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, ok := a.requireAdmin(w, r)
		if !ok {
			return
		}
		var body struct {
			Part        int    `json:"part"`
			Information *int   `json:"nb_information"`
			Times       int    `json:"nb_times"`
			Seed        *int64 `json:"seed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		cfg := schedule.DefaultConfig(a.topology)
		cfg.Part = schedule.Part(body.Part)
		cfg.Times = body.Times
		cfg.Seed = body.Seed
		cfg.Budget = a.cfg.Budget
		cfg.MaxRestarts = a.cfg.MaxRestarts
		if body.Information != nil {
			cfg.Information = *body.Information
		}

		p, err := schedule.Generate(r.Context(), a.graph, a.topology, cfg)
		switch {
		case errors.Is(err, schedule.ErrInvalidConfiguration):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, schedule.ErrGenerationExhausted):
			a.log.Warn("generation exhausted", "err", err)
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		a.log.Info("generated puzzle", "seed", p.Seed, "part", p.Part.String(), "restarts", p.Restarts, "by", email)

		view := p.View()
		id, err := a.store.insertPuzzle(r.Context(), email, len(p.Informed), view)
		if err != nil {
			a.log.Error("failed to store puzzle", "seed", p.Seed, "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id, "seed": p.Seed, "hints": view.Hints()})
	}
}

func loadPuzzle(a *app, w http.ResponseWriter, r *http.Request) (storedPuzzle, bool) {
	id, err := strconv.ParseInt(r.PathValue("puzzleID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid puzzle ID", http.StatusBadRequest)
		return storedPuzzle{}, false
	}
	p, err := a.store.getPuzzle(r.Context(), id)
	if errors.Is(err, errPuzzleNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return p, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return p, false
	}
	return p, true
}

func handleGetPuzzle(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := loadPuzzle(a, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": p.ID, "hints": p.View.Hints()})
	}
}

func handleGetSolution(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := a.requireAdmin(w, r); !ok {
			return
		}
		p, ok := loadPuzzle(a, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, p.View)
	}
}

func handleGetSolutionText(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := a.requireAdmin(w, r); !ok {
			return
		}
		p, ok := loadPuzzle(a, w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := schedule.WriteMatrix(w, p.View); err != nil {
			a.log.Error("failed to write solution", "id", p.ID, "err", err)
			return
		}
		if _, err := fmt.Fprintln(w); err != nil {
			a.log.Error("failed to write solution", "id", p.ID, "err", err)
			return
		}
		if err := schedule.WriteRoomOccupants(w, p.View); err != nil {
			a.log.Error("failed to write solution", "id", p.ID, "err", err)
		}
	}
}
