package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/gamerr"
	"github.com/mcdev12/franchisewars/internal/models"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// Websocket endpoints (/ws, /ws/stats)
	services.Gateway.RegisterRoutes(mux)

	// Game lifecycle REST endpoints
	registerGameRoutes(mux, services)

	setupHealthCheck(mux)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

type createGameRequest struct {
	CreatedBy string              `json:"createdBy"`
	Settings  models.GameSettings `json:"settings"`
}

func registerGameRoutes(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("POST /api/games", func(w http.ResponseWriter, r *http.Request) {
		var req createGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, gamerr.NewValidation(gamerr.CodeBadRequest, "invalid request body"))
			return
		}
		if req.CreatedBy == "" {
			writeError(w, http.StatusBadRequest, gamerr.NewValidation(gamerr.CodeBadRequest, "createdBy is required"))
			return
		}

		session, err := services.Registry.CreateGame(r.Context(), req.CreatedBy, req.Settings)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, session)
	})

	mux.HandleFunc("GET /api/games", func(w http.ResponseWriter, r *http.Request) {
		games, err := services.Registry.ListGames(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, games)
	})

	mux.HandleFunc("DELETE /api/games/{id}", func(w http.ResponseWriter, r *http.Request) {
		gameID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, gamerr.NewValidation(gamerr.CodeBadRequest, "invalid game id"))
			return
		}
		if err := services.Registry.DeleteGame(r.Context(), gameID); err != nil {
			status := http.StatusInternalServerError
			if gamerr.Code(err) == gamerr.CodeGameNotFound {
				status = http.StatusNotFound
			}
			writeError(w, status, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{
		"code":  gamerr.Code(err),
		"error": err.Error(),
	})
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
