package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/scangate/scangate/internal/history"
)

// RunsHandler returns the most recent run summaries as JSON.
func RunsHandler(hs *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if q := r.URL.Query().Get("limit"); q != "" {
			if n, err := strconv.Atoi(q); err == nil && n > 0 {
				limit = n
			}
		}

		summaries, err := hs.List(limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if summaries == nil {
			summaries = []history.RunSummary{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(summaries); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// LatestHandler returns the most recent run with its findings as JSON.
func LatestHandler(hs *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		run, err := hs.Latest()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if run == nil {
			http.Error(w, "no runs recorded", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(run); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// TrendHandler returns occurrences of a rule across stored runs as JSON.
func TrendHandler(hs *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rule := r.URL.Query().Get("rule")
		if rule == "" {
			http.Error(w, "rule query parameter is required", http.StatusBadRequest)
			return
		}

		limit := 50
		if q := r.URL.Query().Get("limit"); q != "" {
			if n, err := strconv.Atoi(q); err == nil && n > 0 {
				limit = n
			}
		}

		points, err := hs.Trend(rule, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if points == nil {
			points = []history.TrendPoint{}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(points); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
