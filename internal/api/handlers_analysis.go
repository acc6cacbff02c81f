package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/service"
	"github.com/wallet-insights/internal/types"
)

// Price history bounds, in days
const (
	minHistoryDays     = 1
	maxHistoryDays     = 365
	defaultHistoryDays = 30
)

type analysisResponse struct {
	Analysis *models.WalletAnalysis `json:"analysis"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

type priceHistoryResponse struct {
	Coin   string             `json:"coin"`
	Days   int                `json:"days"`
	Prices []types.PricePoint `json:"prices"`
}

// handleGenerateAnalysis handles POST /api/analysis/generate
func (s *Server) handleGenerateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req generateAnalysisRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	analysis, err := s.analysis.GenerateFullAnalysis(r.Context(), currentUser(r).ID, req.WalletAddress, types.Blockchain(req.Blockchain))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, analysisResponse{Analysis: analysis})
}

// handleAnalysisHistory handles GET /api/analysis/history?page=&limit=&blockchain=
func (s *Server) handleAnalysisHistory(w http.ResponseWriter, r *http.Request) {
	opts, details := parseHistoryQuery(r)
	if len(details) > 0 {
		respondError(w, http.StatusBadRequest, apperrors.CodeValidation, "Invalid query parameters", details)
		return
	}

	history, err := s.analysis.GetAnalysisHistory(r.Context(), currentUser(r).ID, opts)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if history.Analyses == nil {
		history.Analyses = []*models.WalletAnalysis{}
	}
	respondJSON(w, http.StatusOK, history)
}

// parseHistoryQuery reads page (>=1), limit (1..50) and an optional chain.
func parseHistoryQuery(r *http.Request) (service.HistoryOptions, []FieldError) {
	query := r.URL.Query()
	opts := service.HistoryOptions{Page: 1, Limit: service.DefaultHistoryLimit}
	var details []FieldError

	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			details = append(details, FieldError{Field: "page", Message: "must be an integer of at least 1"})
		} else {
			opts.Page = page
		}
	}

	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > service.MaxHistoryLimit {
			details = append(details, FieldError{Field: "limit", Message: "must be an integer between 1 and 50"})
		} else {
			opts.Limit = limit
		}
	}

	if v := query.Get("blockchain"); v != "" {
		chain, ok := types.ParseBlockchain(v)
		if !ok {
			details = append(details, FieldError{Field: "blockchain", Message: "Blockchain must be bitcoin or ethereum"})
		} else {
			opts.Blockchain = &chain
		}
	}

	return opts, details
}

// handleGetAnalysis handles GET /api/analysis/{id}
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.analysis.GetAnalysis(r.Context(), currentUser(r).ID, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, analysisResponse{Analysis: analysis})
}

// handleAnalysisSummary handles GET /api/analysis/{id}/summary
func (s *Server) handleAnalysisSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.analysis.GetQuickSummary(r.Context(), currentUser(r).ID, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, summaryResponse{Summary: summary})
}

// handleCurrentPrices handles GET /api/prices
func (s *Server) handleCurrentPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := s.analysis.GetCurrentPrices(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, prices)
}

// handlePriceHistory handles GET /api/prices/{coin}/history?days=
func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	coin := mux.Vars(r)["coin"]

	days := defaultHistoryDays
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < minHistoryDays || parsed > maxHistoryDays {
			respondError(w, http.StatusBadRequest, apperrors.CodeValidation, "days must be between 1 and 365", nil)
			return
		}
		days = parsed
	}

	chain, _ := types.ParseBlockchain(coin)
	prices, err := s.analysis.GetPriceHistory(r.Context(), chain, days)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if prices == nil {
		prices = []types.PricePoint{}
	}
	respondJSON(w, http.StatusOK, priceHistoryResponse{
		Coin:   string(chain),
		Days:   days,
		Prices: prices,
	})
}
