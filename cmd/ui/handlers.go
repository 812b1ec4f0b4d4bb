package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"polymarket-tax-go/internal/importer"
	"polymarket-tax-go/internal/models"
	"polymarket-tax-go/internal/polymarket"
	"polymarket-tax-go/internal/reports"
	"polymarket-tax-go/internal/tax"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log       *zap.Logger
	db        *gorm.DB
	client    polymarket.ClientInterface
	importer  *importer.Importer
	generator *reports.Generator
	rates     tax.Rates
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB, client polymarket.ClientInterface, im *importer.Importer, gen *reports.Generator, rates tax.Rates) *APIHandler {
	return &APIHandler{log: log, db: db, client: client, importer: im, generator: gen, rates: rates}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// StatusHandler reports basic liveness and row counts.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	var txCount, walletCount int64
	h.db.Model(&models.Transaction{}).Count(&txCount)
	h.db.Model(&models.Wallet{}).Count(&walletCount)

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"transactions": txCount,
		"wallets":      walletCount,
		"time":         time.Now().UTC(),
	})
}

// TransactionsHandler returns stored transactions, most recent first.
func (h *APIHandler) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	query := h.db.Order("timestamp desc")
	if walletID := r.URL.Query().Get("wallet_id"); walletID != "" {
		query = query.Where("wallet_id = ?", walletID)
	}

	var transactions []models.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		h.log.Error("Failed to get transactions from database", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to get transactions")
		return
	}

	h.writeJSON(w, http.StatusOK, transactions)
}

// WalletsHandler returns tracked wallets.
func (h *APIHandler) WalletsHandler(w http.ResponseWriter, r *http.Request) {
	var wallets []models.Wallet
	if err := h.db.Find(&wallets).Error; err != nil {
		h.log.Error("Failed to get wallets from database", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to get wallets")
		return
	}
	h.writeJSON(w, http.StatusOK, wallets)
}

type importRequest struct {
	Type    string `json:"type"` // wallet | csv
	Address string `json:"address,omitempty"`
	Label   string `json:"label,omitempty"`
	Data    string `json:"data,omitempty"` // raw CSV content
}

// ImportHandler imports transactions from a wallet address or CSV payload.
func (h *APIHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var stats *importer.Stats
	var err error
	switch req.Type {
	case "wallet":
		stats, err = h.importer.ImportWallet(req.Address, req.Label)
	case "trades":
		stats, err = h.importer.ImportWalletTrades(req.Address, req.Label)
	case "csv":
		stats, err = h.importer.ImportCSV(strings.NewReader(req.Data), 0)
	default:
		h.writeError(w, http.StatusBadRequest, "type must be wallet, trades or csv")
		return
	}
	if err != nil {
		h.log.Error("Import failed", zap.Error(err))
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, stats)
}

// PolymarketHandler previews a wallet's normalized CLOB trade history
// without storing anything.
func (h *APIHandler) PolymarketHandler(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		h.writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	trades, err := h.client.FetchTrades(address)
	if err != nil {
		h.log.Error("Failed to fetch trades", zap.Error(err))
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	conditionIDs := make([]string, 0, len(trades))
	seen := make(map[string]bool, len(trades))
	for _, trade := range trades {
		if !seen[trade.Market] {
			seen[trade.Market] = true
			conditionIDs = append(conditionIDs, trade.Market)
		}
	}
	markets, err := h.client.FetchMarkets(conditionIDs)
	if err != nil {
		h.log.Error("Failed to fetch markets", zap.Error(err))
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	normalized := polymarket.NormalizeTrades(trades, markets)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"trades": normalized,
		"count":  len(normalized),
	})
}

// PositionsHandler returns a wallet's current positions from the Data API.
func (h *APIHandler) PositionsHandler(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		h.writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	positions, err := h.client.FetchPositions(address)
	if err != nil {
		h.log.Error("Failed to fetch positions", zap.Error(err))
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, positions)
}

// SyncHandler re-fetches activity for a registered wallet.
func (h *APIHandler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	walletID, err := strconv.ParseUint(r.URL.Query().Get("wallet_id"), 10, 32)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "wallet_id is required")
		return
	}

	stats, err := h.importer.SyncWallet(uint(walletID))
	if err != nil {
		h.log.Error("Sync failed", zap.Error(err))
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

type calculateRequest struct {
	TaxYear         int    `json:"tax_year"`
	Treatment       string `json:"treatment"`
	CostBasisMethod string `json:"cost_basis_method"`
	WalletID        uint   `json:"wallet_id"`
}

// CalculateHandler replays stored transactions through the engine and returns
// the full calculation result without touching persisted lots.
func (h *APIHandler) CalculateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	req := calculateRequest{
		TaxYear:         time.Now().Year(),
		Treatment:       string(tax.TreatmentCapitalGains),
		CostBasisMethod: string(tax.MethodFIFO),
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	query := h.db.Order("timestamp asc")
	if req.WalletID != 0 {
		query = query.Where("wallet_id = ?", req.WalletID)
	}
	var records []models.Transaction
	if err := query.Find(&records).Error; err != nil {
		h.log.Error("Failed to get transactions from database", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to get transactions")
		return
	}

	transactions := make([]tax.Transaction, 0, len(records))
	for i := range records {
		transactions = append(transactions, records[i].ToTaxTransaction())
	}

	calc := tax.NewCalculator(h.log, tax.Treatment(req.Treatment), tax.CostBasisMethod(req.CostBasisMethod), req.TaxYear, h.rates)
	result, err := calc.Calculate(transactions)
	if err != nil {
		h.log.Error("Calculation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

type generateReportRequest struct {
	TaxYear         int    `json:"tax_year"`
	Treatment       string `json:"treatment"`
	CostBasisMethod string `json:"cost_basis_method"`
	WalletID        uint   `json:"wallet_id"`
	Compare         bool   `json:"compare"`
	Persist         bool   `json:"persist"`
}

// GenerateReportHandler generates a tax report for one year and treatment.
func (h *APIHandler) GenerateReportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	req := generateReportRequest{
		TaxYear:         time.Now().Year(),
		Treatment:       string(tax.TreatmentCapitalGains),
		CostBasisMethod: string(tax.MethodFIFO),
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result, err := h.generator.Generate(reports.Options{
		WalletID:        req.WalletID,
		TaxYear:         req.TaxYear,
		Treatment:       tax.Treatment(req.Treatment),
		CostBasisMethod: tax.CostBasisMethod(req.CostBasisMethod),
		Compare:         req.Compare,
		Persist:         req.Persist,
	})
	if err != nil {
		h.log.Error("Report generation failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// ReportsHandler lists persisted report snapshots, most recent first.
func (h *APIHandler) ReportsHandler(w http.ResponseWriter, r *http.Request) {
	var records []models.TaxReportRecord
	if err := h.db.Order("generated_at desc").Find(&records).Error; err != nil {
		h.log.Error("Failed to get reports from database", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to get reports")
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}
