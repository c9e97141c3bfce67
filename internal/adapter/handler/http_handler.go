package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/rl1809/inventory/internal/core/domain"
)

type HTTPHandler struct {
	deps   Deps
	logger zerolog.Logger
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewHTTPHandler(deps Deps, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{deps: deps, logger: logger}
}

// Register mounts every route on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/inventory/availability", h.CheckAvailability)
	mux.HandleFunc("/api/checkout", h.Checkout)
	mux.HandleFunc("/api/inventory", h.GetInventory)
	mux.HandleFunc("/api/inventory/missing", h.SkusNotAtLocation)
	mux.HandleFunc("/api/inventory/adjust", h.Adjust)
}

func (h *HTTPHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CheckAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	if err := checkAvailability(r.Context(), h.deps, req); err != nil {
		var unavailable *domain.InventoryUnavailableError
		if errors.As(err, &unavailable) {
			writeJSON(w, http.StatusConflict, CheckAvailabilityResponse{Available: false, Message: unavailable.Error()})
			return
		}
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckAvailabilityResponse{Available: true, Message: "available"})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	processID, err := checkout(r.Context(), h.deps, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckoutResponse{
		Success:   true,
		Message:   "inventory reserved",
		ProcessID: processID,
	})
}

// GetInventory returns one record when sku_id is given, otherwise every
// record at location_id.
func (h *HTTPHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	skuID, err1 := queryInt(r, "sku_id")
	locationID, err2 := queryInt(r, "location_id")
	if err := errors.Join(err1, err2); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	location, err := findLocation(ctx, h.deps.Catalog, locationID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if skuID == 0 {
		if location == nil {
			h.writeError(w, r, domain.InvalidArgumentf("sku_id or location_id is required"))
			return
		}
		records, err := h.deps.Inventory.ReadInventoryForFulfillmentLocation(ctx, *location)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		out := make([]InventoryResponse, 0, len(records))
		for _, inv := range records {
			out = append(out, toInventoryResponse(inv))
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	sku, err := h.deps.Catalog.FindSkuByID(ctx, skuID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	inv, err := h.deps.Inventory.ReadInventory(ctx, *sku, location)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if inv == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "no inventory for sku at location"})
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(*inv))
}

func (h *HTTPHandler) SkusNotAtLocation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	locationID, err := queryInt(r, "location_id")
	if err == nil && locationID == 0 {
		err = domain.InvalidArgumentf("location_id is required")
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	location, err := h.deps.Catalog.FindFulfillmentLocationByID(r.Context(), locationID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	skus, err := h.deps.Inventory.ReadSkusNotAtFulfillmentLocation(r.Context(), *location)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if skus == nil {
		skus = []domain.Sku{}
	}
	writeJSON(w, http.StatusOK, skus)
}

func (h *HTTPHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	inv, err := adjust(r.Context(), h.deps, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponse(inv))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	m := mapError(err)
	if m.status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, m.status, errorResponse{Message: m.text(err)})
}

func queryInt(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, domain.InvalidArgumentf("%s must be an integer", key)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
