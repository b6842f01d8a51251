package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/tair/clinic-dispensary/internal/dispensary/domain"
	"github.com/tair/clinic-dispensary/internal/dispensary/usecase/command"
	"github.com/tair/clinic-dispensary/internal/dispensary/usecase/query"
	"github.com/tair/clinic-dispensary/pkg/logger"
)

// DispensaryHandler handles HTTP requests for the dispensary using CQRS pattern
type DispensaryHandler struct {
	// Command handlers
	checkIn          *command.CheckInHandler
	checkOutSpecific *command.CheckOutSpecificHandler
	checkOutFEFO     *command.CheckOutFEFOHandler
	quarantine       *command.QuarantineHandler
	adjustUnit       *command.AdjustUnitHandler
	createLocation   *command.CreateLocationHandler
	createLot        *command.CreateLotHandler
	registerDrug     *command.RegisterDrugHandler

	// Query handlers
	getUnit          *query.GetUnitHandler
	listTransactions *query.ListUnitTransactionsHandler
	checkCapacity    *query.CheckCapacityHandler
	previewFEFO      *query.PreviewFEFOHandler
}

// NewDispensaryHandler creates a new dispensary handler. Used by Wire.
func NewDispensaryHandler(
	checkIn *command.CheckInHandler,
	checkOutSpecific *command.CheckOutSpecificHandler,
	checkOutFEFO *command.CheckOutFEFOHandler,
	quarantine *command.QuarantineHandler,
	adjustUnit *command.AdjustUnitHandler,
	createLocation *command.CreateLocationHandler,
	createLot *command.CreateLotHandler,
	registerDrug *command.RegisterDrugHandler,
	getUnit *query.GetUnitHandler,
	listTransactions *query.ListUnitTransactionsHandler,
	checkCapacity *query.CheckCapacityHandler,
	previewFEFO *query.PreviewFEFOHandler,
) *DispensaryHandler {
	return &DispensaryHandler{
		checkIn:          checkIn,
		checkOutSpecific: checkOutSpecific,
		checkOutFEFO:     checkOutFEFO,
		quarantine:       quarantine,
		adjustUnit:       adjustUnit,
		createLocation:   createLocation,
		createLot:        createLot,
		registerDrug:     registerDrug,
		getUnit:          getUnit,
		listTransactions: listTransactions,
		checkCapacity:    checkCapacity,
		previewFEFO:      previewFEFO,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RegisterRoutes mounts the API on router. Every /api route requires a token;
// middlewares run after authentication in the order given.
func (h *DispensaryHandler) RegisterRoutes(router *mux.Router, auth func(http.Handler) http.Handler, middlewares ...mux.MiddlewareFunc) {
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth)
	api.Use(middlewares...)

	api.HandleFunc("/locations", h.CreateLocation).Methods("POST")
	api.HandleFunc("/lots", h.CreateLot).Methods("POST")
	api.HandleFunc("/lots/{id}/capacity", h.CheckCapacity).Methods("GET")
	api.HandleFunc("/drugs", h.RegisterDrug).Methods("POST")

	api.HandleFunc("/units", h.CheckIn).Methods("POST")
	api.HandleFunc("/units/{id}", h.GetUnit).Methods("GET")
	api.HandleFunc("/units/{id}", AdminOnly(h.AdjustUnit)).Methods("PATCH")
	api.HandleFunc("/units/{id}/transactions", h.ListTransactions).Methods("GET")
	api.HandleFunc("/units/{id}/checkout", h.CheckOutSpecific).Methods("POST")
	api.HandleFunc("/units/{id}/quarantine", h.Quarantine).Methods("POST")

	api.HandleFunc("/checkout", h.CheckOutFEFO).Methods("POST")
	api.HandleFunc("/checkout/preview", h.PreviewFEFO).Methods("POST")
}

type drugRequest struct {
	DrugID       uint            `json:"drug_id"`
	NDC          string          `json:"ndc"`
	Name         string          `json:"medication_name"`
	Strength     decimal.Decimal `json:"strength"`
	StrengthUnit string          `json:"strength_unit"`
}

func (d drugRequest) matcher() domain.DrugMatcher {
	return domain.DrugMatcher{
		DrugID:       d.DrugID,
		NDC:          d.NDC,
		Name:         d.Name,
		Strength:     d.Strength,
		StrengthUnit: d.StrengthUnit,
	}
}

// CheckIn handles POST /api/units
func (h *DispensaryHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LotID                 uint   `json:"lot_id"`
		DrugID                uint   `json:"drug_id"`
		TotalQuantity         int    `json:"total_quantity"`
		AvailableQuantity     *int   `json:"available_quantity"`
		ExpiryDate            string `json:"expiry_date"`
		ManufacturerLotNumber string `json:"manufacturer_lot_number"`
		Notes                 string `json:"notes"`
	}
	if !decode(w, r, &req) {
		return
	}
	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "expiry_date must be YYYY-MM-DD")
		return
	}

	result, err := h.checkIn.Handle(r.Context(), command.CheckInCommand{
		Actor:                 actorFrom(r.Context()),
		LotID:                 req.LotID,
		DrugID:                req.DrugID,
		TotalQuantity:         req.TotalQuantity,
		AvailableQuantity:     req.AvailableQuantity,
		ExpiryDate:            expiry,
		ManufacturerLotNumber: req.ManufacturerLotNumber,
		Notes:                 req.Notes,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Unit checked in successfully",
		Data:    result,
	})
}

// CheckOutSpecific handles POST /api/units/{id}/checkout
func (h *DispensaryHandler) CheckOutSpecific(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity int                `json:"quantity"`
		Patient  domain.PatientInfo `json:"patient"`
		Notes    string             `json:"notes"`
	}
	if !decode(w, r, &req) {
		return
	}

	result, err := h.checkOutSpecific.Handle(r.Context(), command.CheckOutSpecificCommand{
		Actor:    actorFrom(r.Context()),
		UnitID:   id,
		Quantity: req.Quantity,
		Patient:  req.Patient,
		Notes:    req.Notes,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Checkout completed",
		Data:    result,
	})
}

// CheckOutFEFO handles POST /api/checkout
func (h *DispensaryHandler) CheckOutFEFO(w http.ResponseWriter, r *http.Request) {
	var req struct {
		drugRequest
		Quantity int                `json:"quantity"`
		Patient  domain.PatientInfo `json:"patient"`
		Notes    string             `json:"notes"`
	}
	if !decode(w, r, &req) {
		return
	}

	result, err := h.checkOutFEFO.Handle(r.Context(), command.CheckOutFEFOCommand{
		Actor:    actorFrom(r.Context()),
		Drug:     req.matcher(),
		Quantity: req.Quantity,
		Patient:  req.Patient,
		Notes:    req.Notes,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Checkout completed",
		Data:    result,
	})
}

// PreviewFEFO handles POST /api/checkout/preview
func (h *DispensaryHandler) PreviewFEFO(w http.ResponseWriter, r *http.Request) {
	var req struct {
		drugRequest
		Quantity int `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}

	plan, err := h.previewFEFO.Handle(r.Context(), query.PreviewFEFOQuery{
		Actor:    actorFrom(r.Context()),
		Drug:     req.matcher(),
		Quantity: req.Quantity,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: plan})
}

// Quarantine handles POST /api/units/{id}/quarantine
func (h *DispensaryHandler) Quarantine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	result, err := h.quarantine.Handle(r.Context(), command.QuarantineCommand{
		Actor:  actorFrom(r.Context()),
		UnitID: id,
		Notes:  req.Notes,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Unit quarantined",
		Data:    result,
	})
}

// AdjustUnit handles PATCH /api/units/{id}
func (h *DispensaryHandler) AdjustUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		TotalQuantity     *int    `json:"total_quantity"`
		AvailableQuantity *int    `json:"available_quantity"`
		ExpiryDate        *string `json:"expiry_date"`
		Notes             *string `json:"notes"`
		Reason            string  `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}

	correction := domain.UnitCorrection{
		TotalQuantity:     req.TotalQuantity,
		AvailableQuantity: req.AvailableQuantity,
		Notes:             req.Notes,
	}
	if req.ExpiryDate != nil {
		expiry, err := parseDate(*req.ExpiryDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "expiry_date must be YYYY-MM-DD")
			return
		}
		correction.ExpiryDate = &expiry
	}

	result, err := h.adjustUnit.Handle(r.Context(), command.AdjustUnitCommand{
		Actor:      actorFrom(r.Context()),
		UnitID:     id,
		Correction: correction,
		Reason:     req.Reason,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Unit adjusted",
		Data:    result,
	})
}

// GetUnit handles GET /api/units/{id}
func (h *DispensaryHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	unit, err := h.getUnit.Handle(r.Context(), query.GetUnitQuery{Actor: actorFrom(r.Context()), UnitID: id})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: unit})
}

// ListTransactions handles GET /api/units/{id}/transactions
func (h *DispensaryHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txns, err := h.listTransactions.Handle(r.Context(), query.ListUnitTransactionsQuery{
		Actor:  actorFrom(r.Context()),
		UnitID: id,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"transactions": txns,
			"limit":        limit,
			"offset":       offset,
		},
	})
}

// CheckCapacity handles GET /api/lots/{id}/capacity
func (h *DispensaryHandler) CheckCapacity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	incoming := 0
	if raw := r.URL.Query().Get("incoming"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "incoming must be an integer")
			return
		}
		incoming = n
	}

	status, err := h.checkCapacity.Handle(r.Context(), query.CheckCapacityQuery{
		Actor:    actorFrom(r.Context()),
		LotID:    id,
		Incoming: incoming,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: status})
}

// CreateLocation handles POST /api/locations
func (h *DispensaryHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Temperature string `json:"temperature"`
	}
	if !decode(w, r, &req) {
		return
	}

	location, err := h.createLocation.Handle(r.Context(), command.CreateLocationCommand{
		Actor:       actorFrom(r.Context()),
		Name:        req.Name,
		Temperature: req.Temperature,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Location created successfully",
		Data:    location,
	})
}

// CreateLot handles POST /api/lots
func (h *DispensaryHandler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source      string `json:"source"`
		Note        string `json:"note"`
		MaxCapacity *int   `json:"max_capacity"`
		LocationID  uint   `json:"location_id"`
	}
	if !decode(w, r, &req) {
		return
	}

	lot, err := h.createLot.Handle(r.Context(), command.CreateLotCommand{
		Actor:       actorFrom(r.Context()),
		Source:      req.Source,
		Note:        req.Note,
		MaxCapacity: req.MaxCapacity,
		LocationID:  req.LocationID,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Lot created successfully",
		Data:    lot,
	})
}

// RegisterDrug handles POST /api/drugs
func (h *DispensaryHandler) RegisterDrug(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string          `json:"name"`
		GenericName  string          `json:"generic_name"`
		Strength     decimal.Decimal `json:"strength"`
		StrengthUnit string          `json:"strength_unit"`
		Form         string          `json:"form"`
		NDC          string          `json:"ndc"`
	}
	if !decode(w, r, &req) {
		return
	}

	drug, created, err := h.registerDrug.Handle(r.Context(), command.RegisterDrugCommand{
		Actor:        actorFrom(r.Context()),
		Name:         req.Name,
		GenericName:  req.GenericName,
		Strength:     req.Strength,
		StrengthUnit: req.StrengthUnit,
		Form:         req.Form,
		NDC:          req.NDC,
	})
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	status, message := http.StatusOK, "Drug already registered"
	if created {
		status, message = http.StatusCreated, "Drug registered successfully"
	}
	respondJSON(w, status, Response{Success: true, Message: message, Data: drug})
}

// RegisterHealthCheck registers the health check endpoint
func RegisterHealthCheck(router *mux.Router, ping func(ctx context.Context) error) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := ping(r.Context()); err != nil {
			logger.Warn(r.Context()).Err(err).Msg("Health check failed")
			respondJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Error:   "Database unavailable",
			})
			return
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Dispensary service is healthy",
		})
	}).Methods("GET")
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil || id == 0 {
		respondError(w, http.StatusBadRequest, "Invalid ID")
		return 0, false
	}
	return uint(id), true
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{Success: false, Error: message})
}
