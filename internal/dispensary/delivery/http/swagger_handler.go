package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterSwaggerDocs registers Swagger documentation routes
// @Summary Swagger documentation
// @Description Swagger API documentation for Dispensary Service
// @Tags Swagger
// @Success 200 {string} string "Swagger UI"
// @Router /swagger/ [get]
func RegisterSwaggerDocs(router *mux.Router, swaggerHandler http.Handler) {
	router.PathPrefix("/swagger/").Handler(swaggerHandler)
}

// CheckInDoc godoc
// @Summary Check in a unit
// @Description Place a new unit into a lot. Rejected with 409 when the lot has no room.
// @Tags Units
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{lot_id=int,drug_id=int,total_quantity=int,available_quantity=int,expiry_date=string,manufacturer_lot_number=string,notes=string} true "Unit data"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string,data=object{lot_id=int,attempted=int,current_capacity=int,max_capacity=int,remaining=int}}
// @Router /api/units [post]
func (h *DispensaryHandler) CheckInDoc() {}

// GetUnitDoc godoc
// @Summary Get unit by ID
// @Tags Units
// @Security BearerAuth
// @Produce json
// @Param id path int true "Unit ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/units/{id} [get]
func (h *DispensaryHandler) GetUnitDoc() {}

// AdjustUnitDoc godoc
// @Summary Adjust a unit
// @Description Administrative correction. Writes a signed adjust entry to the ledger (Admin only).
// @Tags Units
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Unit ID"
// @Param request body object{total_quantity=int,available_quantity=int,expiry_date=string,notes=string,reason=string} true "Correction"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/units/{id} [patch]
func (h *DispensaryHandler) AdjustUnitDoc() {}

// ListTransactionsDoc godoc
// @Summary List unit transactions
// @Description Ledger entries of a unit, newest first
// @Tags Units
// @Security BearerAuth
// @Produce json
// @Param id path int true "Unit ID"
// @Param limit query int false "Limit (default 50, max 500)"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,data=object{transactions=array,limit=int,offset=int}}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/units/{id}/transactions [get]
func (h *DispensaryHandler) ListTransactionsDoc() {}

// CheckOutSpecificDoc godoc
// @Summary Check out from a specific unit
// @Tags Checkout
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Unit ID"
// @Param request body object{quantity=int,patient=object{name=string,reference=string},notes=string} true "Checkout data"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 409 {object} object{success=bool,error=string,data=object{unit_id=int,requested=int,available=int,shortfall=int}}
// @Router /api/units/{id}/checkout [post]
func (h *DispensaryHandler) CheckOutSpecificDoc() {}

// QuarantineDoc godoc
// @Summary Quarantine a unit
// @Description Removes everything still available on the unit from circulation
// @Tags Checkout
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Unit ID"
// @Param request body object{notes=string} false "Reason"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/units/{id}/quarantine [post]
func (h *DispensaryHandler) QuarantineDoc() {}

// CheckOutFEFODoc godoc
// @Summary Check out by drug, earliest expiry first
// @Tags Checkout
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{drug_id=int,ndc=string,medication_name=string,strength=number,strength_unit=string,quantity=int,patient=object{name=string,reference=string},notes=string} true "Checkout data"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string,data=object{requested=int,available=int,shortfall=int}}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /api/checkout [post]
func (h *DispensaryHandler) CheckOutFEFODoc() {}

// PreviewFEFODoc godoc
// @Summary Preview a FEFO checkout
// @Description Returns the units a checkout would draw from without changing anything
// @Tags Checkout
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{drug_id=int,ndc=string,medication_name=string,strength=number,strength_unit=string,quantity=int} true "Preview data"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/checkout/preview [post]
func (h *DispensaryHandler) PreviewFEFODoc() {}

// CheckCapacityDoc godoc
// @Summary Check lot capacity
// @Tags Lots
// @Security BearerAuth
// @Produce json
// @Param id path int true "Lot ID"
// @Param incoming query int false "Incoming quantity"
// @Success 200 {object} object{success=bool,data=object{lot_id=int,ok=bool,current_capacity=int,incoming_quantity=int,max_capacity=int,remaining=int}}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/lots/{id}/capacity [get]
func (h *DispensaryHandler) CheckCapacityDoc() {}

// CreateLotDoc godoc
// @Summary Create a lot
// @Tags Lots
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{source=string,note=string,max_capacity=int,location_id=int} true "Lot data"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Router /api/lots [post]
func (h *DispensaryHandler) CreateLotDoc() {}

// CreateLocationDoc godoc
// @Summary Create a storage location
// @Tags Lots
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{name=string,temperature=string} true "Location data"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Router /api/locations [post]
func (h *DispensaryHandler) CreateLocationDoc() {}

// RegisterDrugDoc godoc
// @Summary Register a drug
// @Description Idempotent by NDC; returns 200 with the existing entry when already registered
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{name=string,generic_name=string,strength=number,strength_unit=string,form=string,ndc=string} true "Drug data"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Router /api/drugs [post]
func (h *DispensaryHandler) RegisterDrugDoc() {}

// HealthCheckDoc godoc
// @Summary Health check
// @Description Check service health and database connectivity
// @Tags Health
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /health [get]
func (h *DispensaryHandler) HealthCheckDoc() {}
