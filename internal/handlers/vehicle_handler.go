package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"workshop-backend/internal/models"
	"workshop-backend/internal/repositories"
	"workshop-backend/internal/services"
	"workshop-backend/pkg/utils"
)

type VehicleHandler struct {
	CheckService *services.VehicleCheckService
	QueryService *services.VehicleQueryService
}

func NewVehicleHandler(check *services.VehicleCheckService, query *services.VehicleQueryService) *VehicleHandler {
	return &VehicleHandler{
		CheckService: check,
		QueryService: query,
	}
}

// VehicleCheck handles POST /api/vehicle-check, the single write path
// every station dashboard reports through. Transition rejections come
// back as success=false with HTTP 200; only structurally invalid input
// is a hard 400.
func (h *VehicleHandler) VehicleCheck(w http.ResponseWriter, r *http.Request) {
	var req models.VehicleCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.CheckService.Process(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			utils.Error(w, http.StatusBadRequest, err.Error())
		default:
			utils.Error(w, http.StatusInternalServerError, "Server error processing vehicle check")
		}
		return
	}

	utils.JSON(w, http.StatusOK, resp)
}

// ListVehicles handles GET /api/vehicles
func (h *VehicleHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.QueryService.AllVehicles(r.Context())
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Error fetching vehicles")
		return
	}

	if vehicles == nil {
		vehicles = []*models.Vehicle{}
	}

	utils.JSON(w, http.StatusOK, &models.VehicleListResponse{Success: true, Vehicles: vehicles})
}

// ListInProgress handles GET /api/vehicles/in-progress?stage=...
// Defaults to the job-card stage the Service Advisor dashboard shows.
func (h *VehicleHandler) ListInProgress(w http.ResponseWriter, r *http.Request) {
	stage := r.URL.Query().Get("stage")
	if stage == "" {
		stage = models.StageJobCardCreation
	}

	vehicles, err := h.QueryService.InProgress(r.Context(), stage)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Error fetching vehicles")
		return
	}

	utils.JSON(w, http.StatusOK, &models.VehicleListResponse{Success: true, Vehicles: vehicles})
}

// GetVehicle handles GET /api/vehicles/{vehicleNumber}
func (h *VehicleHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["vehicleNumber"]

	vehicle, err := h.QueryService.FindByNumber(r.Context(), number)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			utils.Error(w, http.StatusBadRequest, "Vehicle number is required")
		case errors.Is(err, repositories.ErrNotFound):
			utils.Error(w, http.StatusNotFound, "Vehicle not found")
		default:
			utils.Error(w, http.StatusInternalServerError, "Error fetching vehicle")
		}
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"vehicle": vehicle,
	})
}
