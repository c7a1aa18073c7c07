package handlers

import (
	"context"
	"net/http"

	"github.com/ordersync/meli-sync-backend/internal/api/dto"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
	"github.com/ordersync/meli-sync-backend/internal/meli"
)

// countryCode is the classified locations country the reference import walks.
const countryCode = "CO"

// LocationsClient is the slice of the marketplace client the reference
// import needs.
type LocationsClient interface {
	Country(ctx context.Context, code string) (*meli.Country, error)
	State(ctx context.Context, id string) (*meli.State, error)
}

// LocationsHandler imports the department/city reference list.
type LocationsHandler struct {
	*Base
	client LocationsClient
}

// NewLocationsHandler creates a new locations handler.
func NewLocationsHandler(client LocationsClient, repo storage.Repository) *LocationsHandler {
	return &LocationsHandler{
		Base:   NewBase(repo),
		client: client,
	}
}

// Import handles GET /fetch-departments-cities - walks the classified
// locations hierarchy for the country and stores every department/city pair.
func (h *LocationsHandler) Import(w http.ResponseWriter, r *http.Request) {
	country, err := h.client.Country(r.Context(), countryCode)
	if err != nil {
		h.WriteError(w, http.StatusBadGateway, dto.UpstreamError("failed to fetch country"))
		return
	}

	cities := 0
	for _, stateRef := range country.States {
		state, err := h.client.State(r.Context(), stateRef.ID)
		if err != nil {
			h.WriteError(w, http.StatusBadGateway, dto.UpstreamError("failed to fetch state "+stateRef.ID))
			return
		}
		for _, city := range state.Cities {
			if err := h.repo.SaveDepartmentCity(state.Name, city.Name); err != nil {
				h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
				return
			}
			cities++
		}
	}

	h.WriteJSON(w, http.StatusOK, dto.LocationsImportResponse{
		Country:     countryCode,
		Departments: len(country.States),
		Cities:      cities,
	})
}
