package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/meli-sync-backend/internal/api/dto"
	"github.com/ordersync/meli-sync-backend/internal/api/handlers"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
	"github.com/ordersync/meli-sync-backend/internal/meli"
)

type stubLocationsClient struct {
	stateErr error
}

func (s *stubLocationsClient) Country(_ context.Context, code string) (*meli.Country, error) {
	return &meli.Country{
		ID:   code,
		Name: "Colombia",
		States: []meli.StateRef{
			{ID: "CO-ANT", Name: "Antioquia"},
			{ID: "CO-CUN", Name: "Cundinamarca"},
		},
	}, nil
}

func (s *stubLocationsClient) State(_ context.Context, id string) (*meli.State, error) {
	if s.stateErr != nil {
		return nil, s.stateErr
	}
	switch id {
	case "CO-ANT":
		return &meli.State{ID: id, Name: "Antioquia", Cities: []meli.CityRef{
			{ID: "1", Name: "Medellin"},
			{ID: "2", Name: "Envigado"},
		}}, nil
	default:
		return &meli.State{ID: id, Name: "Cundinamarca", Cities: []meli.CityRef{
			{ID: "3", Name: "Bogota"},
		}}, nil
	}
}

func TestLocationsHandler_Import(t *testing.T) {
	t.Run("walks the hierarchy and stores pairs", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewLocationsHandler(&stubLocationsClient{}, repo)

		req := httptest.NewRequest(http.MethodGet, "/fetch-departments-cities", nil)
		rec := httptest.NewRecorder()

		handler.Import(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.LocationsImportResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "CO", response.Country)
		assert.Equal(t, 2, response.Departments)
		assert.Equal(t, 3, response.Cities)

		count, err := repo.CountDepartmentCities()
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("state fetch failure is 502", func(t *testing.T) {
		client := &stubLocationsClient{stateErr: errors.New("upstream down")}
		handler := handlers.NewLocationsHandler(client, storage.NewMockRepository())

		req := httptest.NewRequest(http.MethodGet, "/fetch-departments-cities", nil)
		rec := httptest.NewRecorder()

		handler.Import(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
