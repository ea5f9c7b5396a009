package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/screenrec/internal/api/models"
	"github.com/smazurov/screenrec/internal/displays"
)

// registerDisplayRoutes registers the display listing endpoint.
func (s *Server) registerDisplayRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-displays",
		Method:      http.MethodGet,
		Path:        "/api/displays",
		Summary:     "List Displays",
		Description: "Active displays with their desktop bounds, usable as screen targets",
		Tags:        []string{"displays"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.DisplayListResponse, error) {
		list := displays.List(s.options.Displays)
		return &models.DisplayListResponse{
			Body: models.DisplayListData{
				Displays: list,
				Count:    len(list),
			},
		}, nil
	})
}
