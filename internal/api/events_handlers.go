package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nearbyapp/nearby-server/internal/events"
)

func (s *Server) registerEventRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listEvents",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "List nearby events",
		Description: "Proxies the events provider through a short-lived cache",
		Tags:        []string{"Events"},
	}, s.handleListEvents)
}

// ListEventsInput selects the events search.
type ListEventsInput struct {
	City    string `query:"city" doc:"City name"`
	Keyword string `query:"keyword" doc:"Free-text keyword"`
}

// ListEventsResponse is the proxied event page.
type ListEventsResponse struct {
	Events []events.Event `json:"events"`
}

// ListEventsOutput wraps the body.
type ListEventsOutput struct {
	Body ListEventsResponse
}

func (s *Server) handleListEvents(ctx context.Context, input *ListEventsInput) (*ListEventsOutput, error) {
	found, err := s.events.Search(ctx, input.City, input.Keyword)
	if err != nil {
		return nil, err
	}
	if found == nil {
		found = []events.Event{}
	}
	return &ListEventsOutput{Body: ListEventsResponse{Events: found}}, nil
}
