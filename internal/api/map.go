package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/airsense/airmap/internal/dashboard"
	"github.com/airsense/airmap/internal/surface"
)

// MapHandler exposes the shared map surface over HTTP: an SSE stream of
// surface mutations for the dashboard client, and ingest endpoints feeding
// client interactions back into the reconciliation engine.
type MapHandler struct {
	ctrl *dashboard.Controller
}

// NewMapHandler creates a map handler around the dashboard controller.
func NewMapHandler(ctrl *dashboard.Controller) *MapHandler {
	return &MapHandler{ctrl: ctrl}
}

// RegisterRoutes registers the map routes with Huma.
func (h *MapHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/map/stream", h.Stream, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/pointer", h.Pointer, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/navigate", h.Navigate, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/overlays/{id}/visibility", h.Visibility, huma.OperationTags("map"))
}

// Stream replays the current surface state to a connecting client, then
// forwards every mutation as a custom event until the client goes away.
func (h *MapHandler) Stream(ctx context.Context, input *struct{}) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSE(humaCtx)
			surf := h.ctrl.Surface()

			sse.Signals(map[string]any{"mapConnected": true})
			for _, m := range surf.Snapshot() {
				sse.DispatchCustomEvent("map-mutation", m)
			}

			ch := surf.Mutations().Subscribe()
			defer surf.Mutations().Unsubscribe(ch)

			for {
				select {
				case <-ctx.Done():
					return
				case m := <-ch:
					sse.DispatchCustomEvent("map-mutation", m)
					if m.Op == surface.OpDestroy {
						return
					}
				}
			}
		},
	}, nil
}

// PointerBody is a client pointer interaction reported by the dashboard.
type PointerBody struct {
	Type       string         `json:"type" required:"true" enum:"click,mousemove,mouseleave" doc:"Pointer event type"`
	LayerID    string         `json:"layerId,omitempty" doc:"Topmost hit layer"`
	Lon        float64        `json:"lon" doc:"Pointer longitude"`
	Lat        float64        `json:"lat" doc:"Pointer latitude"`
	FeatureID  string         `json:"featureId,omitempty" doc:"Hit feature identifier"`
	Properties map[string]any `json:"properties,omitempty" doc:"Hit feature properties"`
}

func (h *MapHandler) Pointer(ctx context.Context, input *struct{ Body PointerBody }) (*struct{ Body MessageBody }, error) {
	b := input.Body
	ev := surface.PointerEvent{
		Type:    b.Type,
		Point:   orb.Point{b.Lon, b.Lat},
		LayerID: b.LayerID,
	}
	if b.FeatureID != "" {
		f := geojson.NewFeature(orb.Point{b.Lon, b.Lat})
		f.ID = b.FeatureID
		for k, v := range b.Properties {
			f.Properties[k] = v
		}
		ev.Features = []*geojson.Feature{f}
	}
	h.ctrl.DispatchPointer(ev)
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Event dispatched"}}, nil
}

// NavigateBody is a viewport transition request. When Bounds is set it wins
// over Center/Zoom.
type NavigateBody struct {
	Lon     float64    `json:"lon,omitempty" doc:"Target longitude"`
	Lat     float64    `json:"lat,omitempty" doc:"Target latitude"`
	Zoom    float64    `json:"zoom,omitempty" minimum:"0" maximum:"24" doc:"Target zoom"`
	Bearing float64    `json:"bearing,omitempty" doc:"Target bearing in degrees"`
	Pitch   float64    `json:"pitch,omitempty" doc:"Target pitch in degrees"`
	Bounds  *[4]float64 `json:"bounds,omitempty" doc:"Fit bounds [minLon, minLat, maxLon, maxLat]"`
}

func (h *MapHandler) Navigate(ctx context.Context, input *struct{ Body NavigateBody }) (*struct{ Body MessageBody }, error) {
	b := input.Body
	v := surface.Viewport{
		Center:  orb.Point{b.Lon, b.Lat},
		Zoom:    b.Zoom,
		Bearing: b.Bearing,
		Pitch:   b.Pitch,
	}
	if b.Bounds != nil {
		bound := orb.Bound{
			Min: orb.Point{b.Bounds[0], b.Bounds[1]},
			Max: orb.Point{b.Bounds[2], b.Bounds[3]},
		}
		v.Bounds = &bound
	}
	h.ctrl.Navigate(v)
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Navigation requested"}}, nil
}

// VisibilityBody toggles one overlay's layers.
type VisibilityBody struct {
	Visible bool `json:"visible" doc:"Whether the overlay should be visible"`
}

func (h *MapHandler) Visibility(ctx context.Context, input *struct {
	IDInput
	Body VisibilityBody
}) (*struct{ Body MessageBody }, error) {
	h.ctrl.SetOverlayVisibility(input.ID, input.Body.Visible)
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Visibility updated"}}, nil
}
