package integration

import (
	"github.com/google/uuid"

	"github.com/go-gpviz/gpviz/internal/scene"
)

// ObservePoint is a single point of an observe request.
type ObservePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RandomSpec asks the service to generate n observations inside the range.
type RandomSpec struct {
	N    int     `json:"n"`
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
}

type ObserveRequest struct {
	SceneID uuid.UUID      `json:"sceneId"`
	Points  []ObservePoint `json:"points,omitempty"`
	Random  *RandomSpec    `json:"random,omitempty"`
}

type PosteriorRequest struct {
	SceneID uuid.UUID `json:"sceneId"`
	XMin    float64   `json:"xmin"`
	XMax    float64   `json:"xmax"`
	Points  int       `json:"points,omitempty"`
	Compare bool      `json:"compare,omitempty"`
}

type PosteriorResponse struct {
	SceneID uuid.UUID     `json:"sceneId"`
	Curve   *scene.Curve  `json:"curve,omitempty"`
	Curves  []scene.Curve `json:"curves,omitempty"`
}

type SampleRequest struct {
	SceneID uuid.UUID `json:"sceneId"`
	XMin    float64   `json:"xmin"`
	XMax    float64   `json:"xmax"`
	Points  int       `json:"points,omitempty"`
}

type SampleResponse struct {
	SceneID uuid.UUID      `json:"sceneId"`
	Sample  scene.Sample   `json:"sample"`
	History []scene.Sample `json:"history"`
}
