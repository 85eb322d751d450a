package http

import "nodebell/pkg/registry"

type Status string

const (
	// StatusOK is used for health-check responses.
	StatusOK Status = "OK"

	// StatusError indicates a request was rejected.
	StatusError Status = "error"
)

// Response is the envelope for health checks and rejected requests.
type Response struct {
	Status Status `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

func NewErrorResponse(err string) Response {
	return Response{Status: StatusError, Error: err}
}

type CountResponse struct {
	Count int `json:"count"`
}

// ListResponse is the diagnostics view of the whole registry.
type ListResponse struct {
	Nodes []registry.Entry `json:"nodes"`
}

type RegisterResponse struct {
	Status string `json:"status"`
}

func NewRegisterResponse(nodeID string) RegisterResponse {
	return RegisterResponse{Status: "registered " + nodeID}
}

// NodeResponse carries a node status; Node is null for unknown nodes.
type NodeResponse struct {
	Node  *registry.Status `json:"node"`
	Error string           `json:"error,omitempty"`
}

// EventRequest is the body of POST /event. Missing fields decode as "".
type EventRequest struct {
	NodeID string `json:"nodeId"`
	Event  string `json:"event"`
}

type EventResponse struct {
	Response string `json:"response"`
}

func NewAckResponse() EventResponse {
	return EventResponse{Response: "ok"}
}
