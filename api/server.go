// Package api serves the local HTTP interface of the charge point: connector status, a card
// reader stand-in and the Prometheus endpoint.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"charge_point/chargepoint"
	"charge_point/common"
)

type ChargePoint interface {
	ConnectorStates() []chargepoint.ConnectorState
	HandleChargingRequest(tagID string) (chargepoint.Address, common.ChargingResponse)
}

type Server struct {
	ChargePoint ChargePoint
	// Connected reports the link to the central system for /healthz.
	Connected func() bool
	Metrics   http.Handler

	validate *validator.Validate
}

func NewServer(cp ChargePoint, connected func() bool, metrics http.Handler) *Server {
	return &Server{ChargePoint: cp, Connected: connected, Metrics: metrics, validate: validator.New()}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/connectors", s.ListConnectors)
	r.Get("/connectors/{evseId}/{connectorId}", s.GetConnector)
	r.Post("/charging-requests", s.ChargingRequest)

	r.Get("/healthz", s.Health)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) ListConnectors(w http.ResponseWriter, r *http.Request) {
	states := s.ChargePoint.ConnectorStates()
	if states == nil {
		states = []chargepoint.ConnectorState{}
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) GetConnector(w http.ResponseWriter, r *http.Request) {
	evseID, err := strconv.Atoi(chi.URLParam(r, "evseId"))
	if err != nil {
		http.Error(w, "bad evse id", http.StatusBadRequest)
		return
	}
	connectorID, err := strconv.Atoi(chi.URLParam(r, "connectorId"))
	if err != nil {
		http.Error(w, "bad connector id", http.StatusBadRequest)
		return
	}
	for _, state := range s.ChargePoint.ConnectorStates() {
		if state.EvseID == evseID && state.ConnectorID == connectorID {
			writeJSON(w, http.StatusOK, state)
			return
		}
	}
	http.NotFound(w, r)
}

type chargingReq struct {
	TagID string `json:"tag_id" validate:"required,max=20"`
}

type chargingResp struct {
	Response    common.ChargingResponse `json:"response"`
	EvseID      int                     `json:"evseId,omitempty"`
	ConnectorID int                     `json:"connectorId,omitempty"`
}

// ChargingRequest behaves like a card presented at the reader.
func (s *Server) ChargingRequest(w http.ResponseWriter, r *http.Request) {
	raw, err := readAll(r, 1<<16)
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	var req chargingReq
	if err := json.Unmarshal(raw, &req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	address, response := s.ChargePoint.HandleChargingRequest(req.TagID)
	writeJSON(w, responseStatus(response), chargingResp{
		Response:    response,
		EvseID:      address.EvseID,
		ConnectorID: address.ConnectorID,
	})
}

func responseStatus(response common.ChargingResponse) int {
	switch response {
	case common.StartChargingSuccess, common.StopChargingSuccess:
		return http.StatusOK
	case common.UnauthorizedCard:
		return http.StatusForbidden
	case common.NoAvailableConnectors, common.ConnectorUnavailable, common.NoConnectorWithTransaction:
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	connected := s.Connected == nil || s.Connected()
	status := http.StatusOK
	if !connected {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"connected": connected})
}
