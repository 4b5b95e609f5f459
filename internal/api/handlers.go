package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"AgentTreasury/internal/calculator"
	"AgentTreasury/internal/fees"
	"AgentTreasury/internal/model"
)

const maxBody = 1 << 16

// decode reads a JSON body, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "malformed request body: "+err.Error())
		return false
	}
	return true
}

// caller returns the authenticated caller or writes 401.
func caller(w http.ResponseWriter, r *http.Request) (model.Address, bool) {
	c := Caller(r.Context())
	if c.IsZero() {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "bearer token required")
		return "", false
	}
	return c, true
}

func agentID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "invalid agent id")
		return 0, false
	}
	return id, true
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "emergency_stop": s.t.Roles().EmergencyStop})
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transferResponse struct {
	Investor model.Address   `json:"investor"`
	Amount   decimal.Decimal `json:"amount"`
	Shares   decimal.Decimal `json:"shares"`
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req depositRequest
	if !decode(w, r, &req) {
		return
	}
	shares, err := s.t.Deposit(r.Context(), who, req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transferResponse{Investor: who, Amount: req.Amount, Shares: shares})
}

type withdrawRequest struct {
	Shares decimal.Decimal `json:"shares"`
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req withdrawRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := s.t.Withdraw(r.Context(), who, req.Shares)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transferResponse{Investor: who, Amount: amount, Shares: req.Shares})
}

type registerRequest struct {
	Name          string        `json:"name"`
	Controller    model.Address `json:"controller"`
	AllocationBps uint32        `json:"allocation_bps"`
}

func (s *Server) registerAgent(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := s.t.RegisterAgent(r.Context(), who, req.Name, req.Controller, req.AllocationBps)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) listAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agents":           s.t.Agents(),
		"total_allocation": s.t.TotalAllocation(),
	})
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := agentID(w, r)
	if !ok {
		return
	}
	a, err := s.t.Agent(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) setAgentStatus(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := agentID(w, r)
	if !ok {
		return
	}
	var req struct {
		Active *bool `json:"active"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Active == nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "active is required")
		return
	}
	a, err := s.t.SetAgentStatus(r.Context(), who, id, *req.Active)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) updateAllocation(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := agentID(w, r)
	if !ok {
		return
	}
	var req struct {
		AllocationBps uint32 `json:"allocation_bps"`
	}
	if !decode(w, r, &req) {
		return
	}
	a, err := s.t.UpdateAllocation(r.Context(), who, id, req.AllocationBps)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) recordTrade(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := agentID(w, r)
	if !ok {
		return
	}
	var req struct {
		PnL decimal.Decimal `json:"pnl"`
	}
	if !decode(w, r, &req) {
		return
	}
	a, err := s.t.RecordTrade(r.Context(), who, id, req.PnL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) agentPnL(w http.ResponseWriter, r *http.Request) {
	id, ok := agentID(w, r)
	if !ok {
		return
	}
	pnl, err := s.t.AgentPnL(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agent_id": id, "total_pnl": pnl})
}

func (s *Server) topAgents(w http.ResponseWriter, r *http.Request) {
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid_argument", "n must be a non-negative integer")
			return
		}
		n = parsed
	}
	ranked, err := s.t.TopAgents(r.Context(), n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ranked == nil {
		ranked = []model.RankedAgent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": ranked})
}

type bpsRequest struct {
	Bps uint32 `json:"bps"`
}

func (s *Server) getFees(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.t.Fees())
}

// quoteFees applies the current rates to a profit and an asset base. It is
// informational; nothing is deducted from the ledger.
func (s *Server) quoteFees(w http.ResponseWriter, r *http.Request) {
	parse := func(name string) (decimal.Decimal, bool) {
		v := r.URL.Query().Get(name)
		if v == "" {
			return decimal.Zero, true
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_argument", name+" must be a number")
			return decimal.Zero, false
		}
		if !calculator.Bounded(d) {
			writeError(w, http.StatusBadRequest, "invalid_argument", name+" out of range")
			return decimal.Zero, false
		}
		return d, true
	}
	profit, ok := parse("profit")
	if !ok {
		return
	}
	assets, ok := parse("assets")
	if !ok {
		return
	}
	fc := s.t.Fees()
	writeJSON(w, http.StatusOK, map[string]any{
		"fees":            fc,
		"performance_fee": fees.PerformanceFee(fc, profit),
		"management_fee":  fees.ManagementFee(fc, assets),
	})
}

func (s *Server) setPerformanceFee(w http.ResponseWriter, r *http.Request) {
	s.setFee(w, r, model.FeePerformance)
}

func (s *Server) setManagementFee(w http.ResponseWriter, r *http.Request) {
	s.setFee(w, r, model.FeeManagement)
}

func (s *Server) setFee(w http.ResponseWriter, r *http.Request, kind model.FeeKind) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req bpsRequest
	if !decode(w, r, &req) {
		return
	}
	var err error
	if kind == model.FeePerformance {
		err = s.t.SetPerformanceFee(r.Context(), who, req.Bps)
	} else {
		err = s.t.SetManagementFee(r.Context(), who, req.Bps)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.t.Fees())
}

func (s *Server) emergencyStop(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	if err := s.t.ActivateEmergencyStop(r.Context(), who); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.t.Roles())
}

func (s *Server) setGovernance(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Address model.Address `json:"address"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.t.SetGovernance(r.Context(), who, req.Address); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.t.Roles())
}

func (s *Server) sharePrice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"share_price": s.t.SharePrice()})
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state":            s.t.Snapshot(),
		"share_price":      s.t.SharePrice(),
		"total_allocation": s.t.TotalAllocation(),
	})
}

func (s *Server) investor(w http.ResponseWriter, r *http.Request) {
	inv, value, err := s.t.Investor(model.Address(mux.Vars(r)["addr"]))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"investor": inv, "value": value})
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 1000 {
			writeError(w, http.StatusBadRequest, "invalid_argument", "limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}
	evts, err := s.rec.Recent(limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if evts == nil {
		evts = []model.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": evts})
}
