package api

import (
	"net/http"
	"strconv"

	"banksim/internal/bank"
	"banksim/internal/session"

	"github.com/gin-gonic/gin"
)

// --- request/response DTOs (wire shape decoupled from domain types) ---

type bankConfigReq struct {
	Name         string  `json:"name"`
	StartingCash float64 `json:"starting_cash"`
	Leverage     float64 `json:"target_leverage"`
	Liquidity    float64 `json:"target_liquidity"`
	Exposure     float64 `json:"target_exposure"`
	RiskAppetite float64 `json:"risk_appetite"`
}

func (r bankConfigReq) toConfig() session.BankConfig {
	return session.BankConfig{
		Name: r.Name, StartingCash: r.StartingCash, RiskAppetite: r.RiskAppetite,
		Targets: bank.Targets{Leverage: r.Leverage, LiquidityRatio: r.Liquidity, MarketExposure: r.Exposure},
	}
}

type marketConfigReq struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	InitialPrice float64 `json:"initial_price"`
}

type connectionReq struct {
	FromID int     `json:"from_id"`
	ToID   int     `json:"to_id"`
	Amount float64 `json:"amount"`
}

type initSessionReq struct {
	TotalSteps    int               `json:"total_steps"`
	Seed          int64             `json:"seed"`
	UseGameTheory bool              `json:"use_game_theory"`
	Banks         []bankConfigReq   `json:"banks"`
	Markets       []marketConfigReq `json:"markets"`
	Connections   []connectionReq   `json:"connections"`
}

// initSession handles POST /api/v1/sessions.
func (s *Server) initSession(c *gin.Context) {
	var req initSessionReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "bad_request", "reason": "invalid request payload"})
		return
	}

	cfg := session.Config{TotalSteps: req.TotalSteps, Seed: req.Seed, UseGameTheory: req.UseGameTheory}
	for _, b := range req.Banks {
		cfg.Banks = append(cfg.Banks, b.toConfig())
	}
	for _, m := range req.Markets {
		cfg.Markets = append(cfg.Markets, session.MarketConfig{ID: m.ID, Name: m.Name, InitialPrice: m.InitialPrice})
	}
	for _, conn := range req.Connections {
		cfg.Connections = append(cfg.Connections, session.ConnectionConfig{FromID: conn.FromID, ToID: conn.ToID, Amount: conn.Amount})
	}

	sess := s.Manager.Init(cfg)
	c.JSON(http.StatusCreated, gin.H{
		"session_id": sess.ID, "state": sess.State(), "total_steps": cfg.TotalSteps,
	})
}

func (s *Server) createBank(c *gin.Context) {
	sess, err := s.Manager.Get(c.Param("id"))
	if err != nil {
		writeSessionError(c, err)
		return
	}
	var req bankConfigReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "bad_request", "reason": "invalid request payload"})
		return
	}
	b, err := sess.CreateBank(req.toConfig())
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bank_id": b.ID, "name": b.Name})
}

type bankPatchReq struct {
	Name         *string  `json:"name"`
	StartingCash *float64 `json:"starting_cash"`
	RiskAppetite *float64 `json:"risk_appetite"`
}

func (s *Server) updateBank(c *gin.Context) {
	sess, err := s.Manager.Get(c.Param("id"))
	if err != nil {
		writeSessionError(c, err)
		return
	}
	bankID, err := strconv.Atoi(c.Param("bankId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "bad_request", "reason": "invalid bank id"})
		return
	}
	var req bankPatchReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "bad_request", "reason": "invalid request payload"})
		return
	}
	patch := session.BankPatch{Name: req.Name, StartingCash: req.StartingCash, RiskAppetite: req.RiskAppetite}
	if err := sess.UpdateBank(bankID, patch); err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bank_id": bankID})
}

func (s *Server) createConnection(c *gin.Context) {
	sess, err := s.Manager.Get(c.Param("id"))
	if err != nil {
		writeSessionError(c, err)
		return
	}
	var req connectionReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "bad_request", "reason": "invalid request payload"})
		return
	}
	if err := sess.CreateConnection(req.FromID, req.ToID, req.Amount); err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"from_id": req.FromID, "to_id": req.ToID, "amount": req.Amount})
}

func (s *Server) createMarket(c *gin.Context) {
	sess, err := s.Manager.Get(c.Param("id"))
	if err != nil {
		writeSessionError(c, err)
		return
	}
	var req marketConfigReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "bad_request", "reason": "invalid request payload"})
		return
	}
	if err := sess.CreateMarket(session.MarketConfig{ID: req.ID, Name: req.Name, InitialPrice: req.InitialPrice}); err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"market_id": req.ID})
}

func (s *Server) start(c *gin.Context) {
	id := c.Param("id")
	if err := s.Manager.Start(id); err != nil {
		writeSessionError(c, err)
		return
	}
	s.writeLifecycle(c, id)
}

func (s *Server) pause(c *gin.Context) {
	id := c.Param("id")
	if err := s.Manager.Pause(id); err != nil {
		writeSessionError(c, err)
		return
	}
	s.writeLifecycle(c, id)
}

func (s *Server) resume(c *gin.Context) {
	id := c.Param("id")
	if err := s.Manager.Resume(id); err != nil {
		writeSessionError(c, err)
		return
	}
	s.writeLifecycle(c, id)
}

func (s *Server) stop(c *gin.Context) {
	id := c.Param("id")
	if err := s.Manager.Stop(id); err != nil {
		writeSessionError(c, err)
		return
	}
	s.writeLifecycle(c, id)
}

func (s *Server) writeLifecycle(c *gin.Context, id string) {
	sess, err := s.Manager.Get(id)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	st := sess.Status()
	c.JSON(http.StatusOK, gin.H{"state": st.State, "current_step": st.CurrentStep})
}

func (s *Server) step(c *gin.Context) {
	sess, err := s.Manager.Get(c.Param("id"))
	if err != nil {
		writeSessionError(c, err)
		return
	}
	summary, err := sess.StepOnce(c.Request.Context())
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"step": summary.Step, "events": summary.Events, "defaults": summary.Defaults,
		"system_liquidity": summary.SystemLiquidity, "state": summary.State,
	})
}

type controlReq struct {
	Kind   string  `json:"kind"`
	BankID int     `json:"bank_id"`
	Amount float64 `json:"amount"`
}

func (s *Server) control(c *gin.Context) {
	var req controlReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "bad_request", "reason": "invalid request payload"})
		return
	}
	cmd := session.Command{Kind: session.CommandKind(req.Kind), BankID: req.BankID, Amount: req.Amount}
	if err := s.Manager.Control(c.Param("id"), cmd); err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"kind": req.Kind})
}

func (s *Server) status(c *gin.Context) {
	sess, err := s.Manager.Get(c.Param("id"))
	if err != nil {
		writeSessionError(c, err)
		return
	}
	st := sess.Status()
	c.JSON(http.StatusOK, gin.H{
		"session_id": st.SessionID, "state": st.State, "current_step": st.CurrentStep,
		"total_steps": st.TotalSteps, "banks_count": st.BanksCount,
		"defaults": st.Defaults, "surviving_banks": st.SurvivingBanks,
	})
}

func (s *Server) network(c *gin.Context) {
	sess, err := s.Manager.Get(c.Param("id"))
	if err != nil {
		writeSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Network())
}

func (s *Server) destroy(c *gin.Context) {
	if err := s.Manager.Destroy(c.Param("id")); err != nil {
		writeSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
