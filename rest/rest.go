package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"voyager.com/tableserver/game"
	"voyager.com/tableserver/history"
	"voyager.com/tableserver/ledger"
	"voyager.com/tableserver/registry"
	"voyager.com/tableserver/tournament"
)

var restLogger = log.With().Str("logger_name", "rest::rest").Logger()

const defaultHandsLimit = 20

//
// APP error definition
//
type appError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *appError) Error() string {
	return e.Message
}

type Tables interface {
	Tables() []*game.Table
	GetTable(id string) (*game.Table, error)
}

type HandHistory interface {
	Get(handID string) (*history.HandHistory, error)
	TableHands(tableID string, limit int) ([]string, error)
	Stats(playerID string) history.PlayerStats
}

type Tournaments interface {
	CreateTournament(cfg tournament.Config) (tournament.Info, error)
	Register(ctx context.Context, tournamentID string, identity game.Identity) error
	Get(id string) (tournament.Info, error)
	List() []tournament.Info
}

type Server struct {
	Tables      Tables
	History     HandHistory
	Ledger      ledger.Ledger
	Tournaments Tournaments
	// Websocket is mounted at /ws when set.
	Websocket http.Handler
}

type tableSummary struct {
	TableID    string        `json:"tableId"`
	Name       string        `json:"name"`
	GameType   game.GameType `json:"gameType"`
	Phase      string        `json:"phase"`
	Players    int           `json:"players"`
	SmallBlind int64         `json:"smallBlind"`
	BigBlind   int64         `json:"bigBlind"`
	Tournament bool          `json:"tournament"`
}

type balanceResponse struct {
	PlayerID string `json:"playerId"`
	Balance  int64  `json:"balance"`
}

type registerRequest struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

//
// Middleware Error Handler
//
func JSONAppErrorReporter() gin.HandlerFunc {
	return jsonAppErrorReporterT(gin.ErrorTypeAny)
}

func jsonAppErrorReporterT(errType gin.ErrorType) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		detectedErrors := c.Errors.ByType(errType)
		if len(detectedErrors) == 0 {
			return
		}
		err := detectedErrors[0].Err
		parsedError, ok := err.(*appError)
		if !ok {
			parsedError = toAppError(err)
		}
		if parsedError.Code >= http.StatusInternalServerError {
			restLogger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		} else {
			restLogger.Debug().Err(err).Str("path", c.FullPath()).Msg("Request rejected")
		}
		c.IndentedJSON(parsedError.Code, parsedError)
		c.Abort()
	}
}

func toAppError(err error) *appError {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrTableNotFound),
		errors.Is(err, history.ErrHandNotFound),
		errors.Is(err, tournament.ErrTournamentNotFound):
		code = http.StatusNotFound
	case errors.Is(err, tournament.ErrAlreadyRegistered),
		errors.Is(err, tournament.ErrTournamentFull),
		errors.Is(err, tournament.ErrRegistrationClosed):
		code = http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientBalance):
		code = http.StatusPaymentRequired
	case errors.Is(err, tournament.ErrInvalidTournament),
		errors.Is(err, game.ErrInvalidIdentity),
		errors.Is(err, game.ErrInvalidOptions):
		code = http.StatusBadRequest
	}
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "Internal Server Error"
	}
	return &appError{Code: code, Message: msg}
}

func badRequest(c *gin.Context, msg string) {
	c.Error(&appError{Code: http.StatusBadRequest, Message: msg})
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(JSONAppErrorReporter())

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/tables", s.listTables)
	r.GET("/tables/:id", s.getTable)
	r.GET("/tables/:id/hands", s.tableHands)
	r.GET("/hand-history/:handId", s.handHistory)
	r.GET("/players/:id/stats", s.playerStats)
	r.GET("/players/:id/balance", s.playerBalance)

	r.POST("/tournaments", s.createTournament)
	r.GET("/tournaments", s.listTournaments)
	r.GET("/tournaments/:id", s.getTournament)
	r.POST("/tournaments/:id/register", s.register)

	if s.Websocket != nil {
		r.GET("/ws", gin.WrapH(s.Websocket))
	}
	return r
}

// RunRestServer blocks serving on addr.
func (s *Server) RunRestServer(addr string) error {
	restLogger.Info().Msgf("Listening on %s", addr)
	return s.Router().Run(addr)
}

func (s *Server) listTables(c *gin.Context) {
	tables := s.Tables.Tables()
	out := make([]tableSummary, 0, len(tables))
	for _, t := range tables {
		snap := t.Snapshot("")
		out = append(out, tableSummary{
			TableID:    snap.TableID,
			Name:       snap.Name,
			GameType:   snap.GameType,
			Phase:      snap.Phase,
			Players:    t.NumOccupied(),
			SmallBlind: snap.SmallBlind,
			BigBlind:   snap.BigBlind,
			Tournament: snap.Tournament,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getTable(c *gin.Context) {
	t, err := s.Tables.GetTable(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t.Snapshot(c.Query("viewer")))
}

func (s *Server) tableHands(c *gin.Context) {
	id := c.Param("id")
	limit := defaultHandsLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(c, "limit must be a positive number")
			return
		}
		limit = n
	}
	hands, err := s.History.TableHands(id, limit)
	if err != nil {
		c.Error(err)
		return
	}
	if hands == nil {
		hands = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"tableId": id, "hands": hands})
}

func (s *Server) handHistory(c *gin.Context) {
	h, err := s.History.Get(c.Param("handId"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) playerStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.History.Stats(c.Param("id")))
}

func (s *Server) playerBalance(c *gin.Context) {
	id := c.Param("id")
	balance, err := s.Ledger.Balance(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{PlayerID: id, Balance: balance})
}

func (s *Server) createTournament(c *gin.Context) {
	var cfg tournament.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		restLogger.Error().Msgf("Failed to parse tournament configuration. Error: %v", err)
		badRequest(c, err.Error())
		return
	}
	info, err := s.Tournaments.CreateTournament(cfg)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) listTournaments(c *gin.Context) {
	c.JSON(http.StatusOK, s.Tournaments.List())
}

func (s *Server) getTournament(c *gin.Context) {
	info, err := s.Tournaments.Get(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.PlayerID == "" {
		badRequest(c, "playerId is required")
		return
	}
	if req.Name == "" {
		req.Name = req.PlayerID
	}
	id := c.Param("id")
	if err := s.Tournaments.Register(c.Request.Context(), id, game.Identity{ID: req.PlayerID, Name: req.Name}); err != nil {
		c.Error(err)
		return
	}
	info, err := s.Tournaments.Get(id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, info)
}
