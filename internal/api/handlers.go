package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/daodao/core/internal/chain"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/mempool"
	"github.com/daodao/core/pkg/types"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse describes the node
type StatusResponse struct {
	ChainID string          `json:"chain_id"`
	Height  uint64          `json:"height"`
	Time    types.Timestamp `json:"time"`
	Pending int             `json:"pending"`
}

// SubmitTxRequest is the body of POST /txs
type SubmitTxRequest struct {
	Sender types.Address   `json:"sender" binding:"required"`
	Msg    types.CosmosMsg `json:"msg"`
}

// SubmitTxResponse carries the id to poll for the result
type SubmitTxResponse struct {
	TxID string `json:"tx_id"`
}

// ContractResponse is one instantiated contract
type ContractResponse struct {
	Address types.Address `json:"address"`
	host.ContractInfo
}

// MintRequest is the body of POST /bank/mint
type MintRequest struct {
	Address types.Address `json:"address" binding:"required"`
	Coins   []types.Coin  `json:"coins" binding:"required"`
}

func fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error()})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	b := s.host.Block()
	c.JSON(http.StatusOK, StatusResponse{
		ChainID: b.ChainID,
		Height:  b.Height,
		Time:    b.Time,
		Pending: s.pool.Size(),
	})
}

func (s *Server) listBlocks(c *gin.Context) {
	c.JSON(http.StatusOK, s.chain.Blocks())
}

func (s *Server) latestBlock(c *gin.Context) {
	b, ok := s.chain.LatestBlock()
	if !ok {
		fail(c, http.StatusNotFound, errors.New("no block produced yet"))
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) submitTx(c *gin.Context) {
	var req SubmitTxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	id, err := s.chain.Submit(types.Tx{Sender: req.Sender, Msg: req.Msg})
	switch {
	case errors.Is(err, mempool.ErrPoolFull):
		fail(c, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		fail(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusAccepted, SubmitTxResponse{TxID: id})
}

func (s *Server) getTx(c *gin.Context) {
	res, err := s.chain.Result(c.Param("id"))
	switch {
	case errors.Is(err, chain.ErrTxPending):
		c.JSON(http.StatusAccepted, SubmitTxResponse{TxID: c.Param("id")})
	case errors.Is(err, chain.ErrTxNotFound):
		fail(c, http.StatusNotFound, err)
	case err != nil:
		fail(c, http.StatusInternalServerError, err)
	default:
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) txPool(c *gin.Context) {
	c.JSON(http.StatusOK, s.pool.Pending())
}

func (s *Server) listContracts(c *gin.Context) {
	all, err := s.host.Contracts(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	out := lo.MapToSlice(all, func(addr types.Address, info host.ContractInfo) ContractResponse {
		return ContractResponse{Address: addr, ContractInfo: info}
	})
	if codeID := c.Query("code_id"); codeID != "" {
		out = lo.Filter(out, func(r ContractResponse, _ int) bool { return r.CodeID == codeID })
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created != out[j].Created {
			return out[i].Created < out[j].Created
		}
		return out[i].Address < out[j].Address
	})
	c.JSON(http.StatusOK, out)
}

func (s *Server) contractInfo(c *gin.Context) {
	addr := types.Address(c.Param("addr"))
	info, err := s.host.ContractInfo(c.Request.Context(), addr)
	switch {
	case errors.Is(err, host.ErrContractNotFound):
		fail(c, http.StatusNotFound, err)
	case err != nil:
		fail(c, http.StatusInternalServerError, err)
	default:
		c.JSON(http.StatusOK, ContractResponse{Address: addr, ContractInfo: info})
	}
}

func (s *Server) queryContract(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if !json.Valid(body) {
		fail(c, http.StatusBadRequest, types.ErrInvalidMessage)
		return
	}
	out, err := s.host.Query(c.Request.Context(), types.Address(c.Param("addr")), body)
	switch {
	case errors.Is(err, host.ErrContractNotFound):
		fail(c, http.StatusNotFound, err)
	case err != nil:
		fail(c, http.StatusBadRequest, err)
	default:
		c.Data(http.StatusOK, "application/json", out)
	}
}

func (s *Server) balances(c *gin.Context) {
	coins, err := s.host.Balances(c.Request.Context(), types.Address(c.Param("addr")))
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if coins == nil {
		coins = []types.Coin{}
	}
	c.JSON(http.StatusOK, coins)
}

func (s *Server) mint(c *gin.Context) {
	var req MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if err := req.Address.Validate(); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if err := s.host.Mint(c.Request.Context(), req.Address, req.Coins...); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("minted", zap.Stringer("address", req.Address), zap.Int("coins", len(req.Coins)))
	c.Status(http.StatusNoContent)
}
