package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tierstake/crypto"
	"tierstake/observability"
)

type methodHandler func(http.ResponseWriter, *http.Request, *RPCRequest)

const (
	MethodInitializeProgram = "stake_initializeProgram"
	MethodInitializeEscrow  = "stake_initializeEscrow"
	MethodFundEscrow        = "stake_fundEscrow"
	MethodStake             = "stake_stake"
	MethodUnstake           = "stake_unstake"
	MethodClaimRewards      = "stake_claimRewards"
	MethodCompoundRewards   = "stake_compoundRewards"
	MethodProposeAuthority  = "stake_proposeAuthority"
	MethodAcceptAuthority   = "stake_acceptAuthority"
	MethodSetPaused         = "stake_setPaused"
	MethodGetProgram        = "stake_getProgram"
	MethodGetEscrow         = "stake_getEscrow"
	MethodGetPosition       = "stake_getPosition"
	MethodPendingRewards    = "stake_pendingRewards"
	MethodBalance           = "stake_balance"
)

type stakingParams struct {
	Caller       string `json:"caller,omitempty"`
	Mint         string `json:"mint,omitempty"`
	Amount       string `json:"amount,omitempty"`
	NewAuthority string `json:"newAuthority,omitempty"`
	Paused       *bool  `json:"paused,omitempty"`
	Owner        string `json:"owner,omitempty"`
}

type paramError struct {
	status  int
	code    int
	message string
}

func (e *paramError) Error() string { return e.message }

func invalidParams(format string, args ...interface{}) *paramError {
	return &paramError{status: http.StatusBadRequest, code: codeInvalidParams, message: fmt.Sprintf(format, args...)}
}

func (s *Server) stakingMethods() map[string]methodHandler {
	return map[string]methodHandler{
		MethodInitializeProgram: s.handleInitializeProgram,
		MethodInitializeEscrow:  s.handleInitializeEscrow,
		MethodFundEscrow:        s.handleFundEscrow,
		MethodStake:             s.handleStake,
		MethodUnstake:           s.handleUnstake,
		MethodClaimRewards:      s.handleClaimRewards,
		MethodCompoundRewards:   s.handleCompoundRewards,
		MethodProposeAuthority:  s.handleProposeAuthority,
		MethodAcceptAuthority:   s.handleAcceptAuthority,
		MethodSetPaused:         s.handleSetPaused,
		MethodGetProgram:        s.handleGetProgram,
		MethodGetEscrow:         s.handleGetEscrow,
		MethodGetPosition:       s.handleGetPosition,
		MethodPendingRewards:    s.handlePendingRewards,
		MethodBalance:           s.handleBalance,
	}
}

func observeRequest(method string, status int, duration time.Duration) {
	observability.ModuleMetrics().Observe("staking", method, status, duration)
}

func decodeParams(req *RPCRequest) (stakingParams, *paramError) {
	var params stakingParams
	switch len(req.Params) {
	case 0:
		return params, nil
	case 1:
		if err := json.Unmarshal(req.Params[0], &params); err != nil {
			return params, invalidParams("invalid parameter object: %v", err)
		}
		return params, nil
	default:
		return params, invalidParams("at most one parameter object expected")
	}
}

func parseAddress(field, value string) ([20]byte, *paramError) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return [20]byte{}, invalidParams("%s is required", field)
	}
	addr, err := crypto.DecodeUserAddress(trimmed)
	if err != nil {
		return [20]byte{}, invalidParams("invalid %s: %v", field, err)
	}
	return addr.Raw(), nil
}

// parseAmount accepts a base-unit decimal string. Zero is passed through so
// the ledger reports it with its own validation error.
func parseAmount(value string) (uint64, *paramError) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, invalidParams("amount is required")
	}
	amount, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, invalidParams("invalid amount: %v", err)
	}
	return amount, nil
}

// resolveCaller returns the identity a mutating call acts as. With auth on it
// is the token subject, and a caller parameter must agree with it.
func (s *Server) resolveCaller(r *http.Request, params stakingParams) ([20]byte, *paramError) {
	if s.auth.Enabled() {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			return [20]byte{}, &paramError{status: http.StatusUnauthorized, code: codeUnauthorized, message: "authentication required"}
		}
		if strings.TrimSpace(params.Caller) != "" {
			claimed, perr := parseAddress("caller", params.Caller)
			if perr != nil {
				return [20]byte{}, perr
			}
			if claimed != caller {
				return [20]byte{}, &paramError{status: http.StatusForbidden, code: codeUnauthorized, message: "caller does not match token subject"}
			}
		}
		return caller, nil
	}
	return parseAddress("caller", params.Caller)
}

func writeParamError(w http.ResponseWriter, id interface{}, perr *paramError) {
	writeError(w, perr.status, id, perr.code, perr.message, nil)
}

// mutation decodes params, resolves the caller and hands both to fn.
func (s *Server) mutation(w http.ResponseWriter, r *http.Request, req *RPCRequest, fn func(caller [20]byte, params stakingParams) (interface{}, *paramError, error)) {
	params, perr := decodeParams(req)
	if perr != nil {
		writeParamError(w, req.ID, perr)
		return
	}
	caller, perr := s.resolveCaller(r, params)
	if perr != nil {
		writeParamError(w, req.ID, perr)
		return
	}
	result, perr, err := fn(caller, params)
	if perr != nil {
		writeParamError(w, req.ID, perr)
		return
	}
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleInitializeProgram(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.mutation(w, r, req, func(caller [20]byte, params stakingParams) (interface{}, *paramError, error) {
		mint, perr := parseAddress("mint", params.Mint)
		if perr != nil {
			return nil, perr, nil
		}
		program, err := s.node.InitializeProgram(caller, mint)
		if err != nil {
			return nil, nil, err
		}
		return programResult(program), nil, nil
	})
}

func (s *Server) handleInitializeEscrow(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.mutation(w, r, req, func(caller [20]byte, _ stakingParams) (interface{}, *paramError, error) {
		escrow, err := s.node.InitializeEscrow(caller)
		if err != nil {
			return nil, nil, err
		}
		return escrowResult(escrow), nil, nil
	})
}

func (s *Server) handleFundEscrow(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.mutation(w, r, req, func(caller [20]byte, params stakingParams) (interface{}, *paramError, error) {
		mint, perr := parseAddress("mint", params.Mint)
		if perr != nil {
			return nil, perr, nil
		}
		amount, perr := parseAmount(params.Amount)
		if perr != nil {
			return nil, perr, nil
		}
		escrow, err := s.node.FundEscrow(caller, mint, amount)
		if err != nil {
			return nil, nil, err
		}
		return escrowResult(escrow), nil, nil
	})
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.mutation(w, r, req, func(caller [20]byte, params stakingParams) (interface{}, *paramError, error) {
		mint, perr := parseAddress("mint", params.Mint)
		if perr != nil {
			return nil, perr, nil
		}
		amount, perr := parseAmount(params.Amount)
		if perr != nil {
			return nil, perr, nil
		}
		stake, err := s.node.Stake(caller, mint, amount)
		if err != nil {
			return nil, nil, err
		}
		return stakeResult(stake), nil, nil
	})
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.mutation(w, r, req, func(caller [20]byte, params stakingParams) (interface{}, *paramError, error) {
		mint, perr := parseAddress("mint", params.Mint)
		if perr != nil {
			return nil, perr, nil
		}
		amount, perr := parseAmount(params.Amount)
		if perr != nil {
			return nil, perr, nil
		}
		res, err := s.node.Unstake(caller, mint, amount)
		if err != nil {
			return nil, nil, err
		}
		return UnstakeResult{
			Stake:    stakeResult(res.Stake),
			Amount:   formatUint(res.Amount),
			Penalty:  formatUint(res.Penalty),
			Received: formatUint(res.Received),
		}, nil, nil
	})
}

func (s *Server) handleClaimRewards(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.mutation(w, r, req, func(caller [20]byte, params stakingParams) (interface{}, *paramError, error) {
		mint, perr := parseAddress("mint", params.Mint)
		if perr != nil {
			return nil, perr, nil
		}
		res, err := s.node.ClaimRewards(caller, mint)
		if err != nil {
			return nil, nil, err
		}
		return ClaimResult{
			Stake:  stakeResult(res.Stake),
			Escrow: escrowResult(res.Escrow),
			Amount: formatUint(res.Amount),
		}, nil, nil
	})
}

func (s *Server) handleCompoundRewards(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.mutation(w, r, req, func(caller [20]byte, _ stakingParams) (interface{}, *paramError, error) {
		res, err := s.node.CompoundRewards(caller)
		if err != nil {
			return nil, nil, err
		}
		return CompoundResult{
			Stake:   stakeResult(res.Stake),
			Amount:  formatUint(res.Amount),
			OldTier: uint8(res.OldTier),
			NewTier: uint8(res.NewTier),
		}, nil, nil
	})
}

func (s *Server) handleProposeAuthority(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.mutation(w, r, req, func(caller [20]byte, params stakingParams) (interface{}, *paramError, error) {
		next, perr := parseAddress("newAuthority", params.NewAuthority)
		if perr != nil {
			return nil, perr, nil
		}
		program, err := s.node.ProposeAuthorityChange(caller, next)
		if err != nil {
			return nil, nil, err
		}
		return programResult(program), nil, nil
	})
}

func (s *Server) handleAcceptAuthority(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.mutation(w, r, req, func(caller [20]byte, _ stakingParams) (interface{}, *paramError, error) {
		program, err := s.node.AcceptAuthorityChange(caller)
		if err != nil {
			return nil, nil, err
		}
		return programResult(program), nil, nil
	})
}

func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.mutation(w, r, req, func(caller [20]byte, params stakingParams) (interface{}, *paramError, error) {
		if params.Paused == nil {
			return nil, invalidParams("paused is required"), nil
		}
		program, err := s.node.SetPaused(caller, *params.Paused)
		if err != nil {
			return nil, nil, err
		}
		return programResult(program), nil, nil
	})
}

func (s *Server) handleGetProgram(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	program, err := s.node.ProgramState()
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, programResult(program))
}

func (s *Server) handleGetEscrow(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	escrow, err := s.node.Escrow()
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, escrowResult(escrow))
}

// ownerParam reads the owner parameter, defaulting to the authenticated caller.
func ownerParam(r *http.Request, req *RPCRequest) ([20]byte, stakingParams, *paramError) {
	params, perr := decodeParams(req)
	if perr != nil {
		return [20]byte{}, params, perr
	}
	if strings.TrimSpace(params.Owner) == "" {
		if caller, ok := CallerFromContext(r.Context()); ok {
			return caller, params, nil
		}
	}
	owner, perr := parseAddress("owner", params.Owner)
	return owner, params, perr
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	owner, _, perr := ownerParam(r, req)
	if perr != nil {
		writeParamError(w, req.ID, perr)
		return
	}
	stake, err := s.node.UserStake(owner)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, stakeResult(stake))
}

func (s *Server) handlePendingRewards(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	owner, _, perr := ownerParam(r, req)
	if perr != nil {
		writeParamError(w, req.ID, perr)
		return
	}
	pending, err := s.node.PendingRewards(owner)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, AmountResult{Owner: formatAddr(owner), Amount: formatUint(pending)})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	owner, params, perr := ownerParam(r, req)
	if perr != nil {
		writeParamError(w, req.ID, perr)
		return
	}
	mint, perr := parseAddress("mint", params.Mint)
	if perr != nil {
		writeParamError(w, req.ID, perr)
		return
	}
	balance, err := s.node.Balance(mint, owner)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, AmountResult{Owner: formatAddr(owner), Amount: formatUint(balance)})
}
