package rpc

import (
	"context"
	"encoding/json"
	"errors"

	"tessera-ledger/go-client/internal/identity"
	"tessera-ledger/go-client/internal/ledger"
	"tessera-ledger/go-client/internal/service"
)

type accountParams struct {
	Address string `json:"address"`
}

type deriveParams struct {
	Mnemonic string `json:"mnemonic"`
}

func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (any, *rpcError) {
	switch method {
	case "sequence.allocate":
		var p accountParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		result, err := s.service.Allocate(ctx, p.Address)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return result, nil

	case "sequence.synchronize":
		var p accountParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		result, err := s.service.Synchronize(ctx, p.Address)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return result, nil

	case "sequence.status":
		var p accountParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		result, err := s.service.Status(p.Address)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return result, nil

	case "account.derive":
		var p deriveParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		result, err := s.service.DeriveAddress(p.Mnemonic)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return result, nil

	default:
		return nil, &rpcError{Code: -32601, Message: "method not found"}
	}
}

func decodeParams(raw json.RawMessage, into any) *rpcError {
	if len(raw) == 0 {
		return &rpcError{Code: -32602, Message: "params are required"}
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return &rpcError{Code: -32602, Message: "invalid params"}
	}
	return nil
}

func mapServiceError(err error) *rpcError {
	switch {
	case errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, identity.ErrMnemonicRequired),
		errors.Is(err, identity.ErrInvalidMnemonic):
		return &rpcError{Code: -32602, Message: err.Error()}
	case errors.Is(err, ledger.ErrAccountNotFound):
		return &rpcError{Code: -32001, Message: err.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &rpcError{Code: -32002, Message: err.Error()}
	default:
		var fetchErr *ledger.FetchError
		if errors.As(err, &fetchErr) {
			return &rpcError{Code: -32003, Message: err.Error()}
		}
		return &rpcError{Code: -32000, Message: err.Error()}
	}
}
