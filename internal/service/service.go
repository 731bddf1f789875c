// Package service is the daemon's application layer: address validation in
// front of the per-account allocators, plus mnemonic-to-address derivation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"tessera-ledger/go-client/internal/identity"
	"tessera-ledger/go-client/internal/registry"
	"tessera-ledger/go-client/internal/sequence"
	"tessera-ledger/go-client/pkg/models"
)

var ErrInvalidAddress = errors.New("invalid account address")

type Service struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func New(reg *registry.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{registry: reg, logger: logger}
}

// Allocate hands out the next sequence number for the account, blocking
// while the in-flight window is full.
func (s *Service) Allocate(ctx context.Context, address string) (models.Allocation, error) {
	allocator, err := s.allocator(address)
	if err != nil {
		return models.Allocation{}, err
	}
	seq, err := allocator.Next(ctx)
	if err != nil {
		return models.Allocation{}, err
	}
	return models.Allocation{Address: allocator.Address(), Seq: seq}, nil
}

// Synchronize blocks until the account's issued numbers are fully confirmed
// or a forced reinitialization resets the bookkeeping.
func (s *Service) Synchronize(ctx context.Context, address string) (models.SyncResult, error) {
	allocator, err := s.allocator(address)
	if err != nil {
		return models.SyncResult{}, err
	}
	confirmed, err := allocator.Sync(ctx)
	if err != nil {
		return models.SyncResult{}, err
	}
	return models.SyncResult{Address: allocator.Address(), Confirmed: confirmed}, nil
}

// Status reports the account's bookkeeping without blocking.
func (s *Service) Status(address string) (models.AccountStatus, error) {
	allocator, err := s.allocator(address)
	if err != nil {
		return models.AccountStatus{}, err
	}
	st := allocator.Status()
	return models.AccountStatus{
		Address:     allocator.Address(),
		Initialized: st.Initialized,
		Confirmed:   st.Confirmed,
		Next:        st.Next,
		InFlight:    st.InFlight,
	}, nil
}

// DeriveAddress maps a mnemonic to its ledger address. The mnemonic is not
// retained.
func (s *Service) DeriveAddress(mnemonic string) (models.DerivedAccount, error) {
	address, err := identity.DeriveAddress(mnemonic)
	if err != nil {
		return models.DerivedAccount{}, err
	}
	return models.DerivedAccount{Address: address}, nil
}

func (s *Service) allocator(address string) (*sequence.Allocator, error) {
	address = strings.TrimSpace(address)
	if !identity.ValidAddress(address) {
		return nil, ErrInvalidAddress
	}
	return s.registry.Get(address)
}
