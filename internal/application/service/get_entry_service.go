package service

import (
	"errors"

	"pagekv/internal/domain"
	"pagekv/internal/platform/pagestore/engine"
)

type GetEntryService struct {
	engine *engine.Engine
}

func NewGetEntryService(engine *engine.Engine) *GetEntryService {
	return &GetEntryService{
		engine: engine,
	}
}

type GetEntryQuery struct {
	Key uint64
}

type GetEntryResult struct {
	Value []byte
	Found bool
	Err   error
}

// Execute reports a miss only on domain.ErrNotFound. Any other error
// (domain.KindIOError, domain.KindCorruption, ...) is surfaced verbatim
// in Err rather than collapsed into a miss (spec.md §7).
func (s *GetEntryService) Execute(query GetEntryQuery) GetEntryResult {
	value, err := s.engine.Get(domain.KeyFromUint64(query.Key))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return GetEntryResult{Found: false}
		}
		return GetEntryResult{Err: err}
	}
	return GetEntryResult{
		Value: value,
		Found: true,
	}
}
