package service

import (
	"pagekv/internal/domain"
	"pagekv/internal/platform/pagestore/engine"
)

type RangeService struct {
	engine *engine.Engine
}

func NewRangeService(engine *engine.Engine) *RangeService {
	return &RangeService{
		engine: engine,
	}
}

type RangeQuery struct {
	Start uint64
	N     int
}

type RangeResult struct {
	Records []domain.Record
	Err     error
}

func (s *RangeService) Execute(query RangeQuery) RangeResult {
	recs, err := s.engine.GetRange(domain.KeyFromUint64(query.Start), query.N)
	return RangeResult{Records: recs, Err: err}
}
