package service

import (
	"pagekv/internal/domain"
	"pagekv/internal/platform/pagestore/engine"
)

type DeleteEntryService struct {
	engine *engine.Engine
}

func NewDeleteEntryService(engine *engine.Engine) *DeleteEntryService {
	return &DeleteEntryService{
		engine: engine,
	}
}

type DeleteEntryCommand struct {
	Key uint64
}

type DeleteEntryResult struct {
	Err error
}

func (s *DeleteEntryService) Execute(command DeleteEntryCommand) DeleteEntryResult {
	err := s.engine.Delete(domain.KeyFromUint64(command.Key))
	return DeleteEntryResult{Err: err}
}
