package service

import (
	"pagekv/internal/domain"
	"pagekv/internal/platform/pagestore/engine"
)

type PutEntryService struct {
	engine *engine.Engine
}

func NewPutEntryService(engine *engine.Engine) *PutEntryService {
	return &PutEntryService{
		engine: engine,
	}
}

type PutEntryCommand struct {
	Key   uint64
	Value []byte
}

type PutEntryResult struct {
	Err error
}

func (s *PutEntryService) Execute(command PutEntryCommand) PutEntryResult {
	err := s.engine.Put(domain.KeyFromUint64(command.Key), command.Value)
	return PutEntryResult{Err: err}
}
