package collector

import (
	"time"

	"github.com/wildcat-ecash/backoffice/internal/obs"
)

// Service wires the balance collaborators to a Repository and runs one
// sampling pass per call to CollectAll; cmd/balance-collector drives
// CollectAll from a cron schedule aligned to the sampling cadence.
type Service struct {
	treasury TreasuryClient
	ebpp     EBPPClient
	eiou     EIOUClient
	repo     Repository
	log      *obs.Logf
}

func NewService(treasury TreasuryClient, ebpp EBPPClient, eiou EIOUClient, repo Repository, log *obs.Logf) *Service {
	return &Service{treasury: treasury, ebpp: ebpp, eiou: eiou, repo: repo, log: log}
}

// CollectAll samples every series at tstamp. Each collaborator is
// sampled independently; one failing does not stop the others, since a
// single missed balance series should not also blind the dashboard to
// the series that did respond.
func (s *Service) CollectAll(tstamp time.Time) {
	if balance, err := s.treasury.CrsatBalance(); err != nil {
		s.log.Errorf("collecting crsat balance: %v", err)
	} else if err := s.repo.StoreCrsat(tstamp, balance); err != nil {
		s.log.Errorf("storing crsat balance: %v", err)
	}

	if balance, err := s.treasury.SatBalance(); err != nil {
		s.log.Errorf("collecting sat balance: %v", err)
	} else if err := s.repo.StoreSat(tstamp, balance); err != nil {
		s.log.Errorf("storing sat balance: %v", err)
	}

	if balance, err := s.ebpp.Balance(); err != nil {
		s.log.Errorf("collecting onchain balance: %v", err)
	} else if err := s.repo.StoreOnchain(tstamp, balance); err != nil {
		s.log.Errorf("storing onchain balance: %v", err)
	}

	if balance, err := s.eiou.Balance(); err != nil {
		s.log.Errorf("collecting eiou balance: %v", err)
	} else if err := s.repo.StoreEIOU(tstamp, balance); err != nil {
		s.log.Errorf("storing eiou balance: %v", err)
	}
}

func (s *Service) CrsatChart(from, to time.Time) ([]Candle, error) {
	return s.repo.CrsatChart(from, to)
}

func (s *Service) SatChart(from, to time.Time) ([]Candle, error) {
	return s.repo.SatChart(from, to)
}

func (s *Service) OnchainChart(from, to time.Time) ([]Candle, error) {
	return s.repo.OnchainChart(from, to)
}

func (s *Service) EIOUChart(from, to time.Time) ([]Candle, error) {
	return s.repo.EIOUChart(from, to)
}
