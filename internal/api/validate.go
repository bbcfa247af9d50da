package api

import (
	"fmt"
	"net/url"
	"strings"

	"antroute/internal/config"
	"antroute/internal/model"
	"antroute/internal/opt"
)

func validateSolveRequest(req *model.SolveRequest, cfg config.Config) error {
	req.Algorithm = strings.ToLower(strings.TrimSpace(req.Algorithm))
	if req.Algorithm == "" {
		req.Algorithm = opt.AlgoACO
	}
	if req.Algorithm != opt.AlgoGreedy && req.Algorithm != opt.AlgoACO {
		return fmt.Errorf("invalid algorithm: %s (allowed: greedy,aco)", req.Algorithm)
	}
	hasVRP := strings.TrimSpace(req.VRP) != ""
	if (req.Instance == nil) == !hasVRP {
		return fmt.Errorf("exactly one of instance or vrp must be set")
	}
	if req.Instance != nil && len(req.Instance.Nodes) > cfg.MaxNodes {
		return fmt.Errorf("instance has %d nodes, limit is %d", len(req.Instance.Nodes), cfg.MaxNodes)
	}
	if p := req.ACO; p != nil {
		if p.Iterations != nil && *p.Iterations > cfg.MaxIterations {
			return fmt.Errorf("iterations must be <= %d", cfg.MaxIterations)
		}
		if p.Ants != nil && *p.Ants > 10000 {
			return fmt.Errorf("ants must be <= 10000")
		}
	}
	if req.CallbackURL != "" {
		u, err := url.Parse(req.CallbackURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("callbackUrl must be an absolute http(s) URL")
		}
	}
	if req.CallbackSecret != "" && req.CallbackURL == "" {
		return fmt.Errorf("callbackSecret requires callbackUrl")
	}
	return nil
}

// colonyConfig overlays request overrides on the server defaults. Range checks are left to
// opt.Config.Validate.
func colonyConfig(base opt.Config, p *model.ACOParams) opt.Config {
	if p == nil {
		return base
	}
	if p.Ants != nil {
		base.Ants = *p.Ants
	}
	if p.Alpha != nil {
		base.Alpha = *p.Alpha
	}
	if p.Beta != nil {
		base.Beta = *p.Beta
	}
	if p.Evaporation != nil {
		base.Evaporation = *p.Evaporation
	}
	if p.Deposit != nil {
		base.Deposit = *p.Deposit
	}
	if p.InitialPheromone != nil {
		base.InitialPheromone = *p.InitialPheromone
	}
	if p.Iterations != nil {
		base.Iterations = *p.Iterations
	}
	if p.EliteAnts != nil {
		base.EliteAnts = *p.EliteAnts
	}
	if p.EliteReinforcement != nil {
		base.EliteReinforcement = *p.EliteReinforcement
	}
	if p.LocalSearch != nil {
		base.LocalSearch = *p.LocalSearch
	}
	return base
}
