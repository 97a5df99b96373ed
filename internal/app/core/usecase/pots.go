package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/JoeShih716/go-mem-custody/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-custody/internal/app/metrics"
)

var addActions = map[domain.Pot]string{
	domain.PotSilver:    domain.ActionAddSilver,
	domain.PotGold:      domain.ActionAddGold,
	domain.PotHighScore: domain.ActionAddHighScorePot,
}

var resetActions = map[domain.Pot]string{
	domain.PotSilver:    domain.ActionResetSilver,
	domain.PotGold:      domain.ActionResetGold,
	domain.PotHighScore: domain.ActionResetHighScorePot,
}

// AddToPot 增加獎池，呼叫者不在白名單時回傳 false 且不做任何事
func (c *CoreUseCase) AddToPot(ctx context.Context, caller domain.Identity, pot domain.Pot, amount uint64) bool {
	action, ok := addActions[pot]
	if !ok {
		return false
	}
	return c.mutatePot(ctx, caller, pot, action, amount, func(st *domain.State) error {
		return st.AddToPot(pot, amount)
	})
}

// ResetPot 將獎池設回固定值 (銀 25 000 000 / 金 250 000 000 / 高分 0)
func (c *CoreUseCase) ResetPot(ctx context.Context, caller domain.Identity, pot domain.Pot) bool {
	action, ok := resetActions[pot]
	if !ok {
		return false
	}
	reseed, err := domain.ReseedAmount(pot)
	if err != nil {
		return false
	}
	return c.mutatePot(ctx, caller, pot, action, reseed, func(st *domain.State) error {
		return st.SetPot(pot, reseed)
	})
}

func (c *CoreUseCase) mutatePot(ctx context.Context, caller domain.Identity, pot domain.Pot, action string, amount uint64, apply func(st *domain.State) error) bool {
	log := c.log.WithFields(logrus.Fields{
		"caller": caller,
		"pot":    pot.String(),
		"action": action,
		"amount": amount,
	})
	if !c.gate.IsAllowed(caller) {
		log.Warn("pot update rejected: caller not allowed")
		return false
	}

	var current uint64
	err := c.store.Update(ctx, func(st *domain.State, _ *domain.Pending) error {
		if err := apply(st); err != nil {
			return err
		}
		st.AppendLog(domain.NewLogEntry(c.timestamp(), caller, action, amount, nil))
		current, _ = st.PotAmount(pot)
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("pot update failed")
		return false
	}
	metrics.SetPot(pot.String(), current)
	log.Info("pot updated")
	return true
}
