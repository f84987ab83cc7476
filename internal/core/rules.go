package core

import "staytrack/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewRoomCapacityRule())
	engine.Register(NewRoomNumberUniqueRule())
	engine.Register(NewPaymentMonthUniqueRule())
	return engine
}
