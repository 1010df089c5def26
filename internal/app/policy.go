package app

import (
	"fmt"

	"github.com/dkeye/VoiceRelay/internal/domain"
)

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	KickMember
)

// Policy decides what to do with a peer whose outbound queue is full.
type Policy interface {
	OnBackPressure(id domain.ConnectionID) BackpressureAction
}

type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.ConnectionID) BackpressureAction { return DropFrame }

type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.ConnectionID) BackpressureAction { return KickMember }

func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	}
	return nil, fmt.Errorf("%w: unknown backpressure policy %q", domain.ErrValidation, name)
}
