package app

import "github.com/dkeye/Chat/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a connection whose send queue is full.
type Policy interface {
	OnBackPressure(id domain.ConnID) BackpressureAction
}

// SimplePolicy kicks slow consumers; their disconnect cleans up membership.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.ConnID) BackpressureAction {
	return KickMember
}

// LenientPolicy drops the frame and keeps the connection.
type LenientPolicy struct{}

func (LenientPolicy) OnBackPressure(domain.ConnID) BackpressureAction {
	return DropFrame
}
