package idprop

import "errors"

var (
	// ErrNoScenes means no scene exists to hold the id counters. The host
	// guarantees at least one scene, so this is a structural precondition
	// violation and the one condition that propagates instead of being
	// absorbed into a sentinel.
	ErrNoScenes = errors.New("idprop: no scenes present to hold id counters")

	// ErrUnknownKind means a collection kind outside the tracked set.
	ErrUnknownKind = errors.New("idprop: unknown collection kind")
)
