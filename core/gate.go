package orchestration

import "crypto/subtle"

// Gate is a shared-secret check that has to pass before a session may
// connect.
type Gate struct {
	pin []byte
}

func NewGate(pin string) *Gate {
	return &Gate{pin: []byte(pin)}
}

func (g *Gate) Check(pin string) bool {
	if g == nil {
		return true
	}
	if len(g.pin) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(g.pin, []byte(pin)) == 1
}
