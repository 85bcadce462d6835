package model

import "time"

// ConnectionID identifies one live real-time transport session
type ConnectionID string

// Presence is a registry entry: one identity bound to one connection
type Presence struct {
	ConnectionID  ConnectionID
	Identity      Identity
	EstablishedAt time.Time
}
