package types

import "github.com/golang-jwt/jwt/v5"

// Claims represents the JWT claims of a worker session
type Claims struct {
	WorkerID string `json:"worker_id"`
	UID      uint   `json:"uid"`
	jwt.RegisteredClaims
}
