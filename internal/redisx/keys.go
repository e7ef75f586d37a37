package redisx

import "time"

const (
	// Session per browser: session:{session_id} -> JSON session
	KeySession = "session:%s"

	// Cart draft per browser: cart:{session_id} -> JSON array of lines
	KeyCart = "cart:%s"
)

var (
	TTLSession = 12 * time.Hour
	TTLCart    = 7 * 24 * time.Hour
)
