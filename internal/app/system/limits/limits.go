// internal/app/system/limits/limits.go
package limits

import "time"

// Request body size limits.
const (
	// MaxGovernanceBody bounds governance API request bodies. Proposal
	// payloads are short text fields.
	MaxGovernanceBody = 64 << 10 // 64 KB
)

// Write rate defaults for the governance API.
const (
	DefaultWriteLimit  = 60
	DefaultWriteWindow = time.Minute
)
