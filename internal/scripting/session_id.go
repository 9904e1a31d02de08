package scripting

import (
	"os"

	"github.com/google/uuid"
)

// SessionIDEnv, when set, overrides the generated engine session ID.
const SessionIDEnv = "RADSCRIPT_SESSION_ID"

// discoverSessionID picks the engine session ID: the explicit override, then
// SessionIDEnv, then a fresh random UUID.
func discoverSessionID(override string) string {
	if override != "" {
		return override
	}
	if id := os.Getenv(SessionIDEnv); id != "" {
		return id
	}
	return uuid.NewString()
}
