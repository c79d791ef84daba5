package utils

import (
	"log"
	"strings"
)

// LogEvent prints a single key=value line tagged with the module name.
// Payloads must be summarised by the caller; never log tokens or
// passwords.
func LogEvent(requestID, module, action, message string) {
	req := strings.TrimSpace(requestID)
	if req == "" {
		req = "-"
	}
	log.Printf("[%s] action=%s request_id=%s msg=%s", strings.ToUpper(module), action, req, message)
}
