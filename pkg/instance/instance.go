package instance

import (
	"fmt"
	"os"
)

// GetID names this worker process for log correlation. Deployments set
// WORKER_ID per replica; bare processes fall back to the pid.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	return fmt.Sprintf("worker-%d", os.Getpid())
}
