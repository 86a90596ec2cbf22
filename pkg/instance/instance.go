package instance

import "os"

// GetID identifies this process in logs when several replicas run.
func GetID() string {
	if id := os.Getenv("SHOPFLOOR_INSTANCE_ID"); id != "" {
		return id
	}
	return "shopfloor-0"
}
