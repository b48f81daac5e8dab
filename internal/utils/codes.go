package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateInternalCode mints an internal product code for products created
// during ingestion. Backed by a UUID so concurrent imports cannot collide.
func GenerateInternalCode() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "AUTO" + id[:10]
}
