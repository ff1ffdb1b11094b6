package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// payloadHash fingerprints the semantically meaningful fields of a
// GenerationRequest, so a replayed idempotency key can be told apart
// from a reused key carrying a different request (spec.md §5.C). No
// library in the example pack does request fingerprinting; crypto/sha256
// is the standard tool for this regardless of domain.
func payloadHash(req GenerationRequest) string {
	ids := make([]string, len(req.RotationIDs))
	for i, id := range req.RotationIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)

	pgy := "ALL"
	if req.PGYLevelFilter != nil {
		pgy = fmt.Sprintf("%d", *req.PGYLevelFilter)
	}

	raw := fmt.Sprintf("%s|%s|%s|%s|%v",
		req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"),
		req.Algorithm, pgy, ids)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
