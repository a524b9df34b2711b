package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeReceiptID computes a deterministic receipt_id using SHA256.
// Formula: SHA256(sto_address|investor|total_sold_after|investment_count_after)
// Returns hex-encoded hash (64 characters).
//
// total_sold_after and investment_count_after are the offering-wide and
// per-investor counters after the commit; both are strictly monotonic, so
// the ID is unique per accepted investment.
func ComputeReceiptID(
	stoAddress string,
	investor string,
	totalSoldAfter int64,
	investmentCountAfter int64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d",
		stoAddress,
		investor,
		totalSoldAfter,
		investmentCountAfter,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
