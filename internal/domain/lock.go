package domain

// LockStatus is the per-investor, per-offering participation record.
// Created on an investor's first investment, accumulated on each subsequent
// one, never deleted during the offering's life. Its Address is derived from
// ("lock_status", investor, mint).
type LockStatus struct {
	Address         string
	Bump            uint8
	Investor        string
	TokenMint       string
	TotalInvested   int64 // cumulative payment base units
	TotalTokens     int64 // cumulative security-token base units received
	InvestmentCount int64
	FirstInvestedAt int64 // Unix seconds
	LastInvestedAt  int64
	Version         int64
}
