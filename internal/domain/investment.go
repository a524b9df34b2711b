package domain

// InvestmentReceipt is the durable record of a single accepted investment.
// Corresponds to the investments table in PostgreSQL and the analytics
// mirror in ClickHouse.
type InvestmentReceipt struct {
	ReceiptID    string // deterministic hash, see idhash.ComputeReceiptID
	StoAddress   string
	Investor     string
	TokenMint    string
	PaymentMint  string
	AmountPaid   int64 // payment-token base units
	TokensIssued int64 // security-token base units
	Rate         int64 // rate applied at fill time
	Discounted   bool
	Tier         uint8 // tier index the fill was served from
	Timestamp    int64 // Unix seconds at acceptance
	CreatedAt    int64
}

// TransferLeg moves payment tokens between two accounts.
type TransferLeg struct {
	From   string
	To     string
	Mint   string
	Amount int64
}

// MintLeg issues security tokens to a destination account.
type MintLeg struct {
	Mint   string
	Dest   string
	Amount int64
}

// InvestmentCommit bundles every effect of one investment into a single
// atomic unit of work. A committer applies all of it or none of it:
// the payment debit, the token credit, the offering counter update, the
// lock status update and the receipt. StoVersion and LockVersion are the
// versions the effects were computed against; a committer rejects the
// commit if either has moved since, and assigns the incremented versions
// itself on success.
type InvestmentCommit struct {
	Sto         *StoConfig // next state at the snapshot version
	StoVersion  int64      // expected stored version
	Lock        *LockStatus
	LockVersion int64 // expected stored version; 0 means create
	Receipt     *InvestmentReceipt
	Payment     TransferLeg
	Issue       MintLeg
}
