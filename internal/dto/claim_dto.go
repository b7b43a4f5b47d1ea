package dto

type UpdateClaimRequest struct {
	ItemKey string `json:"item_key"`
	Delta   int    `json:"delta"`
}

// ClaimResult reports what actually got applied. A caller that requested more
// than remained (or released more than it held) compares AppliedDelta against
// its request to reconcile optimistic local state.
type ClaimResult struct {
	AppliedDelta int `json:"applied_delta"`
	Quantity     int `json:"quantity"`
}

type DeclarePaymentRequest struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
}

type ConfirmPaymentRequest struct {
	ParticipantKey string `json:"participant_key"`
}

type MigrateRequest struct {
	GuestDeviceID string `json:"guest_device_id"`
}

type MigrationResult struct {
	ReceiptsMigrated     int `json:"receipts_migrated"`
	ParticipantsMigrated int `json:"participants_migrated"`
	ClaimsMigrated       int `json:"claims_migrated"`
}
