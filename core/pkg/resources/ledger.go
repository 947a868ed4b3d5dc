package resources

type PruneResponse struct {
	Pruned int `json:"pruned"`
}

type VerifyLedgerResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}
