package resources

type SetDegradedBody struct {
	Degraded *bool `json:"degraded" binding:"required"`
}

type SetDegradedResponse struct {
	NodeID   string `json:"node_id"`
	Degraded bool   `json:"degraded"`
}
