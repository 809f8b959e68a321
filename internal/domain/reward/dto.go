package reward

// CompleteActionRequest triggers a flat action completion
type CompleteActionRequest struct {
	ReferenceID string `json:"reference_id" validate:"required,max=128"`
}

// ActionResponse is the public action definition representation
type ActionResponse struct {
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	BasePoints    int64  `json:"base_points"`
	IsAmountBased bool   `json:"is_amount_based"`
}

func toActionResponse(a *ActionDefinition) ActionResponse {
	return ActionResponse{
		Slug:          a.Slug,
		Name:          a.Name,
		BasePoints:    a.BasePoints,
		IsAmountBased: a.IsAmountBased,
	}
}
