package models

// Requests for the HTTP surface. Defined in domain for consistency and reuse.

type AnalyzeRequest struct {
	ContractID string `json:"contract_id" validate:"required"`
}

type StrategyRunRequest struct {
	ContractIDs []string `json:"contract_ids" validate:"required,min=1,max=100,dive,required"`
}

type AlertsRequest struct {
	Type string `query:"type" json:"type" validate:"omitempty,oneof=RISK_LIMIT_EXCEEDED"`
}

type ContractsRequest struct {
	SeriesID string `query:"series_id" json:"series_id"`
	Limit    int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=500"`
}
