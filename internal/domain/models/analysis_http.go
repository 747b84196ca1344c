package models

// Requests for analysis HTTP endpoints. Defined in domain for consistency and reuse.

type AnalysisHTTPRequest struct {
	Start   string             `query:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
	End     string             `query:"end" json:"end" validate:"omitempty,datetime=2006-01-02"`
	Assets  []string           `json:"assets" validate:"omitempty,min=1,dive,required"`
	Method  string             `query:"method" json:"method" default:"log" validate:"oneof=log simple"`
	Window  int                `query:"window" json:"window" default:"60" validate:"gte=20,lte=120"`
	Weights map[string]float64 `json:"weights" validate:"omitempty,dive,gte=0"`
	Moves   []float64          `json:"moves" validate:"omitempty,max=25"`
}
