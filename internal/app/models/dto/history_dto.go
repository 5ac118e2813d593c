package dto

// HistoryResponse lists what the user took part in and, for organizers, what they organized
type HistoryResponse struct {
	Participations ApplicationListResponse `json:"participations"`
	Organized      *ActionListResponse     `json:"organized,omitempty"`
	IsOrganizer    bool                    `json:"isOrganizer" example:"false"`
}
