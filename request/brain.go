package request

type CreateBrainRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateBrainRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}
