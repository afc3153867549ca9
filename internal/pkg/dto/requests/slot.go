package requests

type CreateSlot struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Shift       int    `json:"shift" validate:"oneof=0 1"`
	PackageID   string `json:"package_id" validate:"required"`
	MaxQuantity int    `json:"max_quantity" validate:"gte=0"`
}

type UpdateSlotMaxQuantity struct {
	MaxQuantity int `json:"max_quantity" validate:"gte=0"`
}
