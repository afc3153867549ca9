package responses

type Slot struct {
	SlotID            string `json:"slot_id"`
	Date              string `json:"date"`
	Shift             string `json:"shift"`
	PackageID         string `json:"package_id"`
	MaxQuantity       int    `json:"max_quantity"`
	RemainingQuantity int    `json:"remaining_quantity"`
}

type SlotCreated struct {
	SlotID string `json:"slot_id"`
}
