package vehicles

// VehicleInput is the editable part of a vehicle.
type VehicleInput struct {
	Plate   string `json:"plate" validate:"notblank"`
	Type    string `json:"type"`
	Remarks string `json:"remarks"`
}

// ReorderInput moves the vehicle at From to position To within its company.
type ReorderInput struct {
	From int `json:"from" validate:"gte=0"`
	To   int `json:"to" validate:"gte=0"`
}
