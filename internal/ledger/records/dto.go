package records

// ItemInput is one line item as submitted by the record form.
type ItemInput struct {
	Kind     string   `json:"kind" validate:"omitempty,oneof=catalog custom adjustment"`
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	Quantity int      `json:"quantity" validate:"gte=0"`
}

// RecordInput is the editable part of a record.
type RecordInput struct {
	Date        string      `json:"date" validate:"required,datetime=2006-01-02"`
	PaymentType string      `json:"payment_type" validate:"required,oneof=receivable payable"`
	Items       []ItemInput `json:"items" validate:"min=1,dive"`
	Remarks     string      `json:"remarks"`
}
