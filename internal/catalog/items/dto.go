package items

// ItemInput is the editable part of a service item. ID is only read on create; when empty a
// time-based id is assigned.
type ItemInput struct {
	ID    string   `json:"id"`
	Name  string   `json:"name" validate:"notblank"`
	Price *float64 `json:"price" validate:"required,gte=0"`
}

// ReorderInput moves the item at From to position To.
type ReorderInput struct {
	From int `json:"from" validate:"gte=0"`
	To   int `json:"to" validate:"gte=0"`
}
