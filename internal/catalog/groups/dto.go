package groups

// GroupInput names a group.
type GroupInput struct {
	Name string `json:"name" validate:"notblank"`
}

// ReorderInput moves the group at From to position To.
type ReorderInput struct {
	From int `json:"from" validate:"gte=0"`
	To   int `json:"to" validate:"gte=0"`
}
