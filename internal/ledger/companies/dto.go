package companies

// CompanyInput is the editable part of a company.
type CompanyInput struct {
	Name    string `json:"name" validate:"notblank"`
	TaxID   string `json:"tax_id"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ReorderInput moves the company at From to position To.
type ReorderInput struct {
	From int `json:"from" validate:"gte=0"`
	To   int `json:"to" validate:"gte=0"`
}
