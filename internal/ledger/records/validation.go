package records

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
)

// ItemCatalog resolves service item references to their current name and price.
type ItemCatalog interface {
	Find(ctx context.Context, id string) (name string, price float64, ok bool, err error)
}

// buildItems validates the submitted items and converts them into line items, snapshotting catalog
// names and prices. A caller-supplied price on a catalog item overrides the catalog price; the
// catalog price is kept as originalPrice. Catalog lines already on the record (previous) keep their
// stored snapshot unless the caller sends a different price.
func (s *Service) buildItems(ctx context.Context, inputs []ItemInput, previous ledger.LineItems) (ledger.LineItems, error) {
	fields := map[string]string{}
	items := make(ledger.LineItems, 0, len(inputs))
	stored := map[string][]ledger.LineItem{}
	for _, li := range previous {
		if li.Kind == ledger.KindCatalog && li.ID != "" {
			stored[li.ID] = append(stored[li.ID], li)
		}
	}
	for i, in := range inputs {
		key := fmt.Sprintf("items[%d]", i)
		name := strings.TrimSpace(in.Name)
		kind := in.Kind
		if kind == "" {
			kind = "catalog"
			if strings.TrimSpace(in.ID) == "" {
				kind = "custom"
			}
		}

		switch kind {
		case "catalog":
			item := ledger.LineItem{Kind: ledger.KindCatalog, ID: strings.TrimSpace(in.ID), Name: name, Quantity: in.Quantity}
			if item.ID == "" {
				fields[key+".id"] = "is required"
				continue
			}
			if prior := stored[item.ID]; len(prior) > 0 {
				stored[item.ID] = prior[1:]
				item = keepSnapshot(prior[0], item, in.Price)
			} else if s.catalog != nil {
				catName, catPrice, ok, err := s.catalog.Find(ctx, item.ID)
				if err != nil {
					return nil, err
				}
				if ok {
					if item.Name == "" {
						item.Name = catName
					}
					item.Price = catPrice
					if in.Price != nil && *in.Price != catPrice {
						original := catPrice
						item.OriginalPrice = &original
						item.Price = *in.Price
					}
				} else if in.Price != nil {
					item.Price = *in.Price
				}
			} else if in.Price != nil {
				item.Price = *in.Price
			}
			if item.Name == "" {
				fields[key+".name"] = "is required"
			}
			if item.Price < 0 {
				fields[key+".price"] = "must not be negative"
			}
			items = append(items, item)
		case "custom":
			if in.Quantity > 1 {
				fields[key+".quantity"] = "only applies to catalog items"
			}
			item := ledger.LineItem{Kind: ledger.KindCustom, Name: name}
			if in.Price != nil {
				item.Price = *in.Price
			}
			if name == "" {
				fields[key+".name"] = "is required"
			}
			if item.Price < 0 {
				fields[key+".price"] = "must not be negative"
			}
			items = append(items, item)
		case "adjustment":
			if in.Quantity > 1 {
				fields[key+".quantity"] = "only applies to catalog items"
			}
			item := ledger.LineItem{Kind: ledger.KindAdjustment, ID: strings.TrimSpace(in.ID), Name: name}
			if item.ID == "" {
				item.ID = strconv.FormatInt(s.now().UnixMilli(), 10)
			}
			if in.Price != nil {
				item.Price = *in.Price
			}
			if name == "" {
				fields[key+".name"] = "is required"
			}
			items = append(items, item)
		}
	}
	if len(fields) > 0 {
		return nil, shared.NewValidationError(fields)
	}
	return items, nil
}

// keepSnapshot carries a stored catalog line into an edit. The stored price stands unless price
// differs from it; the first override remembers the stored price as originalPrice, and returning to
// originalPrice clears the override.
func keepSnapshot(prior, submitted ledger.LineItem, price *float64) ledger.LineItem {
	item := submitted
	if item.Name == "" {
		item.Name = prior.Name
	}
	item.Price = prior.Price
	if prior.OriginalPrice != nil {
		original := *prior.OriginalPrice
		item.OriginalPrice = &original
	}
	if price != nil && *price != prior.Price {
		if item.OriginalPrice == nil {
			original := prior.Price
			item.OriginalPrice = &original
		}
		item.Price = *price
	}
	if item.OriginalPrice != nil && *item.OriginalPrice == item.Price {
		item.OriginalPrice = nil
	}
	return item
}

func (in RecordInput) normalized() RecordInput {
	in.Date = strings.TrimSpace(in.Date)
	in.PaymentType = strings.TrimSpace(in.PaymentType)
	in.Remarks = strings.TrimSpace(in.Remarks)
	return in
}
