package catalog

import (
	"context"
	"encoding/json"

	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
	"github.com/servicebook/servicebook/internal/store"
)

// LoadFormulaHistory returns the saved calculator entries. Anything other than a list reads as an
// empty history; null entries are dropped.
func LoadFormulaHistory(ctx context.Context, st store.Store) ([]json.RawMessage, error) {
	snap, err := st.Get(ctx, ledger.FormulaHistoryPath)
	if err != nil {
		return nil, shared.WrapStore("get", ledger.FormulaHistoryPath, err)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(snap.Raw(), &list); err != nil {
		return []json.RawMessage{}, nil
	}
	out := make([]json.RawMessage, 0, len(list))
	for _, entry := range list {
		if !shared.IsNull(entry) {
			out = append(out, entry)
		}
	}
	return out, nil
}
