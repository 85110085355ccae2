package models

// PlanRow is one row of a MySQL EXPLAIN result. Nullable columns are pointers
// so a missing key, key_len or possible_keys stays distinguishable from an
// empty value.
type PlanRow struct {
	ID           *int64     `db:"id"`
	SelectType   *string    `db:"select_type"`
	Table        *string    `db:"table"`
	Partitions   *string    `db:"partitions"`
	AccessType   *string    `db:"type"`
	PossibleKeys *string    `db:"possible_keys"`
	Key          *string    `db:"key"`
	KeyLen       *KeyLength `db:"key_len"`
	Ref          *string    `db:"ref"`
	Rows         *int64     `db:"rows"`
	Filtered     *float64   `db:"filtered"`
	Extra        *string    `db:"Extra"`
}

// TableName returns the accessed table, or an empty string when the step
// touches no table (e.g. "No tables used").
func (r PlanRow) TableName() string {
	if r.Table == nil {
		return ""
	}
	return *r.Table
}

// KeyName returns the chosen index, or an empty string when none was chosen.
func (r PlanRow) KeyName() string {
	if r.Key == nil {
		return ""
	}
	return *r.Key
}

// Attributes flattens the row into column name/value pairs. NULL columns map
// to nil.
func (r PlanRow) Attributes() map[string]interface{} {
	attrs := map[string]interface{}{
		"id":            nil,
		"select_type":   nullableString(r.SelectType),
		"table":         nullableString(r.Table),
		"partitions":    nullableString(r.Partitions),
		"type":          nullableString(r.AccessType),
		"possible_keys": nullableString(r.PossibleKeys),
		"key":           nullableString(r.Key),
		"key_len":       nil,
		"ref":           nullableString(r.Ref),
		"rows":          nil,
		"filtered":      nil,
		"Extra":         nullableString(r.Extra),
	}
	if r.ID != nil {
		attrs["id"] = *r.ID
	}
	if r.KeyLen != nil {
		attrs["key_len"] = r.KeyLen.Raw
	}
	if r.Rows != nil {
		attrs["rows"] = *r.Rows
	}
	if r.Filtered != nil {
		attrs["filtered"] = *r.Filtered
	}
	return attrs
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
