package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SnapshotColumn wraps a WeatherSnapshot for JSONB column storage. It
// implements sql.Scanner and driver.Valuer so prediction rows can persist
// the full snapshot used at scoring time without a column per field.
type SnapshotColumn struct {
	Snapshot *WeatherSnapshot
}

// Scan implements the sql.Scanner interface for reading JSONB from the
// database. A NULL column yields a nil snapshot.
func (c *SnapshotColumn) Scan(value interface{}) error {
	if value == nil {
		c.Snapshot = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("snapshot: unsupported scan type %T", value)
	}
	var snap WeatherSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	c.Snapshot = &snap
	return nil
}

// Value implements the driver.Valuer interface for writing JSONB to the
// database. A nil snapshot is written as NULL.
func (c SnapshotColumn) Value() (driver.Value, error) {
	if c.Snapshot == nil {
		return nil, nil
	}
	return json.Marshal(c.Snapshot)
}
