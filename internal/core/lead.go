package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const EventLeadCreated = "lead.created"

// Fields is a lead's submitted values keyed by accepted field name. Stored as JSONB.
type Fields map[string]string

func (f Fields) Value() (driver.Value, error) {
	if f == nil {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *Fields) Scan(value interface{}) error {
	if value == nil {
		*f = Fields{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported lead_data type %T", value)
	}
	return json.Unmarshal(data, f)
}

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type Lead struct {
	ID        int64     `json:"id" db:"id"`
	TenantID  int64     `json:"company_id" db:"company_id"`
	Fields    Fields    `json:"lead_data" db:"lead_data"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
