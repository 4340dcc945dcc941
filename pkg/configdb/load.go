package configdb

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ParseConfigJSON parses a config_db.json-format snapshot into an ordered
// change list for PipelineSet:
//
//	{ "TABLE": { "key": { "field": "value", ... }, ... }, ... }
//
// An entry with an empty field map becomes a NULL-sentinel write. Changes
// are ordered by table then key so repeated loads produce the same
// transaction.
func ParseConfigJSON(data []byte) ([]TableChange, error) {
	var tables map[string]map[string]map[string]string
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("parsing config snapshot: %w", err)
	}

	var changes []TableChange
	for table, entries := range tables {
		for key, fields := range entries {
			if fields == nil {
				fields = map[string]string{}
			}
			changes = append(changes, TableChange{Table: table, Key: key, Fields: fields})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Table != changes[j].Table {
			return changes[i].Table < changes[j].Table
		}
		return changes[i].Key < changes[j].Key
	})
	return changes, nil
}
