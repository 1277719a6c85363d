package strategy

import "encoding/json"

type persistedDB struct {
	NextID  uint64           `json:"next_id"`
	Entries map[uint64]Entry `json:"entries"`
}

func encodeEntries(entries map[uint64]*Entry, nextID uint64) ([]byte, error) {
	flat := make(map[uint64]Entry, len(entries))
	for id, e := range entries {
		flat[id] = *e
	}
	return json.Marshal(persistedDB{NextID: nextID, Entries: flat})
}

func decodeEntries(data []byte) (map[uint64]*Entry, uint64, error) {
	var p persistedDB
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, 0, err
	}
	out := make(map[uint64]*Entry, len(p.Entries))
	for id, e := range p.Entries {
		cp := e
		out[id] = &cp
	}
	return out, p.NextID, nil
}
