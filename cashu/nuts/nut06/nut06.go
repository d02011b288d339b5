// Package nut06 is a service's self-description: name, contact info,
// and which protocol extensions (the nut-numbered packages elsewhere in
// this module) it supports.
package nut06

import (
	"bytes"
	"encoding/json"
	"slices"
)

type Info struct {
	Name        string        `json:"name"`
	Pubkey      string        `json:"pubkey"`
	Version     string        `json:"version"`
	Description string        `json:"description"`
	Contact     []ContactInfo `json:"contact,omitempty"`
	Nuts        NutsMap       `json:"nuts"`
}

type ContactInfo struct {
	Method string `json:"method"`
	Info   string `json:"info"`
}

type NutsMap map[int]any

// MarshalJSON renders supported nuts in ascending numeric order rather
// than Go's randomized map iteration order.
func (nm NutsMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	nuts := make([]int, 0, len(nm))
	for k := range nm {
		nuts = append(nuts, k)
	}
	slices.Sort(nuts)

	for j, num := range nuts {
		if j != 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(num)
		if err != nil {
			return nil, err
		}
		buf.WriteByte('"')
		buf.Write(key)
		buf.WriteByte('"')
		buf.WriteByte(':')
		val, err := json.Marshal(nm[num])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
