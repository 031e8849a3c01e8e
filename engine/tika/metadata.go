// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package tika

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// parseMetadataJSON flattens Tika's JSON metadata into string values.
// Multi-valued fields are joined with ", ". Recursive (/rmeta style) output
// is accepted and only the container document is kept.
func parseMetadataJSON(b []byte) (map[string]string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("empty metadata output")
	}

	var raw map[string]interface{}
	if b[0] == '[' {
		var list []map[string]interface{}
		if err := json.Unmarshal(b, &list); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("empty metadata list")
		}
		raw = list[0]
	} else if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if k == "X-TIKA:content" {
			continue
		}
		out[k] = flatten(v)
	}
	return out, nil
}

func flatten(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, flatten(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}
