// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxParser struct{}

func (xlsxParser) contentType() string { return ContentTypeXLSX }

func (xlsxParser) text(ctx context.Context, data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("xlsx: %w", err)
	}
	defer f.Close()

	var out strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("xlsx: sheet %q: %w", sheet, err)
		}
		out.WriteString(sheet)
		out.WriteByte('\n')
		for _, row := range rows {
			out.WriteByte('\t')
			out.WriteString(strings.Join(row, "\t"))
			out.WriteByte('\n')
		}
		out.WriteByte('\n')
	}
	return out.String(), nil
}

func (xlsxParser) metadata(_ context.Context, data []byte) (map[string]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	defer f.Close()

	md := map[string]string{
		"sheets": fmt.Sprintf("%d", len(f.GetSheetList())),
	}
	props, err := f.GetDocProps()
	if err != nil {
		return nil, fmt.Errorf("xlsx: document properties: %w", err)
	}
	for k, v := range map[string]string{
		"dc:title":         props.Title,
		"dc:subject":       props.Subject,
		"dc:creator":       props.Creator,
		"dc:description":   props.Description,
		"dc:language":      props.Language,
		"meta:keyword":     props.Keywords,
		"meta:last-author": props.LastModifiedBy,
		"cp:category":      props.Category,
		"cp:revision":      props.Revision,
		"dcterms:created":  props.Created,
		"dcterms:modified": props.Modified,
	} {
		if v = strings.TrimSpace(v); v != "" {
			md[k] = v
		}
	}
	return md, nil
}
