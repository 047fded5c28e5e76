// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TruncateRunes shortens s to at most maxRunes runes, appending ellipsis
// iff the input was longer. The input is NFC-normalized first so combining
// sequences count as the characters a user sees.
func TruncateRunes(s string, maxRunes int, ellipsis string) string {
	s = norm.NFC.String(s)
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + ellipsis
}

// CollapseWhitespace replaces newlines and carriage returns with single
// spaces, for one-line previews of multi-line content.
func CollapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
