// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// secretPrefix marks Standard Webhooks secrets whose remainder is base64.
const secretPrefix = "whsec_"

// ConstantTimeEqual compares two strings without leaking the position of the
// first difference. It always walks max(len(a), len(b)) bytes and folds the
// length difference into the result.
func ConstantTimeEqual(a, b string) bool {
	diff, _ := compare(a, b)
	return diff == 0
}

// compare returns the accumulated difference and the number of bytes visited.
func compare(a, b string) (int, int) {
	diff := len(a) ^ len(b)
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		var ca, cb byte
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}
		diff |= int(ca ^ cb)
	}
	return diff, n
}

func sign(key []byte, parts ...string) []byte {
	mac := hmac.New(sha256.New, key)
	for _, p := range parts {
		mac.Write([]byte(p))
	}
	return mac.Sum(nil)
}

// secretForms expands one configured secret into the key bytes worth trying.
// Providers disagree on whether the whsec_ prefix is part of the key and on
// whether the remainder is base64, so the raw, stripped and decoded forms are
// all candidates. Duplicates are dropped and order is stable.
func secretForms(secret string) [][]byte {
	if secret == "" {
		return nil
	}

	stripped := strings.TrimPrefix(secret, secretPrefix)
	candidates := []string{secret, stripped}
	if decoded, err := base64.StdEncoding.DecodeString(stripped); err == nil && len(decoded) > 0 {
		candidates = append(candidates, string(decoded))
	}

	seen := make(map[string]struct{}, len(candidates))
	forms := make([][]byte, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		forms = append(forms, []byte(c))
	}
	return forms
}
