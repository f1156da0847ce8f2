/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package contact normalizes and validates contact addresses. Every address is
// normalized before it is looked up or stored, otherwise merges silently fail
// to find their match.
package contact

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Normalize trims, NFC-normalizes and lower-cases an address.
func Normalize(address string) string {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return ""
	}
	// cases.Caser is stateful, one per call
	return cases.Lower(language.Und).String(norm.NFC.String(trimmed))
}

// Validate checks that an address is a plausible e-mail address.
func Validate(address string) error {
	if address == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(address) {
		return fmt.Errorf("invalid email format: %s", address)
	}
	return nil
}

// NormalizeAndValidate returns the normalized address or a validation error.
func NormalizeAndValidate(address string) (string, error) {
	normalized := Normalize(address)
	if err := Validate(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// NormalizeWallet lower-cases a hex wallet address so equality is case-insensitive.
func NormalizeWallet(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
