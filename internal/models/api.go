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

package models

// LinkAccountsRequest is the body of the account linking endpoint.
// Empty fields fall back to the configured default pair.
type LinkAccountsRequest struct {
	TargetEmail    string `json:"targetEmail,omitempty"`
	TargetUsername string `json:"targetUsername,omitempty"`
	SourceEmail    string `json:"sourceEmail,omitempty"`
}

// StepReport summarizes one merge pipeline step
type StepReport struct {
	Name      string `json:"name"`
	Critical  bool   `json:"critical"`
	Status    string `json:"status"` // "ok", "failed"
	Affected  int64  `json:"affected"`
	Conflicts int64  `json:"conflicts,omitempty"`
	Error     string `json:"error,omitempty"`
}

// LinkAccountsResponse is returned by a successful merge
type LinkAccountsResponse struct {
	Success      bool         `json:"success"`
	PrimaryEmail string       `json:"primaryEmail"`
	LinkedEmail  string       `json:"linkedEmail"`
	TargetUserId string       `json:"targetUserId"`
	SourceUserId string       `json:"sourceUserId"`
	Steps        []StepReport `json:"steps,omitempty"`
}

// ErrorResponse is the body of every failed admin request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AwardRequest selects the identity receiving the full achievement set
type AwardRequest struct {
	Email      string `json:"email,omitempty"`
	IdentityId string `json:"identityId,omitempty"`
}

// AwardResponse summarizes a full-set award
type AwardResponse struct {
	Success    bool     `json:"success"`
	IdentityId string   `json:"identityId"`
	Granted    []string `json:"granted"`
	AlreadyHad []string `json:"alreadyHad"`
}

// SeedResponse summarizes a catalog seed run
type SeedResponse struct {
	Success  bool `json:"success"`
	Created  int  `json:"created"`
	Existing int  `json:"existing"`
}

// NormalizeResponse summarizes a progression normalization run
type NormalizeResponse struct {
	Success       bool  `json:"success"`
	UpdatedCount  int64 `json:"updatedCount"`
	DefaultGrants int   `json:"defaultGrants"`
}
