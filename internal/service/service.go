// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

// Service is implemented by every service the HTTP layer depends on.
type Service interface {
	ServiceReady() bool
}

var _ Service = (*IngestService)(nil)
