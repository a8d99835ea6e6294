// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"fmt"
	"net/http"
)

// ReadinessCheck returns an error describing why the service is not ready.
type ReadinessCheck func() error

// RegisterHealth mounts /livez and /readyz on mux.
func RegisterHealth(mux *http.ServeMux, checks ...ReadinessCheck) {
	// Livez always answers while the process runs; the service must detect
	// non-recoverable errors itself and exit.
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "OK\n")
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		for _, check := range checks {
			if err := check(); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		fmt.Fprintf(w, "OK\n")
	})
}
