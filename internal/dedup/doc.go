// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package dedup recognizes meeting recordings that describe the same real
// meeting and decides which of them is canonical.
//
// A Fingerprint summarizes a recording as a normalized title, a 15-minute
// start bucket, a 5-minute duration bucket and a participant hash. Two
// fingerprints match when at least two of the three similarity measures
// (title, time overlap, participant overlap) clear their thresholds. The
// merge resolver then picks the primary record of the pair according to the
// owner's priority mode and maintains the merge lineage.
package dedup
