// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package verify makes the match decision for one live descriptor
// against one enrolled identity.
//
// [Service.Verify] never returns an error. Every outcome, including
// invalid input and a failing identity store, is a [Decision] with a
// [Reason] from a closed set, and every call writes exactly one audit
// record before it returns. The audit write is best effort: a failing
// sink is logged and the decision stands.
//
// The threshold is [descriptor.Threshold] and cannot be overridden.
//
// [Service.Enroll] validates and saves a descriptor. Enrollment is not
// audited; it is logged.
package verify
